// Package backtest replays a historical candle series through the
// decision engine bar by bar, grounded on the prior
// backtest.Backtest kline-windowing loop and its drawdown/summary-stat
// helpers, generalised to this module's decision/position types.
package backtest

import (
	"time"

	"fusionquant/internal/apperrors"
	"fusionquant/internal/candle"
	"fusionquant/internal/decision"
	"fusionquant/internal/feature"
	"fusionquant/internal/position"
	"fusionquant/internal/substrategy"
)

// ExitReason names how a trade closed.
type ExitReason int

const (
	ExitNone ExitReason = iota
	ExitStopLoss
	ExitTP1
	ExitTP2
	ExitTP3
	ExitTimeout
	ExitEnd
)

func (r ExitReason) String() string {
	switch r {
	case ExitStopLoss:
		return "SL"
	case ExitTP1:
		return "TP1"
	case ExitTP2:
		return "TP2"
	case ExitTP3:
		return "TP3"
	case ExitTimeout:
		return "TIMEOUT"
	case ExitEnd:
		return "END"
	default:
		return "NONE"
	}
}

// Trade is one closed position; every trade closes in full at its first
// triggered exit.
type Trade struct {
	OpenTS     int64
	CloseTS    int64
	Side       decision.Action
	Entry      float64
	Exit       float64
	ExitReason ExitReason
	PnLQuote   float64
	PnLPct     float64
}

// Config holds the backtest run parameters.
type Config struct {
	Symbol       string
	Balance      float64
	Leverage     int
	RiskPercent  float64
	StopLossPct  float64
	MaxHoldBars  int
	CandleWindow int // lookback window fed to the integrator per step

	FeatureConfig feature.Config

	// FullSystem, when true, uses stored historical adapter Inputs per
	// step instead of the candle-only partial vector.
	FullSystem       bool
	HistoricalInputs []feature.Inputs // one per step, aligned to candles; ignored unless FullSystem
}

// Summary is the aggregate statistics over a completed run.
type Summary struct {
	TotalTrades  int
	Wins         int
	Losses       int
	WinRate      float64
	AvgWin       float64
	AvgLoss      float64
	MaxDrawdown  float64
	ProfitFactor float64
	SharpeProxy  float64
	FinalBalance float64
}

// Result is the full backtest output.
type Result struct {
	Trades  []Trade
	Summary Summary
}

const minWindow = 24

// Run replays series chronologically and returns every closed trade plus
// summary statistics. It refuses non-monotonic historical input.
func Run(series candle.Series, cfg Config) (Result, error) {
	if err := series.ValidateMonotonic(); err != nil {
		return Result{}, apperrors.Wrap(apperrors.InvalidInput, "backtest candle series is not monotonic", err)
	}
	if cfg.CandleWindow <= 0 {
		cfg.CandleWindow = minWindow
	}
	if cfg.MaxHoldBars <= 0 {
		cfg.MaxHoldBars = 48
	}

	thresholds := decision.DefaultThresholds()
	account := decision.AccountState{Balance: cfg.Balance}

	var trades []Trade
	var open *openPosition
	balance := cfg.Balance
	var equityCurve []float64

	for i := 0; i < len(series); i++ {
		if open != nil {
			if closed, trade := tryClose(*open, series[i], cfg.MaxHoldBars, i); closed {
				trade.PnLPct = pnlPercent(trade)
				trade.PnLQuote = trade.PnLPct / 100 * open.plan.SizeQuote
				balance += trade.PnLQuote
				trades = append(trades, trade)
				equityCurve = append(equityCurve, balance)
				open = nil
			}
			continue
		}

		if i+1 >= len(series) {
			break // no next bar to open on
		}
		if i+1 < cfg.CandleWindow {
			continue
		}

		window := series[i+1-cfg.CandleWindow : i+1]
		v := integrateStep(window, cfg, i)

		var aggregate *substrategy.Aggregate
		if cfg.FullSystem {
			agg := substrategy.RunAll(window, v)
			aggregate = &agg
		}

		d := decision.Decide(v, account, thresholds, aggregate)
		if d.Action == decision.Hold {
			continue
		}

		entry := series[i+1].Open
		plan, err := position.Build(d.Action, entry, v.At(feature.Volatility), position.Account{
			Balance:     balance,
			Leverage:    cfg.Leverage,
			RiskPercent: cfg.RiskPercent,
			StopLossPct: cfg.StopLossPct,
		})
		if err != nil {
			continue
		}

		open = &openPosition{
			plan:      plan,
			side:      d.Action,
			openIndex: i + 1,
			openTS:    series[i+1].OpenTime,
			remaining: 1.0,
		}
	}

	if open != nil {
		last := series[len(series)-1]
		trade := Trade{
			OpenTS:     open.openTS,
			CloseTS:    last.OpenTime,
			Side:       open.side,
			Entry:      open.plan.EntryPrice,
			Exit:       last.Close,
			ExitReason: ExitEnd,
		}
		trade.PnLPct = pnlPercent(trade)
		trade.PnLQuote = trade.PnLPct / 100 * open.plan.SizeQuote * open.remaining
		balance += trade.PnLQuote
		trades = append(trades, trade)
		equityCurve = append(equityCurve, balance)
	}

	return Result{Trades: trades, Summary: summarize(trades, equityCurve, cfg.Balance, balance)}, nil
}

func integrateStep(window candle.Series, cfg Config, stepIndex int) feature.Vector {
	in := feature.Inputs{Candles: window, CandlesAvailable: true}
	if cfg.FullSystem && stepIndex < len(cfg.HistoricalInputs) {
		historical := cfg.HistoricalInputs[stepIndex]
		historical.Candles = window
		historical.CandlesAvailable = true
		in = historical
	}
	now := time.UnixMilli(window[len(window)-1].OpenTime)
	v, _ := feature.Integrate(cfg.Symbol, now, in, cfg.FeatureConfig)
	return v
}

type openPosition struct {
	plan      position.Plan
	side      decision.Action
	openIndex int
	openTS    int64
	remaining float64
}

// tryClose tests bar against the open position's SL/TP ladder in priority
// order (SL first on a tie, per) and closes on timeout or a level hit.
func tryClose(open openPosition, bar candle.Candle, maxHoldBars int, barIndex int) (bool, Trade) {
	long := open.side == decision.Long

	slHit := long && bar.Low <= open.plan.StopLoss || !long && bar.High >= open.plan.StopLoss
	if slHit {
		return true, Trade{OpenTS: open.openTS, CloseTS: bar.OpenTime, Side: open.side, Entry: open.plan.EntryPrice, Exit: open.plan.StopLoss, ExitReason: ExitStopLoss}
	}

	for idx, tp := range open.plan.TakeProfits {
		hit := long && bar.High >= tp.Price || !long && bar.Low <= tp.Price
		if hit {
			reason := []ExitReason{ExitTP1, ExitTP2, ExitTP3}[idx]
			return true, Trade{OpenTS: open.openTS, CloseTS: bar.OpenTime, Side: open.side, Entry: open.plan.EntryPrice, Exit: tp.Price, ExitReason: reason}
		}
	}

	if barIndex-open.openIndex >= maxHoldBars {
		return true, Trade{OpenTS: open.openTS, CloseTS: bar.OpenTime, Side: open.side, Entry: open.plan.EntryPrice, Exit: bar.Close, ExitReason: ExitTimeout}
	}

	return false, Trade{}
}

func pnlPercent(t Trade) float64 {
	if t.Entry == 0 {
		return 0
	}
	pct := (t.Exit - t.Entry) / t.Entry * 100
	if t.Side == decision.Short {
		pct = -pct
	}
	return pct
}
