package backtest

import "math"

// summarize computes the aggregate Summary over a completed set of trades,
// grounded on the prior BacktestEngine.calculateMetrics /
// calculateMaxDrawdown / calculateSharpeRatio trio.
func summarize(trades []Trade, equityCurve []float64, initialBalance, finalBalance float64) Summary {
	s := Summary{TotalTrades: len(trades), FinalBalance: finalBalance}

	var totalProfit, totalLoss float64
	for _, t := range trades {
		if t.PnLQuote > 0 {
			s.Wins++
			totalProfit += t.PnLQuote
		} else {
			s.Losses++
			totalLoss += -t.PnLQuote
		}
	}

	if s.TotalTrades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.TotalTrades) * 100
	}
	if s.Wins > 0 {
		s.AvgWin = totalProfit / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = totalLoss / float64(s.Losses)
	}
	if totalLoss > 0 {
		s.ProfitFactor = totalProfit / totalLoss
	}

	s.MaxDrawdown = maxDrawdown(equityCurve, initialBalance)
	s.SharpeProxy = sharpeProxy(trades)

	return s
}

// maxDrawdown returns the largest peak-to-trough percentage decline across
// the equity curve, anchored at initialBalance before any trade closes.
func maxDrawdown(equityCurve []float64, initialBalance float64) float64 {
	peak := initialBalance
	var worst float64
	for _, equity := range equityCurve {
		if equity > peak {
			peak = equity
		}
		if peak <= 0 {
			continue
		}
		drawdown := (peak - equity) / peak * 100
		if drawdown > worst {
			worst = drawdown
		}
	}
	return worst
}

// sharpeProxy is a simplified, risk-free-rate-zero Sharpe ratio computed
// over per-trade percentage returns rather than a uniform time series,
// since the backtester has no fixed-period equity sampling.
func sharpeProxy(trades []Trade) float64 {
	if len(trades) == 0 {
		return 0
	}

	var total float64
	for _, t := range trades {
		total += t.PnLPct
	}
	mean := total / float64(len(trades))

	var variance float64
	for _, t := range trades {
		d := t.PnLPct - mean
		variance += d * d
	}
	stdDev := math.Sqrt(variance / float64(len(trades)))

	if stdDev == 0 {
		return 0
	}
	return mean / stdDev * math.Sqrt(float64(len(trades)))
}
