package feature

import (
	"math"
	"time"

	"fusionquant/internal/adapters"
	"fusionquant/internal/candle"
)

// Config holds the integrator's tunable constants. Zero-value
// fields are replaced with their documented defaults by Integrate.
type Config struct {
	Layout Layout

	ShortMAPeriod int
	LongMAPeriod  int
	TrendEpsilonFraction float64

	EthGasGateGwei float64
	BtcFeeGateSatVB float64
}

// DefaultConfig returns the/ default tunables.
func DefaultConfig() Config {
	return Config{
		Layout:               Base,
		ShortMAPeriod:        7,
		LongMAPeriod:         25,
		TrendEpsilonFraction: 0.001,
		EthGasGateGwei:       30,
		BtcFeeGateSatVB:      15,
	}
}

func (c Config) withDefaults() Config {
	if c.Layout == 0 {
		c.Layout = Base
	}
	if c.ShortMAPeriod == 0 {
		c.ShortMAPeriod = 7
	}
	if c.LongMAPeriod == 0 {
		c.LongMAPeriod = 25
	}
	if c.TrendEpsilonFraction == 0 {
		c.TrendEpsilonFraction = 0.001
	}
	if c.EthGasGateGwei == 0 {
		c.EthGasGateGwei = 30
	}
	if c.BtcFeeGateSatVB == 0 {
		c.BtcFeeGateSatVB = 15
	}
	return c
}

// Inputs bundles every adapter's fetched Result for one integration pass.
// A zero-value (unset) Result field is treated identically to an
// unavailable one: the integrator only looks at Available.
type Inputs struct {
	Candles           candle.Series
	CandlesAvailable  bool
	OrderBook         adapters.Result[adapters.OrderBook]
	Gas               adapters.Result[adapters.GasReading]
	News              adapters.Result[[]adapters.NewsItem]
	Sentiment         adapters.Result[adapters.SentimentReading]
	Macro             adapters.Result[adapters.MacroReading]
	Futures           adapters.Result[adapters.FuturesReading]
	PredictionMarkets adapters.Result[[]adapters.PredictionMarket]
	AIPredictors      adapters.Result[[]adapters.Prediction]
}

// Integrate builds a Vector and Metadata from whichever inputs are
// available, applying the neutral defaults and derived computations
// to everything else. It never fails.
func Integrate(symbol string, now time.Time, in Inputs, cfg Config) (Vector, Metadata) {
	cfg = cfg.withDefaults()

	var values [Extended]float64
	avail := Availability{}

	// Gas: two independent legs, defaults eth=50 btc=20 per.
	ethGas, btcFee := 50.0, 20.0
	if in.Gas.Available {
		ethGas, btcFee = in.Gas.Value.EthGwei, in.Gas.Value.BtcSatVB
		avail.Gas = true
	}
	values[EthGas] = ethGas
	values[BtcFee] = btcFee
	values[EthTradeable] = boolFloat(ethGas <= cfg.EthGasGateGwei)
	values[BtcTradeable] = boolFloat(btcFee <= cfg.BtcFeeGateSatVB)

	// Candles: neutral prices=0, trend=0, volatility=0, volume=0.
	if in.CandlesAvailable && len(in.Candles) > 0 {
		w := candle.Summarize(in.Candles, cfg.ShortMAPeriod, cfg.LongMAPeriod, cfg.TrendEpsilonFraction)
		values[CurrentPrice] = w.CurrentPrice
		values[PriceChangePct] = w.PriceChangePct
		values[AvgVolume] = w.AvgVolume
		values[Volatility] = w.Volatility
		values[Trend] = float64(w.Trend)
		values[HighPrice] = w.HighPrice
		values[LowPrice] = w.LowPrice
		values[PriceRangePct] = w.PriceRangePct
		avail.Candles = true
	}

	// News: neutral score=0, pos=neg=0, count=0, label=0.
	if in.News.Available {
		items := in.News.Value
		count := len(items)
		var pos, neg int
		for _, it := range items {
			switch {
			case it.Sentiment > 0:
				pos++
			case it.Sentiment < 0:
				neg++
			}
		}
		values[NewsCount] = float64(count)
		if count > 0 {
			values[NewsPosRatio] = float64(pos) / float64(count)
			values[NewsNegRatio] = float64(neg) / float64(count)
			values[NewsScore] = float64(pos-neg) / float64(count) * 100
		}
		values[NewsSentimentLabel] = float64(signOf(pos - neg))
		avail.News = true
	}

	// Sentiment: neutral fear_greed=50, label=0, composite=0.
	fearGreed := 50.0
	if in.Sentiment.Available {
		s := in.Sentiment.Value
		values[MarketSentimentScore] = s.Composite
		values[MarketSentimentLabel] = float64(s.Label)
		fearGreed = float64(s.FearGreed)
		values[MarketConfidence] = math.Min(100, math.Abs(s.Composite))
		avail.Sentiment = true
	}
	values[FearGreedIndex] = fearGreed

	// AI predictors: neutral all zeros, consensus=0, agreement=0.
	if in.AIPredictors.Available {
		preds := in.AIPredictors.Value
		var up, down int
		var confSum float64
		for _, p := range preds {
			confSum += p.Confidence
			switch p.Direction {
			case adapters.Up:
				up++
			case adapters.Down:
				down++
			}
		}
		total := len(preds)
		values[AIUpCount] = float64(up)
		values[AIDownCount] = float64(down)
		if total > 0 {
			values[AIAvgConfidence] = confSum / float64(total)
			maxUD := up
			if down > maxUD {
				maxUD = down
			}
			values[AIAgreementRatio] = float64(maxUD) / float64(total)
		}
		gap := up - down
		if gap < 0 {
			gap = -gap
		}
		if gap >= 1 {
			values[AIConsensus] = float64(signOf(up - down))
		}
		avail.AIPredictors = true
	}

	if cfg.Layout == Extended {
		// Order book: neutral imbalance=0, support=50, resistance=50.
		support, resistance := 50.0, 50.0
		if in.OrderBook.Available {
			imbalance := orderBookImbalance(in.OrderBook.Value)
			values[OrderbookImbalance] = imbalance
			support = clampValue(50+imbalance*50, 0, 100)
			resistance = clampValue(50-imbalance*50, 0, 100)
			avail.OrderBook = true
		}
		values[SupportStrength] = support
		values[ResistanceStrength] = resistance

		// Macro: neutral changes=0, vix=20, risk_appetite=50.
		vix := 20.0
		riskAppetite := 50.0
		if in.Macro.Available {
			m := in.Macro.Value
			values[DXYChangePct] = m.DXYChangePct
			values[SP500ChangePct] = m.SP500ChangePct
			vix = m.VIX
			if m.HasRiskAppetite {
				riskAppetite = m.RiskAppetite
			} else {
				riskAppetite = clampValue(50+m.SP500ChangePct*5-(vix-20)*2, 0, 100)
			}
			avail.Macro = true
		}
		values[VIXLevel] = vix
		values[RiskAppetite] = riskAppetite

		// Futures: neutral oi_change=0, funding_trend=0.
		if in.Futures.Available {
			values[OIChangePct] = in.Futures.Value.OIChangePct
			values[FundingTrend] = in.Futures.Value.FundingTrend
			avail.Futures = true
		}
	}

	if in.PredictionMarkets.Available {
		avail.PredictionMarkets = true
	}

	normalized, clamped := normalize(values, cfg.Layout)
	vec := Vector{layout: cfg.Layout, values: normalized}
	meta := Metadata{Symbol: symbol, Available: avail, Clamped: clamped}
	return vec, meta
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func signOf(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func clampValue(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// orderBookImbalance is (bidVolume-askVolume)/(bidVolume+askVolume) over
// the fetched depth, clamped to [-1,1].
func orderBookImbalance(ob adapters.OrderBook) float64 {
	var bidVol, askVol float64
	for _, lvl := range ob.Bids {
		bidVol += lvl.Quantity
	}
	for _, lvl := range ob.Asks {
		askVol += lvl.Quantity
	}
	total := bidVol + askVol
	if total == 0 {
		return 0
	}
	return clampValue((bidVol-askVol)/total, -1, 1)
}
