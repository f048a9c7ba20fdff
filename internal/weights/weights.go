// Package weights classifies the current market regime from a feature
// vector and returns the category-multiplier map the decision engine scales
// its scores by, grounded on the prior confluence.Scorer weight tables
// but driven by regime instead of a fixed config.
package weights

import "fusionquant/internal/feature"

// Regime is the classified market condition.
type Regime int

const (
	Sideways Regime = iota
	Bull
	Bear
)

func (r Regime) String() string {
	switch r {
	case Bull:
		return "bull"
	case Bear:
		return "bear"
	default:
		return "sideways"
	}
}

// Multipliers is the per-category scaling map the decision engine applies
// on top of the base category weights. Orderbook, Macro, Futures, Technical
// and Risk are carried for parity with the full documented key set; the
// decision engine's Score reads only News, Price, Sentiment and AI.
type Multipliers struct {
	News      float64
	Price     float64
	Sentiment float64
	AI        float64
	Orderbook float64
	Macro     float64
	Futures   float64
	Technical float64
	Risk      float64
}

func unitMultipliers() Multipliers {
	return Multipliers{News: 1, Price: 1, Sentiment: 1, AI: 1, Orderbook: 1, Macro: 1, Futures: 1, Technical: 1, Risk: 1}
}

// Output is the regime classification plus its multiplier map.
type Output struct {
	Regime      Regime
	Multipliers Multipliers
}

// Classify runs the regime rule, table lookup, and adaptive
// fine-tuning over v.
func Classify(v feature.Vector) Output {
	trend := v.At(feature.Trend)
	priceChangePct := v.At(feature.PriceChangePct)

	var regime Regime
	switch {
	case trend == 1 && priceChangePct > 2:
		regime = Bull
	case trend == -1 && priceChangePct < -2:
		regime = Bear
	default:
		regime = Sideways
	}

	m := unitMultipliers()
	switch regime {
	case Bull:
		m.Sentiment, m.News, m.Orderbook, m.Macro, m.AI = 1.3, 1.2, 1.2, 0.8, 1.3
	case Bear:
		m.Macro, m.Risk, m.Futures, m.Sentiment = 1.4, 1.3, 1.2, 0.7
	case Sideways:
		m.Technical, m.Price, m.Orderbook = 1.3, 1.3, 1.2
	}

	if v.Len() == feature.Extended {
		if imbalance := v.At(feature.OrderbookImbalance); imbalance > 0.8 || imbalance < -0.8 {
			m.Orderbook *= 0.7
		}
		if vix := v.At(feature.VIXLevel); vix > 30 {
			m.Risk *= 1.3
			m.Macro *= 1.2
		}
	}

	return Output{Regime: regime, Multipliers: m}
}
