package decision

import (
	"testing"
	"time"

	"fusionquant/internal/candle"
	"fusionquant/internal/feature"
	"fusionquant/internal/weights"
)

func TestPriceScore_MonotonicInTrend(t *testing.T) {
	down := syntheticVector(t, -1, 0.005)
	flat := syntheticVector(t, 0, 0.005)
	up := syntheticVector(t, 1, 0.005)

	sDown := priceScore(down)
	sFlat := priceScore(flat)
	sUp := priceScore(up)

	if sFlat < sDown {
		t.Errorf("price_score should not decrease from trend -1 to 0: %v -> %v", sDown, sFlat)
	}
	if sUp < sFlat {
		t.Errorf("price_score should not decrease from trend 0 to +1: %v -> %v", sFlat, sUp)
	}
}

func TestPriceScore_MonotonicInDecreasingVolatility(t *testing.T) {
	high := syntheticVectorVol(t, 0.05)
	mid := syntheticVectorVol(t, 0.02)
	low := syntheticVectorVol(t, 0.01)

	if priceScore(mid) < priceScore(high) {
		t.Errorf("price_score should not decrease as volatility moves from the high band into the medium band")
	}
	if priceScore(low) < priceScore(mid) {
		t.Errorf("price_score should not decrease as volatility moves from the medium band into the low band")
	}
}

func TestConsistency_AllNeutralIsZero(t *testing.T) {
	v := syntheticVector(t, 0, 0.005)
	if c := Consistency(v); c != 0 {
		t.Errorf("expected consistency 0 for an all-neutral vector, got %v", c)
	}
}

func TestWeightManager_BullMultipliersNeverLowerCompositeVsUnit(t *testing.T) {
	scores := CategoryScores{News: 60, Price: 70, Sentiment: 65, AI: 55}
	unit := weights.Multipliers{News: 1, Price: 1, Sentiment: 1, AI: 1}
	bull := weights.Output{Regime: weights.Bull, Multipliers: weights.Multipliers{News: 1.2, Price: 1, Sentiment: 1.3, AI: 1.3}}.Multipliers

	unitSum := scores.News*baseWeights.News*unit.News + scores.Price*baseWeights.Price*unit.Price +
		scores.Sentiment*baseWeights.Sentiment*unit.Sentiment + scores.AI*baseWeights.AI*unit.AI
	bullSum := scores.News*baseWeights.News*bull.News + scores.Price*baseWeights.Price*bull.Price +
		scores.Sentiment*baseWeights.Sentiment*bull.Sentiment + scores.AI*baseWeights.AI*bull.AI

	if bullSum < unitSum {
		t.Errorf("bull multipliers (all >= 1 here) should not lower the weighted sum: unit=%v bull=%v", unitSum, bullSum)
	}
}

func syntheticVector(t *testing.T, trend int, volatility float64) feature.Vector {
	t.Helper()
	series := seriesForTrend(trend, volatility)
	v, _ := feature.Integrate("BTCUSDT", time.Now(), feature.Inputs{Candles: series, CandlesAvailable: true}, feature.DefaultConfig())
	return v
}

func syntheticVectorVol(t *testing.T, volatility float64) feature.Vector {
	t.Helper()
	series := seriesForTrend(0, volatility)
	v, _ := feature.Integrate("BTCUSDT", time.Now(), feature.Inputs{Candles: series, CandlesAvailable: true}, feature.DefaultConfig())
	return v
}

// seriesForTrend builds a 30-bar window whose short/long MA gap encodes the
// requested trend sign and whose alternating noise encodes the requested
// volatility. The first and last closes carry opposite noise, so
// price_change_pct is not held near zero (about -1% at volatility 0.005,
// -9.5% at 0.05) and, at the volatilities the volatility tests use, the
// computed trend comes out as -1; price_score's move term varies with
// these inputs too.
func seriesForTrend(trend int, volatility float64) candle.Series {
	n := 30
	base := 1000.0
	out := make(candle.Series, n)
	for i := 0; i < n; i++ {
		price := base
		switch {
		case trend > 0 && i >= n-7:
			price = base * 1.01
		case trend < 0 && i >= n-7:
			price = base * 0.99
		}
		noise := 0.0
		if i%2 == 0 {
			noise = base * volatility
		} else {
			noise = -base * volatility
		}
		close := price + noise
		out[i] = candle.Candle{OpenTime: int64(i), Open: close, High: close + 1, Low: close - 1, Close: close, Volume: 100}
	}
	return out
}
