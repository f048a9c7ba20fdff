package substrategy

import (
	"testing"
	"time"

	"fusionquant/internal/candle"
	"fusionquant/internal/feature"
)

func vectorFor(series candle.Series) feature.Vector {
	v, _ := feature.Integrate("BTCUSDT", time.Now(), feature.Inputs{Candles: series, CandlesAvailable: true}, feature.DefaultConfig())
	return v
}

func flatSeries(n int, price, volume float64) candle.Series {
	out := make(candle.Series, n)
	for i := 0; i < n; i++ {
		out[i] = candle.Candle{OpenTime: int64(i), Open: price, High: price, Low: price, Close: price, Volume: volume}
	}
	return out
}

func TestTrendFollowing_FlatMarketStaysFlat(t *testing.T) {
	series := flatSeries(30, 1000, 100)
	s := TrendFollowing(series, vectorFor(series))
	if s.Direction != Flat {
		t.Errorf("expected a flat market to stay Flat, got %v (%s)", s.Direction, s.Reason)
	}
}

func TestTrendFollowing_StrongUptrendGoesUp(t *testing.T) {
	n := 30
	series := make(candle.Series, n)
	for i := 0; i < n; i++ {
		price := 1000.0
		if i >= n-7 {
			price = 1000 * 1.03
		}
		series[i] = candle.Candle{OpenTime: int64(i), Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 100}
	}
	s := TrendFollowing(series, vectorFor(series))
	if s.Direction != Up {
		t.Fatalf("expected Up, got %v (%s)", s.Direction, s.Reason)
	}
	if s.Confidence <= 0 || s.Confidence > 100 {
		t.Errorf("confidence out of 0..100 range: %v", s.Confidence)
	}
}

func TestMeanReversion_OversoldDropSignalsUp(t *testing.T) {
	n := 10
	series := make(candle.Series, n)
	for i := 0; i < n-1; i++ {
		series[i] = candle.Candle{OpenTime: int64(i), Open: 1000, High: 1000, Low: 1000, Close: 1000, Volume: 100}
	}
	series[n-1] = candle.Candle{OpenTime: int64(n - 1), Open: 1000, High: 1000, Low: 500, Close: 500, Volume: 100}

	s := MeanReversion(series, vectorFor(series))
	if s.Direction != Up {
		t.Fatalf("expected an oversold drop to signal Up, got %v (%s)", s.Direction, s.Reason)
	}
}

func TestBreakout_CloseAtWindowHighWithVolumeSpikeSignalsUp(t *testing.T) {
	n := 10
	series := make(candle.Series, n)
	for i := 0; i < n-1; i++ {
		series[i] = candle.Candle{OpenTime: int64(i), Open: 100, High: 100, Low: 90, Close: 100, Volume: 100}
	}
	series[n-1] = candle.Candle{OpenTime: int64(n - 1), Open: 100, High: 100, Low: 95, Close: 100, Volume: 300}

	s := Breakout(series, vectorFor(series))
	if s.Direction != Up {
		t.Fatalf("expected Up on a high-volume close at the window high, got %v (%s)", s.Direction, s.Reason)
	}
}

func TestGrid_StaysFlatAboveVolatilityThreshold(t *testing.T) {
	n := 10
	series := make(candle.Series, n)
	for i := 0; i < n; i++ {
		price := 100.0
		if i%2 == 0 {
			price = 160
		} else {
			price = 40
		}
		series[i] = candle.Candle{OpenTime: int64(i), Open: price, High: price + 5, Low: price - 5, Close: price, Volume: 100}
	}
	s := Grid(series, vectorFor(series))
	if s.Direction != Flat {
		t.Errorf("expected Grid to stay silent above its volatility threshold, got %v (%s)", s.Direction, s.Reason)
	}
}

func TestGrid_CrossesMidlineUpward(t *testing.T) {
	n := 10
	series := make(candle.Series, n)
	for i := 0; i < n-2; i++ {
		series[i] = candle.Candle{OpenTime: int64(i), Open: 100, High: 101, Low: 99, Close: 100, Volume: 100}
	}
	series[n-2] = candle.Candle{OpenTime: int64(n - 2), Open: 99, High: 100, Low: 98, Close: 99, Volume: 100}
	series[n-1] = candle.Candle{OpenTime: int64(n - 1), Open: 99, High: 102, Low: 99, Close: 101, Volume: 100}

	s := Grid(series, vectorFor(series))
	if s.Direction != Up {
		t.Fatalf("expected an upward midline cross, got %v (%s)", s.Direction, s.Reason)
	}
}

func TestScalping_TwoBarUptickWithRisingVolumeSignalsUp(t *testing.T) {
	series := candle.Series{
		{OpenTime: 0, Open: 100, High: 101, Low: 99, Close: 100, Volume: 100},
		{OpenTime: 1, Open: 100, High: 102, Low: 100, Close: 101, Volume: 150},
		{OpenTime: 2, Open: 101, High: 103, Low: 101, Close: 102, Volume: 200},
	}
	s := Scalping(series)
	if s.Direction != Up {
		t.Fatalf("expected Up, got %v (%s)", s.Direction, s.Reason)
	}
}

func TestScalping_InsufficientCandlesStaysFlat(t *testing.T) {
	series := candle.Series{
		{OpenTime: 0, Open: 100, High: 101, Low: 99, Close: 100, Volume: 100},
	}
	s := Scalping(series)
	if s.Direction != Flat {
		t.Errorf("expected Flat with fewer than 3 candles, got %v", s.Direction)
	}
}

func TestRunAll_MajorityVoteAggregatesDirection(t *testing.T) {
	n := 30
	series := make(candle.Series, n)
	for i := 0; i < n; i++ {
		price := 1000.0
		if i >= n-7 {
			price = 1000 * 1.03
		}
		series[i] = candle.Candle{OpenTime: int64(i), Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 100}
	}
	agg := RunAll(series, vectorFor(series))
	if len(agg.Signals) != 5 {
		t.Fatalf("expected 5 signals, got %d", len(agg.Signals))
	}
	var up, down int
	for _, s := range agg.Signals {
		switch s.Direction {
		case Up:
			up++
		case Down:
			down++
		}
	}
	want := Flat
	switch {
	case up > down:
		want = Up
	case down > up:
		want = Down
	}
	if agg.Direction != want {
		t.Errorf("aggregate direction %v does not match majority vote (up=%d down=%d)", agg.Direction, up, down)
	}
}
