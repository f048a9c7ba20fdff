// Package candle defines the OHLCV record shared by every source adapter,
// the feature integrator, and the backtester, modeled after the prior
// binance.Kline but freed from any single exchange's wire format.
package candle

import (
	"fmt"
	"math"
)

// Candle is one OHLCV bar over a fixed interval.
type Candle struct {
	OpenTime int64 // unix millis
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Series is an ordered, chronological sequence of candles.
type Series []Candle

// ValidateMonotonic returns an error if the series is empty or its open
// times are not strictly increasing.
func (s Series) ValidateMonotonic() error {
	if len(s) == 0 {
		return fmt.Errorf("candle series is empty")
	}
	for i := 1; i < len(s); i++ {
		if s[i].OpenTime <= s[i-1].OpenTime {
			return fmt.Errorf("candle series is not monotonic at index %d: %d <= %d", i, s[i].OpenTime, s[i-1].OpenTime)
		}
	}
	return nil
}

// Closes returns the close prices of the series in order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Mean returns the arithmetic mean of vals, or 0 for an empty slice.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// PopStdDev returns the population standard deviation of vals.
func PopStdDev(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := Mean(vals)
	var sumSq float64
	for _, v := range vals {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(vals)))
}

// SMA returns the simple moving average of the last n closes in s (or
// fewer, if the series is shorter than n).
func SMA(s Series, n int) float64 {
	if len(s) == 0 {
		return 0
	}
	if n > len(s) {
		n = len(s)
	}
	window := s[len(s)-n:]
	return Mean(window.Closes())
}

// Window summarizes a candle series the way the feature integrator needs:
// current price, percent change, average volume, volatility, trend, and the
// window's high/low.
type Window struct {
	CurrentPrice    float64
	PriceChangePct  float64
	AvgVolume       float64
	Volatility      float64
	Trend           int // -1, 0, +1
	HighPrice       float64
	LowPrice        float64
	PriceRangePct   float64
}

// Summarize computes a Window over the full series s. shortMA/longMA are the
// moving-average periods used for the trend slope; epsilonFrac is the
// fractional threshold (e.g. 0.001 for 0.1%) below which the MA slope is
// considered flat.
func Summarize(s Series, shortMA, longMA int, epsilonFrac float64) Window {
	if len(s) == 0 {
		return Window{}
	}

	closes := s.Closes()
	first := closes[0]
	last := closes[len(closes)-1]

	high, low := s[0].High, s[0].Low
	var volSum float64
	for _, c := range s {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
		volSum += c.Volume
	}

	w := Window{
		CurrentPrice: last,
		HighPrice:    high,
		LowPrice:     low,
		AvgVolume:    volSum / float64(len(s)),
	}

	if first != 0 {
		w.PriceChangePct = (last - first) / first * 100
	}
	if low != 0 {
		w.PriceRangePct = (high - low) / low * 100
	}

	mean := Mean(closes)
	if mean != 0 {
		w.Volatility = PopStdDev(closes) / mean
	}

	shortAvg := SMA(s, shortMA)
	longAvg := SMA(s, longMA)
	eps := last * epsilonFrac
	switch {
	case shortAvg-longAvg >= eps:
		w.Trend = 1
	case longAvg-shortAvg >= eps:
		w.Trend = -1
	default:
		w.Trend = 0
	}

	return w
}
