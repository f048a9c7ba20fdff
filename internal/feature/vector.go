// Package feature builds the fixed-layout numeric feature vector the
// decision engine, weight manager, and sub-strategies all consume, from
// whichever adapter results happen to be available. It is pure CPU: no
// network I/O occurs in this package, matching the prior confluence
// scorer which likewise only ever touches in-memory indicator values.
package feature

import "math"

// Base is the 26-index layout of. Extended appends nine more indices
// for order book and macro/futures signals. Implementations advertise one
// length; every caller indexes by name via At, never by raw position.
type Layout int

const (
	Base Layout = 26
	Extended Layout = 35
)

// Name constants double as the by-name accessor keys and the doc-comment
// anchor for each index; they mirror the base-layout table exactly.
const (
	EthGas = iota
	BtcFee
	EthTradeable
	BtcTradeable
	CurrentPrice
	PriceChangePct
	AvgVolume
	Volatility
	Trend
	HighPrice
	LowPrice
	PriceRangePct
	NewsScore
	NewsPosRatio
	NewsNegRatio
	NewsCount
	NewsSentimentLabel
	MarketSentimentScore
	MarketConfidence
	FearGreedIndex
	MarketSentimentLabel
	AIAvgConfidence
	AIUpCount
	AIDownCount
	AIAgreementRatio
	AIConsensus

	// Extended-layout-only indices.
	OrderbookImbalance
	SupportStrength
	ResistanceStrength
	DXYChangePct
	SP500ChangePct
	VIXLevel
	RiskAppetite
	OIChangePct
	FundingTrend
)

var names = [...]string{
	"eth_gas", "btc_fee", "eth_tradeable", "btc_tradeable", "current_price",
	"price_change_pct", "avg_volume", "volatility", "trend", "high_price",
	"low_price", "price_range_pct", "news_score", "news_pos_ratio",
	"news_neg_ratio", "news_count", "news_sentiment_label",
	"market_sentiment_score", "market_confidence", "fear_greed_index",
	"market_sentiment_label", "ai_avg_confidence", "ai_up_count",
	"ai_down_count", "ai_agreement_ratio", "ai_consensus",
	"orderbook_imbalance", "support_strength", "resistance_strength",
	"dxy_change_pct", "sp500_change_pct", "vix_level", "risk_appetite",
	"oi_change_pct", "funding_trend",
}

// Vector is an immutable fixed-layout feature array. Construct one only
// through Integrate.
type Vector struct {
	layout Layout
	values [Extended]float64
}

// Len reports the advertised layout length (26 or 35).
func (v Vector) Len() Layout { return v.layout }

// At returns the value at a named index. It panics on an out-of-range
// index for the vector's advertised layout, since that is a programming
// error in the caller, never a runtime condition to recover from.
func (v Vector) At(idx int) float64 {
	if idx < 0 || idx >= int(v.layout) {
		panic("feature: index out of range for this vector's layout")
	}
	return v.values[idx]
}

// Name returns the canonical name for idx.
func Name(idx int) string { return names[idx] }

var nameToIndex = func() map[string]int {
	m := make(map[string]int, len(names))
	for i, n := range names {
		m[n] = i
	}
	return m
}()

// ByName looks up a value by its canonical name instead of raw index, for
// introspection and display code that must never hardcode positions.
func (v Vector) ByName(name string) (float64, bool) {
	idx, ok := nameToIndex[name]
	if !ok || idx >= int(v.layout) {
		return 0, false
	}
	return v.values[idx], true
}

// Availability flags which adapter family backed the vector's values, for
// FeatureMetadata. The safety gate reads the vector's values, not these
// flags.
type Availability struct {
	Candles           bool
	OrderBook         bool
	Gas               bool
	News              bool
	Sentiment         bool
	Macro             bool
	Futures           bool
	PredictionMarkets bool
	AIPredictors      bool
}

// Metadata is the sidecar record carried alongside a Vector: everything
// that is not itself a vector component but is needed for display or
// debugging.
type Metadata struct {
	Symbol    string
	Available Availability
	Clamped   []string // names of indices that were clamped into range
}

func clamp(v, lo, hi float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return lo, true
	}
	if v < lo {
		return lo, true
	}
	if v > hi {
		return hi, true
	}
	return v, false
}

func clampSignValue(v float64) (float64, bool) {
	switch v {
	case -1, 0, 1:
		return v, false
	}
	if v > 0 {
		return 1, true
	}
	if v < 0 {
		return -1, true
	}
	return 0, true
}

// ranges declares the documented clip range of every base-layout index, in
// the order of the table; sign-typed indices are handled separately via
// clampSignValue because their valid set is discrete, not an interval.
var signIndices = map[int]bool{
	EthTradeable: true, BtcTradeable: true, Trend: true,
	NewsSentimentLabel: true, MarketSentimentLabel: true, AIConsensus: true,
}

var ranges = map[int][2]float64{
	EthGas:                {0, 500},
	BtcFee:                {0, 300},
	PriceChangePct:        {-100, 100},
	AvgVolume:             {0, math.MaxFloat64},
	Volatility:            {0, 1},
	PriceRangePct:         {0, math.MaxFloat64},
	NewsScore:             {-100, 100},
	NewsPosRatio:          {0, 1},
	NewsNegRatio:          {0, 1},
	NewsCount:             {0, math.MaxFloat64},
	MarketSentimentScore:  {-100, 100},
	MarketConfidence:      {0, 100},
	FearGreedIndex:        {0, 100},
	AIAvgConfidence:       {0, 100},
	AIUpCount:             {0, math.MaxFloat64},
	AIDownCount:           {0, math.MaxFloat64},
	AIAgreementRatio:      {0, 1},
	OrderbookImbalance:    {-1, 1},
	SupportStrength:       {0, 100},
	ResistanceStrength:    {0, 100},
	VIXLevel:              {0, math.MaxFloat64},
	RiskAppetite:          {0, 100},
	FundingTrend:          {-1, 1},
}

// normalize clips every declared index in place and records which names
// were clamped, per's "normalises and clips... warning flag" rule.
func normalize(values [Extended]float64, layout Layout) ([Extended]float64, []string) {
	var clamped []string
	for idx := 0; idx < int(layout); idx++ {
		v := values[idx]
		var changed bool
		if signIndices[idx] {
			v, changed = clampSignValue(v)
		} else if r, ok := ranges[idx]; ok {
			v, changed = clamp(v, r[0], r[1])
		}
		if changed {
			clamped = append(clamped, names[idx])
			values[idx] = v
		}
	}
	return values, clamped
}
