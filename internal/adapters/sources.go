package adapters

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// GasAdapter fetches the ETH gas / BTC fee legs from a single configured
// gas-oracle endpoint. The two legs are independent per: a failure on
// one never blocks the other, so both are fetched by one round-trip whose
// response already carries both legs (the common shape for gas oracles),
// and Fetch reports the whole reading unavailable only if the round-trip
// itself fails.
type GasAdapter struct{ *HTTPClient }

func NewGasAdapter(baseURL, apiKey string) *GasAdapter {
	return &GasAdapter{NewHTTPClient(baseURL, apiKey)}
}

type gasResponse struct {
	EthGwei  float64 `json:"eth_gwei"`
	BtcSatVB float64 `json:"btc_sat_vb"`
}

func (a *GasAdapter) Fetch(ctx context.Context) Result[GasReading] {
	if !a.Enabled() {
		return Failed[GasReading](errDisabled("gas"))
	}
	ctx, cancel := withDeadline(ctx, DefaultDeadline)
	defer cancel()

	var resp gasResponse
	if err := a.GetJSON(ctx, "/gas", nil, &resp); err != nil {
		return Failed[GasReading](err)
	}
	return Ok(GasReading{EthGwei: resp.EthGwei, BtcSatVB: resp.BtcSatVB})
}

// NewsAdapter fetches and filters news items. It deduplicates by
// case-insensitive title prefix and filters out items matching none of the
// configured keywords, per.
type NewsAdapter struct {
	*HTTPClient
	Keywords []string
	TitlePrefixLen int
}

func NewNewsAdapter(baseURL, apiKey string, keywords []string) *NewsAdapter {
	return &NewsAdapter{HTTPClient: NewHTTPClient(baseURL, apiKey), Keywords: keywords, TitlePrefixLen: 24}
}

type newsItemResponse struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"published_at"`
	Source      string `json:"source"`
	Language    string `json:"language"`
	Sentiment   int    `json:"sentiment"`
}

type newsResponse struct {
	Items []newsItemResponse `json:"items"`
}

func (a *NewsAdapter) Fetch(ctx context.Context, symbol string, now time.Time) Result[[]NewsItem] {
	if !a.Enabled() {
		return Failed[[]NewsItem](errDisabled("news"))
	}
	ctx, cancel := withDeadline(ctx, DefaultDeadline)
	defer cancel()

	var resp newsResponse
	q := url.Values{"symbol": {symbol}}
	if err := a.GetJSON(ctx, "/news", q, &resp); err != nil {
		return Failed[[]NewsItem](err)
	}

	items := make([]NewsItem, 0, len(resp.Items))
	seenPrefixes := map[string]bool{}
	for _, raw := range resp.Items {
		if !a.matchesKeyword(raw.Title, raw.Summary) {
			continue
		}
		prefix := titlePrefix(raw.Title, a.TitlePrefixLen)
		if seenPrefixes[prefix] {
			continue
		}
		seenPrefixes[prefix] = true

		published, _ := time.Parse(time.RFC3339, raw.PublishedAt)
		items = append(items, NewsItem{
			Title:       raw.Title,
			Summary:     raw.Summary,
			PublishedAt: published,
			Source:      raw.Source,
			Language:    raw.Language,
			Sentiment:   clampSign(raw.Sentiment),
		})
	}
	return Ok(items)
}

func (a *NewsAdapter) matchesKeyword(title, summary string) bool {
	if len(a.Keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(title + " " + summary)
	for _, kw := range a.Keywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func titlePrefix(title string, n int) string {
	t := strings.ToLower(strings.TrimSpace(title))
	if n <= 0 || n >= len(t) {
		return t
	}
	return t[:n]
}

func clampSign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// SentimentAdapter fetches fear/greed + composite sentiment.
type SentimentAdapter struct{ *HTTPClient }

func NewSentimentAdapter(baseURL, apiKey string) *SentimentAdapter {
	return &SentimentAdapter{NewHTTPClient(baseURL, apiKey)}
}

type sentimentResponse struct {
	FearGreed int     `json:"fear_greed"`
	Label     int     `json:"label"`
	Composite float64 `json:"composite"`
}

func (a *SentimentAdapter) Fetch(ctx context.Context) Result[SentimentReading] {
	if !a.Enabled() {
		return Failed[SentimentReading](errDisabled("sentiment"))
	}
	ctx, cancel := withDeadline(ctx, DefaultDeadline)
	defer cancel()

	var resp sentimentResponse
	if err := a.GetJSON(ctx, "/sentiment", nil, &resp); err != nil {
		return Failed[SentimentReading](err)
	}
	return Ok(SentimentReading{FearGreed: resp.FearGreed, Label: clampSign(resp.Label), Composite: resp.Composite})
}

// MacroAdapter fetches DXY/SP500/VIX and an optional risk-appetite score.
// When the upstream omits risk appetite, HasRiskAppetite is left false so
// the integrator derives it per's default formula.
type MacroAdapter struct{ *HTTPClient }

func NewMacroAdapter(baseURL, apiKey string) *MacroAdapter {
	return &MacroAdapter{NewHTTPClient(baseURL, apiKey)}
}

type macroResponse struct {
	DXYChangePct    float64  `json:"dxy_change_pct"`
	SP500ChangePct  float64  `json:"sp500_change_pct"`
	VIX             float64  `json:"vix"`
	RiskAppetite    *float64 `json:"risk_appetite,omitempty"`
}

func (a *MacroAdapter) Fetch(ctx context.Context) Result[MacroReading] {
	if !a.Enabled() {
		return Failed[MacroReading](errDisabled("macro"))
	}
	ctx, cancel := withDeadline(ctx, DefaultDeadline)
	defer cancel()

	var resp macroResponse
	if err := a.GetJSON(ctx, "/macro", nil, &resp); err != nil {
		return Failed[MacroReading](err)
	}
	reading := MacroReading{DXYChangePct: resp.DXYChangePct, SP500ChangePct: resp.SP500ChangePct, VIX: resp.VIX}
	if resp.RiskAppetite != nil {
		reading.RiskAppetite = *resp.RiskAppetite
		reading.HasRiskAppetite = true
	}
	return Ok(reading)
}

// FuturesAdapter fetches open-interest change and the funding-trend signal.
type FuturesAdapter struct{ *HTTPClient }

func NewFuturesAdapter(baseURL, apiKey string) *FuturesAdapter {
	return &FuturesAdapter{NewHTTPClient(baseURL, apiKey)}
}

type futuresResponse struct {
	OIChangePct  float64 `json:"oi_change_pct"`
	FundingTrend float64 `json:"funding_trend"`
}

func (a *FuturesAdapter) Fetch(ctx context.Context, symbol string) Result[FuturesReading] {
	if !a.Enabled() {
		return Failed[FuturesReading](errDisabled("futures"))
	}
	ctx, cancel := withDeadline(ctx, DefaultDeadline)
	defer cancel()

	var resp futuresResponse
	if err := a.GetJSON(ctx, "/futures", url.Values{"symbol": {symbol}}, &resp); err != nil {
		return Failed[FuturesReading](err)
	}
	trend := resp.FundingTrend
	if trend > 1 {
		trend = 1
	} else if trend < -1 {
		trend = -1
	}
	return Ok(FuturesReading{OIChangePct: resp.OIChangePct, FundingTrend: trend})
}

// PredictionMarketAdapter fetches relevant prediction-market contracts.
type PredictionMarketAdapter struct{ *HTTPClient }

func NewPredictionMarketAdapter(baseURL, apiKey string) *PredictionMarketAdapter {
	return &PredictionMarketAdapter{NewHTTPClient(baseURL, apiKey)}
}

type predictionMarketResponse struct {
	Markets []struct {
		Question string  `json:"question"`
		YesPrice float64 `json:"yes_price"`
	} `json:"markets"`
}

func (a *PredictionMarketAdapter) Fetch(ctx context.Context, symbol string) Result[[]PredictionMarket] {
	if !a.Enabled() {
		return Failed[[]PredictionMarket](errDisabled("prediction_market"))
	}
	ctx, cancel := withDeadline(ctx, DefaultDeadline)
	defer cancel()

	var resp predictionMarketResponse
	if err := a.GetJSON(ctx, "/markets", url.Values{"symbol": {symbol}}, &resp); err != nil {
		return Failed[[]PredictionMarket](err)
	}
	markets := make([]PredictionMarket, 0, len(resp.Markets))
	for _, m := range resp.Markets {
		markets = append(markets, PredictionMarket{Question: m.Question, YesPrice: m.YesPrice})
	}
	return Ok(markets)
}

// OrderBookAdapter fetches the top-N bid/ask ladder.
type OrderBookAdapter struct {
	*HTTPClient
	Depth int
}

func NewOrderBookAdapter(baseURL, apiKey string, depth int) *OrderBookAdapter {
	if depth <= 0 {
		depth = 10
	}
	return &OrderBookAdapter{HTTPClient: NewHTTPClient(baseURL, apiKey), Depth: depth}
}

type orderBookResponse struct {
	Bids [][2]float64 `json:"bids"`
	Asks [][2]float64 `json:"asks"`
}

func (a *OrderBookAdapter) Fetch(ctx context.Context, symbol string) Result[OrderBook] {
	if !a.Enabled() {
		return Failed[OrderBook](errDisabled("orderbook"))
	}
	ctx, cancel := withDeadline(ctx, DefaultDeadline)
	defer cancel()

	q := url.Values{"symbol": {symbol}, "depth": {strconv.Itoa(a.Depth)}}
	var resp orderBookResponse
	if err := a.GetJSON(ctx, "/orderbook", q, &resp); err != nil {
		return Failed[OrderBook](err)
	}

	ob := OrderBook{}
	for _, lvl := range resp.Bids {
		ob.Bids = append(ob.Bids, OrderBookLevel{Price: lvl[0], Quantity: lvl[1]})
	}
	for _, lvl := range resp.Asks {
		ob.Asks = append(ob.Asks, OrderBookLevel{Price: lvl[0], Quantity: lvl[1]})
	}
	return Ok(ob)
}

// CandleAdapter fetches an ordered OHLCV window.
type CandleAdapter struct{ *HTTPClient }

func NewCandleAdapter(baseURL, apiKey string) *CandleAdapter {
	return &CandleAdapter{NewHTTPClient(baseURL, apiKey)}
}

type candleResponse struct {
	Candles [][6]float64 `json:"candles"` // [openTime, open, high, low, close, volume]
}

func (a *CandleAdapter) Fetch(ctx context.Context, symbol string, interval string, count int) Result[[]OHLCV] {
	if !a.Enabled() {
		return Failed[[]OHLCV](errDisabled("candles"))
	}
	ctx, cancel := withDeadline(ctx, DefaultDeadline)
	defer cancel()

	q := url.Values{"symbol": {symbol}, "interval": {interval}, "limit": {strconv.Itoa(count)}}
	var resp candleResponse
	if err := a.GetJSON(ctx, "/klines", q, &resp); err != nil {
		return Failed[[]OHLCV](err)
	}

	rows := make([]OHLCV, 0, len(resp.Candles))
	var lastOpenTime int64 = -1
	for _, row := range resp.Candles {
		openTime := int64(row[0])
		if openTime <= lastOpenTime {
			return Failed[[]OHLCV](errNonMonotonic(symbol))
		}
		lastOpenTime = openTime
		rows = append(rows, OHLCV{OpenTime: openTime, Open: row[1], High: row[2], Low: row[3], Close: row[4], Volume: row[5]})
	}
	return Ok(rows)
}

// AIPredictorsAdapter fans out to zero or more independently configured
// predictor endpoints and returns each one's vote. A predictor that fails
// or times out is simply omitted, not treated as a hard error: the
// integrator only cares about how many total predictors it heard from.
type AIPredictorsAdapter struct {
	Predictors []*HTTPClient
}

func NewAIPredictorsAdapter(endpoints []struct{ BaseURL, APIKey string }) *AIPredictorsAdapter {
	predictors := make([]*HTTPClient, 0, len(endpoints))
	for _, e := range endpoints {
		predictors = append(predictors, NewHTTPClient(e.BaseURL, e.APIKey))
	}
	return &AIPredictorsAdapter{Predictors: predictors}
}

type predictorResponse struct {
	Direction  string  `json:"direction"` // "up", "down", "flat"
	Confidence float64 `json:"confidence"`
}

func (a *AIPredictorsAdapter) Fetch(ctx context.Context, symbol string) Result[[]Prediction] {
	type outcome struct {
		pred Prediction
		ok   bool
	}
	outcomes := make(chan outcome, len(a.Predictors))

	for _, predictor := range a.Predictors {
		predictor := predictor
		go func() {
			if !predictor.Enabled() {
				outcomes <- outcome{}
				return
			}
			pctx, cancel := withDeadline(ctx, DefaultDeadline)
			defer cancel()

			var resp predictorResponse
			if err := predictor.GetJSON(pctx, "/predict", url.Values{"symbol": {symbol}}, &resp); err != nil {
				outcomes <- outcome{}
				return
			}
			conf := resp.Confidence
			if conf < 0 {
				conf = 0
			} else if conf > 100 {
				conf = 100
			}
			dir := Flat
			switch strings.ToLower(resp.Direction) {
			case "up":
				dir = Up
			case "down":
				dir = Down
			}
			outcomes <- outcome{pred: Prediction{Direction: dir, Confidence: conf}, ok: true}
		}()
	}

	preds := make([]Prediction, 0, len(a.Predictors))
	for range a.Predictors {
		o := <-outcomes
		if o.ok {
			preds = append(preds, o.pred)
		}
	}
	return Ok(preds)
}

func errDisabled(source string) error  { return &sourceError{source: source, reason: "disabled (no API key configured)"} }
func errNonMonotonic(symbol string) error {
	return &sourceError{source: "candles", reason: "non-monotonic timestamps for " + symbol}
}

type sourceError struct {
	source string
	reason string
}

func (e *sourceError) Error() string { return e.source + ": " + e.reason }
