package cache

import (
	"context"
	"time"

	"fusionquant/internal/adapters"
)

// Wrap decorates every non-nil member of bundle with a read-through cache
// keyed by (symbol, source, minute_bucket), so repeated requests for the
// same symbol inside one minute bucket never re-fetch the same adapter
// response ('s design notes). A nil cache (or one in degraded mode)
// behaves as a pure pass-through.
func Wrap(c *Cache, symbol string, bundle adapters.Bundle) adapters.Bundle {
	if c == nil {
		return bundle
	}
	if bundle.Candles != nil {
		bundle.Candles = cachedCandles{c: c, symbol: symbol, inner: bundle.Candles}
	}
	if bundle.OrderBook != nil {
		bundle.OrderBook = cachedOrderBook{c: c, symbol: symbol, inner: bundle.OrderBook}
	}
	if bundle.Gas != nil {
		bundle.Gas = cachedGas{c: c, symbol: symbol, inner: bundle.Gas}
	}
	if bundle.News != nil {
		bundle.News = cachedNews{c: c, symbol: symbol, inner: bundle.News}
	}
	if bundle.Sentiment != nil {
		bundle.Sentiment = cachedSentiment{c: c, symbol: symbol, inner: bundle.Sentiment}
	}
	if bundle.Macro != nil {
		bundle.Macro = cachedMacro{c: c, symbol: symbol, inner: bundle.Macro}
	}
	if bundle.Futures != nil {
		bundle.Futures = cachedFutures{c: c, symbol: symbol, inner: bundle.Futures}
	}
	if bundle.PredictionMarkets != nil {
		bundle.PredictionMarkets = cachedPredictionMarkets{c: c, symbol: symbol, inner: bundle.PredictionMarkets}
	}
	// AIPredictors is deliberately left unwrapped: the integrator's
	// minimum-gap consensus rule is sensitive to the exact set of
	// predictors heard from on this call, so votes are always re-polled
	// rather than bucketed by the minute.
	return bundle
}

type cachedCandles struct {
	c      *Cache
	symbol string
	inner  adapters.Candles
}

func (w cachedCandles) Fetch(ctx context.Context, symbol, interval string, count int) adapters.Result[[]adapters.OHLCV] {
	key := Key(symbol, "candles:"+interval, time.Now())
	var cached []adapters.OHLCV
	if w.c.GetJSON(ctx, key, &cached) {
		return adapters.Ok(cached)
	}
	res := w.inner.Fetch(ctx, symbol, interval, count)
	if res.Available {
		w.c.SetJSON(ctx, key, res.Value)
	}
	return res
}

type cachedOrderBook struct {
	c      *Cache
	symbol string
	inner  adapters.OrderBookSource
}

func (w cachedOrderBook) Fetch(ctx context.Context, symbol string) adapters.Result[adapters.OrderBook] {
	key := Key(symbol, "orderbook", time.Now())
	var cached adapters.OrderBook
	if w.c.GetJSON(ctx, key, &cached) {
		return adapters.Ok(cached)
	}
	res := w.inner.Fetch(ctx, symbol)
	if res.Available {
		w.c.SetJSON(ctx, key, res.Value)
	}
	return res
}

type cachedGas struct {
	c      *Cache
	symbol string
	inner  adapters.Gas
}

func (w cachedGas) Fetch(ctx context.Context) adapters.Result[adapters.GasReading] {
	key := Key(w.symbol, "gas", time.Now())
	var cached adapters.GasReading
	if w.c.GetJSON(ctx, key, &cached) {
		return adapters.Ok(cached)
	}
	res := w.inner.Fetch(ctx)
	if res.Available {
		w.c.SetJSON(ctx, key, res.Value)
	}
	return res
}

type cachedNews struct {
	c      *Cache
	symbol string
	inner  adapters.News
}

func (w cachedNews) Fetch(ctx context.Context, symbol string, now time.Time) adapters.Result[[]adapters.NewsItem] {
	key := Key(symbol, "news", now)
	var cached []adapters.NewsItem
	if w.c.GetJSON(ctx, key, &cached) {
		return adapters.Ok(cached)
	}
	res := w.inner.Fetch(ctx, symbol, now)
	if res.Available {
		w.c.SetJSON(ctx, key, res.Value)
	}
	return res
}

type cachedSentiment struct {
	c      *Cache
	symbol string
	inner  adapters.Sentiment
}

func (w cachedSentiment) Fetch(ctx context.Context) adapters.Result[adapters.SentimentReading] {
	key := Key(w.symbol, "sentiment", time.Now())
	var cached adapters.SentimentReading
	if w.c.GetJSON(ctx, key, &cached) {
		return adapters.Ok(cached)
	}
	res := w.inner.Fetch(ctx)
	if res.Available {
		w.c.SetJSON(ctx, key, res.Value)
	}
	return res
}

type cachedMacro struct {
	c      *Cache
	symbol string
	inner  adapters.Macro
}

func (w cachedMacro) Fetch(ctx context.Context) adapters.Result[adapters.MacroReading] {
	key := Key(w.symbol, "macro", time.Now())
	var cached adapters.MacroReading
	if w.c.GetJSON(ctx, key, &cached) {
		return adapters.Ok(cached)
	}
	res := w.inner.Fetch(ctx)
	if res.Available {
		w.c.SetJSON(ctx, key, res.Value)
	}
	return res
}

type cachedFutures struct {
	c      *Cache
	symbol string
	inner  adapters.Futures
}

func (w cachedFutures) Fetch(ctx context.Context, symbol string) adapters.Result[adapters.FuturesReading] {
	key := Key(symbol, "futures", time.Now())
	var cached adapters.FuturesReading
	if w.c.GetJSON(ctx, key, &cached) {
		return adapters.Ok(cached)
	}
	res := w.inner.Fetch(ctx, symbol)
	if res.Available {
		w.c.SetJSON(ctx, key, res.Value)
	}
	return res
}

type cachedPredictionMarkets struct {
	c      *Cache
	symbol string
	inner  adapters.PredictionMarkets
}

func (w cachedPredictionMarkets) Fetch(ctx context.Context, symbol string) adapters.Result[[]adapters.PredictionMarket] {
	key := Key(symbol, "prediction_markets", time.Now())
	var cached []adapters.PredictionMarket
	if w.c.GetJSON(ctx, key, &cached) {
		return adapters.Ok(cached)
	}
	res := w.inner.Fetch(ctx, symbol)
	if res.Available {
		w.c.SetJSON(ctx, key, res.Value)
	}
	return res
}
