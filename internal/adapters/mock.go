package adapters

import (
	"context"
	"time"
)

// Mock adapters return a fixed, deterministic Result regardless of
// arguments, for use in tests and in adapter-less backtests that still
// want to exercise the full fan-out/integration path. Each wraps a single
// canned Result value; set Available=false on it to simulate a source
// failure.

type MockCandles struct{ Result Result[[]OHLCV] }

func (m MockCandles) Fetch(ctx context.Context, symbol, interval string, count int) Result[[]OHLCV] {
	return m.Result
}

type MockOrderBook struct{ Result Result[OrderBook] }

func (m MockOrderBook) Fetch(ctx context.Context, symbol string) Result[OrderBook] { return m.Result }

type MockGas struct{ Result Result[GasReading] }

func (m MockGas) Fetch(ctx context.Context) Result[GasReading] { return m.Result }

type MockNews struct{ Result Result[[]NewsItem] }

func (m MockNews) Fetch(ctx context.Context, symbol string, now time.Time) Result[[]NewsItem] {
	return m.Result
}

type MockSentiment struct{ Result Result[SentimentReading] }

func (m MockSentiment) Fetch(ctx context.Context) Result[SentimentReading] { return m.Result }

type MockMacro struct{ Result Result[MacroReading] }

func (m MockMacro) Fetch(ctx context.Context) Result[MacroReading] { return m.Result }

type MockFutures struct{ Result Result[FuturesReading] }

func (m MockFutures) Fetch(ctx context.Context, symbol string) Result[FuturesReading] { return m.Result }

type MockPredictionMarkets struct{ Result Result[[]PredictionMarket] }

func (m MockPredictionMarkets) Fetch(ctx context.Context, symbol string) Result[[]PredictionMarket] {
	return m.Result
}

type MockAIPredictors struct{ Result Result[[]Prediction] }

func (m MockAIPredictors) Fetch(ctx context.Context, symbol string) Result[[]Prediction] {
	return m.Result
}
