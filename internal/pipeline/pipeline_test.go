package pipeline

import (
	"context"
	"testing"
	"time"

	"fusionquant/internal/adapters"
	"fusionquant/internal/decision"
	"fusionquant/internal/position"
)

func cleanLongBundle() adapters.Bundle {
	return adapters.Bundle{
		Candles: adapters.MockCandles{Result: adapters.Ok(cleanUptrendCandles())},
		Gas: adapters.MockGas{Result: adapters.Ok(adapters.GasReading{EthGwei: 10, BtcSatVB: 5})},
		News: adapters.MockNews{Result: adapters.Ok(makeNews(9, 1))},
		Sentiment: adapters.MockSentiment{Result: adapters.Ok(adapters.SentimentReading{FearGreed: 58, Label: 1, Composite: 40})},
		AIPredictors: adapters.MockAIPredictors{Result: adapters.Ok([]adapters.Prediction{
			{Direction: adapters.Up, Confidence: 80},
			{Direction: adapters.Up, Confidence: 75},
			{Direction: adapters.Up, Confidence: 90},
		})},
	}
}

// cleanUptrendCandles is a 26-bar window whose short MA clears its long MA
// by well over the trend epsilon, total change +1.8%, and volatility under
// the "low" band — the exact shape of the "Clean LONG" scenario.
func cleanUptrendCandles() []adapters.OHLCV {
	n := 26
	first, last := 49500.0, 50391.0
	out := make([]adapters.OHLCV, n)
	prev := first - 10
	for i := 0; i < n; i++ {
		price := first + (last-first)*float64(i)/float64(n-1)
		out[i] = adapters.OHLCV{
			OpenTime: int64(i),
			Open:     prev,
			High:     price + 15,
			Low:      price - 15,
			Close:    price,
			Volume:   float64(100 + i*2),
		}
		prev = price
	}
	return out
}

func makeNews(count int, label int) []adapters.NewsItem {
	items := make([]adapters.NewsItem, count)
	for i := range items {
		items[i] = adapters.NewsItem{Title: "item", Sentiment: label}
	}
	return items
}

func baseRequest() Request {
	return Request{
		Symbol:  "BTCUSDT",
		Account: decision.AccountState{OpenPositions: 0, Balance: 10000},
		PositionAccount: position.Account{
			Balance:     10000,
			Leverage:    10,
			RiskPercent: 0.015,
		},
	}
}

func TestRun_CleanLongProducesPlanWithGeometry(t *testing.T) {
	out := Run(context.Background(), cleanLongBundle(), baseRequest(), DefaultConfig())

	if out.Decision.Action != decision.Long {
		t.Fatalf("expected LONG, got %v (reasons=%v)", out.Decision.Action, out.Decision.Reasons)
	}
	if out.Plan == nil {
		t.Fatal("expected a position plan for a non-HOLD decision")
	}
	p := *out.Plan
	if !(p.StopLoss < p.EntryPrice && p.EntryPrice < p.TakeProfits[0].Price &&
		p.TakeProfits[0].Price < p.TakeProfits[1].Price && p.TakeProfits[1].Price < p.TakeProfits[2].Price) {
		t.Errorf("LONG plan geometry violated: %+v", p)
	}
}

func TestRun_GateFailOnGasForcesHold(t *testing.T) {
	bundle := cleanLongBundle()
	bundle.Gas = adapters.MockGas{Result: adapters.Ok(adapters.GasReading{EthGwei: 120, BtcSatVB: 50})}

	out := Run(context.Background(), bundle, baseRequest(), DefaultConfig())
	if out.Decision.Action != decision.Hold {
		t.Fatalf("expected HOLD on a cost-gate failure, got %v", out.Decision.Action)
	}
	if out.Decision.SafetyGate.Passed {
		t.Error("expected safety gate to fail")
	}
	if out.Plan != nil {
		t.Error("expected no plan for a HOLD decision")
	}
}

func TestRun_WholeRequestTimeoutBehavesLikeAllAdaptersFailed(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	cfg := DefaultConfig()
	cfg.WholeRequestDeadline = 1 * time.Nanosecond

	out := Run(ctx, cleanLongBundle(), baseRequest(), cfg)
	if out.Decision.Action != decision.Hold {
		t.Fatalf("expected HOLD on timeout, got %v", out.Decision.Action)
	}
	if out.Decision.SafetyGate.Passed {
		t.Error("expected safety_gate.passed=false on timeout")
	}
	found := false
	for _, r := range out.Decision.Reasons {
		if r == "time-out" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected reason %q, got %v", "time-out", out.Decision.Reasons)
	}
}

func TestRun_NoAdaptersYieldsNeutralHold(t *testing.T) {
	out := Run(context.Background(), adapters.Bundle{}, baseRequest(), DefaultConfig())
	if out.Decision.Action != decision.Hold {
		t.Fatalf("expected HOLD with no adapter inputs, got %v", out.Decision.Action)
	}
	if out.Metadata.Available.Candles || out.Metadata.Available.Gas || out.Metadata.Available.News {
		t.Error("expected every family to be marked unavailable")
	}
}
