package feature

import (
	"testing"
	"time"

	"fusionquant/internal/adapters"
)

func fixedNow() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

func TestIntegrate_NeutralIdempotence(t *testing.T) {
	v, meta := Integrate("BTCUSDT", fixedNow(), Inputs{}, DefaultConfig())

	want := map[int]float64{
		EthGas: 50, BtcFee: 20, EthTradeable: 0, BtcTradeable: 0,
		NewsScore: 0, NewsCount: 0, NewsSentimentLabel: 0,
		FearGreedIndex: 50, MarketSentimentLabel: 0,
		AIUpCount: 0, AIDownCount: 0, AIAgreementRatio: 0, AIConsensus: 0,
	}
	for idx, exp := range want {
		if got := v.At(idx); got != exp {
			t.Errorf("%s: got %v, want %v", Name(idx), got, exp)
		}
	}

	if meta.Available.Candles || meta.Available.Gas || meta.Available.News ||
		meta.Available.Sentiment || meta.Available.AIPredictors || meta.Available.Macro ||
		meta.Available.Futures || meta.Available.OrderBook {
		t.Errorf("expected every family unavailable with no inputs, got %+v", meta.Available)
	}
}

func TestIntegrate_ClampsOutOfRangeAndFlagsIt(t *testing.T) {
	in := Inputs{
		Sentiment: adapters.Ok(adapters.SentimentReading{FearGreed: 150, Label: 1, Composite: 40}),
	}
	v, meta := Integrate("BTCUSDT", fixedNow(), in, DefaultConfig())

	if got := v.At(FearGreedIndex); got != 100 {
		t.Errorf("expected fear_greed_index clamped to 100, got %v", got)
	}
	found := false
	for _, name := range meta.Clamped {
		if name == "fear_greed_index" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected fear_greed_index to be listed in Clamped, got %v", meta.Clamped)
	}
}

func TestIntegrate_AIConsensusRequiresMinimumGap(t *testing.T) {
	in := Inputs{
		AIPredictors: adapters.Ok([]adapters.Prediction{
			{Direction: adapters.Up, Confidence: 80},
			{Direction: adapters.Down, Confidence: 80},
		}),
	}
	v, _ := Integrate("BTCUSDT", fixedNow(), in, DefaultConfig())

	if got := v.At(AIConsensus); got != 0 {
		t.Errorf("expected consensus 0 when |up-down| < 1, got %v", got)
	}
	if got := v.At(AIAgreementRatio); got != 0.5 {
		t.Errorf("expected agreement ratio 0.5, got %v", got)
	}
}

func TestIntegrate_TradeableFlagsRespectGates(t *testing.T) {
	in := Inputs{Gas: adapters.Ok(adapters.GasReading{EthGwei: 30, BtcSatVB: 16})}
	v, _ := Integrate("BTCUSDT", fixedNow(), in, DefaultConfig())

	if v.At(EthTradeable) != 1 {
		t.Errorf("expected eth tradeable at exactly the gate, got %v", v.At(EthTradeable))
	}
	if v.At(BtcTradeable) != 0 {
		t.Errorf("expected btc not tradeable above the gate, got %v", v.At(BtcTradeable))
	}
}
