package decision

import (
	"testing"
	"time"

	"fusionquant/internal/adapters"
	"fusionquant/internal/candle"
	"fusionquant/internal/feature"
)

var fixedNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// goodInputs builds a feature.Inputs that clears every safety-gate check on
// its own, so each sub-test below can flip exactly one thing and confirm
// gate supremacy in isolation.
func goodInputs() feature.Inputs {
	return feature.Inputs{
		Gas:  adapters.Ok(adapters.GasReading{EthGwei: 10, BtcSatVB: 5}),
		News: adapters.Ok(make([]adapters.NewsItem, 8)),
		Sentiment: adapters.Ok(adapters.SentimentReading{FearGreed: 50}),
		AIPredictors: adapters.Ok([]adapters.Prediction{{Direction: adapters.Up, Confidence: 80}}),
		CandlesAvailable: false,
	}
}

func buildVector(mutate func(*feature.Inputs)) feature.Vector {
	in := goodInputs()
	if mutate != nil {
		mutate(&in)
	}
	v, _ := feature.Integrate("BTCUSDT", fixedNow, in, feature.DefaultConfig())
	return v
}

func TestSafetyGate_CostGateFailsWhenNeitherChainTradeable(t *testing.T) {
	v := buildVector(func(in *feature.Inputs) {
		in.Gas = adapters.Ok(adapters.GasReading{EthGwei: 120, BtcSatVB: 80})
	})
	g := RunSafetyGate(v, AccountState{Balance: 10000})
	if g.Passed {
		t.Fatal("expected the cost gate to fail")
	}
}

func TestSafetyGate_DataCompletenessFailsOnLowNewsCount(t *testing.T) {
	v := buildVector(func(in *feature.Inputs) {
		in.News = adapters.Ok(make([]adapters.NewsItem, 3))
	})
	if RunSafetyGate(v, AccountState{Balance: 10000}).Passed {
		t.Fatal("expected data completeness to fail with news_count < 8")
	}
}

func TestSafetyGate_DataCompletenessFailsWithNoAIPredictors(t *testing.T) {
	v := buildVector(func(in *feature.Inputs) {
		in.AIPredictors = adapters.Ok([]adapters.Prediction(nil))
	})
	if RunSafetyGate(v, AccountState{Balance: 10000}).Passed {
		t.Fatal("expected data completeness to fail with zero AI predictors")
	}
}

func TestSafetyGate_MarketRegimeFailsOnExtremeFearGreed(t *testing.T) {
	v := buildVector(func(in *feature.Inputs) {
		in.Sentiment = adapters.Ok(adapters.SentimentReading{FearGreed: 85})
	})
	if RunSafetyGate(v, AccountState{Balance: 10000}).Passed {
		t.Fatal("expected the market-regime gate to reject an extreme fear/greed reading")
	}
}

func TestSafetyGate_VolatilityCapFails(t *testing.T) {
	wildSeries := candle.Series{
		{OpenTime: 0, Open: 100, High: 140, Low: 60, Close: 130, Volume: 10},
		{OpenTime: 1, Open: 130, High: 150, Low: 50, Close: 70, Volume: 10},
		{OpenTime: 2, Open: 70, High: 160, Low: 40, Close: 150, Volume: 10},
		{OpenTime: 3, Open: 150, High: 170, Low: 30, Close: 60, Volume: 10},
	}
	v := buildVector(func(in *feature.Inputs) {
		in.Candles, in.CandlesAvailable = wildSeries, true
	})
	if v.At(feature.Volatility) < 0.04 {
		t.Fatalf("expected this series to produce volatility >= the cap, got %v", v.At(feature.Volatility))
	}
	if RunSafetyGate(v, AccountState{Balance: 10000}).Passed {
		t.Fatal("expected the volatility cap to fail")
	}
}

func TestSafetyGate_AccountStateFailsOnMaxPositions(t *testing.T) {
	v := buildVector(nil)
	g := RunSafetyGate(v, AccountState{OpenPositions: MaxPositions, Balance: 10000})
	if g.Passed {
		t.Fatal("expected the account-state gate to fail at MaxPositions open positions")
	}
}

func TestSafetyGate_AccountStateFailsOnLowBalance(t *testing.T) {
	v := buildVector(nil)
	g := RunSafetyGate(v, AccountState{Balance: MinBalance})
	if g.Passed {
		t.Fatal("expected the account-state gate to fail at exactly MinBalance (strict >)")
	}
}

func TestSafetyGate_AllFivePassTogether(t *testing.T) {
	v := buildVector(nil)
	g := RunSafetyGate(v, AccountState{Balance: 10000})
	if !g.Passed {
		t.Fatalf("expected all five gates to pass, got reasons: %v", g.Reasons)
	}
}

// TestDecide_GateSupremacy confirms that whenever the gate fails, Decide
// returns HOLD regardless of how favorable the scoring signals are.
func TestDecide_GateSupremacy(t *testing.T) {
	v := buildVector(func(in *feature.Inputs) {
		in.Gas = adapters.Ok(adapters.GasReading{EthGwei: 120, BtcSatVB: 80}) // cost gate fails
	})
	d := Decide(v, AccountState{Balance: 10000}, DefaultThresholds(), nil)
	if d.Action != Hold {
		t.Fatalf("expected HOLD on gate failure regardless of scores, got %v", d.Action)
	}
	if d.SafetyGate.Passed {
		t.Error("expected SafetyGate.Passed=false")
	}
}
