package position

import (
	"math"
	"testing"

	"fusionquant/internal/decision"
)

func TestBuild_LongGeometry(t *testing.T) {
	p, err := Build(decision.Long, 100, 0.005, Account{Balance: 10000, Leverage: 5, RiskPercent: 0.01})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !(p.StopLoss < p.EntryPrice &&
		p.EntryPrice < p.TakeProfits[0].Price &&
		p.TakeProfits[0].Price < p.TakeProfits[1].Price &&
		p.TakeProfits[1].Price < p.TakeProfits[2].Price) {
		t.Errorf("LONG geometry violated: %+v", p)
	}
}

func TestBuild_ShortGeometry(t *testing.T) {
	p, err := Build(decision.Short, 100, 0.005, Account{Balance: 10000, Leverage: 5, RiskPercent: 0.01})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !(p.StopLoss > p.EntryPrice &&
		p.EntryPrice > p.TakeProfits[0].Price &&
		p.TakeProfits[0].Price > p.TakeProfits[1].Price &&
		p.TakeProfits[1].Price > p.TakeProfits[2].Price) {
		t.Errorf("SHORT geometry violated: %+v", p)
	}
}

func TestBuild_CloseFractionsSumToOne(t *testing.T) {
	p, _ := Build(decision.Long, 100, 0.005, Account{Balance: 10000, Leverage: 5, RiskPercent: 0.01})
	sum := p.TakeProfits[0].CloseFraction + p.TakeProfits[1].CloseFraction + p.TakeProfits[2].CloseFraction
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("expected close fractions to sum to 1.0, got %v", sum)
	}
	want := [3]float64{0.5, 0.3, 0.2}
	for i, w := range want {
		if p.TakeProfits[i].CloseFraction != w {
			t.Errorf("TP[%d].CloseFraction = %v, want %v", i, p.TakeProfits[i].CloseFraction, w)
		}
	}
}

func TestBuild_RiskInvariantUncapped(t *testing.T) {
	account := Account{Balance: 10000, Leverage: 5, RiskPercent: 0.01}
	p, err := Build(decision.Long, 100, 0.005, account)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.CapApplied {
		t.Fatal("expected no cap for this small a position")
	}
	eps := 1e-6 * account.Balance
	if math.Abs(p.MaxLoss+p.RiskAmount) > eps {
		t.Errorf("MaxLoss should equal -RiskAmount, got MaxLoss=%v RiskAmount=%v", p.MaxLoss, p.RiskAmount)
	}
	slLoss := p.SizeBase * (p.EntryPrice - p.StopLoss)
	if math.Abs(slLoss-p.RiskAmount) > eps {
		t.Errorf("stop-loss fill pnl should equal -risk_amount: sl_loss=%v risk_amount=%v", slLoss, p.RiskAmount)
	}
}

func TestBuild_CapAppliedUsesEffectiveRiskPercent(t *testing.T) {
	// A large leverage and risk percent drives the raw notional well past
	// balance * 0.15 * leverage, forcing the cap path.
	account := Account{Balance: 1000, Leverage: 20, RiskPercent: 0.5}
	p, err := Build(decision.Long, 100, 0.005, account)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.CapApplied {
		t.Fatal("expected the position-size cap to trigger")
	}
	maxNotional := account.Balance * MaxPositionFractionPerLeverage * float64(account.Leverage)
	if math.Abs(p.SizeQuote-maxNotional) > 1e-6 {
		t.Errorf("expected capped notional %v, got %v", maxNotional, p.SizeQuote)
	}
	if p.EffectiveRiskPct >= account.RiskPercent {
		t.Errorf("expected the effective risk percent to shrink below the requested %v, got %v", account.RiskPercent, p.EffectiveRiskPct)
	}
	eps := 1e-6 * account.Balance
	slLoss := p.SizeBase * (p.EntryPrice - p.StopLoss)
	if math.Abs(slLoss-p.RiskAmount) > eps {
		t.Errorf("stop-loss fill pnl should still equal -risk_amount after capping: sl_loss=%v risk_amount=%v", slLoss, p.RiskAmount)
	}
}

func TestBuild_VolatilityBandSelectsStopPct(t *testing.T) {
	cases := []struct {
		vol  float64
		want float64
	}{
		{0.005, 0.015},
		{0.015, 0.020},
		{0.025, 0.025},
		{0.05, 0.030},
	}
	for _, c := range cases {
		p, _ := Build(decision.Long, 100, c.vol, Account{Balance: 10000, Leverage: 5, RiskPercent: 0.01})
		gotStopPct := (p.EntryPrice - p.StopLoss) / p.EntryPrice
		if math.Abs(gotStopPct-c.want) > 1e-9 {
			t.Errorf("volatility %v: expected stop pct %v, got %v", c.vol, c.want, gotStopPct)
		}
	}
}

func TestBuild_RejectsNonPositiveEntryPrice(t *testing.T) {
	if _, err := Build(decision.Long, 0, 0.01, Account{Balance: 1000, Leverage: 5, RiskPercent: 0.01}); err == nil {
		t.Error("expected an error for a zero entry price")
	}
}

func TestBuild_RejectsNonPositiveLeverage(t *testing.T) {
	if _, err := Build(decision.Long, 100, 0.01, Account{Balance: 1000, Leverage: 0, RiskPercent: 0.01}); err == nil {
		t.Error("expected an error for zero leverage")
	}
}

func TestBuild_RejectsNonPositiveBalance(t *testing.T) {
	if _, err := Build(decision.Long, 100, 0.01, Account{Balance: 0, Leverage: 5, RiskPercent: 0.01}); err == nil {
		t.Error("expected an error for zero balance")
	}
}
