// Package position implements the position planner: stop-loss
// selection by volatility band, risk/size/margin math, and the fixed
// three-tier take-profit ladder, grounded on the prior
// risk.Manager.CalculatePositionSize dispatch-by-method shape.
package position

import (
	"fusionquant/internal/apperrors"
	"fusionquant/internal/decision"
)

// MaxPositionFractionPerLeverage is the cap coefficient: the position
// notional may never exceed balance * 0.15 * leverage.
const MaxPositionFractionPerLeverage = 0.15

// RiskRewardRatio is the structural constant of the three-tier TP plan.
const RiskRewardRatio = 2.3

// Account carries the caller-supplied sizing inputs.
type Account struct {
	Balance     float64
	Leverage    int
	RiskPercent float64 // fraction 0..1

	// StopLossPct, if non-zero, overrides the volatility-banded default.
	StopLossPct float64
}

// TakeProfitLevel is one TP rung of the plan.
type TakeProfitLevel struct {
	Price        float64
	CloseFraction float64
}

// Plan is the full PositionPlan.
type Plan struct {
	Side             decision.Action
	EntryPrice       float64
	StopLoss         float64
	TakeProfits      [3]TakeProfitLevel
	SizeBase         float64
	SizeQuote        float64
	Margin           float64
	Leverage         int
	RiskAmount       float64
	MaxLoss          float64
	ExpectedProfit   float64
	RiskRewardRatio  float64
	EffectiveRiskPct float64
	CapApplied       bool
}

// stopLossPctForVolatility selects the default stop-loss fraction by
// volatility band.
func stopLossPctForVolatility(volatility float64) float64 {
	switch {
	case volatility < 0.01:
		return 0.015
	case volatility < 0.02:
		return 0.020
	case volatility < 0.03:
		return 0.025
	default:
		return 0.030
	}
}

// Build builds a PositionPlan for a LONG or SHORT decision. side must be
// decision.Long or decision.Short; Hold is a programming error to pass in
// here, since only a directional decision produces a plan.
func Build(side decision.Action, entryPrice, volatility float64, account Account) (Plan, error) {
	if entryPrice <= 0 {
		return Plan{}, apperrors.New(apperrors.PlannerFailed, "invalid inputs: entry price must be positive")
	}
	if account.Leverage <= 0 {
		return Plan{}, apperrors.New(apperrors.PlannerFailed, "invalid inputs: leverage must be positive")
	}
	if account.Balance <= 0 {
		return Plan{}, apperrors.New(apperrors.PlannerFailed, "invalid inputs: balance must be positive")
	}

	stopPct := account.StopLossPct
	if stopPct <= 0 {
		stopPct = stopLossPctForVolatility(volatility)
	}

	riskAmount := account.Balance * account.RiskPercent
	stopDistance := entryPrice * stopPct
	sizeBase := riskAmount / stopDistance
	sizeQuote := sizeBase * entryPrice
	margin := sizeQuote / float64(account.Leverage)

	effectiveRiskPct := account.RiskPercent
	capApplied := false
	maxNotional := account.Balance * MaxPositionFractionPerLeverage * float64(account.Leverage)
	if sizeQuote > maxNotional {
		capApplied = true
		sizeQuote = maxNotional
		sizeBase = sizeQuote / entryPrice
		margin = sizeQuote / float64(account.Leverage)
		riskAmount = sizeBase * stopDistance
		effectiveRiskPct = riskAmount / account.Balance
	}

	sign := 1.0
	if side == decision.Short {
		sign = -1.0
	}

	stopLoss := entryPrice - sign*stopDistance
	tp := [3]TakeProfitLevel{
		{Price: entryPrice + sign*1.5*stopDistance, CloseFraction: 0.5},
		{Price: entryPrice + sign*2.5*stopDistance, CloseFraction: 0.3},
		{Price: entryPrice + sign*4.0*stopDistance, CloseFraction: 0.2},
	}

	return Plan{
		Side:             side,
		EntryPrice:       entryPrice,
		StopLoss:         stopLoss,
		TakeProfits:      tp,
		SizeBase:         sizeBase,
		SizeQuote:        sizeQuote,
		Margin:           margin,
		Leverage:         account.Leverage,
		RiskAmount:       riskAmount,
		MaxLoss:          -riskAmount,
		ExpectedProfit:   riskAmount * RiskRewardRatio,
		RiskRewardRatio:  RiskRewardRatio,
		EffectiveRiskPct: effectiveRiskPct,
		CapApplied:       capApplied,
	}, nil
}
