package decision

import (
	"fusionquant/internal/feature"
	"fusionquant/internal/substrategy"
	"fusionquant/internal/weights"
)

// Action is the engine's final call.
type Action int

const (
	Hold Action = iota
	Long
	Short
)

func (a Action) String() string {
	switch a {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "HOLD"
	}
}

// Thresholds are the conservative-decision cutoffs.
type Thresholds struct {
	BuyScore       float64
	SellScore      float64
	MinConsistency float64
}

// DefaultThresholds returns the deliberately strict default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{BuyScore: 75, SellScore: 25, MinConsistency: 0.80}
}

// Decision is the full engine output: action, confidence, reasons,
// per-category scores, consistency, total score, and the safety-gate
// record. AISuggestion is populated whenever the sub-strategy layer ran,
// regardless of whether the gate passed, so a HOLD-by-gate-failure can
// still display what the AI layer would have suggested.
type Decision struct {
	Action       Action
	Confidence   float64
	Reasons      []string
	Scores       CategoryScores
	Consistency  float64
	TotalScore   float64
	SafetyGate   SafetyGate
	Regime       weights.Regime
	AISuggestion *substrategy.Aggregate
}

// Decide runs the full three-subphase engine over v, scoped by
// account and the dynamic weight classification, and cross-checks against
// the AI sub-strategy layer's aggregate suggestion when provided.
func Decide(v feature.Vector, account AccountState, thresholds Thresholds, ai *substrategy.Aggregate) Decision {
	gate := RunSafetyGate(v, account)
	regimeOutput := weights.Classify(v)
	scores, total := Score(v, regimeOutput.Multipliers)
	consistency := Consistency(v)

	d := Decision{
		Scores:       scores,
		Consistency:  consistency,
		TotalScore:   total,
		SafetyGate:   gate,
		Regime:       regimeOutput.Regime,
		AISuggestion: ai,
	}

	if !gate.Passed {
		d.Action = Hold
		d.Confidence = 0
		d.Reasons = append(d.Reasons, gate.Reasons...)
		if ai != nil && ai.Direction != substrategy.Flat {
			d.Reasons = append(d.Reasons, "AI layer would have suggested "+ai.Direction.String())
		}
		return d
	}

	fgi := v.At(feature.FearGreedIndex)
	switch {
	case total > thresholds.BuyScore && consistency > thresholds.MinConsistency && fgi < 70:
		d.Action = Long
		d.Confidence = total
		d.Reasons = append(d.Reasons, "total score and consistency cleared the long threshold")
	case total < thresholds.SellScore && consistency > thresholds.MinConsistency && fgi > 30:
		d.Action = Short
		d.Confidence = 100 - total
		d.Reasons = append(d.Reasons, "total score and consistency cleared the short threshold")
	default:
		d.Action = Hold
		d.Confidence = 50
		d.Reasons = append(d.Reasons, "gate passed but score/consistency did not clear a directional threshold")
	}

	if ai != nil && ai.Direction != substrategy.Flat && !d.agreesWithAI() {
		d.Reasons = append(d.Reasons, "AI layer diverges: suggested "+ai.Direction.String())
	}

	return d
}

func (d Decision) agreesWithAI() bool {
	if d.AISuggestion == nil {
		return true
	}
	switch d.Action {
	case Long:
		return d.AISuggestion.Direction == substrategy.Up
	case Short:
		return d.AISuggestion.Direction == substrategy.Down
	default:
		return d.AISuggestion.Direction == substrategy.Flat
	}
}
