package triage

import "fmt"

// StatisticalValidationRule (R4) routes grey-zone candidates to a
// false-positive probability calculation.
type StatisticalValidationRule struct{}

func (r *StatisticalValidationRule) Key() string  { return "statistical_validation" }
func (r *StatisticalValidationRule) Name() string { return RoleStatValidator }

func (r *StatisticalValidationRule) Evaluate(in Input) (RoleAssignment, bool) {
	conf := in.Inference.ConfirmationProbability
	if conf < 0.35 || conf > 0.80 {
		return RoleAssignment{}, false
	}

	priority := PriorityMedium
	if conf >= 0.45 && conf <= 0.65 {
		priority = PriorityHigh
	}

	return RoleAssignment{
		Role:       r.Name(),
		Icon:       "calculator",
		Priority:   priority,
		Instrument: "VESPA / BLENDER",
		Task:       "Run false-positive probability calculation against EB, BEB, and HTP scenarios",
		Reason: fmt.Sprintf(
			"Confidence %s falls in the grey zone — statistical validation via BLENDER or VESPA can "+
				"resolve the ambiguity without additional telescope time. Compares planet model against "+
				"eclipsing binary, background EB, and hierarchical triple scenarios.",
			percent(conf)),
		Deliverable: "FPP value + scenario likelihoods → validation status if FPP < 1%",
		Timeline:    "2–5 hours compute time",
	}, true
}
