package triage

import "fmt"

// CentroidRule (R3) flags candidates whose false-positive probability calls
// for a background eclipsing binary check.
type CentroidRule struct{}

func (r *CentroidRule) Key() string  { return "centroid" }
func (r *CentroidRule) Name() string { return RoleCentroid }

func (r *CentroidRule) Evaluate(in Input) (RoleAssignment, bool) {
	fp := in.Inference.FalsePositiveProbability
	depth := in.Params.Depth
	if fp < 0.25 {
		return RoleAssignment{}, false
	}

	priority := PriorityMedium
	if fp >= 0.50 {
		priority = PriorityHigh
	}

	depthNote := "needs centroid confirmation"
	if depth > 1000 {
		depthNote = "is deep — possible EB dilution"
	}

	return RoleAssignment{
		Role:       r.Name(),
		Icon:       "crosshair",
		Priority:   priority,
		Instrument: "Kepler TPF / Gaia DR3",
		Task:       "Compute in-transit vs out-of-transit centroid offsets; cross-match with Gaia sources within 10″",
		Reason: fmt.Sprintf(
			"False positive probability %s — centroid analysis needed to differentiate on-target transit "+
				"from background eclipsing binary. Transit depth %.0f ppm %s.",
			percent(fp), depth, depthNote),
		Deliverable: "Centroid offset significance (σ) + nearby source catalog",
		Timeline:    "1–2 days (archival analysis)",
	}, true
}
