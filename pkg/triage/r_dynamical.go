package triage

import "fmt"

// DynamicalRule (R7) targets multi-signal systems for timing analysis.
type DynamicalRule struct{}

func (r *DynamicalRule) Key() string  { return "dynamical" }
func (r *DynamicalRule) Name() string { return RoleDynamical }

func (r *DynamicalRule) Evaluate(in Input) (RoleAssignment, bool) {
	n, ok := in.Params.MultiplicityCount()
	if !ok || n <= 1 {
		return RoleAssignment{}, false
	}

	priority := PriorityMedium
	if n >= 3 {
		priority = PriorityHigh
	}

	return RoleAssignment{
		Role:       r.Name(),
		Icon:       "orbit",
		Priority:   priority,
		Instrument: "Kepler Long-Cadence + N-body sim",
		Task:       fmt.Sprintf("Measure TTVs across %d signals; check resonance chain; run REBOUND stability simulation", n),
		Reason: fmt.Sprintf(
			"System has %d KOI signals — multi-planet system candidate. Transit Timing Variations (TTVs) can "+
				"confirm planets and measure masses without RV. Check for mean-motion resonances and orbital stability.",
			n),
		Deliverable: "TTV amplitudes + mass constraints + stability assessment",
		Timeline:    "3–7 days analysis",
	}, true
}
