package triage

import "fmt"

// RadialVelocityRule (R1) requests a mass measurement for likely planets.
type RadialVelocityRule struct{}

func (r *RadialVelocityRule) Key() string  { return "radial_velocity" }
func (r *RadialVelocityRule) Name() string { return RoleRadialVelocity }

func (r *RadialVelocityRule) Evaluate(in Input) (RoleAssignment, bool) {
	conf := in.Inference.ConfirmationProbability
	radius := in.Inference.PredictedRadius
	if conf < 0.65 {
		return RoleAssignment{}, false
	}

	priority := PriorityStandard
	switch {
	case in.InHZ && radius < 4:
		priority = PriorityHigh
	case conf > 0.80:
		priority = PriorityMedium
	}

	instrument := "HIRES"
	switch {
	case radius < 2:
		instrument = "ESPRESSO"
	case radius < 6:
		instrument = "HARPS-N"
	}

	precision := ""
	if radius < 2 {
		precision = "high-precision "
	}
	reason := fmt.Sprintf(
		"Confirmation probability %s warrants mass measurement via radial velocity. "+
			"Predicted radius %.1f R⊕ requires %sRV to determine bulk density.",
		percent(conf), radius, precision)
	if in.InHZ {
		reason += " Candidate is in the habitable zone — mass measurement critical for habitability assessment."
	}

	epochs := 5
	if radius < 4 {
		epochs = 3
	}

	return RoleAssignment{
		Role:        r.Name(),
		Icon:        "spectroscope",
		Priority:    priority,
		Instrument:  instrument,
		Task:        fmt.Sprintf("Obtain %d+ RV epochs on %s to measure planet mass", epochs, instrument),
		Reason:      reason,
		Deliverable: "Mass measurement (M⊕) + bulk density (g/cm³) → composition constraint",
		Timeline:    "2–4 weeks (scheduling dependent)",
	}, true
}

// percent formats a probability as a whole-number percentage.
func percent(p float64) string {
	return fmt.Sprintf("%.0f%%", p*100)
}
