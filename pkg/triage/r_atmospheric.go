package triage

import "fmt"

// AtmosphericRule (R5) proposes transmission spectroscopy for confident,
// mid-sized planets that are temperate or orbit cool small stars.
type AtmosphericRule struct{}

func (r *AtmosphericRule) Key() string  { return "atmospheric" }
func (r *AtmosphericRule) Name() string { return RoleAtmospheric }

func (r *AtmosphericRule) Evaluate(in Input) (RoleAssignment, bool) {
	conf := in.Inference.ConfirmationProbability
	radius := in.Inference.PredictedRadius
	coolHost := in.Params.StellarTeff < 4500 && in.Params.StellarRad < 0.7

	if conf < 0.75 || radius < 1.5 || radius > 10 || !(in.InHZ || coolHost) {
		return RoleAssignment{}, false
	}

	priority := PriorityMedium
	if in.InHZ && radius < 4 {
		priority = PriorityHigh
	}

	target := "sub-Neptune/Neptune"
	if radius < 4 {
		target = "terrestrial/super-Earth"
	}
	why := "cool host star (good contrast ratio)"
	if in.InHZ {
		why = "habitable zone insolation"
	}

	return RoleAssignment{
		Role:       r.Name(),
		Icon:       "atmosphere",
		Priority:   priority,
		Instrument: "JWST NIRSpec / Ariel",
		Task:       fmt.Sprintf("Propose transmission spectroscopy to detect H₂O, CO₂, CH₄ in %s atmosphere", target),
		Reason: fmt.Sprintf(
			"Predicted radius %.1f R⊕ (%s) with %s — candidate for atmospheric characterization via transmission spectroscopy.",
			radius, target, why),
		Deliverable: "Transmission spectrum + molecular feature detections",
		Timeline:    "1–2 JWST cycles (proposal-dependent)",
	}, true
}
