package triage

import "fmt"

// TransitPhotometryRule (R2) asks for refined light curves of ambiguous or
// low signal candidates.
type TransitPhotometryRule struct{}

func (r *TransitPhotometryRule) Key() string  { return "transit_photometry" }
func (r *TransitPhotometryRule) Name() string { return RoleTransit }

func (r *TransitPhotometryRule) Evaluate(in Input) (RoleAssignment, bool) {
	conf := in.Inference.ConfirmationProbability
	snr := in.Params.SNR
	depth := in.Params.Depth

	if !((conf >= 0.40 && conf <= 0.85) || snr < 15 || depth < 100) {
		return RoleAssignment{}, false
	}

	priority := PriorityStandard
	switch {
	case snr < 10:
		priority = PriorityHigh
	case conf < 0.65:
		priority = PriorityMedium
	}

	instrument := "TESS Extended"
	depthNote := "standard depth"
	if depth < 200 {
		instrument = "CHEOPS"
		depthNote = "shallow — high-precision needed"
	}

	lead := "Moderate confidence requires"
	if snr < 15 {
		lead = fmt.Sprintf("Low SNR (%.1f) requires", snr)
	}

	visits := 4
	if snr > 10 {
		visits = 2
	}

	return RoleAssignment{
		Role:        r.Name(),
		Icon:        "lightcurve",
		Priority:    priority,
		Instrument:  instrument,
		Task:        fmt.Sprintf("Obtain %d+ high-cadence transit observations", visits),
		Reason:      fmt.Sprintf("%s refined photometry. Transit depth = %.0f ppm (%s).", lead, depth, depthNote),
		Deliverable: "Refined transit depth, duration, ephemeris + limb-darkening coefficients",
		Timeline:    "1–3 orbital periods",
	}, true
}
