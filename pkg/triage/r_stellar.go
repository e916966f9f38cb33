package triage

import (
	"fmt"
	"strings"
)

// StellarRule (R6) asks for host star characterization when the star looks
// evolved or hot, or its parameter uncertainties are missing.
type StellarRule struct{}

func (r *StellarRule) Key() string  { return "stellar" }
func (r *StellarRule) Name() string { return RoleStellar }

func (r *StellarRule) Evaluate(in Input) (RoleAssignment, bool) {
	srad := in.Params.StellarRad
	slogg := in.Params.StellarLogG
	steff := in.Params.StellarTeff

	var issues []string
	if srad > 3 {
		issues = append(issues, fmt.Sprintf("large stellar radius (%.1f R☉, possible evolved star)", srad))
	}
	if slogg < 3.5 {
		issues = append(issues, fmt.Sprintf("low surface gravity (log g = %.2f, sub-giant/giant)", slogg))
	}
	if steff > 7500 {
		issues = append(issues, fmt.Sprintf("hot host (%.0f K, rapid rotator)", steff))
	}
	if !in.Params.HasUncertainty {
		issues = append(issues, "parameter uncertainties unavailable")
	}
	if len(issues) == 0 {
		return RoleAssignment{}, false
	}

	priority := PriorityMedium
	if srad > 5 || slogg < 3.0 {
		priority = PriorityHigh
	}

	return RoleAssignment{
		Role:       r.Name(),
		Icon:       "star",
		Priority:   priority,
		Instrument: "High-res spectrograph + isochrone fitting",
		Task:       "Obtain high-resolution spectrum for Teff, log g, [Fe/H]; run isochrone analysis for mass/radius/age",
		Reason: fmt.Sprintf(
			"Stellar characterization needed: %s. Refined host star parameters directly impact planet radius accuracy (R_p ∝ R_★).",
			strings.Join(issues, "; ")),
		Deliverable: "Refined stellar parameters + uncertainties → updated planet radius",
		Timeline:    "1 night spectroscopy + 1 day analysis",
	}, true
}
