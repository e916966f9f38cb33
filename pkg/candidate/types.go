// Package candidate defines the observational record that flows through the
// triage pipeline. These types are the shared vocabulary between the source
// adapters, the inference boundary and the triage engine.
package candidate

// Parameters is the complete set of measured inputs for one candidate signal.
// A Parameters value is only built once every required feature is present;
// it is never mutated afterwards.
type Parameters struct {
	ID string `json:"id,omitempty"` // KOI name, e.g. "K00752.01"

	Period       float64 `json:"koi_period"`    // orbital period (days)
	Impact       float64 `json:"koi_impact"`    // impact parameter
	Duration     float64 `json:"koi_duration"`  // transit duration (hours)
	Depth        float64 `json:"koi_depth"`     // transit depth (ppm)
	SNR          float64 `json:"koi_model_snr"` // model signal-to-noise ratio
	StellarTeff  float64 `json:"koi_steff"`     // stellar effective temperature (K)
	StellarLogG  float64 `json:"koi_slogg"`     // stellar surface gravity (log g)
	StellarRad   float64 `json:"koi_srad"`      // stellar radius (solar radii)
	StellarMass  float64 `json:"koi_smass"`     // stellar mass (solar masses)
	StellarMetal float64 `json:"koi_smet"`      // stellar metallicity (dex)

	Insolation     *float64 `json:"koi_insol,omitempty"` // Earth insolation units
	Multiplicity   *int     `json:"koi_count,omitempty"` // signals around the same host
	HasUncertainty bool     `json:"has_uncertainty"`     // stellar error columns were populated
}

// Feature returns the value of a required input feature by its column name.
// The second return is false for unknown names.
func (p Parameters) Feature(name string) (float64, bool) {
	switch name {
	case FeaturePeriod:
		return p.Period, true
	case FeatureImpact:
		return p.Impact, true
	case FeatureDuration:
		return p.Duration, true
	case FeatureDepth:
		return p.Depth, true
	case FeatureSNR:
		return p.SNR, true
	case FeatureSteff:
		return p.StellarTeff, true
	case FeatureSlogg:
		return p.StellarLogG, true
	case FeatureSrad:
		return p.StellarRad, true
	case FeatureSmass:
		return p.StellarMass, true
	case FeatureSmet:
		return p.StellarMetal, true
	}
	return 0, false
}

// Vector returns the required features in InputFeatures order.
func (p Parameters) Vector() []float64 {
	out := make([]float64, len(InputFeatures))
	for i, f := range InputFeatures {
		out[i], _ = p.Feature(f)
	}
	return out
}

// MultiplicityCount returns the multiplicity count and whether it was present.
func (p Parameters) MultiplicityCount() (int, bool) {
	if p.Multiplicity == nil {
		return 0, false
	}
	return *p.Multiplicity, true
}

// Float returns a pointer to v. Handy for optional fields in literals.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
