package candidate

import (
	"fmt"
	"strconv"
	"strings"
)

// Input feature column names, as used by the KOI cumulative table.
const (
	FeaturePeriod   = "koi_period"
	FeatureImpact   = "koi_impact"
	FeatureDuration = "koi_duration"
	FeatureDepth    = "koi_depth"
	FeatureSNR      = "koi_model_snr"
	FeatureSteff    = "koi_steff"
	FeatureSlogg    = "koi_slogg"
	FeatureSrad     = "koi_srad"
	FeatureSmass    = "koi_smass"
	FeatureSmet     = "koi_smet"
)

// InputFeatures lists the required features in model input order.
var InputFeatures = []string{
	FeaturePeriod,
	FeatureImpact,
	FeatureDuration,
	FeatureDepth,
	FeatureSNR,
	FeatureSteff,
	FeatureSlogg,
	FeatureSrad,
	FeatureSmass,
	FeatureSmet,
}

// FeatureInfo describes one required input for API consumers.
type FeatureInfo struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
}

// Range is an inclusive physical-plausibility interval.
type Range struct {
	Min float64
	Max float64
}

// ValidRanges holds the accepted interval for every required feature.
var ValidRanges = map[string]Range{
	FeaturePeriod:   {0.1, 1e5},
	FeatureImpact:   {0.0, 3.0},
	FeatureDuration: {0.01, 200},
	FeatureDepth:    {0.0, 1e7},
	FeatureSNR:      {0.0, 1e6},
	FeatureSteff:    {2500, 15000},
	FeatureSlogg:    {0.0, 6.0},
	FeatureSrad:     {0.01, 200},
	FeatureSmass:    {0.01, 100},
	FeatureSmet:     {-5.0, 5.0},
}

var descriptions = map[string]string{
	FeaturePeriod:   "Orbital period (days)",
	FeatureImpact:   "Impact parameter",
	FeatureDuration: "Transit duration (hours)",
	FeatureDepth:    "Transit depth (ppm)",
	FeatureSNR:      "Model signal-to-noise ratio",
	FeatureSteff:    "Stellar effective temp (K)",
	FeatureSlogg:    "Surface gravity (log g)",
	FeatureSrad:     "Stellar radius (solar radii)",
	FeatureSmass:    "Stellar mass (solar masses)",
	FeatureSmet:     "Stellar metallicity (dex)",
}

// Features returns descriptions and ranges for all required inputs.
func Features() []FeatureInfo {
	out := make([]FeatureInfo, 0, len(InputFeatures))
	for _, f := range InputFeatures {
		r := ValidRanges[f]
		out = append(out, FeatureInfo{
			Name:        f,
			Description: descriptions[f],
			Min:         r.Min,
			Max:         r.Max,
		})
	}
	return out
}

// Validate checks every required feature against ValidRanges and returns one
// message per violation. An empty result means the parameters are plausible.
func Validate(p Parameters) []string {
	var errs []string
	for _, f := range InputFeatures {
		v, _ := p.Feature(f)
		r := ValidRanges[f]
		if v < r.Min || v > r.Max {
			errs = append(errs, fmt.Sprintf("%s = %g outside valid range [%g, %g]", f, v, r.Min, r.Max))
		}
	}
	return errs
}

// FromStrings builds Parameters from raw string values keyed by column name.
// Optional columns (koi_insol, koi_count) are parsed when present. It fails on
// the first missing or non-numeric required field.
func FromStrings(values map[string]string) (Parameters, error) {
	var p Parameters
	nums := make(map[string]float64, len(InputFeatures))
	for _, f := range InputFeatures {
		raw := strings.TrimSpace(values[f])
		if raw == "" {
			return Parameters{}, fmt.Errorf("missing required field: %s", f)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Parameters{}, fmt.Errorf("%s must be numeric", f)
		}
		nums[f] = v
	}

	p.Period = nums[FeaturePeriod]
	p.Impact = nums[FeatureImpact]
	p.Duration = nums[FeatureDuration]
	p.Depth = nums[FeatureDepth]
	p.SNR = nums[FeatureSNR]
	p.StellarTeff = nums[FeatureSteff]
	p.StellarLogG = nums[FeatureSlogg]
	p.StellarRad = nums[FeatureSrad]
	p.StellarMass = nums[FeatureSmass]
	p.StellarMetal = nums[FeatureSmet]

	if raw := strings.TrimSpace(values["koi_insol"]); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			p.Insolation = &v
		}
	}
	if raw := strings.TrimSpace(values["koi_count"]); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			n := int(v)
			p.Multiplicity = &n
		}
	}
	return p, nil
}
