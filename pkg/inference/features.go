package inference

import (
	"fmt"
	"math"

	"github.com/exotriage/exotriage/pkg/candidate"
)

// eps guards the ratio features against division by zero.
const eps = 1e-9

// DerivedFeatures are appended after the input features, in this order.
var DerivedFeatures = []string{
	"log_period",
	"log_depth",
	"log_duration",
	"log_snr",
	"period_dur_ratio",
	"stellar_density",
	"depth_snr_ratio",
}

// AllFeatures returns the model input columns: the raw inputs followed by
// the derived features.
func AllFeatures() []string {
	out := make([]string, 0, len(candidate.InputFeatures)+len(DerivedFeatures))
	out = append(out, candidate.InputFeatures...)
	return append(out, DerivedFeatures...)
}

// Engineer builds the unscaled model input vector for p.
func Engineer(p candidate.Parameters) []float64 {
	x := p.Vector()
	return append(x,
		math.Log1p(p.Period),
		math.Log1p(p.Depth),
		math.Log1p(p.Duration),
		math.Log1p(p.SNR),
		p.Period/(p.Duration+eps),
		p.StellarMass/(math.Pow(p.StellarRad, 3)+eps),
		p.Depth/(p.SNR+eps),
	)
}

// Scaler standardizes feature vectors with a saved mean and scale.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Validate checks the scaler against the expected width.
func (s Scaler) Validate(width int) error {
	if len(s.Mean) != width || len(s.Scale) != width {
		return fmt.Errorf("scaler has %d/%d columns, want %d", len(s.Mean), len(s.Scale), width)
	}
	return nil
}

// Transform returns (x - mean) / scale. A zero scale leaves the centered
// value unscaled.
func (s Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		sc := s.Scale[i]
		if sc == 0 {
			sc = 1
		}
		out[i] = (v - s.Mean[i]) / sc
	}
	return out
}
