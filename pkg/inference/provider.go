// Package inference is the boundary to the upstream predictive models. The
// triage engine consumes only the scalar outputs defined here; the models
// themselves live behind a Provider.
package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/exotriage/exotriage/pkg/candidate"
)

var (
	// ErrModelsUnavailable is returned when model artifacts cannot be loaded.
	ErrModelsUnavailable = errors.New("models unavailable")
	// ErrInference is returned when a loaded model fails to produce outputs.
	ErrInference = errors.New("inference failed")
)

// Handle is an opaque reference to a fully loaded set of models.
type Handle interface {
	// Version identifies the loaded model set, e.g. an artifact digest.
	Version() string
}

// Classification is the classifier output for one row.
type Classification struct {
	ConfirmationProbability  float64 `json:"conf_prob"`
	FalsePositiveProbability float64 `json:"fp_prob"`
}

// SizeEstimate is the regressor output for one row.
type SizeEstimate struct {
	Radius      float64 `json:"radius"`
	Uncertainty float64 `json:"uncertainty"`
}

// Provider loads models and evaluates them over batches of rows. Batch
// results have the same length and order as the input.
type Provider interface {
	Load(ctx context.Context) (Handle, error)
	ClassifyBatch(ctx context.Context, h Handle, rows []candidate.Parameters) ([]Classification, error)
	PredictSizeBatch(ctx context.Context, h Handle, rows []candidate.Parameters) ([]SizeEstimate, error)
}

// CheckLength returns an ErrInference when a provider answered with the
// wrong number of results.
func CheckLength(op string, want, got int) error {
	if want != got {
		return fmt.Errorf("%w: %s returned %d results for %d rows", ErrInference, op, got, want)
	}
	return nil
}
