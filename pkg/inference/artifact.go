package inference

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"github.com/exotriage/exotriage/pkg/candidate"
)

// Linear is a linear model over the scaled feature vector.
type Linear struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

func (m Linear) eval(x []float64) float64 {
	z := m.Bias
	for i, w := range m.Weights {
		z += w * x[i]
	}
	return z
}

// Artifact is the serialized model bundle: a scaler, a logistic classifier
// and an ensemble of linear radius regressors.
type Artifact struct {
	Features   []string `json:"features"`
	Scaler     Scaler   `json:"scaler"`
	Classifier Linear   `json:"classifier"`
	Regressor  Ensemble `json:"regressor"`

	version string
}

// Ensemble averages several linear regressors.
type Ensemble struct {
	Members []Linear `json:"members"`
}

// Version returns a short digest of the artifact bytes.
func (a *Artifact) Version() string { return a.version }

// ParseArtifact decodes and validates an artifact.
func ParseArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decoding artifact: %w", err)
	}
	want := AllFeatures()
	if len(a.Features) != 0 && len(a.Features) != len(want) {
		return nil, fmt.Errorf("artifact lists %d features, want %d", len(a.Features), len(want))
	}
	for i, f := range a.Features {
		if f != want[i] {
			return nil, fmt.Errorf("artifact feature %d is %q, want %q", i, f, want[i])
		}
	}
	if err := a.Scaler.Validate(len(want)); err != nil {
		return nil, err
	}
	if len(a.Classifier.Weights) != len(want) {
		return nil, fmt.Errorf("classifier has %d weights, want %d", len(a.Classifier.Weights), len(want))
	}
	if len(a.Regressor.Members) == 0 {
		return nil, fmt.Errorf("regressor has no members")
	}
	for i, m := range a.Regressor.Members {
		if len(m.Weights) != len(want) {
			return nil, fmt.Errorf("regressor member %d has %d weights, want %d", i, len(m.Weights), len(want))
		}
	}
	sum := sha256.Sum256(data)
	a.version = hex.EncodeToString(sum[:6])
	return &a, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// Classify returns the classifier output for one scaled row.
func (a *Artifact) Classify(x []float64) Classification {
	p := sigmoid(a.Classifier.eval(x))
	return Classification{ConfirmationProbability: p, FalsePositiveProbability: 1 - p}
}

// PredictSize returns the ensemble mean radius (clamped at 0) and the
// population standard deviation of the members.
func (a *Artifact) PredictSize(x []float64) SizeEstimate {
	n := float64(len(a.Regressor.Members))
	preds := make([]float64, len(a.Regressor.Members))
	var mean float64
	for i, m := range a.Regressor.Members {
		preds[i] = m.eval(x)
		mean += preds[i]
	}
	mean /= n

	var variance float64
	for _, p := range preds {
		variance += (p - mean) * (p - mean)
	}
	variance /= n

	return SizeEstimate{Radius: math.Max(0, mean), Uncertainty: math.Sqrt(variance)}
}

// BlobSource reads artifact bytes by key. Archive storage backends satisfy it.
type BlobSource interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// ArtifactProvider serves predictions from an Artifact read from a BlobSource.
type ArtifactProvider struct {
	Source BlobSource
	Key    string
}

// NewArtifactProvider creates a provider for the artifact at key.
func NewArtifactProvider(src BlobSource, key string) *ArtifactProvider {
	return &ArtifactProvider{Source: src, Key: key}
}

func (p *ArtifactProvider) Load(ctx context.Context) (Handle, error) {
	data, err := p.Source.Get(ctx, p.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrModelsUnavailable, p.Key, err)
	}
	a, err := ParseArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelsUnavailable, p.Key, err)
	}
	return a, nil
}

func (p *ArtifactProvider) ClassifyBatch(ctx context.Context, h Handle, rows []candidate.Parameters) ([]Classification, error) {
	a, err := artifactHandle(h)
	if err != nil {
		return nil, err
	}
	out := make([]Classification, len(rows))
	for i, r := range rows {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInference, err)
		}
		out[i] = a.Classify(a.Scaler.Transform(Engineer(r)))
	}
	return out, nil
}

func (p *ArtifactProvider) PredictSizeBatch(ctx context.Context, h Handle, rows []candidate.Parameters) ([]SizeEstimate, error) {
	a, err := artifactHandle(h)
	if err != nil {
		return nil, err
	}
	out := make([]SizeEstimate, len(rows))
	for i, r := range rows {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInference, err)
		}
		out[i] = a.PredictSize(a.Scaler.Transform(Engineer(r)))
	}
	return out, nil
}

func artifactHandle(h Handle) (*Artifact, error) {
	a, ok := h.(*Artifact)
	if !ok || a == nil {
		return nil, fmt.Errorf("%w: handle %T is not an artifact", ErrInference, h)
	}
	return a, nil
}
