// Package discovery runs the batch pipeline: load models once, classify and
// size every complete candidate in one call each, then triage each candidate.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/exotriage/exotriage/internal/source"
	"github.com/exotriage/exotriage/internal/telemetry"
	"github.com/exotriage/exotriage/pkg/candidate"
	"github.com/exotriage/exotriage/pkg/inference"
	"github.com/exotriage/exotriage/pkg/triage"
)

// ErrServiceUnavailable aborts a batch when the models cannot be loaded or
// evaluated. No partial results accompany it.
var ErrServiceUnavailable = errors.New("service unavailable")

// Batch is the enriched output of one run.
type Batch struct {
	Eligible     int                `json:"total_candidates"` // rows offered, complete or not
	Classified   int                `json:"classified"`
	ModelVersion string             `json:"model_version"`
	Candidates   []triage.Candidate `json:"candidates"` // input order
}

// Incomplete returns the number of rows skipped for missing inputs.
func (b *Batch) Incomplete() int {
	return b.Eligible - b.Classified
}

// Service orchestrates discovery runs.
type Service struct {
	loader  *inference.Loader
	engine  *triage.Engine
	logger  *zap.Logger
	metrics *telemetry.Metrics
	workers int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithWorkers bounds enrichment parallelism. Values < 1 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Service) { s.workers = n }
}

// WithEngine replaces the default rule engine.
func WithEngine(e *triage.Engine) Option {
	return func(s *Service) { s.engine = e }
}

// NewService creates a discovery service over loader.
func NewService(loader *inference.Loader, opts ...Option) *Service {
	s := &Service{
		loader: loader,
		engine: triage.DefaultEngine(),
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.workers < 1 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	return s
}

// Engine returns the rule engine in use.
func (s *Service) Engine() *triage.Engine {
	return s.engine
}

// ModelsLoaded reports whether a model handle is cached.
func (s *Service) ModelsLoaded() bool {
	return s.loader.Loaded()
}

// RunSource reads every row from src and runs the batch.
func (s *Service) RunSource(ctx context.Context, src source.Source) (*Batch, error) {
	rows, err := src.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Name(), err)
	}
	return s.Run(ctx, rows)
}

// Run enriches every complete row. Incomplete rows are counted and skipped.
// Output preserves input order.
func (s *Service) Run(ctx context.Context, rows []source.Row) (*Batch, error) {
	start := time.Now()
	batch, err := s.run(ctx, rows)
	outcome := telemetry.OutcomeOK
	switch {
	case errors.Is(err, ErrServiceUnavailable):
		outcome = telemetry.OutcomeUnavailable
	case err != nil:
		outcome = telemetry.OutcomeError
	}
	s.metrics.ObserveRun(outcome, time.Since(start))
	s.metrics.SetModelLoaded(s.loader.Loaded())
	if err != nil {
		s.logger.Warn("discovery run failed", zap.Error(err), zap.Int("rows", len(rows)))
		return nil, err
	}
	s.metrics.ObserveBatch(batch.Candidates, batch.Incomplete())
	s.logger.Info("discovery run complete",
		zap.Int("eligible", batch.Eligible),
		zap.Int("classified", batch.Classified),
		zap.String("model_version", batch.ModelVersion),
		zap.Duration("elapsed", time.Since(start)),
	)
	return batch, nil
}

func (s *Service) run(ctx context.Context, rows []source.Row) (*Batch, error) {
	complete := make([]candidate.Parameters, 0, len(rows))
	for _, r := range rows {
		if r.Complete {
			complete = append(complete, r.Params)
		}
	}

	batch := &Batch{Eligible: len(rows), Classified: len(complete)}
	if len(complete) == 0 {
		batch.Candidates = []triage.Candidate{}
		return batch, nil
	}

	infs, version, err := s.infer(ctx, complete)
	if err != nil {
		return nil, err
	}
	batch.ModelVersion = version

	out := make([]triage.Candidate, len(complete))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range complete {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = s.engine.Enrich(i, complete[i], infs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enrich batch: %w", err)
	}
	batch.Candidates = out
	return batch, nil
}

// infer obtains the model handle and runs the two batched model calls.
func (s *Service) infer(ctx context.Context, rows []candidate.Parameters) ([]triage.Inference, string, error) {
	h, err := s.loader.Handle(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	p := s.loader.Provider()

	cls, err := p.ClassifyBatch(ctx, h, rows)
	if err == nil {
		err = inference.CheckLength("classify", len(rows), len(cls))
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	sizes, err := p.PredictSizeBatch(ctx, h, rows)
	if err == nil {
		err = inference.CheckLength("size", len(rows), len(sizes))
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	out := make([]triage.Inference, len(rows))
	for i := range rows {
		out[i] = triage.NewInference(
			cls[i].ConfirmationProbability,
			cls[i].FalsePositiveProbability,
			sizes[i].Radius,
			sizes[i].Uncertainty,
		)
	}
	return out, h.Version(), nil
}

// Triage validates and enriches a single candidate. Validation failures are
// returned as a *ValidationError.
func (s *Service) Triage(ctx context.Context, p candidate.Parameters) (triage.Candidate, string, error) {
	if errs := candidate.Validate(p); len(errs) > 0 {
		return triage.Candidate{}, "", &ValidationError{Problems: errs}
	}
	infs, version, err := s.infer(ctx, []candidate.Parameters{p})
	if err != nil {
		s.logger.Warn("single triage failed", zap.Error(err))
		return triage.Candidate{}, "", err
	}
	return s.engine.Enrich(0, p, infs[0]), version, nil
}

// ValidationError lists out-of-range inputs.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid candidate: %d problem(s)", len(e.Problems))
}
