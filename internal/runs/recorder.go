package runs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/exotriage/exotriage/internal/archive"
	"github.com/exotriage/exotriage/internal/discovery"
	"github.com/exotriage/exotriage/pkg/triagequery"
)

// Report is a run plus the statistics of its archived batch. Statistics is
// nil when the run was recorded without an archive.
type Report struct {
	*Run
	Statistics *Statistics `json:"statistics,omitempty"`
}

// Recorder archives enriched batches and records their runs.
type Recorder struct {
	runs   *Service
	store  archive.Store
	logger *zap.Logger
}

// NewRecorder creates a Recorder. A nil store records runs without
// archiving their batches.
func NewRecorder(svc *Service, store archive.Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{runs: svc, store: store, logger: logger}
}

// Record archives b and stores a run summarizing it.
func (r *Recorder) Record(ctx context.Context, sourceName, fingerprint string, b *discovery.Batch) (*Run, error) {
	summary := triagequery.Summarize(b.Candidates)
	run := &Run{
		ID:                   uuid.NewString(),
		Source:               sourceName,
		Fingerprint:          fingerprint,
		ModelVersion:         b.ModelVersion,
		Eligible:             b.Eligible,
		Classified:           b.Classified,
		Confirmed:            summary.ConfirmedPredictions,
		HabitableZone:        summary.HabitableZone,
		AvgPriorityScore:     summary.AvgPriorityScore,
		PriorityDistribution: summary.PriorityDistribution,
	}

	if r.store != nil {
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode batch: %w", err)
		}
		key := archive.ReportKey(run.ID)
		if err := r.store.Put(ctx, key, data); err != nil {
			return nil, fmt.Errorf("archive batch: %w", err)
		}
		run.ArchiveKey = key
	}

	if err := r.runs.Create(ctx, run); err != nil {
		return nil, err
	}
	r.logger.Info("run recorded",
		zap.String("run_id", run.ID),
		zap.String("source", sourceName),
		zap.Int("classified", run.Classified),
		zap.String("archive_key", run.ArchiveKey),
	)
	return run, nil
}

// List returns recent runs, newest first.
func (r *Recorder) List(ctx context.Context, limit int) ([]Run, error) {
	return r.runs.List(ctx, limit)
}

// Timeline tallies the most recent limit runs by day.
func (r *Recorder) Timeline(ctx context.Context, limit int) ([]TimelineDay, error) {
	recent, err := r.runs.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	return Timeline(recent), nil
}

// Batch loads the archived batch of run.
func (r *Recorder) Batch(ctx context.Context, run *Run) (*discovery.Batch, error) {
	if run.ArchiveKey == "" || r.store == nil {
		return nil, fmt.Errorf("%w: run %s has no archived batch", archive.ErrNotFound, run.ID)
	}
	data, err := r.store.Get(ctx, run.ArchiveKey)
	if err != nil {
		return nil, fmt.Errorf("load batch of run %s: %w", run.ID, err)
	}
	var b discovery.Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode batch of run %s: %w", run.ID, err)
	}
	for i := range b.Candidates {
		b.Candidates[i].Index = i
	}
	return &b, nil
}

// Report looks up a run and computes statistics over its archived batch. A
// missing archive yields a report without statistics.
func (r *Recorder) Report(ctx context.Context, id string) (*Report, error) {
	run, err := r.runs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rep := &Report{Run: run}
	b, err := r.Batch(ctx, run)
	if errors.Is(err, archive.ErrNotFound) {
		r.logger.Warn("run archive missing", zap.String("run_id", id), zap.Error(err))
		return rep, nil
	}
	if err != nil {
		return nil, err
	}
	st := ComputeStatistics(b.Candidates)
	rep.Statistics = &st
	return rep, nil
}
