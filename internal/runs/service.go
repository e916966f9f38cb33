// Package runs records discovery runs and the statistics derived from their
// archived batches.
package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/exotriage/exotriage/pkg/triage"
)

// ErrNotFound is returned when a run ID does not exist.
var ErrNotFound = errors.New("run not found")

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// Run is one recorded discovery run.
type Run struct {
	ID                   string                  `json:"id"`
	CreatedAt            time.Time               `json:"created_at"`
	Source               string                  `json:"source"`
	Fingerprint          string                  `json:"fingerprint"`
	ModelVersion         string                  `json:"model_version"`
	Eligible             int                     `json:"total_candidates"`
	Classified           int                     `json:"classified"`
	Confirmed            int                     `json:"confirmed"`
	HabitableZone        int                     `json:"habitable_zone"`
	AvgPriorityScore     float64                 `json:"avg_priority_score"`
	PriorityDistribution map[triage.Priority]int `json:"priority_distribution"`
	ArchiveKey           string                  `json:"archive_key,omitempty"`
}

// Service persists runs in Postgres or SQLite. Queries use $N placeholders,
// which both drivers accept.
type Service struct {
	db *sql.DB
}

// NewService creates a new run Service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

const runColumns = `id, created_at, source, fingerprint, model_version,
	eligible, classified, confirmed, habitable_zone, avg_score, priorities, archive_key`

// Create inserts r, assigning an ID and creation time when unset.
func (s *Service) Create(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	priorities, err := json.Marshal(r.PriorityDistribution)
	if err != nil {
		return fmt.Errorf("encode priorities: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.CreatedAt, r.Source, r.Fingerprint, r.ModelVersion,
		r.Eligible, r.Classified, r.Confirmed, r.HabitableZone, r.AvgPriorityScore,
		string(priorities), r.ArchiveKey,
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// Get looks up a run by ID.
func (s *Service) Get(ctx context.Context, id string) (*Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// List returns the most recent runs, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	r := &Run{}
	var priorities string
	err := row.Scan(&r.ID, &r.CreatedAt, &r.Source, &r.Fingerprint, &r.ModelVersion,
		&r.Eligible, &r.Classified, &r.Confirmed, &r.HabitableZone, &r.AvgPriorityScore,
		&priorities, &r.ArchiveKey)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(priorities), &r.PriorityDistribution); err != nil {
		return nil, fmt.Errorf("decode priorities of run %s: %w", r.ID, err)
	}
	return r, nil
}
