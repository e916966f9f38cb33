// Package source reads candidate rows for a discovery run.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/exotriage/exotriage/pkg/candidate"
)

// ErrNotFound is returned when the configured dataset does not exist.
var ErrNotFound = errors.New("dataset not found")

// Row is one candidate record as read from a dataset. Params is only
// meaningful when Complete is true; otherwise Problem says what was missing.
type Row struct {
	ID       string
	Params   candidate.Parameters
	Complete bool
	Problem  string
}

// Source yields candidate rows.
type Source interface {
	// Name is a human-readable description of the dataset.
	Name() string
	// Fingerprint changes whenever the rows would change.
	Fingerprint(ctx context.Context) (string, error)
	// Rows returns every candidate row in dataset order.
	Rows(ctx context.Context) ([]Row, error)
}

// Record is one raw dataset record keyed by column name.
type Record map[string]string

// Browsable is a Source whose raw records can be listed, regardless of any
// disposition filter the source applies to Rows.
type Browsable interface {
	Source
	Records(ctx context.Context) ([]Record, error)
}

// Static is an in-memory source.
type Static struct {
	Label string
	Items []Row
}

func (s *Static) Name() string { return s.Label }

func (s *Static) Fingerprint(context.Context) (string, error) {
	data, err := json.Marshal(s.Items)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8]), nil
}

func (s *Static) Rows(context.Context) ([]Row, error) {
	return s.Items, nil
}

// FromParameters wraps complete parameters as rows.
func FromParameters(params ...candidate.Parameters) []Row {
	rows := make([]Row, len(params))
	for i, p := range params {
		rows[i] = Row{ID: p.ID, Params: p, Complete: true}
	}
	return rows
}

// ParseRecord builds Parameters from one record of named values, as accepted
// by the triage endpoint and the CLI. The name is read from kepoi_name or id.
// Uncertainty is present when koi_steff_err1 is set or has_uncertainty is
// "true".
func ParseRecord(values map[string]string) (candidate.Parameters, error) {
	p, err := candidate.FromStrings(values)
	if err != nil {
		return candidate.Parameters{}, err
	}
	p.ID = values[ColumnName]
	if p.ID == "" {
		p.ID = values["id"]
	}
	p.HasUncertainty = strings.TrimSpace(values[ColumnUncertainty]) != "" ||
		values["has_uncertainty"] == "true"
	return p, nil
}
