package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/exotriage/exotriage/pkg/candidate"
)

// Column names beyond the required inputs.
const (
	ColumnName        = "kepoi_name"
	ColumnDisposition = "koi_disposition"
	ColumnUncertainty = "koi_steff_err1"
)

// CSVSource reads the KOI cumulative table. Lines starting with '#' are
// treated as comments.
type CSVSource struct {
	Path string
	// Disposition keeps only rows with this koi_disposition. Empty keeps all.
	Disposition string
}

// NewCSVSource creates a source keeping CANDIDATE rows.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path, Disposition: "CANDIDATE"}
}

func (s *CSVSource) Name() string { return s.Path }

func (s *CSVSource) Fingerprint(context.Context) (string, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, s.Path)
		}
		return "", fmt.Errorf("stat dataset: %w", err)
	}
	return fmt.Sprintf("%s:%d:%d:%s", s.Path, info.Size(), info.ModTime().UnixNano(), s.Disposition), nil
}

func (s *CSVSource) Rows(ctx context.Context) ([]Row, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
		}
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ReadCSV(ctx, f, s.Disposition)
}

// ReadCSV parses KOI rows from r, keeping rows whose disposition matches
// (all rows when disposition is empty).
func ReadCSV(ctx context.Context, r io.Reader, disposition string) ([]Row, error) {
	var rows []Row
	err := scanCSV(ctx, r, func(cols map[string]int) error {
		if disposition != "" {
			if _, ok := cols[ColumnDisposition]; !ok {
				return fmt.Errorf("dataset has no %s column", ColumnDisposition)
			}
		}
		return nil
	}, func(get func(string) string) {
		if disposition != "" && get(ColumnDisposition) != disposition {
			return
		}

		values := make(map[string]string, len(candidate.InputFeatures)+2)
		for _, f := range candidate.InputFeatures {
			values[f] = get(f)
		}
		values["koi_insol"] = get("koi_insol")
		values["koi_count"] = get("koi_count")

		row := Row{ID: get(ColumnName)}
		p, err := candidate.FromStrings(values)
		if err != nil {
			row.Problem = err.Error()
		} else {
			p.ID = row.ID
			p.HasUncertainty = get(ColumnUncertainty) != ""
			row.Params = p
			row.Complete = true
		}
		rows = append(rows, row)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Records reads every record of the dataset, whatever its disposition.
func (s *CSVSource) Records(ctx context.Context) ([]Record, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
		}
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ReadRecords(ctx, f)
}

// ReadRecords parses every record of r keyed by header name. Empty cells
// are left out.
func ReadRecords(ctx context.Context, r io.Reader) ([]Record, error) {
	var header []string
	var recs []Record
	err := scanCSV(ctx, r, func(cols map[string]int) error {
		header = make([]string, len(cols))
		for name, i := range cols {
			header[i] = name
		}
		return nil
	}, func(get func(string) string) {
		rec := make(Record, len(header))
		for _, name := range header {
			if v := get(name); v != "" {
				rec[name] = v
			}
		}
		recs = append(recs, rec)
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// scanCSV reads the header of r, passes the column index to check, then
// calls fn with a column getter for each record.
func scanCSV(ctx context.Context, r io.Reader, check func(cols map[string]int) error, fn func(get func(string) string)) error {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	if err := check(cols); err != nil {
		return err
	}

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", n, err)
		}
		fn(func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		})
	}
}
