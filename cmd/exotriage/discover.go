package main

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/exotriage/exotriage/internal/app"
	"github.com/exotriage/exotriage/pkg/config"
	"github.com/exotriage/exotriage/pkg/surface"
	"github.com/exotriage/exotriage/pkg/triagequery"
)

func newDiscoverCmd() *cobra.Command {
	var (
		models    modelFlags
		outputFmt string
		verbose   bool
		record    bool
		dbURL     string
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Classify and triage every candidate in a dataset",
		Long: `Runs the discovery pipeline over a KOI dataset: classification, radius
estimation and follow-up triage, then filters, sorts and pages the result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			models.apply(cfg)
			return runDiscover(cmd.Context(), discoverOpts{
				cfg:       cfg,
				query:     queryFromFlags(cmd, cfg.Query()),
				outputFmt: outputFmt,
				verbose:   verbose,
				record:    record,
				dbURL:     dbURL,
			})
		},
	}

	models.register(cmd)
	f := cmd.Flags()
	f.Int("page", triagequery.DefaultPage, "Page number")
	f.Int("per-page", triagequery.DefaultPerPage, "Candidates per page (max 200)")
	f.String("role", "", "Only candidates assigned this follow-up role")
	f.String("priority", "", "Only candidates with a role at this priority (HIGH, MEDIUM, STANDARD)")
	f.Bool("hz-only", false, "Only habitable-zone candidates")
	f.String("sort", triagequery.SortPriorityScore, "Sort key: priority_score, conf_prob, radius, num_roles, period")
	f.String("dir", "desc", "Sort direction: asc or desc")
	f.Int("min-score", 0, "Minimum priority score")
	f.StringVar(&outputFmt, "output", "text", "Output format: text or json")
	f.BoolVarP(&verbose, "verbose", "v", false, "Show role tasks, reasons and deliverables")
	f.BoolVar(&record, "record", false, "Record the run in the run history")
	f.StringVar(&dbURL, "db", "", "Run history database URL (default: from config, then the local SQLite file)")

	return cmd
}

// queryFlags maps CLI flags to the URL parameters read by
// triagequery.ParseQueryWithDefaults.
var queryFlags = map[string]string{
	"page":      "page",
	"per-page":  "per_page",
	"role":      "role",
	"priority":  "priority",
	"hz-only":   "hz_only",
	"sort":      "sort",
	"dir":       "dir",
	"min-score": "min_score",
}

// queryFromFlags builds a query from the flags set on the command line.
// Unset flags keep the configured defaults.
func queryFromFlags(cmd *cobra.Command, defaults triagequery.Query) triagequery.Query {
	v := url.Values{}
	for flag, param := range queryFlags {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		v.Set(param, f.Value.String())
	}
	return triagequery.ParseQueryWithDefaults(v, defaults)
}

type discoverOpts struct {
	cfg       *config.Config
	query     triagequery.Query
	outputFmt string
	verbose   bool
	record    bool
	dbURL     string
}

func runDiscover(ctx context.Context, opts discoverOpts) error {
	renderer, ok := surface.ForFormat(opts.outputFmt, opts.verbose)
	if !ok {
		return fmt.Errorf("unknown output format %q (use text or json)", opts.outputFmt)
	}

	cfg := opts.cfg
	a, err := app.New(ctx, cfg, cliLogger(cfg, opts.verbose), app.Options{
		History:     opts.record,
		DatabaseURL: opts.dbURL,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(os.Stderr, "Discovering candidates in %s...\n", a.Source.Path)
	batch, err := a.Discovery.RunSource(ctx, a.Source)
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	if n := batch.Incomplete(); n > 0 {
		fmt.Fprintf(os.Stderr, "  Skipped %d rows with missing inputs\n", n)
	}

	page := &surface.Page{
		Source:          a.Source.Path,
		ModelVersion:    batch.ModelVersion,
		TotalCandidates: batch.Eligible,
		Classified:      batch.Classified,
		Result:          triagequery.Apply(batch.Candidates, opts.query),
	}

	if opts.record {
		fp, err := a.Source.Fingerprint(ctx)
		if err != nil {
			return err
		}
		run, err := a.Recorder.Record(ctx, a.Source.Path, fp, batch)
		if err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		page.RunID = run.ID
		fmt.Fprintf(os.Stderr, "  Recorded run %s\n", run.ID)
	}

	return renderer.Render(os.Stdout, page)
}
