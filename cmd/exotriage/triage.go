package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/exotriage/exotriage/internal/app"
	"github.com/exotriage/exotriage/internal/discovery"
	"github.com/exotriage/exotriage/internal/runs"
	"github.com/exotriage/exotriage/internal/source"
	"github.com/exotriage/exotriage/pkg/config"
	"github.com/exotriage/exotriage/pkg/surface"
)

func newTriageCmd() *cobra.Command {
	var (
		models    modelFlags
		sets      []string
		file      string
		outputFmt string
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Classify and triage a single candidate",
		Long: `Classifies one candidate and assigns its follow-up roles. Parameters are
given as --set koi_period=10.5 pairs, or as a JSON object with --file
(use - for stdin). --set values override the file.`,
		Example: `  exotriage triage --file candidate.json
  exotriage triage --set koi_period=3.52 --set koi_impact=0.1 ...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			models.apply(cfg)
			values, err := readTriageValues(file, sets, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runTriage(cmd.Context(), cfg, values, outputFmt, verbose)
		},
	}

	models.register(cmd)
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Candidate field as key=value (repeatable)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON object of candidate fields, - for stdin")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show role tasks, reasons and deliverables")

	return cmd
}

// readTriageValues merges fields from a JSON file and key=value pairs.
func readTriageValues(file string, sets []string, stdin io.Reader) (map[string]string, error) {
	values := make(map[string]string)

	if file != "" {
		var r io.Reader = stdin
		if file != "-" {
			f, err := os.Open(file)
			if err != nil {
				return nil, fmt.Errorf("open candidate file: %w", err)
			}
			defer f.Close()
			r = f
		}
		dec := json.NewDecoder(r)
		dec.UseNumber()
		var body map[string]any
		if err := dec.Decode(&body); err != nil {
			return nil, fmt.Errorf("decode candidate file: %w", err)
		}
		for k, v := range body {
			if v != nil {
				values[k] = fmt.Sprint(v)
			}
		}
	}

	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", kv)
		}
		values[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	if len(values) == 0 {
		return nil, errors.New("no candidate fields given (use --set or --file)")
	}
	return values, nil
}

func runTriage(ctx context.Context, cfg *config.Config, values map[string]string, outputFmt string, verbose bool) error {
	renderer, ok := surface.ForFormat(outputFmt, verbose)
	if !ok {
		return fmt.Errorf("unknown output format %q (use text or json)", outputFmt)
	}

	p, err := source.ParseRecord(values)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, cliLogger(cfg, verbose), app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	c, version, err := a.Discovery.Triage(ctx, p)
	if err != nil {
		var verr *discovery.ValidationError
		if errors.As(err, &verr) {
			for _, problem := range verr.Problems {
				fmt.Fprintf(os.Stderr, "  %s\n", problem)
			}
		}
		return err
	}

	fmt.Fprintf(os.Stderr, "Model %s, confidence %.1f%%\n", version, runs.Confidence(c.Inference)*100)
	return renderer.RenderCandidate(os.Stdout, &c)
}
