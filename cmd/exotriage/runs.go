package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/exotriage/exotriage/internal/app"
	"github.com/exotriage/exotriage/internal/runs"
	"github.com/exotriage/exotriage/pkg/triage"
)

func newRunsCmd() *cobra.Command {
	var (
		dbURL     string
		outputFmt string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded discovery runs",
	}
	cmd.PersistentFlags().StringVar(&dbURL, "db", "", "Run history database URL (default: from config, then the local SQLite file)")
	cmd.PersistentFlags().StringVar(&outputFmt, "output", "text", "Output format: text or json")

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRecorder(cmd, dbURL, func(ctx context.Context, rec *runs.Recorder) error {
				recent, err := rec.List(ctx, limit)
				if err != nil {
					return err
				}
				return writeRuns(os.Stdout, recent, outputFmt)
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", runs.DefaultListLimit, "Maximum number of runs")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run with statistics over its archived batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRecorder(cmd, dbURL, func(ctx context.Context, rec *runs.Recorder) error {
				rep, err := rec.Report(ctx, args[0])
				if err != nil {
					return err
				}
				return writeReport(os.Stdout, rep, outputFmt)
			})
		},
	}

	var days int
	timeline := &cobra.Command{
		Use:   "timeline",
		Short: "Tally recorded predictions by day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRecorder(cmd, dbURL, func(ctx context.Context, rec *runs.Recorder) error {
				tally, err := rec.Timeline(ctx, days)
				if err != nil {
					return err
				}
				return writeTimeline(os.Stdout, tally, outputFmt)
			})
		},
	}
	timeline.Flags().IntVar(&days, "runs", 500, "Number of recent runs to tally")

	cmd.AddCommand(list, show, timeline)
	return cmd
}

func withRecorder(cmd *cobra.Command, dbURL string, fn func(context.Context, *runs.Recorder) error) error {
	cfg := loadConfig(cmd)
	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, cliLogger(cfg, false), app.Options{History: true, DatabaseURL: dbURL})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a.Recorder)
}

func writeRuns(w io.Writer, list []runs.Run, outputFmt string) error {
	switch outputFmt {
	case "json":
		return encodeJSON(w, map[string]any{"runs": list})
	case "", "text":
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", outputFmt)
	}

	if len(list) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSOURCE\tMODEL\tCLASSIFIED\tHZ\tAVG SCORE")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%d\t%.1f\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Source, r.ModelVersion,
			r.Classified, r.Eligible, r.HabitableZone, r.AvgPriorityScore)
	}
	return tw.Flush()
}

func writeTimeline(w io.Writer, days []runs.TimelineDay, outputFmt string) error {
	switch outputFmt {
	case "json":
		return encodeJSON(w, map[string]any{"timeline": days})
	case "", "text":
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", outputFmt)
	}

	if len(days) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tRUNS\tCONFIRMED\tFALSE POSITIVE\tTOTAL")
	for _, d := range days {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", d.Date, d.Runs, d.Confirmed, d.FalsePositive, d.Total)
	}
	return tw.Flush()
}

func writeReport(w io.Writer, rep *runs.Report, outputFmt string) error {
	switch outputFmt {
	case "json":
		return encodeJSON(w, rep)
	case "", "text":
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", outputFmt)
	}

	r := rep.Run
	fmt.Fprintf(w, "Run %s\n", r.ID)
	fmt.Fprintf(w, "  Created:     %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Source:      %s\n", r.Source)
	fmt.Fprintf(w, "  Model:       %s\n", r.ModelVersion)
	fmt.Fprintf(w, "  Classified:  %d of %d\n", r.Classified, r.Eligible)
	fmt.Fprintf(w, "  HZ:          %d\n", r.HabitableZone)
	fmt.Fprintf(w, "  Avg score:   %.1f\n", r.AvgPriorityScore)
	fmt.Fprint(w, "  Tiers:      ")
	for _, p := range triage.Priorities {
		fmt.Fprintf(w, " %s %d", p, r.PriorityDistribution[p])
	}
	fmt.Fprintln(w)

	st := rep.Statistics
	if st == nil {
		fmt.Fprintln(w, "\nNo archived batch; statistics unavailable.")
		return nil
	}
	fmt.Fprintf(w, "\nPredictions: %d (%d confirmed, %d false positive, %.1f%% confirm rate)\n",
		st.Total, st.Confirmed, st.FalsePositives, st.ConfirmRate*100)
	fmt.Fprintf(w, "Avg confidence %.1f%%, avg radius %.2f R⊕\n\n", st.AvgConfidence*100, st.AvgRadius)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RADIUS\t\tCOUNT")
	for _, b := range st.RadiusBuckets {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", b.Name, b.Label, b.Count)
	}
	fmt.Fprintln(tw, "\t\t")
	fmt.Fprintln(tw, "CONFIDENCE\t\tCOUNT")
	for _, b := range st.ConfidenceBuckets {
		fmt.Fprintf(tw, "%s\t\t%d\n", b.Range, b.Count)
	}
	return tw.Flush()
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
