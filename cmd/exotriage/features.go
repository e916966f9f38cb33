package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/exotriage/exotriage/pkg/candidate"
)

func newFeaturesCmd() *cobra.Command {
	var outputFmt string

	cmd := &cobra.Command{
		Use:   "features",
		Short: "List the required candidate inputs and their valid ranges",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeFeatures(os.Stdout, outputFmt)
		},
	}
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")
	return cmd
}

func writeFeatures(w io.Writer, outputFmt string) error {
	features := candidate.Features()
	switch outputFmt {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"features": features})
	case "", "text":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FEATURE\tDESCRIPTION\tMIN\tMAX")
		for _, f := range features {
			fmt.Fprintf(tw, "%s\t%s\t%g\t%g\n", f.Name, f.Description, f.Min, f.Max)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", outputFmt)
	}
}
