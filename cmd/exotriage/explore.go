package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/exotriage/exotriage/internal/app"
	"github.com/exotriage/exotriage/pkg/catalog"
)

// exploreFlags maps CLI flags to the URL parameters read by
// catalog.ParseQuery.
var exploreFlags = map[string]string{
	"page":        "page",
	"per-page":    "per_page",
	"sort":        "sort",
	"dir":         "dir",
	"disposition": "disposition",
	"search":      "search",
	"min-snr":     "min_snr",
	"max-period":  "max_period",
}

func newExploreCmd() *cobra.Command {
	var (
		dataset   string
		outputFmt string
	)

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Browse the raw KOI dataset",
		Long: `Lists dataset records of every disposition without running the models,
with filtering by disposition, name, signal strength and period.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			cfg.Source.Path = firstNonEmpty(dataset, cfg.Source.Path)

			v := url.Values{}
			for flag, param := range exploreFlags {
				if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
					v.Set(param, f.Value.String())
				}
			}

			recs, err := app.NewSource(cfg.Source).Records(cmd.Context())
			if err != nil {
				return err
			}
			res := catalog.Apply(catalog.FromRecords(recs), catalog.ParseQuery(v))
			return writeExplore(os.Stdout, res, outputFmt)
		},
	}

	f := cmd.Flags()
	f.StringVar(&dataset, "dataset", "", "Path to the KOI CSV (default: from config)")
	f.Int("page", 1, "Page number")
	f.Int("per-page", catalog.DefaultPerPage, "Records per page (max 500)")
	f.String("sort", catalog.DefaultSort, "Column to sort by, e.g. koi_period, koi_model_snr, kepoi_name")
	f.String("dir", "asc", "Sort direction: asc or desc")
	f.String("disposition", "", "Only records with this koi_disposition")
	f.String("search", "", "Case-insensitive match on kepoi_name or kepid")
	f.Float64("min-snr", 0, "Minimum koi_model_snr")
	f.Float64("max-period", 0, "Maximum koi_period in days")
	f.StringVar(&outputFmt, "output", "text", "Output format: text or json")
	return cmd
}

func writeExplore(w io.Writer, res catalog.Result, outputFmt string) error {
	switch outputFmt {
	case "json":
		return encodeJSON(w, res)
	case "", "text":
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", outputFmt)
	}

	fmt.Fprintf(w, "%d records, page %d of %d\n", res.Total, res.Page, res.Pages)
	disps := make([]string, 0, len(res.DispositionCounts))
	for d := range res.DispositionCounts {
		disps = append(disps, d)
	}
	sort.Strings(disps)
	for _, d := range disps {
		fmt.Fprintf(w, "  %-15s %d\n", d, res.DispositionCounts[d])
	}
	if len(res.Data) == 0 {
		return nil
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKEPID\tDISPOSITION\tPERIOD\tSNR\tDEPTH\tRADIUS")
	for _, e := range res.Data {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Name, e.KepID, e.Disposition,
			formatValue(e.Period), formatValue(e.SNR), formatValue(e.Depth), formatValue(e.PRad))
	}
	return tw.Flush()
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
