// Package main provides the exotriage CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "exotriage",
		Short: "Exoplanet candidate discovery and follow-up triage",
		Long: `exotriage classifies Kepler Objects of Interest, estimates planetary radii,
and assigns each candidate the follow-up roles and priority it needs.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: search .exotriage/config.yaml upwards)")

	rootCmd.AddCommand(
		newDiscoverCmd(),
		newExploreCmd(),
		newTriageCmd(),
		newFeaturesCmd(),
		newRunsCmd(),
		newServeCmd(),
	)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
