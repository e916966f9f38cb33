package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/exotriage/exotriage/internal/app"
	"github.com/exotriage/exotriage/pkg/config"
)

// modelFlags are shared by every command that runs inference.
type modelFlags struct {
	dataset     string
	model       string
	remote      string
	disposition string
}

func (m *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&m.dataset, "dataset", "", "Path to the KOI CSV (default: from config)")
	cmd.Flags().StringVar(&m.model, "model", "", "Path to the model artifact (default: from config)")
	cmd.Flags().StringVar(&m.remote, "remote", "", "Base URL of a model server; overrides --model")
	cmd.Flags().StringVar(&m.disposition, "disposition", "", `koi_disposition to keep; "all" keeps every row (default: from config)`)
}

func (m *modelFlags) apply(cfg *config.Config) {
	cfg.Source.Path = firstNonEmpty(m.dataset, cfg.Source.Path)
	cfg.Model.Artifact = firstNonEmpty(m.model, cfg.Model.Artifact)
	cfg.Model.RemoteURL = firstNonEmpty(m.remote, cfg.Model.RemoteURL)
	if m.dataset != "" || m.model != "" {
		cfg.Model.FromArchive = false
	}
	switch m.disposition {
	case "":
	case "all", "ALL":
		cfg.Source.Disposition = ""
	default:
		cfg.Source.Disposition = m.disposition
	}
}

// loadConfig reads the --config file, or the nearest .exotriage config
// above the working directory, then applies environment overrides.
func loadConfig(cmd *cobra.Command) *config.Config {
	path := configPath(cmd)
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		} else {
			cfg = loaded
		}
	}
	cfg.ApplyEnv()
	return cfg
}

// cliLogger logs to stderr in console format. Only warnings are shown
// unless verbose is set.
func cliLogger(cfg *config.Config, verbose bool) *zap.Logger {
	lc := config.LogConfig{Level: "warn", Format: "console"}
	if verbose {
		lc.Level = firstNonEmpty(cfg.Log.Level, "info")
	}
	logger, err := app.NewLogger(lc)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
