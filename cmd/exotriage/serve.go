package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/exotriage/exotriage/internal/app"
	"github.com/exotriage/exotriage/pkg/config"
)

func newServeCmd() *cobra.Command {
	var (
		models modelFlags
		port   string
		dbURL  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the discovery HTTP API",
		Long: `Serves the discovery, triage and run history API on localhost. Edits to
the config file update the discovery defaults without a restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			models.apply(cfg)
			cfg.Server.Port = firstNonEmpty(port, cfg.Server.Port)

			logger, err := app.NewLogger(config.LogConfig{Level: cfg.Log.Level, Format: "console"})
			if err != nil {
				return err
			}
			defer logger.Sync()

			a, err := app.New(cmd.Context(), cfg, logger, app.Options{History: true, DatabaseURL: dbURL})
			if err != nil {
				return err
			}
			defer a.Close()

			return a.Serve(cmd.Context(), configPath(cmd))
		},
	}

	models.register(cmd)
	cmd.Flags().StringVar(&port, "port", "", "Port to serve on (default: from config, 8080)")
	cmd.Flags().StringVar(&dbURL, "db", "", "Run history database URL (default: from config, then the local SQLite file)")
	return cmd
}

// configPath returns the config file loadConfig would read, or "".
func configPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return config.FindConfigFile(cwd)
}
