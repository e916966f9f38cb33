// Command exotriaged is the exotriage platform service.
// It serves the discovery, single-candidate triage and run history API,
// plus health and metrics endpoints.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/exotriage/exotriage/internal/app"
	"github.com/exotriage/exotriage/pkg/config"
)

func main() {
	// A .env file is optional.
	_ = godotenv.Load()

	if err := run(envOrDefault("EXOTRIAGE_CONFIG", ".exotriage/config.yaml")); err != nil {
		log.Fatal(err)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{History: true})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	// Only an existing file can be watched for discovery default changes.
	if _, err := os.Stat(configPath); err != nil {
		configPath = ""
	}
	if err := a.Serve(ctx, configPath); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
