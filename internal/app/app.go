// Package app wires configuration into the running services shared by the
// exotriage CLI and the exotriaged daemon.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/exotriage/exotriage/internal/archive"
	"github.com/exotriage/exotriage/internal/discovery"
	"github.com/exotriage/exotriage/internal/platform"
	"github.com/exotriage/exotriage/internal/runs"
	"github.com/exotriage/exotriage/internal/source"
	"github.com/exotriage/exotriage/internal/telemetry"
	"github.com/exotriage/exotriage/pkg/config"
	"github.com/exotriage/exotriage/pkg/inference"
)

// NewLogger builds a zap logger from the log section. Format "console" gives
// human-readable output, anything else JSON.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(firstNonEmpty(cfg.Level, "info"))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Format, "console") {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// OpenArchive opens the configured report store. A local backend without a
// directory uses config.ArchiveDir.
func OpenArchive(ctx context.Context, cfg config.ArchiveConfig) (archive.Store, error) {
	return archive.New(ctx, archive.Config{
		Backend:   cfg.Backend,
		Dir:       firstNonEmpty(cfg.Dir, config.ArchiveDir()),
		GCSBucket: cfg.Bucket,
		S3: archive.S3Config{
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
	})
}

// NewProvider selects the inference provider. A remote URL wins; otherwise
// the artifact is read from the archive (from_archive) or the filesystem.
func NewProvider(cfg config.ModelConfig, store archive.Store) inference.Provider {
	if cfg.RemoteURL != "" {
		return inference.NewRemoteProvider(cfg.RemoteURL, time.Duration(cfg.Timeout)*time.Second)
	}
	if cfg.FromArchive && store != nil {
		return inference.NewArtifactProvider(store, cfg.Artifact)
	}
	return inference.NewArtifactProvider(archive.FileStore{}, cfg.Artifact)
}

// NewSource opens the configured candidate dataset.
func NewSource(cfg config.SourceConfig) *source.CSVSource {
	return &source.CSVSource{Path: cfg.Path, Disposition: cfg.Disposition}
}

// App holds the services built from one Config.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Registry  *prometheus.Registry
	Metrics   *telemetry.Metrics
	Archive   archive.Store
	Discovery *discovery.Service
	Source    *source.CSVSource

	// Set only when run history is enabled.
	DB       *sql.DB
	Dialect  platform.Dialect
	Recorder *runs.Recorder
}

// Options controls optional parts of New.
type Options struct {
	// History opens the run database and the report archive.
	History bool
	// DatabaseURL overrides cfg.Database.URL. Empty falls back to the
	// config, then to the local SQLite file.
	DatabaseURL string
}

// New builds the services for cfg. Close releases them.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: telemetry.NewRegistry(),
		Source:   NewSource(cfg.Source),
	}
	a.Metrics = telemetry.NewMetrics(a.Registry)

	if opts.History || cfg.Model.FromArchive {
		store, err := OpenArchive(ctx, cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		a.Archive = store
	}

	loader := inference.NewLoader(NewProvider(cfg.Model, a.Archive), logger.Named("inference"))
	a.Discovery = discovery.NewService(loader,
		discovery.WithLogger(logger.Named("discovery")),
		discovery.WithMetrics(a.Metrics),
		discovery.WithWorkers(cfg.Discovery.Workers),
	)

	if !opts.History {
		return a, nil
	}

	url := firstNonEmpty(opts.DatabaseURL, cfg.Database.URL, config.LocalDatabaseURL())
	if dialect, dsn, err := platform.ParseURL(url); err == nil && dialect == platform.SQLite && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, dialect, err := platform.Open(url)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.Dialect = dialect
	a.Recorder = runs.NewRecorder(runs.NewService(db), a.Archive, logger.Named("runs"))
	logger.Debug("run history enabled", zap.String("dialect", string(dialect)))
	return a, nil
}

// Close releases the database, if open.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
