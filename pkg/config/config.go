// Package config handles loading and managing exotriage configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/exotriage/exotriage/pkg/triagequery"
)

// Config is the top-level configuration for exotriage.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Source    SourceConfig    `yaml:"source" toml:"source"`
	Model     ModelConfig     `yaml:"model" toml:"model"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Archive   ArchiveConfig   `yaml:"archive" toml:"archive"`
	Discovery DiscoveryConfig `yaml:"discovery" toml:"discovery"`
	Log       LogConfig       `yaml:"log" toml:"log"`
}

// ServerConfig controls the HTTP service.
type ServerConfig struct {
	Port           string `yaml:"port" toml:"port"`
	RequestTimeout int    `yaml:"request_timeout" toml:"request_timeout"` // seconds
	CacheSize      int    `yaml:"cache_size" toml:"cache_size"`           // cached batches
	APIKey         string `yaml:"-" toml:"-"`                             // env only
}

// SourceConfig locates the candidate dataset.
type SourceConfig struct {
	Path        string `yaml:"path" toml:"path"`
	Disposition string `yaml:"disposition" toml:"disposition"`
}

// ModelConfig selects the inference provider. RemoteURL wins over Artifact.
type ModelConfig struct {
	Artifact    string `yaml:"artifact" toml:"artifact"`         // path, or archive key with from_archive
	FromArchive bool   `yaml:"from_archive" toml:"from_archive"` // read Artifact from the archive store
	RemoteURL   string `yaml:"remote_url" toml:"remote_url"`
	Timeout     int    `yaml:"timeout" toml:"timeout"` // seconds, remote provider only
}

// DatabaseConfig locates the run history database. Empty disables run
// history for the CLI and uses the local SQLite file for the daemon.
type DatabaseConfig struct {
	URL string `yaml:"url" toml:"url"`
}

// ArchiveConfig selects the blob store for run reports.
type ArchiveConfig struct {
	Backend  string `yaml:"backend" toml:"backend"` // local, s3 or gcs
	Dir      string `yaml:"dir" toml:"dir"`
	Bucket   string `yaml:"bucket" toml:"bucket"`
	Prefix   string `yaml:"prefix" toml:"prefix"`
	Region   string `yaml:"region" toml:"region"`
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
}

// DiscoveryConfig holds the discovery query defaults and worker count.
type DiscoveryConfig struct {
	Workers       int    `yaml:"workers" toml:"workers"`
	PerPage       int    `yaml:"per_page" toml:"per_page"`
	Sort          string `yaml:"sort" toml:"sort"`
	Direction     string `yaml:"dir" toml:"dir"`
	MinScore      int    `yaml:"min_score" toml:"min_score"`
	HabitableOnly bool   `yaml:"hz_only" toml:"hz_only"`
}

// LogConfig controls zap logging.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // json or console
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			RequestTimeout: 120,
			CacheSize:      8,
		},
		Source: SourceConfig{
			Path:        filepath.Join("data", "koi_data.csv"),
			Disposition: "CANDIDATE",
		},
		Model: ModelConfig{
			Artifact: filepath.Join("models", "model.json"),
			Timeout:  30,
		},
		Archive: ArchiveConfig{
			Backend: "local",
		},
		Discovery: DiscoveryConfig{
			PerPage:   triagequery.DefaultPerPage,
			Sort:      triagequery.SortPriorityScore,
			Direction: "desc",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a config file from the given path. Files ending in .toml are
// parsed as TOML, everything else as YAML.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that cannot be applied.
func (c *Config) Validate() error {
	switch c.Archive.Backend {
	case "", "local", "s3", "gcs":
	default:
		return fmt.Errorf("archive.backend: unknown backend %q", c.Archive.Backend)
	}
	switch c.Discovery.Direction {
	case "", "asc", "desc":
	default:
		return fmt.Errorf("discovery.dir: must be asc or desc, got %q", c.Discovery.Direction)
	}
	q := triagequery.Query{Sort: c.Discovery.Sort}
	if c.Discovery.Sort != "" && q.Normalize().Sort != c.Discovery.Sort {
		return fmt.Errorf("discovery.sort: unknown key %q", c.Discovery.Sort)
	}
	if c.Discovery.PerPage < 0 || c.Discovery.PerPage > triagequery.MaxPerPage {
		return fmt.Errorf("discovery.per_page: must be between 1 and %d", triagequery.MaxPerPage)
	}
	return nil
}

// Query returns the discovery query defaults.
func (c *Config) Query() triagequery.Query {
	d := c.Discovery
	return triagequery.Query{
		Sort:          d.Sort,
		Descending:    d.Direction != "asc",
		PerPage:       d.PerPage,
		MinScore:      d.MinScore,
		HabitableOnly: d.HabitableOnly,
	}.Normalize()
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.APIKey, "EXOTRIAGE_API_KEY")
	setInt(&c.Server.CacheSize, "BATCH_CACHE_SIZE")
	setString(&c.Source.Path, "EXOTRIAGE_DATASET")
	setString(&c.Model.Artifact, "EXOTRIAGE_MODEL")
	setString(&c.Model.RemoteURL, "MODEL_SERVER_URL")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Archive.Backend, "ARCHIVE_BACKEND")
	setString(&c.Archive.Dir, "LOCAL_STORAGE_PATH")
	setString(&c.Archive.Bucket, "ARCHIVE_BUCKET")
	setString(&c.Archive.Region, "AWS_REGION")
	setString(&c.Archive.Endpoint, "S3_ENDPOINT")
	setString(&c.Log.Level, "LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// FindConfigFile looks for .exotriage/config.yaml (or config.toml) in the
// given directory and its parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
			candidate := filepath.Join(dir, ".exotriage", name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// CacheDir returns the per-user state directory, ~/.cache/exotriage.
func CacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to temp dir if HOME isn't available
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", "exotriage")
}

// LocalDatabaseURL is the SQLite run history used when no database is set.
func LocalDatabaseURL() string {
	return "sqlite://" + filepath.Join(CacheDir(), "runs.db")
}

// ArchiveDir is the default root of the local archive.
func ArchiveDir() string {
	return filepath.Join(CacheDir(), "archive")
}
