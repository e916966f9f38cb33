// Package archive stores run reports and model artifacts in blob storage.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("object not found")

// Store abstracts a flat key/value blob store. Keys use '/' separators.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// ReportKey is the key of an archived run report.
func ReportKey(runID string) string {
	return "reports/" + runID + ".json"
}

// Config selects and configures a backend.
type Config struct {
	Backend   string // "local", "s3" or "gcs"
	Dir       string // local root
	GCSBucket string
	S3        S3Config
}

// New opens the configured backend.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		dir := cfg.Dir
		if dir == "" {
			dir = ".exotriage/archive"
		}
		return NewLocalStorage(dir), nil
	case "s3":
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("s3 archive requires a bucket")
		}
		return NewS3Storage(ctx, cfg.S3)
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("gcs archive requires a bucket")
		}
		return NewGCSStorage(ctx, cfg.GCSBucket)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}

// LocalStorage implements Store on the local filesystem.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.BaseDir, clean), nil
}

// Put writes a blob, creating parent directories.
func (s *LocalStorage) Put(_ context.Context, key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Get reads a blob.
func (s *LocalStorage) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return data, err
}

// FileStore reads keys as plain filesystem paths. It lets a model artifact
// be given as an ordinary path on the command line.
type FileStore struct{}

func (FileStore) Put(_ context.Context, key string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(key), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(key, data, 0o644)
}

func (FileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(key)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return data, err
}
