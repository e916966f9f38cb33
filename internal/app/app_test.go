package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/exotriage/exotriage/internal/archive"
	"github.com/exotriage/exotriage/pkg/config"
	"github.com/exotriage/exotriage/pkg/inference"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Source.Path = filepath.Join("..", "..", "testdata", "koi_sample.csv")
	cfg.Model.Artifact = filepath.Join("..", "..", "testdata", "model.json")
	cfg.Archive.Dir = t.TempDir()
	return cfg
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LogConfig{Level: "warn", Format: "console"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = NewLogger(config.LogConfig{Level: "chatty"})
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	p := NewProvider(config.ModelConfig{RemoteURL: "http://models:8500", Artifact: "m.json"}, nil)
	assert.IsType(t, &inference.RemoteProvider{}, p)

	p = NewProvider(config.ModelConfig{Artifact: "m.json"}, nil)
	assert.IsType(t, &inference.ArtifactProvider{}, p)
}

func TestOpenArchiveDefaultsToLocal(t *testing.T) {
	store, err := OpenArchive(context.Background(), config.ArchiveConfig{Backend: "local", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &archive.LocalStorage{}, store)

	_, err = OpenArchive(context.Background(), config.ArchiveConfig{Backend: "s3"})
	assert.Error(t, err, "s3 without a bucket")
}

func TestNewWithoutHistory(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), nil, Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Recorder)

	batch, err := a.Discovery.RunSource(context.Background(), a.Source)
	require.NoError(t, err)
	assert.Equal(t, 4, batch.Eligible)
	assert.Equal(t, 3, batch.Classified)
}

func TestNewWithHistory(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), nil, Options{History: true, DatabaseURL: "sqlite://:memory:"})
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Recorder)
	batch, err := a.Discovery.RunSource(ctx, a.Source)
	require.NoError(t, err)

	run, err := a.Recorder.Record(ctx, a.Source.Name(), "fp", batch)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ArchiveKey)

	report, err := a.Recorder.Report(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, report.Statistics)
	assert.Equal(t, 3, report.Statistics.Total)
}
