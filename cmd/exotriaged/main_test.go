package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("EXOTRIAGE_TEST_VALUE", "")
	if got := envOrDefault("EXOTRIAGE_TEST_VALUE", "fallback"); got != "fallback" {
		t.Errorf("envOrDefault = %q, want fallback", got)
	}
	t.Setenv("EXOTRIAGE_TEST_VALUE", "set")
	if got := envOrDefault("EXOTRIAGE_TEST_VALUE", "fallback"); got != "set" {
		t.Errorf("envOrDefault = %q, want set", got)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("archive:\n  backend: tape\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := run(path)
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestRunRejectsInvalidEnv(t *testing.T) {
	t.Setenv("ARCHIVE_BACKEND", "tape")
	err := run(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "config:") {
		t.Fatalf("expected validation error, got %v", err)
	}
}
