// Package testsupport provides shared fixtures for package tests: a config
// rooted in a temp directory and a queue store backed by it.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"hevcify/internal/config"
	"hevcify/internal/queue"
)

// NewConfig returns a validated config with every path rooted under a
// test-scoped temp directory and intervals tightened for tests.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Workflow.PollInterval = 1
	cfg.Workflow.ErrorRetryInterval = 1

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// MustOpenStore opens the queue database for cfg and closes it on cleanup.
func MustOpenStore(t *testing.T, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open queue store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// WriteFile creates path (and parent directories) with the given content.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
