package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"hevcify/internal/config"
	"hevcify/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := testsupport.NewConfig(t)

	configPath := filepath.Join(home, ".config", "hevcify", "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()

	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()

	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
