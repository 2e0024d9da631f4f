package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitWritesSample(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init must refuse to clobber the file.
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.configPath); err == nil {
		t.Fatal("expected error when target already exists")
	}
}

func TestConfigShowPrintsEffectiveConfig(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[encoder]")
	requireContains(t, out, env.cfg.Paths.LibraryDir)
}

func TestConfigPathReportsResolvedLocation(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "path"}, env.configPath)
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	requireContains(t, out, env.configPath)
}
