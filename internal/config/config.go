package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	LogDir     string `toml:"log_dir"`
	StateDir   string `toml:"state_dir"`
}

// Encoder contains video encoder selection and quality settings.
type Encoder struct {
	GPU            string `toml:"gpu"`
	Quality        int    `toml:"quality"`
	Profile        string `toml:"profile"`
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Audio contains audio track handling settings.
type Audio struct {
	Codec    string `toml:"codec"`
	Quality  string `toml:"quality"`
	Language string `toml:"language"`
}

// Subtitles contains subtitle embedding settings.
type Subtitles struct {
	Embed    bool   `toml:"embed"`
	Language string `toml:"language"`
}

// Scan contains library traversal settings.
type Scan struct {
	Extensions   []string `toml:"extensions"`
	SkipExisting bool     `toml:"skip_existing"`
	MinSizeBytes int64    `toml:"min_size_bytes"`
}

// Workflow contains worker loop timing settings.
type Workflow struct {
	PollInterval       int `toml:"poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for hevcify.
//
// Sections by subsystem:
//   - Paths: library root, log directory, queue state directory
//   - Encoder: GPU selection, H.265 quality/profile, ffmpeg binaries
//   - Audio: target codec, VBR quality, preferred language
//   - Subtitles: text subtitle embedding and language preference
//   - Scan: candidate extensions, skip-existing, minimum size
//   - Workflow: worker polling intervals
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Encoder   Encoder   `toml:"encoder"`
	Audio     Audio     `toml:"audio"`
	Subtitles Subtitles `toml:"subtitles"`
	Scan      Scan      `toml:"scan"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/hevcify/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file was actually found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hevcify.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories hevcify writes to. The library
// directory is created best-effort so a temporarily unmounted NAS does not
// fail config load.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ExpandPath expands a leading "~" and returns a cleaned absolute path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
