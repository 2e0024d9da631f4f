package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	return nil
}

func (c *Config) validateEncoder() error {
	switch c.Encoder.GPU {
	case GPUNvidia, GPUIntel, GPUAMD, GPUCPU:
	default:
		return fmt.Errorf("encoder.gpu must be one of nvidia, intel, amd, cpu (got %q)", c.Encoder.GPU)
	}
	if c.Encoder.Quality < 0 || c.Encoder.Quality > 51 {
		return fmt.Errorf("encoder.quality must be between 0 and 51 (got %d)", c.Encoder.Quality)
	}
	switch c.Encoder.Profile {
	case ProfileMain, ProfileMain10:
	default:
		return fmt.Errorf("encoder.profile must be main or main10 (got %q)", c.Encoder.Profile)
	}
	if c.Encoder.TimeoutSeconds <= 0 {
		return errors.New("encoder.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.Codec == "" {
		return errors.New("audio.codec must be set")
	}
	if c.Audio.Codec != AudioCopy && c.Audio.Quality == "" {
		return errors.New("audio.quality must be set unless audio.codec is copy")
	}
	if _, err := language.Parse(c.Audio.Language); err != nil {
		return fmt.Errorf("audio.language: invalid language tag %q", c.Audio.Language)
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if !c.Subtitles.Embed {
		return nil
	}
	if _, err := language.Parse(c.Subtitles.Language); err != nil {
		return fmt.Errorf("subtitles.language: invalid language tag %q", c.Subtitles.Language)
	}
	return nil
}

func (c *Config) validateScan() error {
	if len(c.Scan.Extensions) == 0 {
		return errors.New("scan.extensions must include at least one extension")
	}
	if c.Scan.MinSizeBytes < 0 {
		return errors.New("scan.min_size_bytes must not be negative")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.PollInterval <= 0 {
		return errors.New("workflow.poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
