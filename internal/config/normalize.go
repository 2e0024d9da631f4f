package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEncoder()
	c.normalizeAudio()
	c.normalizeSubtitles()
	c.normalizeScan()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = ExpandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = ExpandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEncoder() {
	c.Encoder.GPU = strings.ToLower(strings.TrimSpace(c.Encoder.GPU))
	if c.Encoder.GPU == "" {
		c.Encoder.GPU = defaultGPU
	}
	c.Encoder.Profile = strings.ToLower(strings.TrimSpace(c.Encoder.Profile))
	if c.Encoder.Profile == "" {
		c.Encoder.Profile = defaultProfile
	}
	c.Encoder.FFmpegBinary = strings.TrimSpace(c.Encoder.FFmpegBinary)
	if c.Encoder.FFmpegBinary == "" {
		c.Encoder.FFmpegBinary = defaultFFmpegBinary
	}
	c.Encoder.FFprobeBinary = strings.TrimSpace(c.Encoder.FFprobeBinary)
	if c.Encoder.FFprobeBinary == "" {
		c.Encoder.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Encoder.TimeoutSeconds == 0 {
		c.Encoder.TimeoutSeconds = defaultEncodeTimeout
	}
}

func (c *Config) normalizeAudio() {
	c.Audio.Codec = strings.ToLower(strings.TrimSpace(c.Audio.Codec))
	if c.Audio.Codec == "" {
		c.Audio.Codec = defaultAudioCodec
	}
	c.Audio.Quality = strings.TrimSpace(c.Audio.Quality)
	if c.Audio.Quality == "" {
		c.Audio.Quality = defaultAudioQuality
	}
	c.Audio.Language = strings.TrimSpace(c.Audio.Language)
	if c.Audio.Language == "" {
		c.Audio.Language = defaultAudioLanguage
	}
}

func (c *Config) normalizeSubtitles() {
	c.Subtitles.Language = strings.TrimSpace(c.Subtitles.Language)
	if c.Subtitles.Language == "" {
		c.Subtitles.Language = c.Audio.Language
	}
}

func (c *Config) normalizeScan() {
	if len(c.Scan.Extensions) == 0 {
		c.Scan.Extensions = defaultExtensions()
		return
	}
	normalized := make([]string, 0, len(c.Scan.Extensions))
	for _, ext := range c.Scan.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	c.Scan.Extensions = normalized
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
