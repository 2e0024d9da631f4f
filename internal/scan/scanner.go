package scan

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"hevcify/internal/config"
	"hevcify/internal/fileutil"
	"hevcify/internal/logging"
)

// TempSuffix marks in-flight encode outputs. Temp files are never treated
// as candidates and stale ones are removed before re-encoding.
const TempSuffix = ".hevcify.tmp.mp4"

// Decision classifies what the pipeline should do with a candidate.
type Decision string

const (
	DecisionConvert    Decision = "convert"
	DecisionSkipExists Decision = "skip_exists"
	DecisionSkipSmall  Decision = "skip_small"
)

// Candidate is one file found during a library walk.
type Candidate struct {
	SourcePath string
	TargetPath string
	SizeBytes  int64
	Decision   Decision
	Reason     string
}

// Options control the walk.
type Options struct {
	Extensions   []string
	SkipExisting bool
	MinSizeBytes int64
	Logger       *slog.Logger
}

// OptionsFromConfig extracts walk options from application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Extensions:   cfg.Scan.Extensions,
		SkipExisting: cfg.Scan.SkipExisting,
		MinSizeBytes: cfg.Scan.MinSizeBytes,
	}
}

// TargetPath computes the final output path for a source: the same base
// name with an .mp4 extension, next to the source.
func TargetPath(source string) string {
	ext := filepath.Ext(source)
	return strings.TrimSuffix(source, ext) + ".mp4"
}

// TempPath computes the in-flight encode output path for a source.
func TempPath(source string) string {
	ext := filepath.Ext(source)
	return strings.TrimSuffix(source, ext) + TempSuffix
}

// Walk traverses root and returns candidates in walk order, each tagged
// with a decision. Unreadable subdirectories and files are logged and
// skipped so one bad mount point cannot sink a whole library run; only an
// unreadable root fails the walk.
func Walk(root string, opts Options) ([]Candidate, error) {
	extensions := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		extensions[strings.ToLower(ext)] = struct{}{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	var candidates []Candidate
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("skipping unreadable path", logging.String("path", path), logging.Error(err))
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, TempSuffix) {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := extensions[ext]; !ok {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			logger.Warn("skipping unreadable file", logging.String("path", path), logging.Error(err))
			return nil
		}

		candidates = append(candidates, classify(path, info.Size(), opts))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return candidates, nil
}

func classify(path string, size int64, opts Options) Candidate {
	candidate := Candidate{
		SourcePath: path,
		TargetPath: TargetPath(path),
		SizeBytes:  size,
		Decision:   DecisionConvert,
	}

	if opts.MinSizeBytes > 0 && size < opts.MinSizeBytes {
		candidate.Decision = DecisionSkipSmall
		candidate.Reason = fmt.Sprintf("below minimum size (%d bytes)", opts.MinSizeBytes)
		return candidate
	}

	// A source that is already the .mp4 target stays a candidate; the
	// worker probes it and skips re-encoding when it is already HEVC.
	if opts.SkipExisting && candidate.TargetPath != path && fileutil.Exists(candidate.TargetPath) {
		candidate.Decision = DecisionSkipExists
		candidate.Reason = fmt.Sprintf("target %s already exists", filepath.Base(candidate.TargetPath))
	}

	return candidate
}
