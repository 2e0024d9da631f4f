package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"hevcify/internal/encode"
	"hevcify/internal/fileutil"
	"hevcify/internal/logging"
	"hevcify/internal/media"
	"hevcify/internal/queue"
	"hevcify/internal/scan"
)

// progressPersistStep is the minimum percent delta between queue writes
// while an encode is running.
const progressPersistStep = 1.0

// processItem runs one queue item through the full pipeline: probe, track
// selection, encode to a temp file, verification, then replacement of the
// original. Failures mark the item failed and leave the source untouched.
func (m *Manager) processItem(ctx context.Context, item *queue.Item) error {
	logger := m.logger.With(
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldSource, item.SourcePath),
	)

	item.Status = queue.StatusConverting
	item.RunID = m.runID
	if err := m.store.Update(ctx, item); err != nil {
		return fmt.Errorf("claim item: %w", err)
	}

	if m.events.FileStarted != nil {
		m.events.FileStarted(item)
	}

	err := m.convert(ctx, logger, item)
	switch {
	case err == nil:
	case isSkip(err):
		item.SetSkipped(strings.TrimPrefix(err.Error(), skipPrefix))
		logger.Info("skipping file", logging.String("reason", item.Reason))
	default:
		item.SetFailed(err.Error())
		logger.Error("conversion failed", logging.Error(err))
	}

	if updateErr := m.store.Update(ctx, item); updateErr != nil {
		logger.Error("failed to persist item state", logging.Error(updateErr))
		if err == nil {
			err = updateErr
		}
	}

	if m.events.FileFinished != nil {
		m.events.FileFinished(item)
	}
	return err
}

const skipPrefix = "skip: "

type skipError struct{ reason string }

func (e skipError) Error() string { return skipPrefix + e.reason }

func isSkip(err error) bool {
	_, ok := err.(skipError)
	return ok
}

func (m *Manager) convert(ctx context.Context, logger *slog.Logger, item *queue.Item) error {
	if !fileutil.Exists(item.SourcePath) {
		return skipError{reason: "source file no longer exists"}
	}

	info, err := m.prober.Probe(ctx, item.SourcePath)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}

	// An .mp4 that already carries HEVC video needs no work; this is the
	// probe-time counterpart of the scan-time target-exists skip.
	if item.SourcePath == item.OutputPath && info.HasHEVCVideo() {
		return skipError{reason: "already HEVC in MP4 container"}
	}

	selection, err := media.SelectTracks(info, media.Preferences{
		AudioLanguage:    m.cfg.Audio.Language,
		SubtitleLanguage: m.cfg.Subtitles.Language,
		EmbedSubtitles:   m.cfg.Subtitles.Embed,
	})
	if err != nil {
		return fmt.Errorf("select tracks: %w", err)
	}

	tempPath := scan.TempPath(item.SourcePath)
	plan, err := encode.Build(item.SourcePath, tempPath, info, selection, encode.SettingsFromConfig(m.cfg))
	if err != nil {
		return fmt.Errorf("build plan: %w", err)
	}

	if m.dryRun {
		logger.Info("dry run",
			logging.String(logging.FieldOutput, item.OutputPath),
			logging.String("command", plan.CommandLine(m.cfg.Encoder.FFmpegBinary)),
		)
		return skipError{reason: "dry-run"}
	}

	if err := fileutil.RemoveIfExists(tempPath); err != nil {
		return fmt.Errorf("remove stale temp file: %w", err)
	}

	logger.Info("converting",
		logging.String(logging.FieldOutput, item.OutputPath),
		logging.String("encoder", m.cfg.Encoder.GPU),
		logging.Float64("duration_seconds", plan.DurationSeconds),
	)

	start := time.Now()
	if err := m.runner.Run(ctx, plan, m.progressSink(ctx, item)); err != nil {
		_ = fileutil.RemoveIfExists(tempPath)
		return fmt.Errorf("encode: %w", err)
	}

	if fileutil.SizeOf(tempPath) == 0 {
		_ = fileutil.RemoveIfExists(tempPath)
		return fmt.Errorf("%w: empty output %s", media.ErrVerification, filepath.Base(tempPath))
	}
	if err := m.prober.VerifyHEVC(ctx, tempPath); err != nil {
		_ = fileutil.RemoveIfExists(tempPath)
		return err
	}

	if err := m.replace(item, tempPath); err != nil {
		_ = fileutil.RemoveIfExists(tempPath)
		return err
	}

	item.SetCompleted(fileutil.SizeOf(item.OutputPath))
	logger.Info("conversion complete",
		logging.String(logging.FieldOutput, item.OutputPath),
		logging.Duration("elapsed", time.Since(start).Round(time.Second)),
		logging.Int64("size_before", item.SizeBefore),
		logging.Int64("size_after", item.SizeAfter),
	)
	return nil
}

// replace swaps the verified temp file into the target location. The source
// is removed first so the rename cannot collide with it; when source and
// target are the same .mp4 path this is a plain overwrite.
func (m *Manager) replace(item *queue.Item, tempPath string) error {
	if item.SourcePath != item.OutputPath {
		if err := fileutil.RemoveIfExists(item.SourcePath); err != nil {
			return fmt.Errorf("remove original: %w", err)
		}
	}
	if err := fileutil.Rename(tempPath, item.OutputPath); err != nil {
		return fmt.Errorf("move output into place: %w", err)
	}
	return nil
}

// progressSink persists encode progress to the queue, throttled so SQLite
// is not written on every ffmpeg status line.
func (m *Manager) progressSink(ctx context.Context, item *queue.Item) func(encode.ProgressUpdate) {
	lastPersisted := -progressPersistStep
	return func(update encode.ProgressUpdate) {
		if m.events.FileProgress != nil {
			m.events.FileProgress(item, update)
		}
		if !update.Done && update.Percent < lastPersisted+progressPersistStep {
			return
		}
		lastPersisted = update.Percent
		item.SetProgress(fmt.Sprintf("encoding at %s", update.Speed), update.Percent)
		if err := m.store.Update(ctx, item); err != nil {
			m.logger.Warn("failed to persist progress", logging.Error(err))
		}
	}
}
