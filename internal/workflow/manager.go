package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"hevcify/internal/config"
	"hevcify/internal/encode"
	"hevcify/internal/fileutil"
	"hevcify/internal/logging"
	"hevcify/internal/media"
	"hevcify/internal/queue"
	"hevcify/internal/scan"
)

// Prober is the ffprobe surface the worker needs.
type Prober interface {
	Probe(ctx context.Context, path string) (*media.Info, error)
	VerifyHEVC(ctx context.Context, path string) error
}

// Runner is the ffmpeg surface the worker needs.
type Runner interface {
	Run(ctx context.Context, plan *encode.Plan, progress func(encode.ProgressUpdate)) error
}

// Events receives per-file notifications during a batch run. Any field may
// be nil.
type Events struct {
	FileStarted  func(item *queue.Item)
	FileProgress func(item *queue.Item, update encode.ProgressUpdate)
	FileFinished func(item *queue.Item)
}

// Manager coordinates queue processing with a single worker.
type Manager struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	prober Prober
	runner Runner
	events Events

	runID  string
	dryRun bool

	pollInterval       time.Duration
	errorRetryInterval time.Duration

	lock     *flock.Flock
	lockHeld bool
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithDryRun logs the work that would happen without touching any files.
func WithDryRun(enabled bool) Option {
	return func(m *Manager) { m.dryRun = enabled }
}

// WithEvents registers per-file callbacks.
func WithEvents(events Events) Option {
	return func(m *Manager) { m.events = events }
}

// WithClients overrides the ffprobe/ffmpeg clients (used in tests).
func WithClients(prober Prober, runner Runner) Option {
	return func(m *Manager) {
		if prober != nil {
			m.prober = prober
		}
		if runner != nil {
			m.runner = runner
		}
	}
}

// NewManager constructs a workflow manager bound to real ffmpeg/ffprobe.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:                cfg,
		store:              store,
		logger:             logging.WithComponent(logger, "workflow"),
		prober:             media.NewProber(cfg.Encoder.FFprobeBinary),
		runner:             encode.NewRunner(cfg.Encoder.FFmpegBinary, time.Duration(cfg.Encoder.TimeoutSeconds)*time.Second),
		runID:              uuid.NewString(),
		pollInterval:       time.Duration(cfg.Workflow.PollInterval) * time.Second,
		errorRetryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		lock:               flock.New(filepath.Join(cfg.Paths.StateDir, "hevcify.lock")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunID identifies this batch run in logs and queue items.
func (m *Manager) RunID() string {
	return m.runID
}

// acquireLock takes the per-state-directory run lock. It is idempotent so
// Ingest and the run loops can share one acquisition; the lock is released
// when the run loop finishes.
func (m *Manager) acquireLock() error {
	if m.lockHeld {
		return nil
	}
	locked, err := m.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return errors.New("another hevcify run is already active for this state directory")
	}
	m.lockHeld = true
	return nil
}

func (m *Manager) releaseLock() {
	if !m.lockHeld {
		return
	}
	_ = m.lock.Unlock()
	m.lockHeld = false
}

// Ingest enqueues scan candidates under this run. Candidates the scanner
// already decided to skip land as skipped items so the summary reflects
// them without the worker re-deciding. Ingest takes the run lock: queue
// mutation and the batch that consumes it belong to one exclusive run.
func (m *Manager) Ingest(ctx context.Context, candidates []scan.Candidate) (int, error) {
	if err := m.acquireLock(); err != nil {
		return 0, err
	}

	enqueued := 0
	for _, candidate := range candidates {
		item, err := m.store.Enqueue(ctx, m.runID, candidate.SourcePath, candidate.TargetPath, candidate.SizeBytes)
		if err != nil {
			return enqueued, fmt.Errorf("enqueue %s: %w", candidate.SourcePath, err)
		}
		if item.RunID != m.runID {
			// Finished in an earlier run; leave it alone.
			continue
		}
		if candidate.Decision != scan.DecisionConvert && item.Status == queue.StatusPending {
			item.SetSkipped(candidate.Reason)
			if err := m.store.Update(ctx, item); err != nil {
				return enqueued, fmt.Errorf("mark skipped %s: %w", candidate.SourcePath, err)
			}
			m.logger.Info("skipping file",
				logging.Int64(logging.FieldItemID, item.ID),
				logging.String(logging.FieldSource, item.SourcePath),
				logging.String("reason", candidate.Reason),
			)
			continue
		}
		enqueued++
	}

	if err := m.pruneVanished(ctx); err != nil {
		return enqueued, err
	}
	return enqueued, nil
}

// pruneVanished drops finished items whose files were removed from the
// library since the last run, so the queue tracks what actually exists.
func (m *Manager) pruneVanished(ctx context.Context) error {
	finished, err := m.store.List(ctx, queue.StatusCompleted, queue.StatusSkipped)
	if err != nil {
		return fmt.Errorf("list finished items: %w", err)
	}
	for _, item := range finished {
		if fileutil.Exists(item.SourcePath) || fileutil.Exists(item.OutputPath) {
			continue
		}
		if err := m.store.Delete(ctx, item.ID); err != nil {
			return fmt.Errorf("prune item %d: %w", item.ID, err)
		}
		m.logger.Info("pruned queue item for removed file",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String(logging.FieldSource, item.SourcePath),
		)
	}
	return nil
}

// RunBatch processes pending items until the queue drains or ctx is
// canceled, then returns the run summary. Only one batch may run at a time
// per state directory.
func (m *Manager) RunBatch(ctx context.Context) (queue.Summary, error) {
	if err := m.acquireLock(); err != nil {
		return queue.Summary{}, err
	}
	defer m.releaseLock()

	m.resetStuck(ctx)

	if err := m.drain(ctx); err != nil {
		return m.summary(ctx), err
	}
	return m.summary(ctx), nil
}

// Watch processes the queue continuously: each time it drains, the worker
// sleeps for the poll interval and checks again, until ctx is canceled.
func (m *Manager) Watch(ctx context.Context) error {
	if err := m.acquireLock(); err != nil {
		return err
	}
	defer m.releaseLock()

	m.resetStuck(ctx)

	for {
		if err := m.drain(ctx); err != nil {
			return err
		}
		if !m.sleep(ctx, m.pollInterval) {
			return ctx.Err()
		}
	}
}

func (m *Manager) resetStuck(ctx context.Context) {
	if n, err := m.store.ResetStuck(ctx); err != nil {
		m.logger.Warn("failed to reset interrupted items", logging.Error(err))
	} else if n > 0 {
		m.logger.Info("requeued items interrupted by a previous run", logging.Int64("count", n))
	}
}

// drain processes pending items until the queue is empty or ctx ends.
func (m *Manager) drain(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		item, err := m.store.NextPending(ctx)
		if err != nil {
			m.logger.Error("failed to fetch next queue item", logging.Error(err))
			if !m.sleep(ctx, m.errorRetryInterval) {
				return ctx.Err()
			}
			continue
		}
		if item == nil {
			return nil
		}

		if err := m.processItem(ctx, item); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
		}
	}
}

func (m *Manager) summary(ctx context.Context) queue.Summary {
	summary, err := m.store.SummaryForRun(ctx, m.runID)
	if err != nil {
		m.logger.Warn("failed to compute run summary", logging.Error(err))
		return queue.Summary{}
	}
	return summary
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
