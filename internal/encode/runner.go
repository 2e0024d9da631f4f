package encode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

const stderrTailLines = 10

// Runner executes FFmpeg plans.
type Runner struct {
	binary  string
	timeout time.Duration
}

// NewRunner constructs a Runner. An empty binary defaults to "ffmpeg";
// a zero timeout disables the per-file limit.
func NewRunner(binary string, timeout time.Duration) *Runner {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &Runner{binary: binary, timeout: timeout}
}

// Run executes the plan, invoking progress for each sample FFmpeg reports.
// On failure the returned error carries the tail of stderr.
func (r *Runner) Run(ctx context.Context, plan *Plan, progress func(ProgressUpdate)) error {
	if plan == nil || len(plan.Args) == 0 {
		return errors.New("run: empty plan")
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := commandContext(ctx, r.binary, plan.Args...)
	stderr := newTailBuffer(stderrTailLines)
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	parser := newProgressParser(plan.DurationSeconds)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		update, ok := parser.Consume(scanner.Text())
		if ok && progress != nil {
			progress(update)
		}
	}
	scanErr := scanner.Err()

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg %s: %w", plan.Source, ctxErr)
		}
		if tail := stderr.Tail(); tail != "" {
			return fmt.Errorf("ffmpeg %s: %w: %s", plan.Source, err, tail)
		}
		return fmt.Errorf("ffmpeg %s: %w", plan.Source, err)
	}
	if scanErr != nil {
		return fmt.Errorf("read ffmpeg progress: %w", scanErr)
	}
	return nil
}
