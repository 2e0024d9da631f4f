package queue_test

import (
	"context"
	"path/filepath"
	"testing"

	"hevcify/internal/queue"
)

func openStore(t *testing.T) *queue.Store {
	t.Helper()
	store, err := queue.OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEnqueueAndNextPending(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	item, err := store.Enqueue(ctx, "run-1", "/lib/movie.mkv", "/lib/movie.mp4", 1000)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", item.Status)
	}
	if item.RunID != "run-1" {
		t.Fatalf("unexpected run id: %q", item.RunID)
	}

	next, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if next == nil || next.ID != item.ID {
		t.Fatalf("expected item %d, got %+v", item.ID, next)
	}
}

func TestEnqueueIsIdempotentForFinishedItems(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	item, err := store.Enqueue(ctx, "run-1", "/lib/movie.mkv", "/lib/movie.mp4", 1000)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	item.SetCompleted(400)
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	again, err := store.Enqueue(ctx, "run-2", "/lib/movie.mkv", "/lib/movie.mp4", 1000)
	if err != nil {
		t.Fatalf("re-Enqueue: %v", err)
	}
	if again.Status != queue.StatusCompleted {
		t.Fatalf("completed item should stay completed, got %s", again.Status)
	}
	if again.RunID != "run-1" {
		t.Fatalf("completed item should keep its original run, got %q", again.RunID)
	}
}

func TestEnqueueRevivesFailedItems(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	item, err := store.Enqueue(ctx, "run-1", "/lib/movie.mkv", "/lib/movie.mp4", 1000)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	item.SetFailed("ffmpeg exploded")
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	revived, err := store.Enqueue(ctx, "run-2", "/lib/movie.mkv", "/lib/movie.mp4", 1000)
	if err != nil {
		t.Fatalf("re-Enqueue: %v", err)
	}
	if revived.Status != queue.StatusPending {
		t.Fatalf("failed item should be revived to pending, got %s", revived.Status)
	}
	if revived.RunID != "run-2" {
		t.Fatalf("revived item should join the new run, got %q", revived.RunID)
	}
	if revived.Reason != "" {
		t.Fatalf("revived item should have no reason, got %q", revived.Reason)
	}
}

func TestListAndStatsFilterByStatus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	a, _ := store.Enqueue(ctx, "run-1", "/lib/a.mkv", "/lib/a.mp4", 10)
	b, _ := store.Enqueue(ctx, "run-1", "/lib/b.mkv", "/lib/b.mp4", 10)
	_, _ = store.Enqueue(ctx, "run-1", "/lib/c.mkv", "/lib/c.mp4", 10)

	a.SetCompleted(5)
	if err := store.Update(ctx, a); err != nil {
		t.Fatal(err)
	}
	b.SetSkipped("target exists")
	if err := store.Update(ctx, b); err != nil {
		t.Fatal(err)
	}

	pending, err := store.List(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending, got %d", len(pending))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[queue.StatusCompleted] != 1 || stats[queue.StatusSkipped] != 1 || stats[queue.StatusPending] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSummaryForRunCountsOutcomes(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	a, _ := store.Enqueue(ctx, "run-1", "/lib/a.mkv", "/lib/a.mp4", 1000)
	b, _ := store.Enqueue(ctx, "run-1", "/lib/b.mkv", "/lib/b.mp4", 500)
	c, _ := store.Enqueue(ctx, "run-1", "/lib/c.mkv", "/lib/c.mp4", 300)
	_, _ = store.Enqueue(ctx, "run-other", "/lib/d.mkv", "/lib/d.mp4", 100)

	a.SetCompleted(400)
	b.SetSkipped("dry-run")
	c.SetFailed("boom")
	for _, item := range []*queue.Item{a, b, c} {
		if err := store.Update(ctx, item); err != nil {
			t.Fatal(err)
		}
	}

	summary, err := store.SummaryForRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("SummaryForRun: %v", err)
	}
	if summary.Scanned != 3 || summary.Converted != 1 || summary.Skipped != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.BytesBefore != 1000 || summary.BytesAfter != 400 {
		t.Fatalf("unexpected byte totals: %+v", summary)
	}
}

func TestResetStuckRevivesConvertingItems(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	item, _ := store.Enqueue(ctx, "run-1", "/lib/a.mkv", "/lib/a.mp4", 10)
	item.Status = queue.StatusConverting
	if err := store.Update(ctx, item); err != nil {
		t.Fatal(err)
	}

	n, err := store.ResetStuck(ctx)
	if err != nil {
		t.Fatalf("ResetStuck: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reset, got %d", n)
	}

	got, _ := store.GetByID(ctx, item.ID)
	if got.Status != queue.StatusPending {
		t.Fatalf("expected pending after reset, got %s", got.Status)
	}
}

func TestRetryFailed(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	a, _ := store.Enqueue(ctx, "run-1", "/lib/a.mkv", "/lib/a.mp4", 10)
	b, _ := store.Enqueue(ctx, "run-1", "/lib/b.mkv", "/lib/b.mp4", 10)
	a.SetFailed("x")
	b.SetFailed("y")
	for _, item := range []*queue.Item{a, b} {
		if err := store.Update(ctx, item); err != nil {
			t.Fatal(err)
		}
	}

	n, err := store.RetryFailed(ctx, a.ID)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 retried, got %d", n)
	}

	n, err = store.RetryFailed(ctx, 0)
	if err != nil {
		t.Fatalf("RetryFailed all: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected remaining 1 retried, got %d", n)
	}
}

func TestClear(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	a, _ := store.Enqueue(ctx, "run-1", "/lib/a.mkv", "/lib/a.mp4", 10)
	_, _ = store.Enqueue(ctx, "run-1", "/lib/b.mkv", "/lib/b.mp4", 10)
	a.SetCompleted(5)
	if err := store.Update(ctx, a); err != nil {
		t.Fatal(err)
	}

	n, err := store.Clear(ctx, queue.StatusCompleted)
	if err != nil {
		t.Fatalf("Clear completed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 cleared, got %d", n)
	}

	n, err = store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear all: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 cleared, got %d", n)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Failed "); !ok || status != queue.StatusFailed {
		t.Fatalf("ParseStatus failed: %v %v", status, ok)
	}
	if _, ok := queue.ParseStatus("exploded"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}
