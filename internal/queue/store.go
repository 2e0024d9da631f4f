package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"hevcify/internal/config"
)

// Store manages queue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const itemColumns = `id, run_id, source_path, output_path, status, reason,
	progress_percent, progress_message, size_before, size_after,
	created_at, updated_at`

// Open initializes or connects to the queue database in the state directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.StateDir, "queue.db"))
}

// OpenPath opens the queue database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Enqueue inserts a pending item for sourcePath, or revives an existing
// one. Completed and skipped items are returned unchanged so a rescan never
// redoes finished work; pending and failed items are reset to pending under
// the new run. Converting items are left alone.
func (s *Store) Enqueue(ctx context.Context, runID, sourcePath, outputPath string, sizeBefore int64) (*Item, error) {
	existing, err := s.GetBySourcePath(ctx, sourcePath)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	if existing != nil {
		switch existing.Status {
		case StatusPending, StatusFailed:
			_, err := s.db.ExecContext(ctx,
				`UPDATE queue_items
				 SET run_id = ?, status = ?, reason = NULL, progress_percent = 0,
				     progress_message = NULL, size_before = ?, updated_at = ?
				 WHERE id = ?`,
				runID, StatusPending, sizeBefore, now, existing.ID,
			)
			if err != nil {
				return nil, fmt.Errorf("revive item: %w", err)
			}
			return s.GetByID(ctx, existing.ID)
		default:
			return existing, nil
		}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO queue_items (
			run_id, source_path, output_path, status, size_before,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, sourcePath, outputPath, StatusPending, sizeBefore, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier. Missing items return nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// GetBySourcePath fetches the item tracking sourcePath, if any.
func (s *Store) GetBySourcePath(ctx context.Context, sourcePath string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE source_path = ?`, sourcePath)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item by source: %w", err)
	}
	return item, nil
}

// NextPending returns the oldest pending item, or nil when the queue is drained.
func (s *Store) NextPending(ctx context.Context) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE status = ? ORDER BY id LIMIT 1`,
		StatusPending,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing queue item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE queue_items
		 SET run_id = ?, source_path = ?, output_path = ?, status = ?, reason = ?,
		     progress_percent = ?, progress_message = ?, size_before = ?, size_after = ?,
		     updated_at = ?
		 WHERE id = ?`,
		item.RunID,
		item.SourcePath,
		item.OutputPath,
		item.Status,
		nullableString(item.Reason),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		item.SizeBefore,
		item.SizeAfter,
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// List returns queue items filtered by status set (or all items when no
// status is provided), ordered by creation.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM queue_items`
	var args []any
	if len(statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
		query += ` WHERE status IN (` + placeholders + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Stats returns item counts per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// SummaryForRun aggregates terminal outcomes for a batch run.
func (s *Store) SummaryForRun(ctx context.Context, runID string) (Summary, error) {
	items, err := s.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	var summary Summary
	for _, item := range items {
		if item.RunID != runID {
			continue
		}
		summary.Scanned++
		switch item.Status {
		case StatusCompleted:
			summary.Converted++
			summary.BytesBefore += item.SizeBefore
			summary.BytesAfter += item.SizeAfter
		case StatusSkipped:
			summary.Skipped++
		case StatusFailed:
			summary.Failed++
		}
	}
	return summary, nil
}

// Delete removes a single item.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM queue_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// ResetStuck returns items left converting by a crashed run to pending.
func (s *Store) ResetStuck(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE queue_items
		 SET status = ?, progress_percent = 0, progress_message = NULL, updated_at = ?
		 WHERE status = ?`,
		StatusPending, now, StatusConverting,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed resets failed items (one, or all when id is 0) to pending.
func (s *Store) RetryFailed(ctx context.Context, id int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	query := `UPDATE queue_items
	 SET status = ?, reason = NULL, progress_percent = 0, progress_message = NULL, updated_at = ?
	 WHERE status = ?`
	args := []any{StatusPending, now, StatusFailed}
	if id > 0 {
		query += ` AND id = ?`
		args = append(args, id)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed items: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes items. With no statuses it removes everything.
func (s *Store) Clear(ctx context.Context, statuses ...Status) (int64, error) {
	query := `DELETE FROM queue_items`
	var args []any
	if len(statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
		query += ` WHERE status IN (` + placeholders + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear items: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item            Item
		reason          sql.NullString
		progressMessage sql.NullString
		createdAt       string
		updatedAt       string
	)
	err := row.Scan(
		&item.ID,
		&item.RunID,
		&item.SourcePath,
		&item.OutputPath,
		&item.Status,
		&reason,
		&item.ProgressPercent,
		&progressMessage,
		&item.SizeBefore,
		&item.SizeAfter,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Reason = reason.String
	item.ProgressMessage = progressMessage.String
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		item.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		item.UpdatedAt = ts
	}
	return &item, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
