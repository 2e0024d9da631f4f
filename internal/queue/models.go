package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConverting Status = "converting"
	StatusCompleted  Status = "completed"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusConverting,
	StatusCompleted,
	StatusSkipped,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status will not change without user action.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusSkipped, StatusFailed:
		return true
	default:
		return false
	}
}

// Item represents one source file tracked by the converter.
type Item struct {
	ID              int64
	RunID           string
	SourcePath      string
	OutputPath      string
	Status          Status
	Reason          string
	ProgressPercent float64
	ProgressMessage string
	SizeBefore      int64
	SizeAfter       int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SetProgress updates the progress fields together.
func (i *Item) SetProgress(message string, percent float64) {
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetCompleted marks the item converted and records the output size.
func (i *Item) SetCompleted(sizeAfter int64) {
	i.Status = StatusCompleted
	i.Reason = ""
	i.SizeAfter = sizeAfter
	i.ProgressPercent = 100
	i.ProgressMessage = "converted"
}

// SetSkipped marks the item skipped with a reason.
func (i *Item) SetSkipped(reason string) {
	i.Status = StatusSkipped
	i.Reason = reason
	i.ProgressPercent = 0
	i.ProgressMessage = reason
}

// SetFailed marks the item failed with the given error message. The source
// file is untouched when this is set.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.Reason = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
}

// Summary aggregates terminal counts for one batch run.
type Summary struct {
	Scanned     int
	Converted   int
	Skipped     int
	Failed      int
	BytesBefore int64
	BytesAfter  int64
}
