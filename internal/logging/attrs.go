package logging

import (
	"context"
	"log/slog"
	"time"
)

// Standardized structured logging keys.
const (
	// FieldComponent names the subsystem emitting the record.
	FieldComponent = "component"
	// FieldItemID is the queue item identifier.
	FieldItemID = "item_id"
	// FieldRunID correlates all records of one batch run.
	FieldRunID = "run_id"
	// FieldSource is the source media file path.
	FieldSource = "source"
	// FieldOutput is the output media file path.
	FieldOutput = "output"
)

type Attr = slog.Attr

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Args converts attrs into the variadic any form slog methods take.
func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(nopHandler{})
}

// WithComponent returns logger tagged with a standardized component attribute.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (nopHandler) Handle(context.Context, slog.Record) error { return nil }

func (nopHandler) WithAttrs([]slog.Attr) slog.Handler { return nopHandler{} }

func (nopHandler) WithGroup(string) slog.Handler { return nopHandler{} }
