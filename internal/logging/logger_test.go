package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newTestConsoleLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)
	return slog.New(newConsoleHandler(buf, levelVar))
}

func TestConsoleHandlerFormatsLine(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(newTestConsoleLogger(&buf, slog.LevelInfo), "encoder")

	logger.Info("encode finished", String(FieldSource, "/media/movie.mkv"), Int("exit", 0))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, " INFO encoder: encode finished") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "source=/media/movie.mkv") {
		t.Fatalf("missing source attr: %q", line)
	}
	if !strings.Contains(line, "exit=0") {
		t.Fatalf("missing exit attr: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsoleLogger(&buf, slog.LevelInfo)

	logger.Warn("skip", String("reason", "target exists"))

	if !strings.Contains(buf.String(), `reason="target exists"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestConsoleHandlerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsoleLogger(&buf, slog.LevelWarn)

	logger.Info("ignored")
	if buf.Len() != 0 {
		t.Fatalf("expected info suppressed, got %q", buf.String())
	}
	logger.Error("kept")
	if !strings.Contains(buf.String(), "ERROR") {
		t.Fatalf("expected error emitted, got %q", buf.String())
	}
}

func TestJSONHandlerLowercasesLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, levelVar))

	logger.Info("hello", String("k", "v"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["level"] != "info" {
		t.Fatalf("unexpected level: %v", record["level"])
	}
	if record["msg"] != "hello" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected nop logger to be disabled")
	}
}
