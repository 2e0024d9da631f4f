package encode

import (
	"testing"
	"time"
)

func TestProgressParserEmitsOnBlockBoundary(t *testing.T) {
	parser := newProgressParser(100)

	if _, ok := parser.Consume("out_time_us=25000000"); ok {
		t.Fatal("out_time alone should not emit an update")
	}
	if _, ok := parser.Consume("speed=4.2x"); ok {
		t.Fatal("speed alone should not emit an update")
	}

	update, ok := parser.Consume("progress=continue")
	if !ok {
		t.Fatal("progress line should emit an update")
	}
	if update.Percent != 25 {
		t.Fatalf("Percent = %v, want 25", update.Percent)
	}
	if update.OutTime != 25*time.Second {
		t.Fatalf("OutTime = %v", update.OutTime)
	}
	if update.Speed != "4.2x" {
		t.Fatalf("Speed = %q", update.Speed)
	}
	if update.Done {
		t.Fatal("continue block should not be done")
	}
}

func TestProgressParserEndForcesFullPercent(t *testing.T) {
	parser := newProgressParser(100)
	parser.Consume("out_time_us=99000000")

	update, ok := parser.Consume("progress=end")
	if !ok || !update.Done {
		t.Fatalf("expected done update, got %+v ok=%v", update, ok)
	}
	if update.Percent != 100 {
		t.Fatalf("Percent = %v, want 100", update.Percent)
	}
}

func TestProgressParserClampsAndHandlesUnknownDuration(t *testing.T) {
	parser := newProgressParser(10)
	parser.Consume("out_time_us=20000000")
	update, _ := parser.Consume("progress=continue")
	if update.Percent != 100 {
		t.Fatalf("expected clamp to 100, got %v", update.Percent)
	}

	unknown := newProgressParser(0)
	unknown.Consume("out_time_us=5000000")
	update, _ = unknown.Consume("progress=continue")
	if update.Percent != 0 {
		t.Fatalf("unknown duration should report 0 percent, got %v", update.Percent)
	}
}

func TestTailBufferKeepsLastLines(t *testing.T) {
	buf := newTailBuffer(3)
	for _, line := range []string{"one", "two", "three", "four", "five"} {
		if _, err := buf.Write([]byte(line + "\n")); err != nil {
			t.Fatal(err)
		}
	}
	want := "three\nfour\nfive"
	if got := buf.Tail(); got != want {
		t.Fatalf("Tail = %q, want %q", got, want)
	}
}

func TestTailBufferIncludesUnterminatedLine(t *testing.T) {
	buf := newTailBuffer(5)
	buf.Write([]byte("partial error without newline"))
	if got := buf.Tail(); got != "partial error without newline" {
		t.Fatalf("Tail = %q", got)
	}
}
