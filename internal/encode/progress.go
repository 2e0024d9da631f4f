package encode

import (
	"strconv"
	"strings"
	"time"
)

// ProgressUpdate is one sample of FFmpeg's -progress stream.
type ProgressUpdate struct {
	Percent float64
	OutTime time.Duration
	Speed   string
	Done    bool
}

// progressParser accumulates the key=value pairs FFmpeg writes to the
// progress pipe. FFmpeg flushes a block of keys ending with progress=...;
// a block boundary yields one update.
type progressParser struct {
	durationSeconds float64
	outTime         time.Duration
	speed           string
}

func newProgressParser(durationSeconds float64) *progressParser {
	return &progressParser{durationSeconds: durationSeconds}
}

// Consume feeds one line from the progress stream. The second return value
// is true when the line completed a block and the update is meaningful.
func (p *progressParser) Consume(line string) (ProgressUpdate, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return ProgressUpdate{}, false
	}
	value = strings.TrimSpace(value)

	switch key {
	case "out_time_us", "out_time_ms":
		// Both keys are microseconds in practice; ffmpeg emits them pairwise.
		if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
			p.outTime = time.Duration(us) * time.Microsecond
		}
		return ProgressUpdate{}, false
	case "speed":
		p.speed = value
		return ProgressUpdate{}, false
	case "progress":
		update := ProgressUpdate{
			Percent: p.percent(),
			OutTime: p.outTime,
			Speed:   p.speed,
			Done:    value == "end",
		}
		if update.Done {
			update.Percent = 100
		}
		return update, true
	default:
		return ProgressUpdate{}, false
	}
}

func (p *progressParser) percent() float64 {
	if p.durationSeconds <= 0 {
		return 0
	}
	percent := p.outTime.Seconds() / p.durationSeconds * 100
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// tailBuffer keeps the last n lines written to it. FFmpeg failures are
// usually explained by the final few stderr lines.
type tailBuffer struct {
	limit int
	lines []string
	rest  string
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.rest += string(p)
	for {
		idx := strings.IndexByte(b.rest, '\n')
		if idx < 0 {
			break
		}
		b.push(b.rest[:idx])
		b.rest = b.rest[idx+1:]
	}
	return len(p), nil
}

func (b *tailBuffer) push(line string) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return
	}
	b.lines = append(b.lines, line)
	if len(b.lines) > b.limit {
		b.lines = b.lines[len(b.lines)-b.limit:]
	}
}

// Tail returns the captured lines joined for error messages.
func (b *tailBuffer) Tail() string {
	lines := b.lines
	if extra := strings.TrimSpace(b.rest); extra != "" {
		lines = append(append([]string(nil), lines...), extra)
		if len(lines) > b.limit {
			lines = lines[len(lines)-b.limit:]
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
