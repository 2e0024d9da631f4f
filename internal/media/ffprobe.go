package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// Stream codec types as reported by ffprobe.
const (
	CodecTypeVideo    = "video"
	CodecTypeAudio    = "audio"
	CodecTypeSubtitle = "subtitle"
)

// CodecHEVC is the ffprobe codec name for H.265 video.
const CodecHEVC = "hevc"

// Info is the decoded ffprobe output for one media file.
type Info struct {
	Format  Format   `json:"format"`
	Streams []Stream `json:"streams"`
}

// Format carries container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// Stream describes a single elementary stream.
type Stream struct {
	Index     int        `json:"index"`
	CodecType string     `json:"codec_type"`
	CodecName string     `json:"codec_name"`
	Width     int        `json:"width,omitempty"`
	Height    int        `json:"height,omitempty"`
	Channels  int        `json:"channels,omitempty"`
	Tags      StreamTags `json:"tags"`
}

// StreamTags holds the subset of stream tags hevcify reads.
type StreamTags struct {
	Language string `json:"language"`
	Title    string `json:"title"`
}

// Language returns the stream's language tag, lowercased, or "" when untagged.
func (s Stream) Language() string {
	return strings.ToLower(strings.TrimSpace(s.Tags.Language))
}

// DurationSeconds parses the container duration; 0 when unknown.
func (i *Info) DurationSeconds() float64 {
	if i == nil {
		return 0
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(i.Format.Duration), 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

// StreamsOfType returns the streams matching the given codec type in order.
func (i *Info) StreamsOfType(codecType string) []Stream {
	if i == nil {
		return nil
	}
	var out []Stream
	for _, stream := range i.Streams {
		if stream.CodecType == codecType {
			out = append(out, stream)
		}
	}
	return out
}

// HasHEVCVideo reports whether any video stream is HEVC.
func (i *Info) HasHEVCVideo() bool {
	for _, stream := range i.StreamsOfType(CodecTypeVideo) {
		if stream.CodecName == CodecHEVC {
			return true
		}
	}
	return false
}

// Prober runs ffprobe against media files.
type Prober struct {
	binary string
}

// NewProber constructs a Prober. An empty binary defaults to "ffprobe".
func NewProber(binary string) *Prober {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary}
}

// Probe runs ffprobe and decodes its JSON output.
func (p *Prober) Probe(ctx context.Context, path string) (*Info, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("probe: path required")
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	cmd := commandContext(ctx, p.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if tail := lastLines(stderr.String(), 4); tail != "" {
			return nil, fmt.Errorf("ffprobe %s: %w: %s", path, err, tail)
		}
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var info Info
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("decode ffprobe output for %s: %w", path, err)
	}
	return &info, nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}
