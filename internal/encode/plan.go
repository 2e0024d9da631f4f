package encode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"hevcify/internal/config"
	"hevcify/internal/media"
)

// Settings carries the encoder knobs the command builder needs.
type Settings struct {
	GPU          string
	Quality      int
	Profile      string
	AudioCodec   string
	AudioQuality string
}

// SettingsFromConfig extracts builder settings from application config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		GPU:          cfg.Encoder.GPU,
		Quality:      cfg.Encoder.Quality,
		Profile:      cfg.Encoder.Profile,
		AudioCodec:   cfg.Audio.Codec,
		AudioQuality: cfg.Audio.Quality,
	}
}

// Plan is a fully constructed FFmpeg invocation for one file.
type Plan struct {
	Source          string
	Output          string
	DurationSeconds float64
	Args            []string
}

// CommandLine renders the invocation for logs and dry runs.
func (p *Plan) CommandLine(binary string) string {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return binary + " " + strings.Join(p.Args, " ")
}

// Build constructs the FFmpeg argument list for converting source to an
// H.265 MP4 at output, using the track selection from probing.
func Build(source, output string, info *media.Info, sel media.Selection, set Settings) (*Plan, error) {
	if source == "" || output == "" {
		return nil, errors.New("build plan: source and output required")
	}
	if sel.Video == nil {
		return nil, media.ErrNoVideoStream
	}

	quality := strconv.Itoa(set.Quality)
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-nostats", "-i", source}

	// First video stream only; the library is movies and episodes, not
	// multi-angle discs.
	args = append(args, "-map", "0:v:0")

	videoArgs, err := videoEncoderArgs(set.GPU, quality, set.Profile)
	if err != nil {
		return nil, err
	}
	args = append(args, videoArgs...)

	if sel.Audio != nil {
		args = append(args, "-map", fmt.Sprintf("0:%d", sel.Audio.Index))
	} else {
		// No language match: take the first audio track if one exists at
		// all. The trailing ? keeps audio-less sources converting.
		args = append(args, "-map", "0:a:0?")
	}
	if set.AudioCodec == config.AudioCopy {
		args = append(args, "-c:a:0", "copy")
	} else {
		args = append(args, "-c:a:0", set.AudioCodec, "-q:a:0", set.AudioQuality)
	}
	args = append(args, "-disposition:a:0", "default")

	if sel.Subtitle != nil {
		args = append(args,
			"-map", fmt.Sprintf("0:%d", sel.Subtitle.Index),
			"-c:s:0", "mov_text",
			"-disposition:s:0", "default",
		)
	}

	args = append(args,
		"-map_chapters", "0",
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		output,
	)

	return &Plan{
		Source:          source,
		Output:          output,
		DurationSeconds: info.DurationSeconds(),
		Args:            args,
	}, nil
}

func videoEncoderArgs(gpu, quality, profile string) ([]string, error) {
	tenBit := profile == config.ProfileMain10

	switch gpu {
	case config.GPUNvidia:
		args := []string{"-c:v", "hevc_nvenc", "-preset", "p5", "-cq", quality, "-profile:v", profile}
		if tenBit {
			args = append(args, "-pix_fmt", "p010le")
		}
		return args, nil
	case config.GPUIntel:
		args := []string{"-c:v", "hevc_qsv", "-preset:v", "medium", "-global_quality", quality, "-profile:v", profile}
		if tenBit {
			args = append(args, "-pix_fmt", "p010le")
		}
		return args, nil
	case config.GPUAMD:
		args := []string{
			"-c:v", "hevc_amf",
			"-rc", "cqp",
			"-qp_i", quality, "-qp_p", quality, "-qp_b", quality,
			"-usage", "transcoding",
			"-profile", profile,
		}
		if tenBit {
			args = append(args, "-pix_fmt", "p010le")
		}
		return args, nil
	case config.GPUCPU:
		args := []string{"-c:v", "libx265", "-preset", "medium", "-crf", quality, "-profile:v", profile}
		if tenBit {
			args = append(args, "-pix_fmt", "yuv420p10le")
		}
		return args, nil
	default:
		return nil, fmt.Errorf("unknown encoder gpu %q", gpu)
	}
}
