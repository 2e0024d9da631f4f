package config

const (
	defaultLibraryDir         = "~/media"
	defaultLogDir             = "~/.local/share/hevcify/logs"
	defaultStateDir           = "~/.local/share/hevcify/state"
	defaultGPU                = GPUNvidia
	defaultQuality            = 23
	defaultProfile            = ProfileMain
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultEncodeTimeout      = 14400
	defaultAudioCodec         = "aac"
	defaultAudioQuality       = "2"
	defaultAudioLanguage      = "en"
	defaultSubtitleLanguage   = "en"
	defaultPollInterval       = 2
	defaultErrorRetryInterval = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// GPU values accepted by encoder.gpu.
const (
	GPUNvidia = "nvidia"
	GPUIntel  = "intel"
	GPUAMD    = "amd"
	GPUCPU    = "cpu"
)

// H.265 profile values accepted by encoder.profile.
const (
	ProfileMain   = "main"
	ProfileMain10 = "main10"
)

// AudioCopy is the audio codec value that passes source audio through untouched.
const AudioCopy = "copy"

func defaultExtensions() []string {
	return []string{".mkv", ".avi", ".mov", ".ts", ".mpg", ".flv", ".wmv", ".mp4"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
			StateDir:   defaultStateDir,
		},
		Encoder: Encoder{
			GPU:            defaultGPU,
			Quality:        defaultQuality,
			Profile:        defaultProfile,
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			TimeoutSeconds: defaultEncodeTimeout,
		},
		Audio: Audio{
			Codec:    defaultAudioCodec,
			Quality:  defaultAudioQuality,
			Language: defaultAudioLanguage,
		},
		Subtitles: Subtitles{
			Embed:    true,
			Language: defaultSubtitleLanguage,
		},
		Scan: Scan{
			Extensions:   defaultExtensions(),
			SkipExisting: true,
		},
		Workflow: Workflow{
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
