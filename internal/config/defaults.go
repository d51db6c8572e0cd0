package config

const (
	defaultMaxTruePeak = -1.0
	defaultTagMode     = "skip"
	defaultUnit        = "dB"
	defaultFormat      = "auto"
	defaultLogLevel    = "info"
	defaultLogFormat   = "console"
	defaultFFmpegBin   = "ffmpeg"
	defaultFFprobeBin  = "ffprobe"
	defaultHistoryPath = "~/.local/share/gainscan/history.db"
)

// supportedExtensions is the set of file extensions the scanner accepts; a
// user-supplied extension filter is intersected with it.
var supportedExtensions = []string{
	".mp3", ".flac", ".ogg", ".oga", ".opus",
	".mov", ".mp4", ".m4a", ".3gp", ".3g2", ".mj2",
	".asf", ".wma", ".wav", ".wv", ".aiff", ".aif", ".ape",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Scan: Scan{
			Pregain:         0,
			Album:           false,
			PreventClipping: false,
			MaxTruePeak:     defaultMaxTruePeak,
			Threads:         0, // resolved to hardware concurrency in normalize
			Extensions:      nil,
			Recursive:       false,
		},
		Tags: Tags{
			Mode: defaultTagMode,
			Unit: defaultUnit,
		},
		Output: Output{
			Format: defaultFormat,
		},
		History: History{
			Enabled: false,
			Path:    defaultHistoryPath,
		},
		Log: Log{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:  defaultFFmpegBin,
			FFprobeBinary: defaultFFprobeBin,
		},
	}
}

// SupportedExtensions returns a copy of the built-in extension allow-list.
func SupportedExtensions() []string {
	out := make([]string, len(supportedExtensions))
	copy(out, supportedExtensions)
	return out
}
