package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Scan groups the knobs that drive the measurement pipeline.
type Scan struct {
	Pregain         float64  `toml:"pregain"`
	Album           bool     `toml:"album"`
	PreventClipping bool     `toml:"prevent_clipping"`
	MaxTruePeak     float64  `toml:"max_true_peak"`
	Threads         int      `toml:"threads"`
	Extensions      []string `toml:"extensions"`
	Recursive       bool     `toml:"recursive"`
}

// Tags configures ReplayGain tag writing.
type Tags struct {
	Mode      string `toml:"mode"`
	Unit      string `toml:"unit"`
	Lowercase bool   `toml:"lowercase"`
}

// Output selects report destinations and formats.
type Output struct {
	Format  string `toml:"format"`
	CSVPath string `toml:"csv_path"`
	Quiet   bool   `toml:"quiet"`
}

// History configures the optional SQLite scan-history store.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Log configures structured logging.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// FFmpeg points at the external decode/measurement binaries.
type FFmpeg struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Config is the root configuration consumed by the CLI and the runner.
type Config struct {
	Scan    Scan    `toml:"scan"`
	Tags    Tags    `toml:"tags"`
	Output  Output  `toml:"output"`
	History History `toml:"history"`
	Log     Log     `toml:"log"`
	FFmpeg  FFmpeg  `toml:"ffmpeg"`
}

// DefaultPath returns the location probed when no explicit config path is
// given.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "gainscan", "config.toml"), nil
}

// Load reads configuration from path (or the default location when path is
// empty), applies defaults, environment fallbacks, normalization, and
// validation. It reports the resolved path and whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	resolved := path
	if resolved == "" {
		var err error
		resolved, err = DefaultPath()
		if err != nil {
			return nil, "", false, err
		}
	}

	cfg := Default()
	exists := false

	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		exists = true
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, resolved, true, fmt.Errorf("parse %s: %w", resolved, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	default:
		return nil, resolved, false, fmt.Errorf("read %s: %w", resolved, err)
	}

	applyEnv(&cfg)
	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, resolved, exists, err
	}
	return &cfg, resolved, exists, nil
}

// Finalize re-normalizes and validates the configuration after programmatic
// overrides, e.g. CLI flags layered on top of a loaded file.
func (c *Config) Finalize() error {
	normalize(c)
	return c.Validate()
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GAINSCAN_FFMPEG"); v != "" {
		cfg.FFmpeg.FFmpegBinary = v
	}
	if v := os.Getenv("GAINSCAN_FFPROBE"); v != "" {
		cfg.FFmpeg.FFprobeBinary = v
	}
}
