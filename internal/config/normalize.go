package config

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

const (
	minPregain     = -32.0
	maxPregain     = 32.0
	minTruePeak    = -32.0
	maxTruePeakCap = 3.0
)

// normalize clamps numeric knobs into their sane ranges, resolves thread
// counts, canonicalizes the extension filter, and expands user paths.
func normalize(cfg *Config) {
	cfg.Scan.Pregain = clamp(cfg.Scan.Pregain, minPregain, maxPregain)
	cfg.Scan.MaxTruePeak = clamp(cfg.Scan.MaxTruePeak, minTruePeak, maxTruePeakCap)

	if cfg.Scan.Threads <= 0 {
		cfg.Scan.Threads = runtime.NumCPU()
	}

	cfg.Scan.Extensions = normalizeExtensions(cfg.Scan.Extensions)

	cfg.Tags.Mode = strings.ToLower(strings.TrimSpace(cfg.Tags.Mode))
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	switch strings.ToUpper(strings.TrimSpace(cfg.Tags.Unit)) {
	case "LU", "LUFS":
		cfg.Tags.Unit = "LU"
	default:
		cfg.Tags.Unit = "dB"
	}

	cfg.History.Path = expandPath(cfg.History.Path)
	cfg.Output.CSVPath = expandPath(cfg.Output.CSVPath)
}

// normalizeExtensions lowercases entries, ensures a leading dot, drops
// anything outside the supported set, and falls back to the full set when
// the filter ends up empty.
func normalizeExtensions(exts []string) []string {
	var out []string
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if slices.Contains(supportedExtensions, ext) && !slices.Contains(out, ext) {
			out = append(out, ext)
		}
	}
	if len(out) == 0 {
		return SupportedExtensions()
	}
	return out
}

func expandPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/"))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
