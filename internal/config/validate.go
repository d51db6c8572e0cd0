package config

import (
	"fmt"
	"strings"
)

var (
	validTagModes = []string{"skip", "delete", "standard", "extended"}
	validFormats  = []string{"auto", "tab", "csv", "human"}
)

// Validate reports the first configuration problem found. Call after
// normalization; values are assumed canonicalized.
func (c *Config) Validate() error {
	if !contains(validTagModes, c.Tags.Mode) {
		return fmt.Errorf("tags.mode: must be one of %s, got %q", strings.Join(validTagModes, "|"), c.Tags.Mode)
	}
	if !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("output.format: must be one of %s, got %q", strings.Join(validFormats, "|"), c.Output.Format)
	}
	if c.Scan.Threads < 1 {
		return fmt.Errorf("scan.threads: must be at least 1, got %d", c.Scan.Threads)
	}
	if strings.TrimSpace(c.FFmpeg.FFmpegBinary) == "" {
		return fmt.Errorf("ffmpeg.ffmpeg_binary: required")
	}
	if strings.TrimSpace(c.FFmpeg.FFprobeBinary) == "" {
		return fmt.Errorf("ffmpeg.ffprobe_binary: required")
	}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) == "" {
		return fmt.Errorf("history.path: required when history is enabled")
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
