// Package config loads, normalizes, and validates gainscan configuration.
//
// It supplies repository defaults, expands tilde paths, reads TOML files,
// and honours the GAINSCAN_FFMPEG / GAINSCAN_FFPROBE environment fallbacks.
// Numeric knobs arrive clamped: pregain to [-32, 32] dB, the true-peak
// ceiling to [-32, 3] dBTP, thread counts resolved against hardware
// concurrency.
//
// Always obtain settings through Load so downstream code receives sanitized
// values and clear validation errors.
package config
