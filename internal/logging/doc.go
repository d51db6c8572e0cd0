// Package logging assembles the structured slog loggers used across
// gainscan.
//
// It owns the console and JSON handlers and centralizes level parsing so
// every component emits lines with the same shape. Scan progress goes to
// stderr, keeping stdout free for report output.
//
// Prefer these constructors over hand-rolled slog setup; NewNop covers tests
// and wiring code that cannot fail.
package logging
