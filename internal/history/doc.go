// Package history persists scan runs in a SQLite database: one row per
// run, one per emitted record. A flock sidecar guards against a second
// instance writing the same database.
package history
