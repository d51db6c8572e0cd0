// Package library discovers candidate audio files and orchestrates their
// scanning. Discover expands path arguments against the extension
// allow-list; Runner schedules one scan task per track on a bounded worker
// pool, groups tracks into folders in album mode, and hands finished
// results to the tag writer and the report sink.
package library
