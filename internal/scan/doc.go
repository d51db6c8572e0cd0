// Package scan implements the measurement pipeline core: the per-track scan
// state machine, folder (album) aggregation, and the completion detection
// that decides which concurrent worker aggregates a folder.
//
// Tracks and folders share one lifecycle, Init → Processing → {Fail,
// Success}, with terminal states sticky. Workers scanning tracks of the
// same folder never block on each other; each finishing worker decrements
// the folder's countdown, and the one that reaches zero and wins the claim
// flag runs aggregation exactly once, after every sibling result is
// visible. Folder aggregation delegates the album loudness figure to the
// measurement backend's combine operation and refuses folders that mix
// Opus with other codecs.
package scan
