// Package loudness wraps the external EBU R128 measurement capability.
//
// The BS.1770 filtering and gating math is never computed in-process: the
// production backend pipes PCM into an ffmpeg process running the ebur128
// filter and parses the summary it prints. Album measurements reuse the PCM
// spooled during per-track metering, replaying the concatenation through a
// single filter pass so the combined figure matches what one meter would
// have reported for the whole album.
//
// The Meter and Backend interfaces keep the scan pipeline testable with
// in-memory fakes.
package loudness
