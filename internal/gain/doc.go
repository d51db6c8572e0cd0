// Package gain holds the ReplayGain arithmetic: loudness-to-gain conversion
// against the -18 LUFS reference, the Opus -23 LUFS pregain adjustment,
// dB/linear conversions, and true-peak clipping detection and correction.
//
// Everything here is a pure function of its inputs; state and concurrency
// live in the scan package.
package gain
