// Command gainscan computes ReplayGain 2.0 loudness values for audio files
// and albums, writes tags, and emits reports. See the scan subcommand for
// the main workflow.
package main
