// Package decode opens media files and produces PCM for the loudness meter.
//
// All container and codec work is delegated to external ffprobe/ffmpeg
// processes: ffprobe supplies the container name, codec name, channel count,
// and sample rate; ffmpeg decodes the first audio stream to interleaved
// signed 16-bit PCM at the stream's native layout. Nothing in this package
// parses media formats itself.
//
// The Opener interface exists so the scan pipeline can run against fakes in
// tests; FFmpeg is the production implementation.
package decode
