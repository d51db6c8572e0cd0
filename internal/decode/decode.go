package decode

import (
	"context"
	"errors"
)

// CodecOpus is the codec name ffprobe reports for Opus streams. Opus carries
// a fixed -23 LUFS playback reference and needs special handling downstream.
const CodecOpus = "opus"

// ErrNoAudioStream is returned when a media file contains no audio stream.
var ErrNoAudioStream = errors.New("no audio stream")

// StreamInfo describes the audio stream selected from a media file.
type StreamInfo struct {
	Container  string
	Codec      string
	Channels   int
	SampleRate int
}

// Stream yields decoded PCM from a single audio stream. Frames are
// interleaved signed 16-bit samples at the stream's native channel count and
// sample rate; the sequence is finite and not restartable.
type Stream interface {
	Info() StreamInfo
	// Next returns the next chunk of interleaved samples, or io.EOF once
	// the stream is exhausted.
	Next() ([]int16, error)
	Close() error
}

// Opener opens media files for identification and decoding.
type Opener interface {
	// Probe inspects a file without decoding it.
	Probe(ctx context.Context, path string) (StreamInfo, error)
	// Open probes the file and starts decoding its audio stream.
	Open(ctx context.Context, path string) (Stream, error)
}
