package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// Executor abstracts probe command execution for testability.
type Executor interface {
	Output(ctx context.Context, binary string, args ...string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", binary, err, tail(stderr.String()))
	}
	return out, nil
}

// Option configures the FFmpeg opener.
type Option func(*FFmpeg)

// WithExecutor injects a custom probe executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(f *FFmpeg) {
		if exec != nil {
			f.exec = exec
		}
	}
}

// FFmpeg opens media files using the ffprobe and ffmpeg binaries.
type FFmpeg struct {
	ffmpegBin  string
	ffprobeBin string
	exec       Executor
}

// New constructs an FFmpeg opener.
func New(ffmpegBin, ffprobeBin string, opts ...Option) (*FFmpeg, error) {
	ffmpegBin = strings.TrimSpace(ffmpegBin)
	ffprobeBin = strings.TrimSpace(ffprobeBin)
	if ffmpegBin == "" || ffprobeBin == "" {
		return nil, errors.New("ffmpeg and ffprobe binaries required")
	}
	f := &FFmpeg{ffmpegBin: ffmpegBin, ffprobeBin: ffprobeBin, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Probe runs ffprobe and extracts the container name plus the first audio
// stream's codec, channel count, and sample rate.
func (f *FFmpeg) Probe(ctx context.Context, path string) (StreamInfo, error) {
	out, err := f.exec.Output(ctx, f.ffprobeBin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return StreamInfo{}, err
	}
	return parseProbeOutput(out)
}

// Open probes path and starts an ffmpeg process decoding its first audio
// stream to interleaved s16le PCM at the native channel count and rate.
func (f *FFmpeg) Open(ctx context.Context, path string) (Stream, error) {
	info, err := f.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, f.ffmpegBin,
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-i", path,
		"-map", "0:a:0",
		"-vn", "-sn", "-dn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("decoder stdout pipe: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start decoder: %w", err)
	}

	return &ffmpegStream{
		info:   info,
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		raw:    make([]byte, 32*1024),
	}, nil
}

func parseProbeOutput(data []byte) (StreamInfo, error) {
	var probe struct {
		Format struct {
			FormatName string `json:"format_name"`
		} `json:"format"`
		Streams []struct {
			CodecType  string `json:"codec_type"`
			CodecName  string `json:"codec_name"`
			Channels   int    `json:"channels"`
			SampleRate string `json:"sample_rate"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return StreamInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	for _, stream := range probe.Streams {
		if stream.CodecType != "audio" {
			continue
		}
		rate, err := strconv.Atoi(stream.SampleRate)
		if err != nil || rate <= 0 {
			return StreamInfo{}, fmt.Errorf("invalid sample rate %q", stream.SampleRate)
		}
		if stream.Channels <= 0 {
			return StreamInfo{}, fmt.Errorf("invalid channel count %d", stream.Channels)
		}
		return StreamInfo{
			Container:  probe.Format.FormatName,
			Codec:      stream.CodecName,
			Channels:   stream.Channels,
			SampleRate: rate,
		}, nil
	}
	return StreamInfo{}, ErrNoAudioStream
}

// ffmpegStream reads s16le PCM from a running ffmpeg process.
type ffmpegStream struct {
	info    StreamInfo
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	stderr  *bytes.Buffer
	raw     []byte
	samples []int16
	done    bool
	drained bool
	waitErr error
}

func (s *ffmpegStream) Info() StreamInfo {
	return s.info
}

func (s *ffmpegStream) Next() ([]int16, error) {
	if s.done {
		return nil, io.EOF
	}
	if s.drained {
		s.done = true
		if waitErr := s.wait(); waitErr != nil {
			return nil, waitErr
		}
		return nil, io.EOF
	}

	n, err := io.ReadFull(s.stdout, s.raw)
	if n > 0 {
		// A final partial read may hold a truncated sample; drop the
		// trailing odd byte rather than invent data.
		count := n / 2
		if cap(s.samples) < count {
			s.samples = make([]int16, count)
		}
		s.samples = s.samples[:count]
		for i := 0; i < count; i++ {
			s.samples[i] = int16(binary.LittleEndian.Uint16(s.raw[2*i:]))
		}
	}

	switch {
	case err == nil:
		return s.samples, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.drained = true
		return s.samples, nil
	case errors.Is(err, io.EOF):
		s.done = true
		if waitErr := s.wait(); waitErr != nil {
			return nil, waitErr
		}
		return nil, io.EOF
	default:
		s.done = true
		return nil, fmt.Errorf("read decoder output: %w", err)
	}
}

func (s *ffmpegStream) Close() error {
	s.done = true
	return s.wait()
}

func (s *ffmpegStream) wait() error {
	if s.cmd == nil {
		return s.waitErr
	}
	_, _ = io.Copy(io.Discard, s.stdout)
	err := s.cmd.Wait()
	s.cmd = nil
	if err != nil {
		s.waitErr = fmt.Errorf("decoder: %w: %s", err, tail(s.stderr.String()))
	}
	return s.waitErr
}

// tail returns the last non-empty line of command output, which is where
// ffmpeg puts its actual error message.
func tail(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "no output"
}
