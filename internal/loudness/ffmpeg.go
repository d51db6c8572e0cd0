package loudness

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// BackendOption configures the ffmpeg backend.
type BackendOption func(*FFmpegBackend)

// WithSpooling keeps each meter's PCM in a temporary file so Combine can
// replay the concatenation. Required for album mode; wasted disk otherwise.
func WithSpooling() BackendOption {
	return func(b *FFmpegBackend) {
		b.spool = true
	}
}

// FFmpegBackend measures loudness by piping PCM through ffmpeg's ebur128
// filter.
type FFmpegBackend struct {
	binary string
	spool  bool
}

// NewFFmpegBackend constructs a backend driving the given ffmpeg binary.
func NewFFmpegBackend(binary string, opts ...BackendOption) (*FFmpegBackend, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	b := &FFmpegBackend{binary: binary}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// NewMeter starts an ffmpeg process reading s16le PCM on stdin with the
// ebur128 filter attached.
func (b *FFmpegBackend) NewMeter(ctx context.Context, channels, sampleRate int) (Meter, error) {
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("meter layout: %d channels at %d Hz", channels, sampleRate)
	}

	m := &ffmpegMeter{channels: channels, sampleRate: sampleRate}

	if b.spool {
		spool, err := os.CreateTemp("", "gainscan-*.pcm")
		if err != nil {
			return nil, fmt.Errorf("create meter spool: %w", err)
		}
		m.spool = spool
	}

	if err := m.start(ctx, b.binary); err != nil {
		m.removeSpool()
		return nil, err
	}
	return m, nil
}

// Combine replays the spooled PCM of every meter, in order, through a single
// ebur128 pass. All meters must share one channel layout and sample rate.
func (b *FFmpegBackend) Combine(ctx context.Context, meters []Meter) (Combined, error) {
	if len(meters) == 0 {
		return Combined{}, errors.New("combine: no meters")
	}

	members := make([]*ffmpegMeter, 0, len(meters))
	for _, m := range meters {
		fm, ok := m.(*ffmpegMeter)
		if !ok {
			return Combined{}, fmt.Errorf("combine: foreign meter %T", m)
		}
		if fm.spool == nil {
			return Combined{}, errors.New("combine: meter was created without spooling")
		}
		if len(members) > 0 && (fm.channels != members[0].channels || fm.sampleRate != members[0].sampleRate) {
			return Combined{}, errors.New("combine: meters differ in channel layout or sample rate")
		}
		members = append(members, fm)
	}

	whole := &ffmpegMeter{channels: members[0].channels, sampleRate: members[0].sampleRate}
	if err := whole.start(ctx, b.binary); err != nil {
		return Combined{}, err
	}
	defer whole.Close()

	for _, member := range members {
		if _, err := member.spool.Seek(0, io.SeekStart); err != nil {
			return Combined{}, fmt.Errorf("combine: rewind spool: %w", err)
		}
		if _, err := io.Copy(whole.stdin, member.spool); err != nil {
			return Combined{}, fmt.Errorf("combine: replay spool: %w", err)
		}
	}

	res, err := whole.Result()
	if err != nil {
		return Combined{}, err
	}
	return Combined{Integrated: res.Integrated, Range: res.Range}, nil
}

type ffmpegMeter struct {
	channels   int
	sampleRate int

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	spool  *os.File

	buf    []byte
	result *Result
	err    error
}

func (m *ffmpegMeter) start(ctx context.Context, binary string) error {
	cmd := exec.CommandContext(ctx, binary,
		"-hide_banner",
		"-nostats",
		"-f", "s16le",
		"-ar", strconv.Itoa(m.sampleRate),
		"-ac", strconv.Itoa(m.channels),
		"-i", "-",
		"-filter:a", "ebur128=framelog=quiet:peak=true",
		"-f", "null",
		"-",
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("meter stdin pipe: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start meter: %w", err)
	}

	m.cmd = cmd
	m.stdin = stdin
	m.stderr = stderr
	return nil
}

func (m *ffmpegMeter) Feed(samples []int16) error {
	if m.result != nil || m.err != nil {
		return errors.New("meter already finalized")
	}

	need := len(samples) * 2
	if cap(m.buf) < need {
		m.buf = make([]byte, need)
	}
	m.buf = m.buf[:need]
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(m.buf[2*i:], uint16(sample))
	}

	if _, err := m.stdin.Write(m.buf); err != nil {
		return fmt.Errorf("feed meter: %w", err)
	}
	if m.spool != nil {
		if _, err := m.spool.Write(m.buf); err != nil {
			return fmt.Errorf("spool meter input: %w", err)
		}
	}
	return nil
}

func (m *ffmpegMeter) Result() (Result, error) {
	if m.result != nil {
		return *m.result, nil
	}
	if m.err != nil {
		return Result{}, m.err
	}

	_ = m.stdin.Close()
	if err := m.cmd.Wait(); err != nil {
		m.err = fmt.Errorf("meter: %w: %s", err, lastLine(m.stderr.String()))
		return Result{}, m.err
	}
	m.cmd = nil

	res, err := parseSummary(m.stderr.String())
	if err != nil {
		m.err = err
		return Result{}, err
	}
	m.result = &res
	return res, nil
}

func (m *ffmpegMeter) Close() error {
	m.removeSpool()
	if m.cmd != nil {
		_ = m.stdin.Close()
		err := m.cmd.Wait()
		m.cmd = nil
		if m.result == nil && m.err == nil {
			m.err = errors.New("meter closed before reading result")
		}
		return err
	}
	return nil
}

func (m *ffmpegMeter) removeSpool() {
	if m.spool == nil {
		return
	}
	name := m.spool.Name()
	_ = m.spool.Close()
	_ = os.Remove(name)
	m.spool = nil
}

var (
	integratedRe = regexp.MustCompile(`I:\s+(-?[\d.]+|-inf)\s+LUFS`)
	rangeRe      = regexp.MustCompile(`LRA:\s+(-?[\d.]+|-inf)\s+LU`)
	peakRe       = regexp.MustCompile(`Peak:\s+(-?[\d.]+|-inf)\s+dBFS`)
)

// parseSummary extracts integrated loudness, loudness range, and true peak
// from the ebur128 filter summary ffmpeg prints on stderr.
func parseSummary(out string) (Result, error) {
	integrated, ok := matchValue(integratedRe, out)
	if !ok {
		return Result{}, fmt.Errorf("meter output missing integrated loudness: %s", lastLine(out))
	}
	lra, ok := matchValue(rangeRe, out)
	if !ok {
		return Result{}, fmt.Errorf("meter output missing loudness range: %s", lastLine(out))
	}
	peakDB, ok := matchValue(peakRe, out)
	if !ok {
		return Result{}, fmt.Errorf("meter output missing true peak: %s", lastLine(out))
	}

	return Result{
		Integrated: integrated,
		Range:      lra,
		TruePeak:   math.Pow(10, peakDB/20),
	}, nil
}

func matchValue(re *regexp.Regexp, out string) (float64, bool) {
	match := re.FindStringSubmatch(out)
	if len(match) < 2 {
		return 0, false
	}
	if match[1] == "-inf" {
		return math.Inf(-1), true
	}
	v, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "no output"
}
