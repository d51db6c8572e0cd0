package scan_test

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"gainscan/internal/decode"
	"gainscan/internal/loudness"
)

// fakeOpener serves canned stream info and samples keyed by path.
type fakeOpener struct {
	mu      sync.Mutex
	infos   map[string]decode.StreamInfo
	samples map[string][][]int16
	openErr map[string]error
	readErr map[string]error
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{
		infos:   map[string]decode.StreamInfo{},
		samples: map[string][][]int16{},
		openErr: map[string]error{},
		readErr: map[string]error{},
	}
}

func (o *fakeOpener) add(path string, info decode.StreamInfo, frames ...[]int16) {
	o.infos[path] = info
	o.samples[path] = frames
}

func (o *fakeOpener) Probe(_ context.Context, path string) (decode.StreamInfo, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.openErr[path]; err != nil {
		return decode.StreamInfo{}, err
	}
	info, ok := o.infos[path]
	if !ok {
		return decode.StreamInfo{}, decode.ErrNoAudioStream
	}
	return info, nil
}

func (o *fakeOpener) Open(ctx context.Context, path string) (decode.Stream, error) {
	info, err := o.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return &fakeStream{info: info, frames: o.samples[path], readErr: o.readErr[path]}, nil
}

type fakeStream struct {
	info    decode.StreamInfo
	frames  [][]int16
	readErr error
	pos     int
}

func (s *fakeStream) Info() decode.StreamInfo { return s.info }

func (s *fakeStream) Next() ([]int16, error) {
	if s.pos >= len(s.frames) {
		if s.readErr != nil {
			return nil, s.readErr
		}
		return nil, io.EOF
	}
	frame := s.frames[s.pos]
	s.pos++
	return frame, nil
}

func (s *fakeStream) Close() error { return nil }

// fakeBackend hands out meters with preset results and counts combines.
type fakeBackend struct {
	mu       sync.Mutex
	results  []loudness.Result
	next     int
	combined loudness.Combined

	combines atomic.Int32
}

func (b *fakeBackend) NewMeter(context.Context, int, int) (loudness.Meter, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	res := loudness.Result{Integrated: -18}
	if b.next < len(b.results) {
		res = b.results[b.next]
		b.next++
	}
	return &recordingMeter{result: res}, nil
}

func (b *fakeBackend) Combine(context.Context, []loudness.Meter) (loudness.Combined, error) {
	b.combines.Add(1)
	return b.combined, nil
}

type recordingMeter struct {
	result loudness.Result
	fed    int
	closed bool
}

func (m *recordingMeter) Feed(samples []int16) error {
	m.fed += len(samples)
	return nil
}

func (m *recordingMeter) Result() (loudness.Result, error) { return m.result, nil }

func (m *recordingMeter) Close() error {
	m.closed = true
	return nil
}
