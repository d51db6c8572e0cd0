package scan

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"gainscan/internal/decode"
	"gainscan/internal/gain"
	"gainscan/internal/loudness"
)

// Scanner drives one track through the decoder and the loudness meter.
type Scanner struct {
	opener decode.Opener
	meters loudness.Backend
	log    *slog.Logger
}

// NewScanner constructs a scanner from its collaborators.
func NewScanner(opener decode.Opener, meters loudness.Backend, log *slog.Logger) *Scanner {
	return &Scanner{opener: opener, meters: meters, log: log}
}

// Scan measures track and fills its result fields, leaving it in
// StatusSuccess or StatusFail. With wantLoudness false only the container
// and codec are identified and the track returns to StatusInit; the
// tag-removal path uses this to pick a handler without paying for a decode.
//
// The measured track keeps its meter alive so a folder aggregation can
// combine it; callers must release it with CloseMeter.
func (s *Scanner) Scan(ctx context.Context, t *Track, pregain float64, wantLoudness bool) error {
	if err := t.transition(StatusProcessing); err != nil {
		return err
	}

	if !wantLoudness {
		info, err := s.opener.Probe(ctx, t.Path)
		if err != nil {
			return t.fail(wrap(ErrOpen, t.Path, "probe input", err))
		}
		s.applyInfo(t, info)
		return t.transition(StatusInit)
	}

	stream, err := s.opener.Open(ctx, t.Path)
	if err != nil {
		return t.fail(wrap(ErrOpen, t.Path, "open input", err))
	}
	info := stream.Info()
	s.applyInfo(t, info)

	meter, err := s.meters.NewMeter(ctx, info.Channels, info.SampleRate)
	if err != nil {
		_ = stream.Close()
		return t.fail(wrap(ErrMeter, t.Path, "initialize meter", err))
	}

	if err := feed(t.Path, stream, meter); err != nil {
		_ = meter.Close()
		_ = stream.Close()
		return t.fail(err)
	}
	if err := stream.Close(); err != nil {
		_ = meter.Close()
		return t.fail(wrap(ErrStream, t.Path, "finish decode", err))
	}

	res, err := meter.Result()
	if err != nil {
		_ = meter.Close()
		return t.fail(wrap(ErrMeter, t.Path, "read measurement", err))
	}

	// Opus playback normalizes to -23 LUFS instead of -18.
	if t.IsOpus() {
		pregain += gain.OpusAdjustment
	}

	t.Loudness = res.Integrated
	t.Range = res.Range
	t.Peak = res.TruePeak
	t.Gain = gain.FromLoudness(res.Integrated, pregain)
	t.Reference = gain.Reference(pregain)
	t.meter = meter

	if err := t.transition(StatusSuccess); err != nil {
		_ = meter.Close()
		t.meter = nil
		return err
	}

	s.log.Debug("track scanned",
		"path", t.Path,
		"codec", t.Codec,
		"loudness", t.Loudness,
		"gain", t.Gain,
	)
	return nil
}

func feed(path string, stream decode.Stream, meter loudness.Meter) error {
	for {
		samples, err := stream.Next()
		if len(samples) > 0 {
			if feedErr := meter.Feed(samples); feedErr != nil {
				return wrap(ErrMeter, path, "feed meter", feedErr)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return wrap(ErrStream, path, "decode frame", err)
		}
	}
}

func (s *Scanner) applyInfo(t *Track, info decode.StreamInfo) {
	t.Container = info.Container
	t.Codec = info.Codec
	t.Channels = info.Channels
	t.SampleRate = info.SampleRate
}
