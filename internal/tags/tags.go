package tags

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gainscan/internal/scan"
)

// Mode selects what tag writing does with a finished track.
type Mode int

const (
	// ModeSkip leaves files untouched.
	ModeSkip Mode = iota
	// ModeDelete strips every ReplayGain and R128 tag.
	ModeDelete
	// ModeStandard writes REPLAYGAIN_TRACK_GAIN/PEAK (plus the album pair
	// in album mode).
	ModeStandard
	// ModeExtended adds reference loudness and range tags on top of the
	// standard set.
	ModeExtended
)

// ParseMode maps the config spelling to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "skip", "":
		return ModeSkip, nil
	case "delete":
		return ModeDelete, nil
	case "standard":
		return ModeStandard, nil
	case "extended":
		return ModeExtended, nil
	}
	return ModeSkip, fmt.Errorf("invalid tag mode %q", s)
}

func (m Mode) String() string {
	switch m {
	case ModeDelete:
		return "delete"
	case ModeStandard:
		return "standard"
	case ModeExtended:
		return "extended"
	}
	return "skip"
}

// ErrTagWrite marks a failure updating a file's tags. Non-fatal to the run.
var ErrTagWrite = errors.New("tag write error")

// ErrUnsupportedFormat marks a container/codec pair with no tag handler.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Options configures the writer.
type Options struct {
	Mode  Mode
	Album bool
	// Unit labels gain and range values, dB or LU.
	Unit string
	// Lowercase writes tag keys in lower case.
	Lowercase bool
}

// Writer applies ReplayGain tags to finished tracks, dispatching on the
// track's container and codec.
type Writer struct {
	opts Options
	io   tagIO
	log  *slog.Logger
}

// NewWriter builds a tag writer backed by the taglib bindings.
func NewWriter(opts Options, log *slog.Logger) *Writer {
	return &Writer{opts: opts, io: taglibIO{}, log: log}
}

// Write updates path's tags from the track's final fields according to the
// configured mode.
func (w *Writer) Write(ctx context.Context, t *scan.Track) error {
	switch w.opts.Mode {
	case ModeSkip:
		return nil
	case ModeDelete:
		return w.Clear(ctx, t)
	}

	h, err := handlerFor(t.Container, t.Codec)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTagWrite, t.Path, err)
	}

	values := h.render(t, w.opts)
	if w.opts.Lowercase {
		values = lowercaseKeys(values)
	}
	if err := w.io.write(t.Path, values); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTagWrite, t.Path, err)
	}
	w.log.Debug("tags written", "path", t.Path, "mode", w.opts.Mode.String())
	return nil
}

// Clear removes every ReplayGain and R128 tag from the track's file,
// whatever case they were stored in.
func (w *Writer) Clear(_ context.Context, t *scan.Track) error {
	if _, err := handlerFor(t.Container, t.Codec); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTagWrite, t.Path, err)
	}

	existing, err := w.io.read(t.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTagWrite, t.Path, err)
	}

	removals := make(map[string][]string)
	for key := range existing {
		upper := strings.ToUpper(key)
		if strings.HasPrefix(upper, "REPLAYGAIN_") || strings.HasPrefix(upper, "R128_") {
			removals[key] = nil
		}
	}
	if len(removals) == 0 {
		return nil
	}
	if err := w.io.write(t.Path, removals); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTagWrite, t.Path, err)
	}
	w.log.Debug("tags removed", "path", t.Path, "count", len(removals))
	return nil
}

func lowercaseKeys(values map[string][]string) map[string][]string {
	out := make(map[string][]string, len(values))
	for key, v := range values {
		out[strings.ToLower(key)] = v
	}
	return out
}
