package scan

import (
	"path/filepath"

	"gainscan/internal/decode"
	"gainscan/internal/loudness"
)

// Track is one audio file moving through the scan pipeline. It is owned by
// a single worker until it reaches a terminal state; only the album-scope
// fields are written afterwards, once, by the folder aggregation task.
type Track struct {
	Path string
	Name string
	Dir  string

	Container  string
	Codec      string
	Channels   int
	SampleRate int

	Loudness  float64
	Range     float64
	Peak      float64
	Gain      float64
	Reference float64
	NewPeak   float64
	Clips     bool

	AlbumLoudness float64
	AlbumRange    float64
	AlbumPeak     float64
	AlbumGain     float64
	NewAlbumPeak  float64
	AlbumClips    bool
	// HasAlbum reports that the album-scope fields were populated by a
	// successful folder aggregation.
	HasAlbum bool

	// ClipPrevented is shared between track and album scope: either
	// correction sets it.
	ClipPrevented bool

	// Err records the failure cause when status is StatusFail.
	Err error

	status Status
	meter  loudness.Meter
}

// NewTrack builds a track for path with identity fields derived from it.
func NewTrack(path string) *Track {
	return &Track{
		Path: path,
		Name: filepath.Base(path),
		Dir:  filepath.Dir(path),
	}
}

// Status returns the track's scan state.
func (t *Track) Status() Status {
	return t.status
}

// IsOpus reports whether the track's codec is Opus.
func (t *Track) IsOpus() bool {
	return t.Codec == decode.CodecOpus
}

// Meter exposes the track's finished loudness meter for album combination.
func (t *Track) Meter() loudness.Meter {
	return t.meter
}

// CloseMeter releases the meter once no album combination needs it.
func (t *Track) CloseMeter() {
	if t.meter != nil {
		_ = t.meter.Close()
		t.meter = nil
	}
}

func (t *Track) transition(to Status) error {
	next, err := advance(t.status, to)
	if err != nil {
		return err
	}
	t.status = next
	return nil
}

func (t *Track) fail(err error) error {
	_ = t.transition(StatusFail)
	t.Err = err
	return err
}
