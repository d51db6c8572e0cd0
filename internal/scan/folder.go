package scan

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"gainscan/internal/gain"
	"gainscan/internal/loudness"
)

// Folder is one album candidate: a directory and the fixed set of tracks
// discovered under it. It is shared by every worker scanning one of its
// tracks; coordination happens exclusively through FinishTrack.
type Folder struct {
	Dir    string
	Tracks []*Track

	// Err records the aggregation failure cause when status is StatusFail.
	Err error

	status    Status
	remaining atomic.Int32
	claimed   atomic.Bool
}

// NewFolder builds a folder whose membership is fixed for the whole scan.
func NewFolder(dir string, tracks []*Track) *Folder {
	f := &Folder{Dir: dir, Tracks: tracks}
	f.remaining.Store(int32(len(tracks)))
	return f
}

// Status returns the folder's aggregation state. Only meaningful to the
// task that won FinishTrack, or after the run has drained.
func (f *Folder) Status() Status {
	return f.status
}

// FinishTrack records that one member track reached a terminal state and
// reports whether the caller has become responsible for aggregation. The
// atomic countdown guarantees the winner observes every sibling's writes,
// and the claim flag guarantees at most one winner even if a stray caller
// decrements late.
func (f *Folder) FinishTrack() bool {
	if f.remaining.Add(-1) > 0 {
		return false
	}
	return f.claimed.CompareAndSwap(false, true)
}

// HasOpus reports whether any member track decoded as Opus.
func (f *Folder) HasOpus() bool {
	for _, t := range f.Tracks {
		if t.IsOpus() {
			return true
		}
	}
	return false
}

func (f *Folder) mixedFormats() bool {
	for _, t := range f.Tracks[1:] {
		if t.Container != f.Tracks[0].Container || t.Codec != f.Tracks[0].Codec {
			return true
		}
	}
	return false
}

// Aggregate computes the album-wide result and writes it back onto every
// member track. It must only be called by the task FinishTrack selected;
// single execution is enforced there, not re-checked here.
func (f *Folder) Aggregate(ctx context.Context, meters loudness.Backend, pregain float64) error {
	if err := f.transition(StatusProcessing); err != nil {
		return err
	}

	// Mixing Opus with anything else makes a single album reference
	// meaningless, regardless of how the individual scans went.
	if f.mixedFormats() && f.HasOpus() {
		return f.fail(wrap(ErrIncompatibleAlbum, f.Dir, "album mixes Opus and non-Opus tracks", nil))
	}

	handles := make([]loudness.Meter, 0, len(f.Tracks))
	for _, t := range f.Tracks {
		if t.Status() != StatusSuccess {
			return f.fail(fmt.Errorf("%s: member track %s failed, album gain not computed", f.Dir, t.Name))
		}
		handles = append(handles, t.Meter())
	}

	combined, err := meters.Combine(ctx, handles)
	if err != nil {
		return f.fail(wrap(ErrMeter, f.Dir, "combine album loudness", err))
	}

	// Album peak is the max of the already-measured track peaks; a full
	// true-peak recombination over raw samples is not worth its cost.
	albumPeak := 0.0
	for _, t := range f.Tracks {
		albumPeak = math.Max(albumPeak, t.Peak)
	}

	// The gate above ensures Opus never mixes with other codecs, so the
	// adjustment applies to the whole album or not at all.
	if f.HasOpus() {
		pregain += gain.OpusAdjustment
	}

	albumGain := gain.FromLoudness(combined.Integrated, pregain)
	for _, t := range f.Tracks {
		t.AlbumLoudness = combined.Integrated
		t.AlbumRange = combined.Range
		t.AlbumPeak = albumPeak
		t.AlbumGain = albumGain
		t.HasAlbum = true
	}

	return f.transition(StatusSuccess)
}

// Close releases every member track's meter. Call once aggregation (or its
// failure) is settled.
func (f *Folder) Close() {
	for _, t := range f.Tracks {
		t.CloseMeter()
	}
}

func (f *Folder) transition(to Status) error {
	next, err := advance(f.status, to)
	if err != nil {
		return err
	}
	f.status = next
	return nil
}

func (f *Folder) fail(err error) error {
	_ = f.transition(StatusFail)
	f.Err = err
	return err
}
