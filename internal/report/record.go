package report

import "gainscan/internal/gain"

// Kind distinguishes per-track records from the trailing album record.
type Kind int

const (
	KindFile Kind = iota
	KindAlbum
)

func (k Kind) String() string {
	if k == KindAlbum {
		return "Album"
	}
	return "File"
}

// Record is one finished measurement handed to the report pipeline: a track
// in either scan mode, or the album summary emitted after a folder
// aggregates. Peaks are linear amplitudes; the dBTP views are derived.
type Record struct {
	Kind     Kind
	Location string

	Loudness  float64
	Range     float64
	Peak      float64
	Reference float64

	WillClip      bool
	ClipPrevented bool

	Gain    float64
	NewPeak float64

	// Opus selects the Q7.8 gain display in human output.
	Opus bool
}

// PeakDBTP returns the measured peak in dB true peak.
func (r Record) PeakDBTP() float64 {
	return gain.ToDecibels(r.Peak)
}

// NewPeakDBTP returns the post-gain peak in dB true peak.
func (r Record) NewPeakDBTP() float64 {
	return gain.ToDecibels(r.NewPeak)
}
