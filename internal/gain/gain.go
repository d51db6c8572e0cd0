package gain

import "math"

const (
	// ReferenceLUFS is the ReplayGain 2.0 target loudness.
	ReferenceLUFS = -18.0

	// OpusAdjustment shifts the pregain for Opus streams, whose players
	// normalize to a fixed -23 LUFS instead of -18 LUFS.
	OpusAdjustment = -5.0

	// DefaultMaxTruePeak is the EBU-recommended clipping ceiling in dBTP.
	DefaultMaxTruePeak = -1.0
)

// FromLoudness converts a measured integrated loudness into a ReplayGain
// value, offset by the user pregain.
func FromLoudness(loudness, pregain float64) float64 {
	return (ReferenceLUFS - loudness) + pregain
}

// Reference returns the loudness reference level implied by a pregain. A
// pregain of zero yields -18 LUFS; an Opus-adjusted pregain of -5 yields -23.
func Reference(pregain float64) float64 {
	return ReferenceLUFS + pregain
}

// ToLinear converts a decibel value to linear amplitude.
func ToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// ToDecibels converts a linear amplitude to decibels.
func ToDecibels(linear float64) float64 {
	return 20 * math.Log10(linear)
}

// Q78 converts a gain in dB to the Q7.8 fixed-point integer used by the
// R128_TRACK_GAIN and R128_ALBUM_GAIN Opus tags.
func Q78(db float64) int {
	return int(math.Round(db * 256))
}

// Clip is the outcome of evaluating one gain/peak pair against a true-peak
// ceiling.
type Clip struct {
	Gain      float64
	Clips     bool
	Prevented bool
	NewPeak   float64
}

// clipEpsilon absorbs the rounding of the correction below, which lands the
// peak exactly on the ceiling; re-checking a corrected gain must not clip.
const clipEpsilon = 1e-9

// Analyze checks whether applying gain to a signal with the given peak would
// exceed the maxTruePeak ceiling (in dBTP). When prevent is set, a clipping
// gain is lowered so the resulting peak lands exactly on the ceiling; the
// clip flag is cleared and Prevented is set instead.
func Analyze(gain, peak, maxTruePeak float64, prevent bool) Clip {
	limit := ToLinear(maxTruePeak)
	after := ToLinear(gain) * peak

	out := Clip{Gain: gain}
	if after > limit*(1+clipEpsilon) {
		out.Clips = true
		if prevent {
			out.Gain = gain - 20*math.Log10(after/limit)
			out.Clips = false
			out.Prevented = true
		}
	}
	out.NewPeak = ToLinear(out.Gain) * peak
	return out
}
