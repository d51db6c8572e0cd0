package loudness

import "context"

// Result holds the terminal readings of one meter.
type Result struct {
	// Integrated is the program's integrated loudness in LUFS.
	Integrated float64
	// Range is the loudness range in LU.
	Range float64
	// TruePeak is the maximum true peak across channels as linear amplitude.
	TruePeak float64
}

// Combined holds album-wide readings produced by combining several meters.
type Combined struct {
	Integrated float64
	Range      float64
}

// Meter ingests decoded PCM and yields EBU R128 measurements. Feed may be
// called any number of times; Result finalizes the measurement and is
// idempotent. Close releases resources and must always be called.
type Meter interface {
	Feed(samples []int16) error
	Result() (Result, error)
	Close() error
}

// Backend creates meters and combines finished ones into an album-wide
// figure, semantically equivalent to measuring the concatenation of all
// their inputs with a single meter.
type Backend interface {
	NewMeter(ctx context.Context, channels, sampleRate int) (Meter, error)
	Combine(ctx context.Context, meters []Meter) (Combined, error)
}
