package loudness

import (
	"math"
	"testing"
)

const sampleSummary = `
[Parsed_ebur128_0 @ 0x55e] Summary:

  Integrated loudness:
    I:         -23.1 LUFS
    Threshold: -33.4 LUFS

  Loudness range:
    LRA:         6.5 LU
    Threshold: -43.6 LUFS
    LRA low:   -26.6 LUFS
    LRA high:  -20.1 LUFS

  True peak:
    Peak:       -2.4 dBFS
`

func TestParseSummary(t *testing.T) {
	res, err := parseSummary(sampleSummary)
	if err != nil {
		t.Fatalf("parseSummary: %v", err)
	}
	if res.Integrated != -23.1 {
		t.Fatalf("integrated: %v", res.Integrated)
	}
	if res.Range != 6.5 {
		t.Fatalf("range: %v", res.Range)
	}
	wantPeak := math.Pow(10, -2.4/20)
	if math.Abs(res.TruePeak-wantPeak) > 1e-12 {
		t.Fatalf("true peak: %v, want %v", res.TruePeak, wantPeak)
	}
}

func TestParseSummarySilence(t *testing.T) {
	out := `
  Integrated loudness:
    I:         -inf LUFS
  Loudness range:
    LRA:         0.0 LU
  True peak:
    Peak:       -inf dBFS
`
	res, err := parseSummary(out)
	if err != nil {
		t.Fatalf("parseSummary: %v", err)
	}
	if !math.IsInf(res.Integrated, -1) {
		t.Fatalf("integrated: %v", res.Integrated)
	}
	if res.TruePeak != 0 {
		t.Fatalf("true peak for silence should be 0 linear, got %v", res.TruePeak)
	}
}

func TestParseSummaryMissingFields(t *testing.T) {
	if _, err := parseSummary("nothing useful here"); err == nil {
		t.Fatal("expected error for missing summary")
	}
	if _, err := parseSummary("I: -20.0 LUFS"); err == nil {
		t.Fatal("expected error when range and peak are missing")
	}
}

func TestNewFFmpegBackendRequiresBinary(t *testing.T) {
	if _, err := NewFFmpegBackend("  "); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestCombineRejectsForeignMeters(t *testing.T) {
	b, err := NewFFmpegBackend("ffmpeg")
	if err != nil {
		t.Fatalf("NewFFmpegBackend: %v", err)
	}
	if _, err := b.Combine(t.Context(), nil); err == nil {
		t.Fatal("expected error for empty meter list")
	}
	if _, err := b.Combine(t.Context(), []Meter{fakeMeter{}}); err == nil {
		t.Fatal("expected error for foreign meter type")
	}
}

func TestCombineRequiresSpool(t *testing.T) {
	b, err := NewFFmpegBackend("ffmpeg")
	if err != nil {
		t.Fatalf("NewFFmpegBackend: %v", err)
	}
	if _, err := b.Combine(t.Context(), []Meter{&ffmpegMeter{channels: 2, sampleRate: 44100}}); err == nil {
		t.Fatal("expected error for meter without spool")
	}
}

type fakeMeter struct{}

func (fakeMeter) Feed([]int16) error     { return nil }
func (fakeMeter) Result() (Result, error) { return Result{}, nil }
func (fakeMeter) Close() error           { return nil }
