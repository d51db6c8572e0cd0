package tags

import (
	"context"
	"errors"
	"testing"

	"gainscan/internal/logging"
	"gainscan/internal/scan"
)

type fakeIO struct {
	existing map[string][]string
	written  map[string][]string
	writeErr error
}

func (f *fakeIO) read(string) (map[string][]string, error) {
	return f.existing, nil
}

func (f *fakeIO) write(_ string, tags map[string][]string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = tags
	return nil
}

func newTestWriter(opts Options, io *fakeIO) *Writer {
	w := NewWriter(opts, logging.NewNop())
	w.io = io
	return w
}

func flacTrack() *scan.Track {
	t := scan.NewTrack("/m/a.flac")
	t.Container = "flac"
	t.Codec = "flac"
	t.Loudness = -20
	t.Range = 4.2
	t.Peak = 0.75
	t.Gain = 2
	t.Reference = -18
	return t
}

func opusTrack() *scan.Track {
	t := scan.NewTrack("/m/a.opus")
	t.Container = "ogg"
	t.Codec = "opus"
	t.Gain = 2
	return t
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"skip", ModeSkip, true},
		{"", ModeSkip, true},
		{"delete", ModeDelete, true},
		{"Standard", ModeStandard, true},
		{"extended", ModeExtended, true},
		{"bogus", ModeSkip, false},
	}
	for _, tc := range cases {
		got, err := ParseMode(tc.in)
		if (err == nil) != tc.ok {
			t.Errorf("ParseMode(%q) error = %v", tc.in, err)
			continue
		}
		if tc.ok && got != tc.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestWriteStandard(t *testing.T) {
	io := &fakeIO{}
	w := newTestWriter(Options{Mode: ModeStandard, Unit: "dB"}, io)

	if err := w.Write(context.Background(), flacTrack()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if got := io.written["REPLAYGAIN_TRACK_GAIN"]; len(got) != 1 || got[0] != "2.00 dB" {
		t.Fatalf("track gain tag = %v", got)
	}
	if got := io.written["REPLAYGAIN_TRACK_PEAK"]; len(got) != 1 || got[0] != "0.750000" {
		t.Fatalf("track peak tag = %v", got)
	}
	for _, key := range []string{"REPLAYGAIN_ALBUM_GAIN", "REPLAYGAIN_REFERENCE_LOUDNESS", "REPLAYGAIN_TRACK_RANGE"} {
		if _, ok := io.written[key]; ok {
			t.Fatalf("standard track mode must not write %s", key)
		}
	}
}

func TestWriteExtendedAlbum(t *testing.T) {
	io := &fakeIO{}
	w := newTestWriter(Options{Mode: ModeExtended, Album: true, Unit: "dB"}, io)

	track := flacTrack()
	track.HasAlbum = true
	track.AlbumGain = 1.5
	track.AlbumPeak = 0.9
	track.AlbumRange = 5.5

	if err := w.Write(context.Background(), track); err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := map[string]string{
		"REPLAYGAIN_TRACK_GAIN":         "2.00 dB",
		"REPLAYGAIN_TRACK_PEAK":         "0.750000",
		"REPLAYGAIN_ALBUM_GAIN":         "1.50 dB",
		"REPLAYGAIN_ALBUM_PEAK":         "0.900000",
		"REPLAYGAIN_REFERENCE_LOUDNESS": "-18.00 LUFS",
		"REPLAYGAIN_TRACK_RANGE":        "4.20 dB",
		"REPLAYGAIN_ALBUM_RANGE":        "5.50 dB",
	}
	for key, value := range want {
		if got := io.written[key]; len(got) != 1 || got[0] != value {
			t.Errorf("%s = %v, want %q", key, got, value)
		}
	}
}

func TestWriteOpusUsesQ78(t *testing.T) {
	io := &fakeIO{}
	w := newTestWriter(Options{Mode: ModeStandard, Album: true, Unit: "dB"}, io)

	track := opusTrack()
	track.HasAlbum = true
	track.AlbumGain = -1

	if err := w.Write(context.Background(), track); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if got := io.written["R128_TRACK_GAIN"]; len(got) != 1 || got[0] != "512" {
		t.Fatalf("R128_TRACK_GAIN = %v", got)
	}
	if got := io.written["R128_ALBUM_GAIN"]; len(got) != 1 || got[0] != "-256" {
		t.Fatalf("R128_ALBUM_GAIN = %v", got)
	}
	for key := range io.written {
		if key == "R128_TRACK_GAIN" || key == "R128_ALBUM_GAIN" {
			continue
		}
		t.Fatalf("Opus must never get %s", key)
	}
}

func TestWriteLowercaseKeys(t *testing.T) {
	io := &fakeIO{}
	w := newTestWriter(Options{Mode: ModeStandard, Unit: "dB", Lowercase: true}, io)

	if err := w.Write(context.Background(), flacTrack()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, ok := io.written["replaygain_track_gain"]; !ok {
		t.Fatalf("keys not lowercased: %v", io.written)
	}
}

func TestWriteSkipMode(t *testing.T) {
	io := &fakeIO{}
	w := newTestWriter(Options{Mode: ModeSkip}, io)
	if err := w.Write(context.Background(), flacTrack()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if io.written != nil {
		t.Fatal("skip mode must not touch the file")
	}
}

func TestWriteUnsupportedContainer(t *testing.T) {
	io := &fakeIO{}
	w := newTestWriter(Options{Mode: ModeStandard, Unit: "dB"}, io)

	track := scan.NewTrack("/m/a.mkv")
	track.Container = "matroska,webm"
	track.Codec = "flac"

	err := w.Write(context.Background(), track)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("error = %v, want ErrUnsupportedFormat", err)
	}
	if !errors.Is(err, ErrTagWrite) {
		t.Fatalf("error = %v, want ErrTagWrite marker", err)
	}
}

func TestClearRemovesOnlyGainTags(t *testing.T) {
	io := &fakeIO{existing: map[string][]string{
		"TITLE":                 {"Song"},
		"replaygain_track_gain": {"2.00 dB"},
		"REPLAYGAIN_ALBUM_PEAK": {"0.9"},
		"R128_TRACK_GAIN":       {"512"},
	}}
	w := newTestWriter(Options{Mode: ModeDelete}, io)

	if err := w.Write(context.Background(), flacTrack()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if len(io.written) != 3 {
		t.Fatalf("removed %d keys, want 3: %v", len(io.written), io.written)
	}
	if _, ok := io.written["TITLE"]; ok {
		t.Fatal("TITLE must survive")
	}
	for key, value := range io.written {
		if value != nil {
			t.Fatalf("%s must map to nil for removal, got %v", key, value)
		}
	}
}

func TestClearWithNoGainTagsWritesNothing(t *testing.T) {
	io := &fakeIO{existing: map[string][]string{"TITLE": {"Song"}}}
	w := newTestWriter(Options{Mode: ModeDelete}, io)

	if err := w.Clear(context.Background(), flacTrack()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if io.written != nil {
		t.Fatal("no write expected when nothing matches")
	}
}

func TestNormalizeContainer(t *testing.T) {
	cases := map[string]string{
		"flac":                   "flac",
		"mov,mp4,m4a,3gp,3g2,mj2": "mp4",
		"OGG":                    "ogg",
	}
	for in, want := range cases {
		if got := normalizeContainer(in); got != want {
			t.Errorf("normalizeContainer(%q) = %q, want %q", in, got, want)
		}
	}
}
