package report_test

import (
	"strings"
	"sync"
	"testing"

	"gainscan/internal/report"
)

func sampleRecord() report.Record {
	return report.Record{
		Kind:      report.KindFile,
		Location:  "/music/a.flac",
		Loudness:  -20,
		Range:     4.2,
		Peak:      1.0,
		Reference: -18,
		Gain:      2,
		NewPeak:   1.2589254117941673,
	}
}

func TestTabWriterFormat(t *testing.T) {
	var buf strings.Builder
	w := report.NewTabWriter(&buf, "dB")
	if err := w.Write(sampleRecord()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header + record", len(lines))
	}
	if !strings.HasPrefix(lines[0], "File\tLoudness\tRange\tTrue_Peak") {
		t.Fatalf("header = %q", lines[0])
	}
	want := "/music/a.flac\t-20.00 LUFS\t4.20 dB\t1.000000\t0.00 dBTP\t-18.00 LUFS\tN\tN\t2.00 dB\t1.258925\t2.00 dBTP"
	if lines[1] != want {
		t.Fatalf("record line:\n got %q\nwant %q", lines[1], want)
	}
}

func TestTabWriterAlbumLocation(t *testing.T) {
	var buf strings.Builder
	w := report.NewTabWriter(&buf, "dB")
	r := sampleRecord()
	r.Kind = report.KindAlbum
	r.Location = "/music"
	if err := w.Write(r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	if !strings.HasPrefix(lines[1], "Album\t") {
		t.Fatalf("album line should start with the literal Album: %q", lines[1])
	}
}

func TestCSVWriterHeaderAndRow(t *testing.T) {
	var buf strings.Builder
	w := report.NewCSVWriter(&buf, "LU")
	r := sampleRecord()
	r.WillClip = true
	if err := w.Write(r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header + row", len(lines))
	}
	if !strings.Contains(lines[0], "Range [LU]") || !strings.Contains(lines[0], "Gain [LU]") {
		t.Fatalf("header misses unit columns: %q", lines[0])
	}
	row := strings.Split(lines[1], ",")
	if len(row) != 12 {
		t.Fatalf("row has %d columns, want 12: %q", len(row), lines[1])
	}
	if row[0] != "File" || row[1] != "/music/a.flac" {
		t.Fatalf("identity columns: %q", lines[1])
	}
	if row[7] != "1" || row[8] != "0" {
		t.Fatalf("clip flags: %q", lines[1])
	}
}

func TestHumanWriterOpusShowsQ78(t *testing.T) {
	var buf strings.Builder
	w := report.NewHumanWriter(&buf, "dB")
	r := sampleRecord()
	r.Opus = true
	r.Gain = 2
	if err := w.Write(r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "2.00 dB (512)") {
		t.Fatalf("missing Q7.8 display:\n%s", buf.String())
	}
}

func TestHumanWriterClipNotice(t *testing.T) {
	var buf strings.Builder
	w := report.NewHumanWriter(&buf, "dB")
	r := sampleRecord()
	r.ClipPrevented = true
	if err := w.Write(r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "corrected to prevent clipping") {
		t.Fatalf("missing clip notice:\n%s", buf.String())
	}
}

func TestTableWriterRendersOnFlush(t *testing.T) {
	var buf strings.Builder
	w := report.NewTableWriter(&buf, "dB")
	if err := w.Write(sampleRecord()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatal("table must not render before Flush")
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !strings.Contains(buf.String(), "/music/a.flac") {
		t.Fatalf("table misses the record:\n%s", buf.String())
	}
}

func TestPipelineSerializesConcurrentEmitters(t *testing.T) {
	var buf strings.Builder
	p := report.NewPipeline(report.NewTabWriter(&buf, "dB"))

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Emit(sampleRecord())
		}()
	}
	wg.Wait()
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != n+1 {
		t.Fatalf("got %d lines, want %d records plus header", len(lines), n)
	}
	for _, line := range lines[1:] {
		if !strings.HasPrefix(line, "/music/a.flac\t") {
			t.Fatalf("interleaved write detected: %q", line)
		}
	}
}
