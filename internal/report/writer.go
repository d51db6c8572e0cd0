package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"gainscan/internal/gain"
)

// Writer renders finished records to one destination. Implementations are
// not safe for concurrent use; the Pipeline serializes access.
type Writer interface {
	Write(Record) error
	Flush() error
}

func yesNo(v bool) string {
	if v {
		return "Y"
	}
	return "N"
}

// tabWriter prints one tab-delimited line per record, with a column header
// up front.
type tabWriter struct {
	w      io.Writer
	unit   string
	header bool
}

// NewTabWriter returns a writer producing tab-delimited list output. unit
// labels the range and gain columns (dB or LU).
func NewTabWriter(w io.Writer, unit string) Writer {
	return &tabWriter{w: w, unit: unit}
}

func (t *tabWriter) Write(r Record) error {
	if !t.header {
		t.header = true
		if _, err := fmt.Fprintln(t.w, "File\tLoudness\tRange\tTrue_Peak\tTrue_Peak_dBTP\tReference\tWill_clip\tClip_prevent\tGain\tNew_Peak\tNew_Peak_dBTP"); err != nil {
			return err
		}
	}
	location := r.Location
	if r.Kind == KindAlbum {
		location = "Album"
	}
	_, err := fmt.Fprintf(t.w, "%s\t%.2f LUFS\t%.2f %s\t%.6f\t%.2f dBTP\t%.2f LUFS\t%s\t%s\t%.2f %s\t%.6f\t%.2f dBTP\n",
		location,
		r.Loudness,
		r.Range, t.unit,
		r.Peak,
		r.PeakDBTP(),
		r.Reference,
		yesNo(r.WillClip),
		yesNo(r.ClipPrevented),
		r.Gain, t.unit,
		r.NewPeak,
		r.NewPeakDBTP(),
	)
	return err
}

func (t *tabWriter) Flush() error { return nil }

// csvWriter emits the same column set as the tab output, one row per record
// plus a header row.
type csvWriter struct {
	csv    *csv.Writer
	header bool
	unit   string
}

// NewCSVWriter returns a writer producing CSV rows on w.
func NewCSVWriter(w io.Writer, unit string) Writer {
	return &csvWriter{csv: csv.NewWriter(w), unit: unit}
}

func (c *csvWriter) Write(r Record) error {
	if !c.header {
		c.header = true
		header := []string{
			"Type", "Location",
			"Loudness [LUFs]", "Range [" + c.unit + "]",
			"True Peak", "True Peak [dBTP]",
			"Reference [LUFs]",
			"Will clip", "Clip prevent",
			"Gain [" + c.unit + "]",
			"New Peak", "New Peak [dBTP]",
		}
		if err := c.csv.Write(header); err != nil {
			return err
		}
	}
	flag := func(v bool) string {
		if v {
			return "1"
		}
		return "0"
	}
	return c.csv.Write([]string{
		r.Kind.String(),
		r.Location,
		strconv.FormatFloat(r.Loudness, 'f', 2, 64),
		strconv.FormatFloat(r.Range, 'f', 2, 64),
		strconv.FormatFloat(r.Peak, 'f', 6, 64),
		strconv.FormatFloat(r.PeakDBTP(), 'f', 2, 64),
		strconv.FormatFloat(r.Reference, 'f', 2, 64),
		flag(r.WillClip),
		flag(r.ClipPrevented),
		strconv.FormatFloat(r.Gain, 'f', 2, 64),
		strconv.FormatFloat(r.NewPeak, 'f', 6, 64),
		strconv.FormatFloat(r.NewPeakDBTP(), 'f', 2, 64),
	})
}

func (c *csvWriter) Flush() error {
	c.csv.Flush()
	return c.csv.Error()
}

// humanWriter prints a small block per record.
type humanWriter struct {
	w    io.Writer
	unit string
}

// NewHumanWriter returns a writer producing the verbose human-readable
// per-record blocks.
func NewHumanWriter(w io.Writer, unit string) Writer {
	return &humanWriter{w: w, unit: unit}
}

func (h *humanWriter) Write(r Record) error {
	if _, err := fmt.Fprintf(h.w, "\n%s: %s\n Loudness: %.2f LUFS\n Range:    %.2f %s\n Peak:     %.6f (%.2f dBTP)\n",
		r.Kind, r.Location, r.Loudness, r.Range, h.unit, r.Peak, r.PeakDBTP()); err != nil {
		return err
	}
	if r.Opus {
		if _, err := fmt.Fprintf(h.w, " Gain:     %.2f %s (%d)", r.Gain, h.unit, gain.Q78(r.Gain)); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprintf(h.w, " Gain:     %.2f %s", r.Gain, h.unit); err != nil {
			return err
		}
	}
	if r.ClipPrevented {
		if _, err := fmt.Fprint(h.w, " (corrected to prevent clipping)"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(h.w)
	return err
}

func (h *humanWriter) Flush() error { return nil }

// tableWriter accumulates records and renders one table on Flush.
type tableWriter struct {
	out  io.Writer
	unit string
	rows []Record
}

// NewTableWriter returns a writer rendering all records as one table when
// the pipeline drains.
func NewTableWriter(w io.Writer, unit string) Writer {
	return &tableWriter{out: w, unit: unit}
}

func (t *tableWriter) Write(r Record) error {
	t.rows = append(t.rows, r)
	return nil
}

func (t *tableWriter) Flush() error {
	if len(t.rows) == 0 {
		return nil
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(t.out)
	tw.AppendHeader(table.Row{
		"Type", "Location",
		"Loudness", "Range [" + t.unit + "]",
		"Peak [dBTP]",
		"Clip", "Prevented",
		"Gain [" + t.unit + "]",
		"New Peak [dBTP]",
	})
	for _, r := range t.rows {
		tw.AppendRow(table.Row{
			r.Kind.String(),
			r.Location,
			fmt.Sprintf("%.2f LUFS", r.Loudness),
			fmt.Sprintf("%.2f", r.Range),
			fmt.Sprintf("%.2f", r.PeakDBTP()),
			yesNo(r.WillClip),
			yesNo(r.ClipPrevented),
			fmt.Sprintf("%.2f", r.Gain),
			fmt.Sprintf("%.2f", r.NewPeakDBTP()),
		})
	}
	tw.Render()
	return nil
}
