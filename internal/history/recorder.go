package history

import (
	"context"

	"gainscan/internal/report"
)

// Recorder adapts a run's store to the report writer interface, so the
// report pipeline feeds the history database alongside the other sinks and
// the store never sees concurrent writers.
type Recorder struct {
	store *Store
	runID string
}

// Recorder returns a report writer appending to the given run.
func (s *Store) Recorder(runID string) *Recorder {
	return &Recorder{store: s, runID: runID}
}

func (r *Recorder) Write(rec report.Record) error {
	return r.store.Append(context.Background(), r.runID, rec)
}

func (r *Recorder) Flush() error { return nil }
