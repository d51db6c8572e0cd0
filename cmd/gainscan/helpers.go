package main

import "gainscan/internal/report"

// nopSink satisfies the runner's sink for commands that produce no report
// output, like tag clearing.
type nopSink struct{}

func (nopSink) Emit(report.Record) {}
