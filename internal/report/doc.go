// Package report renders finished scan results. A Pipeline owns every
// configured writer and consumes records from a single goroutine, so
// concurrent workers only ever touch a channel. Writers cover tab-delimited
// list output, CSV, verbose human blocks, and a summary table.
package report
