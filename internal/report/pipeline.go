package report

import (
	"errors"
	"sync"
)

// Pipeline is the single consumer that owns every report writer. Workers
// emit records from any goroutine; one goroutine drains them in arrival
// order, so writers never see concurrent calls.
type Pipeline struct {
	writers []Writer

	records chan Record
	done    chan struct{}

	mu   sync.Mutex
	errs []error
}

// NewPipeline starts the consumer goroutine over the given writers.
func NewPipeline(writers ...Writer) *Pipeline {
	p := &Pipeline{
		writers: writers,
		records: make(chan Record, 64),
		done:    make(chan struct{}),
	}
	go p.drain()
	return p
}

func (p *Pipeline) drain() {
	defer close(p.done)
	for r := range p.records {
		for _, w := range p.writers {
			if err := w.Write(r); err != nil {
				p.recordErr(err)
			}
		}
	}
	for _, w := range p.writers {
		if err := w.Flush(); err != nil {
			p.recordErr(err)
		}
	}
}

func (p *Pipeline) recordErr(err error) {
	p.mu.Lock()
	p.errs = append(p.errs, err)
	p.mu.Unlock()
}

// Emit queues one record. Safe for concurrent use; must not be called after
// Close.
func (p *Pipeline) Emit(r Record) {
	p.records <- r
}

// Close drains the queue, flushes every writer, and reports any write
// failure that occurred along the way.
func (p *Pipeline) Close() error {
	close(p.records)
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.errs...)
}
