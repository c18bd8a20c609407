package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/torosent/loadpulse/internal/metrics"
)

// ProgressReporter prints a single refreshing status line while a run is in
// flight. Start and Stop are both idempotent.
type ProgressReporter struct {
	collector *metrics.Collector
	interval  time.Duration
	writer    io.Writer

	startOnce sync.Once
	stopOnce  sync.Once
	running   bool
	stop      chan struct{}
	done      chan struct{}
}

// NewProgressReporter creates a reporter that rewrites its line every
// interval. A nil writer discards all output.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		interval:  interval,
		writer:    writer,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the reporting goroutine.
func (p *ProgressReporter) Start() {
	p.startOnce.Do(func() {
		p.running = true
		go p.loop()
	})
}

// Stop halts updates and waits for the last line to be written.
func (p *ProgressReporter) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
		if p.running {
			<-p.done
		}
	})
}

func (p *ProgressReporter) loop() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// Elapsed tracks the collector's own window, so the live RPS
			// stays correct across the warmup reset.
			stats := p.collector.Stats(p.collector.Elapsed())
			fmt.Fprintf(p.writer, "\rRequests: %d | Successes: %d | Failures: %d | RPS: %.1f | P95: %.1fms",
				stats.Total, stats.Successes, stats.Failures, stats.RequestsPerSec, stats.P95LatencyMs)
		case <-p.stop:
			return
		}
	}
}
