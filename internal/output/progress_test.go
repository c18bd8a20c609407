package output_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/torosent/loadpulse/internal/metrics"
	"github.com/torosent/loadpulse/internal/output"
)

// syncBuffer guards a bytes.Buffer for cross-goroutine writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProgressReporterEmitsUpdates(t *testing.T) {
	collector := metrics.NewCollector()
	collector.RecordRequest(5*time.Millisecond, nil)

	buf := &syncBuffer{}
	reporter := output.NewProgressReporter(collector, 20*time.Millisecond, buf)
	reporter.Start()
	time.Sleep(100 * time.Millisecond)
	reporter.Stop()

	out := buf.String()
	if !strings.Contains(out, "Requests: 1") {
		t.Fatalf("progress line missing request count: %q", out)
	}
	if !strings.Contains(out, "Successes: 1") {
		t.Fatalf("progress line missing successes: %q", out)
	}
	if !strings.Contains(out, "RPS: ") {
		t.Fatalf("progress line missing throughput: %q", out)
	}
}

func TestProgressReporterStopIdempotent(t *testing.T) {
	reporter := output.NewProgressReporter(metrics.NewCollector(), time.Millisecond, nil)
	reporter.Start()
	reporter.Stop()
	reporter.Stop() // second stop must not panic or block
}
