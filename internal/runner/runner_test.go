package runner_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/torosent/loadpulse/internal/metrics"
	"github.com/torosent/loadpulse/internal/runner"
)

// fakeRequester simulates performing a request with fixed latency.
type fakeRequester struct {
	latency time.Duration
	status  int
	err     error
	calls   int64
}

func (f *fakeRequester) Do(ctx context.Context) (int, error) {
	atomic.AddInt64(&f.calls, 1)
	select {
	case <-time.After(f.latency):
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	if f.err != nil {
		return 0, f.err
	}
	if f.status != 0 {
		return f.status, nil
	}
	return 200, nil
}

// memorySink collects rows under a lock; runner only ever writes from one
// goroutine but tests read concurrently.
type memorySink struct {
	mu   sync.Mutex
	rows []metrics.Row
}

func (s *memorySink) WriteRow(r metrics.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r)
	return nil
}

func (s *memorySink) snapshot() []metrics.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]metrics.Row(nil), s.rows...)
}

// TestRunnerEndToEnd checks the full lifecycle against a fast fake target:
// one row per elapsed second, throughput near 1000/latency, zero errors.
func TestRunnerEndToEnd(t *testing.T) {
	sink := &memorySink{}
	r := runner.New(runner.Options{
		Concurrency: 1,
		Duration:    3 * time.Second,
		Requester:   &fakeRequester{latency: 10 * time.Millisecond},
		Sink:        sink,
	})

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	rows := sink.snapshot()
	if len(rows) < 3 || len(rows) > 4 {
		t.Fatalf("expected 3-4 rows for a 3s run, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Second != rows[i-1].Second+1 {
			t.Fatalf("rows not contiguous: %+v", rows)
		}
	}
	// Interior rows cover full seconds; edge rows may be partial.
	for _, row := range rows[1 : len(rows)-1] {
		if row.Count < 50 || row.Count > 200 {
			t.Errorf("second %d: count %d outside jitter tolerance around 100", row.Second, row.Count)
		}
		if row.Err != 0 || row.OK != row.Count {
			t.Errorf("second %d: ok=%d err=%d count=%d", row.Second, row.OK, row.Err, row.Count)
		}
	}
	if result.Rows != int64(len(rows)) {
		t.Errorf("result.Rows=%d, sink has %d", result.Rows, len(rows))
	}
	if result.WorkersStalled {
		t.Error("workers reported stalled on a clean run")
	}
}

func TestRunnerRecordsFailuresAsData(t *testing.T) {
	sink := &memorySink{}
	r := runner.New(runner.Options{
		Concurrency: 2,
		Duration:    1200 * time.Millisecond,
		Requester:   &fakeRequester{latency: 5 * time.Millisecond, err: errors.New("connection refused")},
		Sink:        sink,
	})

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Samples == 0 {
		t.Fatal("expected samples despite every request failing")
	}
	var ok, errCount int
	for _, row := range sink.snapshot() {
		ok += row.OK
		errCount += row.Err
		if row.OK+row.Err != row.Count {
			t.Errorf("row %d: ok+err != count: %+v", row.Second, row)
		}
	}
	if ok != 0 {
		t.Errorf("expected zero successes, got %d", ok)
	}
	if errCount == 0 {
		t.Error("expected error counts in rows")
	}
}

func TestRunnerNonSuccessStatusCountsAsError(t *testing.T) {
	sink := &memorySink{}
	r := runner.New(runner.Options{
		Concurrency: 1,
		Duration:    1100 * time.Millisecond,
		Requester:   &fakeRequester{latency: 5 * time.Millisecond, status: 503},
		Sink:        sink,
	})

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, row := range sink.snapshot() {
		if row.OK != 0 {
			t.Fatalf("5xx responses counted as ok: %+v", row)
		}
	}
}

func TestRunnerWarmupDiscardsSamples(t *testing.T) {
	sink := &memorySink{}
	r := runner.New(runner.Options{
		Concurrency: 2,
		Warmup:      400 * time.Millisecond,
		Duration:    1100 * time.Millisecond,
		Requester:   &fakeRequester{latency: 5 * time.Millisecond},
		Sink:        sink,
	})

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.WarmupDiscarded == 0 {
		t.Error("expected warmup to discard samples")
	}
	var total int
	for _, row := range sink.snapshot() {
		total += row.Count
	}
	if int64(total) != result.Samples {
		t.Errorf("rows hold %d samples, result says %d", total, result.Samples)
	}
}

// phasedRequester reports slow synthetic latencies until measurement
// begins, then fast ones, recording each into a collector the way the
// production requester does. The hook shares the mutex with Do so no slow
// recording can land after the reset.
type phasedRequester struct {
	mu        sync.Mutex
	collector *metrics.Collector
	measured  bool
}

func (f *phasedRequester) Do(ctx context.Context) (int, error) {
	time.Sleep(time.Millisecond)
	f.mu.Lock()
	latency := 500 * time.Millisecond
	if f.measured {
		latency = 5 * time.Millisecond
	}
	f.collector.RecordRequest(latency, nil)
	f.mu.Unlock()
	return 200, nil
}

func (f *phasedRequester) beginMeasurement() {
	f.mu.Lock()
	f.collector.Reset()
	f.measured = true
	f.mu.Unlock()
}

func TestRunnerWarmupExcludedFromCollector(t *testing.T) {
	collector := metrics.NewCollector()
	req := &phasedRequester{collector: collector}
	r := runner.New(runner.Options{
		Concurrency: 2,
		Warmup:      300 * time.Millisecond,
		Duration:    500 * time.Millisecond,
		Requester:   req,
		Sink:        &memorySink{},
		AfterWarmup: req.beginMeasurement,
	})

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	stats := collector.Stats(result.Duration)
	if stats.Total == 0 {
		t.Fatal("expected measured samples")
	}
	if stats.MaxLatencyMs >= 500 {
		t.Errorf("cold-start latency leaked into the report: max=%vms", stats.MaxLatencyMs)
	}
	if result.Duration >= 700*time.Millisecond {
		t.Errorf("result duration should cover the measured window only, got %v", result.Duration)
	}
}

// TestRunnerPollTickKeepsBufferedSamples hammers the poll path: with a 1ms
// tick every second boundary races the ticker, and buffered samples must
// still land in their own bucket instead of being dropped as late.
func TestRunnerPollTickKeepsBufferedSamples(t *testing.T) {
	sink := &memorySink{}
	r := runner.New(runner.Options{
		Concurrency:  4,
		Duration:     1200 * time.Millisecond,
		PollInterval: time.Millisecond,
		Requester:    &fakeRequester{latency: time.Millisecond},
		Sink:         sink,
	})

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.LateDropped != 0 {
		t.Fatalf("aggressive polling dropped %d buffered samples", result.LateDropped)
	}
}

// TestRunnerEmitsEmptyRowsWithoutTraffic uses a requester that never
// completes, so every row must come from the poll path.
func TestRunnerEmitsEmptyRowsWithoutTraffic(t *testing.T) {
	sink := &memorySink{}
	blocked := &fakeRequester{latency: time.Hour}
	r := runner.New(runner.Options{
		Concurrency:  1,
		Duration:     1500 * time.Millisecond,
		PollInterval: 50 * time.Millisecond,
		Requester:    blocked,
		Sink:         sink,
	})

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	rows := sink.snapshot()
	if len(rows) == 0 {
		t.Fatal("expected empty rows to be emitted under zero traffic")
	}
	for _, row := range rows {
		if row.Count != 0 || row.OK != 0 || row.Err != 0 {
			t.Fatalf("expected empty row, got %+v", row)
		}
	}
	if result.Samples != 0 {
		t.Errorf("expected zero samples, got %d", result.Samples)
	}
}

func TestRunnerStalledWorkersReported(t *testing.T) {
	sink := &memorySink{}
	stubborn := requesterFunc(func(ctx context.Context) (int, error) {
		time.Sleep(600 * time.Millisecond) // ignores cancellation
		return 200, nil
	})
	r := runner.New(runner.Options{
		Concurrency: 1,
		Duration:    200 * time.Millisecond,
		GracePeriod: 50 * time.Millisecond,
		Requester:   stubborn,
		Sink:        sink,
	})

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.WorkersStalled {
		t.Error("expected stalled workers to be reported")
	}
}

func TestRunnerRatePacing(t *testing.T) {
	sink := &memorySink{}
	fast := &fakeRequester{latency: time.Millisecond}
	r := runner.New(runner.Options{
		Concurrency:   4,
		Duration:      1 * time.Second,
		RatePerSecond: 5,
		Requester:     fast,
		Sink:          sink,
	})

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Burst allowance means up to 2x the configured rate in the first second.
	if result.Samples > 15 {
		t.Errorf("rate limit ineffective: %d samples in 1s at 5 rps", result.Samples)
	}
	if atomic.LoadInt64(&fast.calls) == 0 {
		t.Error("requester never called")
	}
}

func TestRunnerValidation(t *testing.T) {
	sink := &memorySink{}
	req := &fakeRequester{}

	cases := map[string]runner.Options{
		"missing requester": {Duration: time.Second, Sink: sink},
		"missing sink":      {Duration: time.Second, Requester: req},
		"zero duration":     {Requester: req, Sink: sink},
	}
	for name, opts := range cases {
		if _, err := runner.New(opts).Run(context.Background()); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestRunnerCancelledContextStopsEarly(t *testing.T) {
	sink := &memorySink{}
	ctx, cancel := context.WithCancel(context.Background())

	r := runner.New(runner.Options{
		Concurrency: 2,
		Duration:    time.Hour,
		Requester:   &fakeRequester{latency: 5 * time.Millisecond},
		Sink:        sink,
	})

	go func() {
		time.Sleep(300 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	if _, err := r.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("cancellation did not stop the run promptly")
	}
}

type requesterFunc func(ctx context.Context) (int, error)

func (f requesterFunc) Do(ctx context.Context) (int, error) { return f(ctx) }
