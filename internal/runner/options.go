package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/loadpulse/internal/metrics"
)

// Requester executes a single request attempt and reports its HTTP status
// code. A non-nil error with status <= 0 means the attempt failed before
// producing a response (transport error, timeout); the worker then records
// the transport-failure sentinel. Errors alongside a real status, such as
// an error-range response or a failed body check, keep that status in the
// per-second series.
type Requester interface {
	Do(ctx context.Context) (status int, err error)
}

// Options configure the Runner.
type Options struct {
	Concurrency    int                         // number of worker goroutines
	Warmup         time.Duration               // discard phase before measurement (0 disables)
	Duration       time.Duration               // measured window length (required)
	RatePerSecond  int                         // pacing across all workers (0 means unlimited)
	GracePeriod    time.Duration               // bounded wait for workers during drain
	Requester      Requester                   // request executor (required)
	Sink           metrics.RowSink             // per-second row destination (required)
	PollInterval   time.Duration               // aggregator wakeup when no samples arrive
	Buffer         int                         // sample channel capacity
	AfterWarmup    func()                      // called once when measurement begins
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Warmup < 0 {
		o.Warmup = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.GracePeriod <= 0 {
		o.GracePeriod = 5 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 200 * time.Millisecond
	}
	if o.Buffer <= 0 {
		o.Buffer = 1024
		if n := o.Concurrency * 4; n > o.Buffer {
			o.Buffer = n
		}
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst equal to rps to smooth pacing under concurrency.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}
