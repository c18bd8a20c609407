package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/loadpulse/internal/metrics"
)

// Result captures the outcome of one run.
type Result struct {
	Rows            int64         // per-second rows written to the sink
	Samples         int64         // samples folded into buckets
	WarmupDiscarded int64         // samples consumed during warmup
	DrainDiscarded  int64         // samples pulled off the channel after the window closed
	LateDropped     int64         // samples that arrived after their bucket was flushed
	WorkersStalled  bool          // workers did not exit within the grace period
	Duration        time.Duration // wall time of the measured window, excluding warmup
}

// Runner drives N workers against a Requester for a bounded duration and
// feeds their samples through a single aggregation loop.
type Runner struct {
	opt     Options
	limiter *rate.Limiter
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt, limiter: opt.LimiterFactory(opt.RatePerSecond)}
}

// Run executes the full lifecycle: start workers, warmup discard, measured
// aggregation, stop signal, bounded drain, final flush. It returns once the
// final partial bucket has been written (or the sink failed).
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.opt.Requester == nil {
		return Result{}, errors.New("runner: requester is required")
	}
	if r.opt.Sink == nil {
		return Result{}, errors.New("runner: sink is required")
	}
	if r.opt.Duration <= 0 {
		return Result{}, errors.New("runner: duration must be positive")
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	samples := make(chan metrics.Sample, r.opt.Buffer)

	var wg sync.WaitGroup
	wg.Add(r.opt.Concurrency)
	for i := 0; i < r.opt.Concurrency; i++ {
		go func() {
			defer wg.Done()
			r.worker(ctx, samples)
		}()
	}

	var result Result

	// Warmup: keep consuming so workers never block on a full channel, but
	// discard everything so cold-start latencies stay out of the series.
	if r.opt.Warmup > 0 {
		warmup := time.NewTimer(r.opt.Warmup)
	warmupLoop:
		for {
			select {
			case <-samples:
				result.WarmupDiscarded++
			case <-warmup.C:
				break warmupLoop
			case <-ctx.Done():
				warmup.Stop()
				break warmupLoop
			}
		}
	}

	if r.opt.AfterWarmup != nil {
		r.opt.AfterWarmup()
	}
	measureStart := time.Now()

	agg := metrics.NewAggregator(r.opt.Sink, measureStart.Unix())
	deadline := time.NewTimer(r.opt.Duration)
	defer deadline.Stop()
	poll := time.NewTicker(r.opt.PollInterval)
	defer poll.Stop()

	var aggErr error
running:
	for {
		select {
		case s := <-samples:
			if aggErr = agg.Observe(s); aggErr != nil {
				break running
			}
			result.Samples++
		case <-poll.C:
			// Fold anything already buffered before closing out seconds:
			// a tick racing a second boundary must not flush a bucket
			// whose samples are still sitting in the channel.
		pending:
			for {
				select {
				case s := <-samples:
					if aggErr = agg.Observe(s); aggErr != nil {
						break running
					}
					result.Samples++
				default:
					break pending
				}
			}
			// Seconds strictly before the wall clock are complete even if
			// no sample landed in them; the open bucket stays on "now".
			if aggErr = agg.AdvanceTo(time.Now().Unix()); aggErr != nil {
				break running
			}
		case <-deadline.C:
			break running
		case <-ctx.Done():
			break running
		}
	}

	// Draining: signal stop, wait for workers within the grace budget, and
	// discard whatever arrived after the measurement window closed.
	stop()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	grace := time.NewTimer(r.opt.GracePeriod)
	defer grace.Stop()
drainLoop:
	for {
		select {
		case <-samples:
			result.DrainDiscarded++
		case <-done:
			break drainLoop
		case <-grace.C:
			result.WorkersStalled = true
			break drainLoop
		}
	}
	// Pull anything still buffered so no sample is stranded half-delivered.
	for {
		select {
		case <-samples:
			result.DrainDiscarded++
		default:
			if aggErr == nil {
				aggErr = agg.Flush()
			}
			result.Rows = agg.Rows()
			result.LateDropped = agg.LateDropped()
			result.Samples -= result.LateDropped // only folded samples count
			result.Duration = time.Since(measureStart)
			return result, aggErr
		}
	}
}

// worker issues requests back to back until the stop signal fires. A failed
// request is data, not an error: it becomes a sample with the sentinel
// status and the loop continues.
func (r *Runner) worker(ctx context.Context, samples chan<- metrics.Sample) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return
		}

		begin := time.Now()
		status, err := r.opt.Requester.Do(ctx)
		latency := time.Since(begin)
		if err != nil && status <= 0 {
			status = metrics.StatusTransportFailure
		}

		s := metrics.Sample{
			ObservedAt: time.Now().Unix(),
			LatencyMs:  float64(latency) / float64(time.Millisecond),
			Status:     status,
		}
		select {
		case samples <- s:
		case <-ctx.Done():
			return
		}
	}
}
