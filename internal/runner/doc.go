// Package runner provides the load-generation engine for loadpulse.
//
// The runner owns the whole lifecycle of a measurement run:
//
//	Starting -> Warmup -> Running -> Draining -> Stopped
//
// N worker goroutines issue one request at a time through a [Requester] and
// emit one sample per attempt into a shared channel. A single aggregation
// loop reads that channel, folds samples into per-second buckets, and on a
// short poll interval advances past empty seconds so the emitted series is
// gap-free even under zero traffic.
//
// # Basic Usage
//
//	r := runner.New(runner.Options{
//		Concurrency: 8,
//		Warmup:      10 * time.Second,
//		Duration:    2 * time.Minute,
//		Requester:   myRequester,
//		Sink:        csvSink,
//	})
//	result, err := r.Run(ctx)
//
// # Requester Interface
//
// A [Requester] executes one attempt and returns the HTTP status code; an
// error without a usable status marks a transport-level failure. Failures
// never terminate a worker; they become samples carrying the sentinel
// status. Wrap a
// requester with [WithLogging] to surface each failure on stderr.
//
// # Shutdown
//
// When the measured window elapses the runner cancels the shared context,
// waits up to Options.GracePeriod for workers to observe it, discards
// samples that arrived after the window closed, and flushes the final
// partial bucket so no second is silently dropped. A worker that outlives
// the grace period is reported via Result.WorkersStalled rather than
// blocking shutdown.
package runner
