// Package metrics provides the streaming per-second latency aggregation and
// run-level metrics collection for loadpulse.
//
// # Aggregator
//
// The [Aggregator] is the core of the tool: a single-consumer state machine
// that folds [Sample] values into one-second buckets and emits one [Row] per
// elapsed second, including empty seconds, so the output is a gap-free time
// series:
//
//	agg := metrics.NewAggregator(sink, time.Now().Unix())
//	agg.Observe(sample)          // fold, flushing skipped seconds first
//	agg.AdvanceTo(nowSec)        // flush empties when no traffic arrives
//	agg.Flush()                  // final partial bucket at shutdown
//
// Buckets live only inside the Aggregator; latency slices are reused between
// seconds so memory stays bounded for arbitrarily long runs. Percentiles are
// nearest-rank over the sorted in-bucket latencies, computed once at flush.
// Samples that arrive after their bucket was flushed are dropped and counted
// via [Aggregator.LateDropped] instead of being folded into the wrong second.
//
// # Collector
//
// The [Collector] aggregates whole-run statistics from all workers using an
// HdrHistogram. It is safe for concurrent use and feeds the live progress
// line and the final report:
//
//	collector := metrics.NewCollector()
//	collector.RecordRequest(latency, err)
//	stats := collector.Stats(elapsed)
package metrics
