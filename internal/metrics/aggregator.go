package metrics

import "sort"

// Aggregator folds Samples into fixed one-second buckets and emits one Row
// per elapsed second, including empty seconds, in strictly increasing order.
//
// It is deliberately not safe for concurrent use: the design gives it a
// single reader (the run controller's aggregation loop), so all bucket
// bookkeeping is plain sequential code.
type Aggregator struct {
	sink RowSink

	started bool
	current int64 // second the open bucket accumulates into

	lats []float64
	ok   int
	err  int

	rows int64
	late int64
}

// NewAggregator creates an Aggregator writing rows to sink. The first bucket
// opens at startSec; pass 0 to open lazily at the first sample's second.
func NewAggregator(sink RowSink, startSec int64) *Aggregator {
	a := &Aggregator{sink: sink}
	if startSec > 0 {
		a.started = true
		a.current = startSec
	}
	return a
}

// Observe folds one sample into the open bucket, flushing buckets for any
// seconds the sample's timestamp has skipped past. A sample older than the
// open bucket arrives after its row was already emitted; it is dropped and
// counted rather than misattributed to the wrong second.
func (a *Aggregator) Observe(s Sample) error {
	if !a.started {
		a.started = true
		a.current = s.ObservedAt
	}

	switch {
	case s.ObservedAt < a.current:
		a.late++
		return nil
	case s.ObservedAt > a.current:
		if err := a.AdvanceTo(s.ObservedAt); err != nil {
			return err
		}
	}

	a.lats = append(a.lats, s.LatencyMs)
	if s.OK() {
		a.ok++
	} else {
		a.err++
	}
	return nil
}

// AdvanceTo flushes buckets until the open bucket's second equals sec.
// The controller calls this on poll timeouts so the series stays gap-free
// when no traffic arrives at all.
func (a *Aggregator) AdvanceTo(sec int64) error {
	if !a.started {
		a.started = true
		a.current = sec
		return nil
	}
	for a.current < sec {
		if err := a.flushOpen(); err != nil {
			return err
		}
		a.current++
	}
	return nil
}

// Flush emits the open bucket as a final partial row. Call exactly once,
// after the sample channel has been drained.
func (a *Aggregator) Flush() error {
	if !a.started {
		return nil
	}
	return a.flushOpen()
}

func (a *Aggregator) flushOpen() error {
	row := Row{Second: a.current, Count: len(a.lats), OK: a.ok, Err: a.err}
	if row.Count > 0 {
		sort.Float64s(a.lats)
		var sum float64
		for _, v := range a.lats {
			sum += v
		}
		row.AvgMs = sum / float64(row.Count)
		row.P50Ms = nearestRank(a.lats, 0.50)
		row.P95Ms = nearestRank(a.lats, 0.95)
	}

	if err := a.sink.WriteRow(row); err != nil {
		return err
	}
	a.rows++
	a.lats = a.lats[:0]
	a.ok, a.err = 0, 0
	return nil
}

// Rows returns how many rows have been emitted so far.
func (a *Aggregator) Rows() int64 { return a.rows }

// LateDropped returns how many samples arrived after their bucket was
// already flushed and were therefore discarded.
func (a *Aggregator) LateDropped() int64 { return a.late }
