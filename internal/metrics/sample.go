package metrics

// StatusTransportFailure is the sentinel status recorded when a request did
// not complete at the HTTP level: connection refused, timeout, protocol error.
const StatusTransportFailure = -1

// Sample is one request's observed outcome. Workers produce exactly one
// Sample per attempt and hand it to the aggregator through a channel;
// it is never mutated after creation.
type Sample struct {
	ObservedAt int64   // wall-clock second at completion time
	LatencyMs  float64 // full request duration including body transfer
	Status     int     // HTTP status code or StatusTransportFailure
}

// OK reports whether the sample counts as a success (2xx response).
func (s Sample) OK() bool {
	return s.Status >= 200 && s.Status < 300
}

// Row is the finalized statistics line for one wall-clock second.
// When Count is zero the latency fields carry no meaning and sinks must
// render them empty rather than as zeros.
type Row struct {
	Second int64
	Count  int
	AvgMs  float64
	P50Ms  float64
	P95Ms  float64
	OK     int
	Err    int
}

// RowSink receives finalized rows in strictly increasing Second order.
type RowSink interface {
	WriteRow(Row) error
}
