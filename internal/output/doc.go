// Package output handles every sink loadpulse writes to: the per-second CSV
// series, the YAML run manifest, the live progress line, and the final
// console/JSON report.
//
// [CSVSink] is the primary artifact. It holds an advisory file lock for the
// duration of the run and flushes after every row, so concurrent runs on the
// same path fail fast and an interrupted run still leaves a parseable
// prefix. Row schema: ts,rps,avg_ms,p50_ms,p95_ms,ok,err with latency
// columns empty for idle seconds.
package output
