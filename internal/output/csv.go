package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/gofrs/flock"

	"github.com/torosent/loadpulse/internal/metrics"
)

var csvHeader = []string{"ts", "rps", "avg_ms", "p50_ms", "p95_ms", "ok", "err"}

// CSVSink writes one row per second to a CSV file, flushing after every row
// so a killed process leaves a truncated but valid prefix. The file carries
// an advisory lock for the lifetime of the sink; a second run pointed at the
// same path fails at startup instead of interleaving rows.
type CSVSink struct {
	file *os.File
	w    *csv.Writer
	lock *flock.Flock
	rows int64
}

// NewCSVSink creates (truncating) the output file, acquires its lock, and
// writes the header row.
func NewCSVSink(path string) (*CSVSink, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock output file: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("output file %s is locked by another run", path)
	}

	file, err := os.Create(path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open output file: %w", err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(csvHeader); err != nil {
		_ = file.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = file.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("flush header: %w", err)
	}

	return &CSVSink{file: file, w: w, lock: lock}, nil
}

// WriteRow appends one per-second row. Latency columns are empty strings
// when the second saw no requests, by design: downstream plots rely on a
// gap-free series where idle seconds are visible.
func (s *CSVSink) WriteRow(row metrics.Row) error {
	record := []string{
		strconv.FormatInt(row.Second, 10),
		strconv.Itoa(row.Count),
		"", "", "",
		strconv.Itoa(row.OK),
		strconv.Itoa(row.Err),
	}
	if row.Count > 0 {
		record[2] = strconv.FormatFloat(row.AvgMs, 'f', 3, 64)
		record[3] = strconv.FormatFloat(row.P50Ms, 'f', 3, 64)
		record[4] = strconv.FormatFloat(row.P95Ms, 'f', 3, 64)
	}

	if err := s.w.Write(record); err != nil {
		return fmt.Errorf("write row for ts=%d: %w", row.Second, err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("flush row for ts=%d: %w", row.Second, err)
	}
	s.rows++
	return nil
}

// Rows returns the number of data rows written so far.
func (s *CSVSink) Rows() int64 { return s.rows }

// Close flushes, releases the lock, and closes the file.
func (s *CSVSink) Close() error {
	s.w.Flush()
	flushErr := s.w.Error()
	unlockErr := s.lock.Unlock()
	closeErr := s.file.Close()
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return closeErr
	}
	return unlockErr
}

// DiscardSink implements metrics.RowSink without writing anything. Used for
// no-save runs where only the final report matters.
type DiscardSink struct{}

func (DiscardSink) WriteRow(metrics.Row) error { return nil }
