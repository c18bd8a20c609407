package output_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/torosent/loadpulse/internal/metrics"
	"github.com/torosent/loadpulse/internal/output"
)

func TestCSVSinkRowSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "load_timeseries.csv")
	sink, err := output.NewCSVSink(path)
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}

	rows := []metrics.Row{
		{Second: 100, Count: 3, AvgMs: 343, P50Ms: 20, P95Ms: 999, OK: 2, Err: 1},
		{Second: 101},
		{Second: 102, Count: 1, AvgMs: 5, P50Ms: 5, P95Ms: 5, OK: 1},
	}
	for _, row := range rows {
		if err := sink.WriteRow(row); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}
	if sink.Rows() != 3 {
		t.Errorf("Rows() = %d, want 3", sink.Rows())
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}

	if got := strings.Join(records[0], ","); got != "ts,rps,avg_ms,p50_ms,p95_ms,ok,err" {
		t.Fatalf("header = %q", got)
	}
	want := [][]string{
		{"100", "3", "343.000", "20.000", "999.000", "2", "1"},
		{"101", "0", "", "", "", "0", "0"},
		{"102", "1", "5.000", "5.000", "5.000", "1", "0"},
	}
	if len(records) != len(want)+1 {
		t.Fatalf("expected %d records, got %d", len(want)+1, len(records))
	}
	for i, expected := range want {
		got := records[i+1]
		for j := range expected {
			if got[j] != expected[j] {
				t.Errorf("record %d field %d: got %q, want %q", i, j, got[j], expected[j])
			}
		}
	}
}

// TestCSVSinkFlushedPerRow kills nothing, but verifies each row is on disk
// immediately after WriteRow returns, which is what makes a killed process
// leave a valid prefix.
func TestCSVSinkFlushedPerRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	sink, err := output.NewCSVSink(path)
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	if err := sink.WriteRow(metrics.Row{Second: 7, Count: 1, AvgMs: 1, P50Ms: 1, P95Ms: 1, OK: 1}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\n7,1,") {
		t.Fatalf("row not flushed to disk: %q", data)
	}
}

func TestCSVSinkRejectsConcurrentRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	first, err := output.NewCSVSink(path)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()

	if _, err := output.NewCSVSink(path); err == nil {
		t.Fatal("expected second sink on the same path to fail")
	}
}

func TestCSVSinkReleaseLockOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	first, err := output.NewCSVSink(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := output.NewCSVSink(path)
	if err != nil {
		t.Fatalf("expected lock released after close: %v", err)
	}
	second.Close()
}

func TestCSVSinkBadPath(t *testing.T) {
	if _, err := output.NewCSVSink(filepath.Join(t.TempDir(), "missing", "dir", "out.csv")); err == nil {
		t.Fatal("expected error for unwritable path")
	}
}

func TestDiscardSink(t *testing.T) {
	var sink output.DiscardSink
	if err := sink.WriteRow(metrics.Row{Second: 1, Count: 5}); err != nil {
		t.Fatalf("discard sink should never fail: %v", err)
	}
}
