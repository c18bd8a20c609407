package strategy_test

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/torosent/loadpulse/internal/strategy"
)

// TestRangeCursorSequentialWalk verifies the cursor walks the resource in
// chunk-size steps, clamps the final chunk, and reseeds instead of running
// past the end.
func TestRangeCursorSequentialWalk(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	cursor, err := strategy.NewRangeCursor("http://example.com/video.mp4", nil, 1000, 300, 0, 0, rnd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"bytes=0-299", "bytes=300-599", "bytes=600-899", "bytes=900-999"}
	for i, expected := range want {
		req, err := cursor.Next(context.Background())
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		if got := req.Header.Get("Range"); got != expected {
			t.Fatalf("request %d: Range = %q, want %q", i, got, expected)
		}
	}

	// After the clamped final chunk the cursor must reseed inside [0, T),
	// never requesting past the end.
	for i := 0; i < 50; i++ {
		req, err := cursor.Next(context.Background())
		if err != nil {
			t.Fatalf("next after wrap: %v", err)
		}
		var start, end int64
		if _, err := fmt.Sscanf(req.Header.Get("Range"), "bytes=%d-%d", &start, &end); err != nil {
			t.Fatalf("bad Range header %q: %v", req.Header.Get("Range"), err)
		}
		if start < 0 || start > 999 || end < start || end > 999 {
			t.Fatalf("range [%d,%d] outside resource bounds", start, end)
		}
	}
}

func TestRangeCursorUnknownSizeFallsBackToPlainGET(t *testing.T) {
	cursor, err := strategy.NewRangeCursor("http://example.com/video.mp4", nil, 0, 0, 0.5, -1, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, err := cursor.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if req.Method != http.MethodGet {
		t.Errorf("method = %s, want GET", req.Method)
	}
	if req.Header.Get("Range") != "" {
		t.Errorf("unexpected Range header %q in fallback mode", req.Header.Get("Range"))
	}
}

func TestRangeCursorSeekStaysInBounds(t *testing.T) {
	cursor, err := strategy.NewRangeCursor("http://example.com/v", nil, 5000, 700, 0.3, -1, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 500; i++ {
		req, err := cursor.Next(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		var start, end int64
		if _, err := fmt.Sscanf(req.Header.Get("Range"), "bytes=%d-%d", &start, &end); err != nil {
			t.Fatalf("bad Range header %q: %v", req.Header.Get("Range"), err)
		}
		if start < 0 || end > 4999 || end < start {
			t.Fatalf("iteration %d: range [%d,%d] out of bounds", i, start, end)
		}
		if end-start+1 > 700 {
			t.Fatalf("iteration %d: chunk larger than configured: [%d,%d]", i, start, end)
		}
	}
}

func TestRangeCursorValidation(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	if _, err := strategy.NewRangeCursor("", nil, 100, 10, 0, -1, rnd); err == nil {
		t.Error("expected error for empty target")
	}
	if _, err := strategy.NewRangeCursor("http://x", nil, 100, 0, 0, -1, rnd); err == nil {
		t.Error("expected error for zero chunk size")
	}
	if _, err := strategy.NewRangeCursor("http://x", nil, 100, 10, 1.5, -1, rnd); err == nil {
		t.Error("expected error for seek probability > 1")
	}
}

func TestDiscoverSizeViaHead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "4096")
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "unexpected", http.StatusBadRequest)
	}))
	defer srv.Close()

	total, err := strategy.DiscoverSize(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 4096 {
		t.Fatalf("total = %d, want 4096", total)
	}
}

func TestDiscoverSizeViaContentRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			// No Content-Length; force the range probe.
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			if r.Header.Get("Range") != "bytes=0-0" {
				http.Error(w, "missing range", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Range", "bytes 0-0/123456")
			w.WriteHeader(http.StatusPartialContent)
			_, _ = w.Write([]byte{0})
		}
	}))
	defer srv.Close()

	total, err := strategy.DiscoverSize(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 123456 {
		t.Fatalf("total = %d, want 123456", total)
	}
}

func TestDiscoverSizeUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK) // no length, no Content-Range
	}))
	defer srv.Close()

	total, err := strategy.DiscoverSize(context.Background(), srv.Client(), srv.URL)
	if err == nil {
		t.Fatal("expected error when size cannot be discovered")
	}
	if total != 0 {
		t.Fatalf("total = %d, want 0", total)
	}
}
