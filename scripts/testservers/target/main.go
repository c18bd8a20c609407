// Command target runs a local HTTP server to exercise loadpulse by hand:
// a range-capable blob for range mode, a JSON status endpoint for
// --expect-json, and a flaky endpoint for failure-rate runs.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"
)

func main() {
	port := flag.Int("port", 8080, "Listening port")
	size := flag.Int64("size", 64<<20, "Blob size in bytes")
	latency := flag.Duration("latency", 0, "Base delay added to every response")
	jitter := flag.Duration("jitter", 0, "Max random delay added on top of the base")
	failRate := flag.Float64("fail-rate", 0, "Fraction of /flaky requests answered with 503")
	flag.Parse()

	blob := makeBlob(*size)
	modified := time.Now()
	var degraded atomic.Bool

	delay := func() {
		if *latency > 0 {
			time.Sleep(*latency)
		}
		if *jitter > 0 {
			time.Sleep(time.Duration(rand.Int63n(int64(*jitter))))
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/blob", func(w http.ResponseWriter, r *http.Request) {
		delay()
		// ServeContent handles HEAD, Range and Content-Range.
		http.ServeContent(w, r, "blob.bin", modified, bytes.NewReader(blob))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		delay()
		status := "ok"
		if degraded.Load() {
			status = "degraded"
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"status": status,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/degrade", func(w http.ResponseWriter, r *http.Request) {
		degraded.Store(!degraded.Load())
		respondJSON(w, http.StatusOK, map[string]any{"degraded": degraded.Load()})
	})
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		delay()
		if *failRate > 0 && rand.Float64() < *failRate {
			http.Error(w, "injected failure", http.StatusServiceUnavailable)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		delay()
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "path": r.URL.Path})
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("test target listening on %s (blob %d bytes)", addr, *size)
	log.Fatal(http.ListenAndServe(addr, mux))
}

// makeBlob fills the blob with a deterministic pattern so interrupted
// transfers are distinguishable from corrupt ones.
func makeBlob(size int64) []byte {
	blob := make([]byte, size)
	rnd := rand.New(rand.NewSource(1))
	rnd.Read(blob)
	return blob
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
