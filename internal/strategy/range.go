package strategy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RangeCursor simulates a streaming media player: it requests sequential
// byte ranges from a known-size resource, occasionally seeking to a random
// position. With an unknown resource size it degrades to plain full GETs,
// which still produces load even against targets without range support.
type RangeCursor struct {
	target   string
	header   http.Header
	total    int64 // 0 means unknown, fall back to unranged GETs
	chunk    int64
	seekProb float64
	offset   int64
	rnd      *rand.Rand
}

// NewRangeCursor builds a range-cursor strategy. total is the resource size
// in bytes (0 disables ranging), start is the initial byte offset (negative
// picks a random one). rnd must be owned exclusively by this strategy.
func NewRangeCursor(target string, headers map[string]string, total, chunkSize int64, seekProb float64, start int64, rnd *rand.Rand) (*RangeCursor, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("target URL is required")
	}
	if total > 0 && chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if seekProb < 0 || seekProb > 1 {
		return nil, fmt.Errorf("seek probability must be in [0, 1], got %g", seekProb)
	}

	header, err := headerFromMap(headers)
	if err != nil {
		return nil, err
	}

	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	c := &RangeCursor{
		target:   target,
		header:   header,
		total:    total,
		chunk:    chunkSize,
		seekProb: seekProb,
		rnd:      rnd,
	}
	if total > 0 {
		if start >= 0 && start < total {
			c.offset = start
		} else {
			c.offset = rnd.Int63n(total)
		}
	}
	return c, nil
}

func (c *RangeCursor) Next(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.target, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range c.header {
		for _, val := range values {
			req.Header.Add(key, val)
		}
	}

	if c.total <= 0 {
		return req, nil
	}

	// Cursor past the end forces a reseed before building the range.
	if c.offset >= c.total {
		c.offset = c.rnd.Int63n(c.total)
	}
	if c.seekProb > 0 && c.rnd.Float64() < c.seekProb {
		c.offset = c.rnd.Int63n(c.total)
	}

	start := c.offset
	end := start + c.chunk - 1
	if end > c.total-1 {
		end = c.total - 1
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

	// Advance for the next call: continue sequentially unless this chunk
	// reached the end of the resource or the next call seeks anyway.
	if end < c.total-1 && c.rnd.Float64() >= c.seekProb {
		c.offset = end + 1
	} else {
		c.offset = c.rnd.Int63n(c.total)
	}

	return req, nil
}

// DiscoverSize probes the target for its total size in bytes: first a HEAD
// request, then a one-byte range GET whose Content-Range carries the total.
// A zero return means the size could not be determined and callers should
// run the strategy in unranged fallback mode.
func DiscoverSize(ctx context.Context, client *http.Client, target string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return 0, err
	}
	if resp, err := client.Do(req); err == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusOK && resp.ContentLength > 0 {
			return resp.ContentLength, nil
		}
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", "bytes=0-0")
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("size probe: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	total := parseContentRangeTotal(resp.Header.Get("Content-Range"))
	if total <= 0 {
		return 0, fmt.Errorf("size probe: no usable Content-Range in %q", resp.Header.Get("Content-Range"))
	}
	return total, nil
}

// parseContentRangeTotal extracts the total from "bytes start-end/total".
func parseContentRangeTotal(value string) int64 {
	idx := strings.LastIndex(value, "/")
	if idx == -1 {
		return 0
	}
	total, err := strconv.ParseInt(strings.TrimSpace(value[idx+1:]), 10, 64)
	if err != nil {
		return 0
	}
	return total
}
