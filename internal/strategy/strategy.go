package strategy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/torosent/loadpulse/internal/httpclient"
)

// Strategy decides what the next request looks like. Each worker owns one
// instance, so implementations keep per-worker cursors without locking.
type Strategy interface {
	Next(ctx context.Context) (*http.Request, error)
}

// Fixed issues the same request every time: method, URL, headers, and body
// template never change between attempts.
type Fixed struct {
	method string
	target string
	header http.Header
	body   httpclient.BodySource
}

// NewFixed validates the request template once and returns a strategy that
// replays it. The body source hands out a fresh reader per attempt.
func NewFixed(method, target string, headers map[string]string, body httpclient.BodySource) (*Fixed, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("target URL is required")
	}

	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	header, err := headerFromMap(headers)
	if err != nil {
		return nil, err
	}

	if body == nil {
		body, err = httpclient.NewBodySource("", "")
		if err != nil {
			return nil, err
		}
	}

	return &Fixed{method: method, target: target, header: header, body: body}, nil
}

func (f *Fixed) Next(ctx context.Context) (*http.Request, error) {
	reader, err := f.body.NewReader()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, f.method, f.target, reader)
	if err != nil {
		_ = reader.Close()
		return nil, err
	}

	for key, values := range f.header {
		for _, val := range values {
			req.Header.Add(key, val)
		}
	}
	if length, ok := f.body.ContentLength(); ok {
		req.ContentLength = length
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return f.body.NewReader()
	}

	return req, nil
}

// headerFromMap canonicalizes header keys and rejects values that could
// smuggle extra header lines.
func headerFromMap(headers map[string]string) (http.Header, error) {
	result := http.Header{}
	for key, value := range headers {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" || strings.ContainsAny(trimmed, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonical := http.CanonicalHeaderKey(trimmed)
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonical)
		}
		result.Set(canonical, value)
	}
	return result, nil
}
