package strategy_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/torosent/loadpulse/internal/httpclient"
	"github.com/torosent/loadpulse/internal/strategy"
)

func TestFixedBuildsSameRequestEveryTime(t *testing.T) {
	body, err := httpclient.NewBodySource(`{"codec":"av1"}`, "")
	if err != nil {
		t.Fatal(err)
	}
	fixed, err := strategy.NewFixed("post", "http://example.com/encode", map[string]string{"content-type": "application/json"}, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 3; i++ {
		req, err := fixed.Next(context.Background())
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		if req.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", req.Method)
		}
		if req.URL.String() != "http://example.com/encode" {
			t.Errorf("url = %s", req.URL)
		}
		if got := req.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type = %q", got)
		}
		data, _ := io.ReadAll(req.Body)
		req.Body.Close()
		if string(data) != `{"codec":"av1"}` {
			t.Errorf("body = %q", data)
		}
		if req.ContentLength != int64(len(`{"codec":"av1"}`)) {
			t.Errorf("content length = %d", req.ContentLength)
		}
	}
}

func TestFixedDefaultsToGET(t *testing.T) {
	fixed, err := strategy.NewFixed("", "http://example.com/", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, err := fixed.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if req.Method != http.MethodGet {
		t.Errorf("method = %s, want GET", req.Method)
	}
}

func TestFixedValidation(t *testing.T) {
	if _, err := strategy.NewFixed("GET", "", nil, nil); err == nil {
		t.Error("expected error for missing target")
	}
	if _, err := strategy.NewFixed("GET", "http://x", map[string]string{"bad\r\nkey": "v"}, nil); err == nil {
		t.Error("expected error for header key with CRLF")
	}
	if _, err := strategy.NewFixed("GET", "http://x", map[string]string{"X-Ok": "bad\r\nvalue"}, nil); err == nil {
		t.Error("expected error for header value with CRLF")
	}
}
