package httpclient

import (
	"net"
	"net/http"
	"time"
)

// NewClient builds an HTTP client tuned for sustained load generation. The
// idle pool is sized so a few hundred workers can reuse connections instead
// of re-dialing every attempt, and the per-request timeout covers the whole
// exchange including body transfer.
func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          512,
		MaxIdleConnsPerHost:   256,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		// Measure raw transfer, not target-side compression.
		DisableCompression: true,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
