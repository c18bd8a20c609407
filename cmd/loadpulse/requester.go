package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/loadpulse/internal/check"
	"github.com/torosent/loadpulse/internal/metrics"
	"github.com/torosent/loadpulse/internal/runner"
	"github.com/torosent/loadpulse/internal/strategy"
	"github.com/torosent/loadpulse/internal/tracing"
)

const maxLoggedBodyBytes = 1024

// strategyPool hands each in-flight request a private strategy instance.
// Range cursors are stateful, so a cursor is checked out for the duration
// of one attempt and returned afterwards.
type strategyPool struct {
	ch chan strategy.Strategy
}

func newStrategyPool(strategies []strategy.Strategy) *strategyPool {
	ch := make(chan strategy.Strategy, len(strategies))
	for _, s := range strategies {
		ch <- s
	}
	return &strategyPool{ch: ch}
}

func (p *strategyPool) acquire() strategy.Strategy {
	return <-p.ch
}

func (p *strategyPool) release(s strategy.Strategy) {
	p.ch <- s
}

type httpRequester struct {
	client     *http.Client
	strategies *strategyPool
	collector  *metrics.Collector
	check      *check.JSONCheck
	tracer     trace.Tracer // nil when tracing is off
	propagate  bool
}

// Do issues one request. Latency covers the full exchange including body
// transfer, matching what the worker measures for the per-second series.
func (r *httpRequester) Do(ctx context.Context) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	strat := r.strategies.acquire()
	defer r.strategies.release(strat)

	start := time.Now()
	req, err := strat.Next(ctx)
	if err != nil {
		r.collector.RecordRequest(time.Since(start), err)
		return 0, err
	}

	var span trace.Span
	if r.tracer != nil {
		var spanCtx context.Context
		spanCtx, span = tracing.StartRequestSpan(ctx, r.tracer, req.Method, req.URL.String())
		req = req.WithContext(spanCtx)
		if r.propagate {
			tracing.InjectHTTPHeaders(spanCtx, req.Header)
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		latency := time.Since(start)
		r.collector.RecordRequest(latency, err)
		if span != nil {
			tracing.EndSpan(span, err, tracing.ResponseAttributes(0, toMillis(latency))...)
		}
		return 0, err
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	var resultErr error
	switch {
	case status < 200 || status >= 300:
		snippet, readErr := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBodyBytes))
		if readErr != nil {
			resultErr = readErr
		} else {
			resultErr = &runner.HTTPError{
				StatusCode: status,
				Body:       strings.TrimSpace(string(snippet)),
			}
		}
		_, _ = io.Copy(io.Discard, resp.Body)
	case r.check != nil:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			resultErr = readErr
		} else {
			resultErr = r.check.Evaluate(body)
		}
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	latency := time.Since(start)
	r.collector.RecordRequest(latency, resultErr)
	if span != nil {
		tracing.EndSpan(span, resultErr, tracing.ResponseAttributes(status, toMillis(latency))...)
	}

	if resultErr != nil {
		var httpErr *runner.HTTPError
		if errors.As(resultErr, &httpErr) {
			// Error-range responses keep their real status in the series.
			return status, resultErr
		}
		// Read and check failures lose the response; classify as sentinel.
		return 0, resultErr
	}
	return status, nil
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
