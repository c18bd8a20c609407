package runner

import (
	"context"
	"fmt"
)

// HTTPError represents a non-2xx HTTP response with status details. It is
// returned by requesters that want error-range responses surfaced in the
// run-level error breakdown; the per-second series classifies by status
// code regardless.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// FailureLogger logs failed requests.
type FailureLogger interface {
	LogFailure(err error)
}

// loggingRequester wraps a Requester with failure logging.
type loggingRequester struct {
	inner  Requester
	logger FailureLogger
}

// WithLogging wraps a Requester to log failures.
func WithLogging(req Requester, logger FailureLogger) Requester {
	if logger == nil {
		return req
	}
	return &loggingRequester{
		inner:  req,
		logger: logger,
	}
}

func (l *loggingRequester) Do(ctx context.Context) (int, error) {
	status, err := l.inner.Do(ctx)
	if err != nil {
		l.logger.LogFailure(err)
	}
	return status, err
}
