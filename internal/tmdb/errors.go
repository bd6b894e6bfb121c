package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable means the catalog failed, timed out or is shedding load.
	ErrUnavailable = errors.New("catalog unavailable")
	// ErrRateLimited means the catalog kept answering 429 after retrying.
	ErrRateLimited = errors.New("catalog rate limited")
	// ErrNotFound means the catalog has no such resource.
	ErrNotFound = errors.New("catalog resource not found")
)

// APIError is a non-200 answer from the catalog.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("TMDB %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrUnavailable
	}
}

// countsAsFailure reports whether err should move the circuit breaker
// toward open. Client-side problems (404, bad request, cancellation) do not.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}
