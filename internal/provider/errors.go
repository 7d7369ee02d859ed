// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors provider clients return (possibly wrapped) to steer
// classification without an HTTP status.
var (
	ErrThrottled        = errors.New("provider throttled the request")
	ErrMalformedRequest = errors.New("malformed provider request")
	ErrRequestTimeout   = errors.New("provider request timed out")
)

// StatusError carries the HTTP-level outcome of a failed provider call.
// RetryAfter is the server's requested wait, zero when absent.
type StatusError struct {
	Provider   string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Provider, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Class is the retry disposition of a provider error.
type Class int

const (
	// Retryable errors are transient: network failures, 5xx, throttling.
	Retryable Class = iota
	// Fatal errors are permanent: malformed requests and 4xx other than
	// throttling. They are not retried.
	Fatal
)

func (c Class) String() string {
	if c == Fatal {
		return "fatal"
	}
	return "retryable"
}

// Classify decides whether err is worth retrying. Caller cancellation is
// fatal; errors that match no rule are treated as transient.
func Classify(err error) Class {
	if err == nil {
		return Retryable
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrMalformedRequest) {
		return Fatal
	}
	if errors.Is(err, ErrThrottled) || errors.Is(err, ErrRequestTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return Retryable
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusTooManyRequests,
			se.StatusCode == http.StatusRequestTimeout,
			se.StatusCode >= 500:
			return Retryable
		case se.StatusCode >= 400:
			return Fatal
		}
	}

	// Network errors (net.Error) and anything unrecognized are transient.
	return Retryable
}

// retryAfter extracts a server-requested wait from err, if any.
func retryAfter(err error) time.Duration {
	var se *StatusError
	if errors.As(err, &se) {
		return se.RetryAfter
	}
	return 0
}
