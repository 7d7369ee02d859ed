// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/pdiddy/book-enricher/pkg/types"
)

// RetryBaseDelay is the backoff base used when the retry config leaves
// BaseDelay unset. Tests override this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

const (
	defaultMaxAttempts = 3
	defaultMaxDelay    = 10 * time.Second
)

// Status tells whether a call produced an answer.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
)

// Result is the outcome of one wrapped provider call. A degraded result
// carries no records and lists the errors that caused the degradation;
// an ok result may still list causes from attempts that were retried.
type Result struct {
	Provider  string                 `json:"provider" yaml:"provider"`
	Operation Operation              `json:"operation" yaml:"operation"`
	Status    Status                 `json:"status" yaml:"status"`
	Records   []types.MetadataRecord `json:"records,omitempty" yaml:"records,omitempty"`
	Causes    []error                `json:"-" yaml:"-"`
	Attempts  int                    `json:"attempts" yaml:"attempts"`
	Latency   time.Duration          `json:"latency" yaml:"latency"`
}

// Degraded reports whether the provider failed to answer.
func (r Result) Degraded() bool { return r.Status == StatusDegraded }

// Err joins the recorded causes, nil when there are none.
func (r Result) Err() error { return errors.Join(r.Causes...) }

// Wrapper invokes providers with rate limiting, per-request and
// per-operation timeouts, and retry with exponential backoff. It is safe
// for concurrent use; the only state shared between calls is the
// per-provider Limiter and the latency History.
type Wrapper struct {
	retry    types.RetryConfig
	limiters *Limiters
	history  *History
	logger   *slog.Logger
}

// NewWrapper returns a Wrapper. A nil limiters or history gets a fresh
// one; a nil logger uses slog.Default().
func NewWrapper(retry types.RetryConfig, limiters *Limiters, history *History, logger *slog.Logger) *Wrapper {
	if limiters == nil {
		limiters = NewLimiters()
	}
	if history == nil {
		history = NewHistory(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Wrapper{retry: retry, limiters: limiters, history: history, logger: logger}
}

// History returns the latency history the wrapper records into.
func (w *Wrapper) History() *History { return w.history }

// Call runs op against p. Retryable failures are retried with backoff
// BaseDelay*2^(attempt-1), capped at MaxDelay and stretched to any
// server-requested Retry-After, until MaxAttempts is reached or the
// provider's OperationTimeout expires. Fatal failures stop immediately.
// Call never returns an error: failure is a degraded Result.
func (w *Wrapper) Call(ctx context.Context, p Provider, op Operation, q types.Query) Result {
	res := Result{Provider: p.Name(), Operation: op, Status: StatusOK}
	start := time.Now()

	timeouts := p.Timeout()
	opCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeouts.OperationTimeout > 0 {
		opCtx, cancel = context.WithTimeout(ctx, timeouts.OperationTimeout)
	}
	defer cancel()

	limiter := w.limiters.For(p)
	maxAttempts := w.maxAttempts()

retry:
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := limiter.Wait(opCtx); err != nil {
			res.Causes = append(res.Causes, fmt.Errorf("%s: waiting for rate limit: %w", p.Name(), err))
			break retry
		}

		res.Attempts = attempt
		callStart := time.Now()
		records, err := w.attempt(opCtx, p, op, q, timeouts.RequestTimeout)
		if err == nil {
			w.history.Record(p.Name(), time.Since(callStart))
			res.Records = records
			res.Latency = time.Since(start)
			return res
		}

		res.Causes = append(res.Causes, err)
		class := Classify(err)
		w.logger.Warn("provider call failed",
			"provider", p.Name(),
			"operation", string(op),
			"attempt", attempt,
			"class", class.String(),
			"error", err,
		)
		if class == Fatal || attempt == maxAttempts || opCtx.Err() != nil {
			break retry
		}

		backoff := w.backoff(attempt, err)
		timer := time.NewTimer(backoff)
		select {
		case <-opCtx.Done():
			timer.Stop()
			res.Causes = append(res.Causes, fmt.Errorf("%s: operation ended during backoff: %w", p.Name(), opCtx.Err()))
			break retry
		case <-timer.C:
		}
	}

	res.Status = StatusDegraded
	res.Records = nil
	res.Latency = time.Since(start)
	w.logger.Warn("provider degraded",
		"provider", p.Name(),
		"operation", string(op),
		"attempts", res.Attempts,
		"error", res.Err(),
	)
	return res
}

// attempt runs a single provider call bounded by timeout. The call runs in
// its own goroutine so the timeout holds even when the provider ignores
// its context; the buffered channel lets an abandoned call finish without
// blocking.
func (w *Wrapper) attempt(ctx context.Context, p Provider, op Operation, q types.Query, timeout time.Duration) ([]types.MetadataRecord, error) {
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type outcome struct {
		records []types.MetadataRecord
		err     error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("%s: provider panicked: %v", p.Name(), r)}
			}
		}()
		records, err := invoke(callCtx, p, op, q)
		ch <- outcome{records: records, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w after %v: %w", p.Name(), ErrRequestTimeout, timeout, out.err)
		}
		return out.records, out.err
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name(), err)
		}
		return nil, fmt.Errorf("%s: %w after %v", p.Name(), ErrRequestTimeout, timeout)
	}
}

func (w *Wrapper) maxAttempts() int {
	if w.retry.MaxAttempts > 0 {
		return w.retry.MaxAttempts
	}
	return defaultMaxAttempts
}

// backoff returns the wait before the attempt after the given one.
func (w *Wrapper) backoff(attempt int, err error) time.Duration {
	base := w.retry.BaseDelay
	if base <= 0 {
		base = RetryBaseDelay
	}
	maxDelay := w.retry.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	d := time.Duration(math.Pow(2, float64(attempt-1))) * base
	if d > maxDelay {
		d = maxDelay
	}
	if ra := retryAfter(err); ra > d {
		d = ra
	}
	return d
}
