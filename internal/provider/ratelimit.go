// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/book-enricher/pkg/types"
)

// Limiter paces calls to one provider. The minimum inter-call delay is
// enforced by reserving the next free slot with a compare-and-swap, so
// concurrent callers never hold a lock while they wait or while the
// provider call runs. A token bucket enforces MaxRequests per Window.
type Limiter struct {
	delay  time.Duration
	next   atomic.Int64 // unix nanos of the next free slot
	window *rate.Limiter
}

// NewLimiter builds a Limiter from a provider's rate-limit settings.
// Zero values disable the corresponding constraint.
func NewLimiter(cfg types.RateLimitConfig) *Limiter {
	l := &Limiter{delay: cfg.RequestDelay}
	if cfg.MaxRequests > 0 && cfg.Window > 0 {
		l.window = rate.NewLimiter(rate.Every(cfg.Window/time.Duration(cfg.MaxRequests)), cfg.MaxRequests)
	}
	return l
}

// Wait blocks until the caller may issue its request or ctx ends.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.window != nil {
		if err := l.window.Wait(ctx); err != nil {
			return err
		}
	}
	if l.delay <= 0 {
		return nil
	}

	var slot, now int64
	for {
		now = time.Now().UnixNano()
		prev := l.next.Load()
		slot = max(prev, now)
		if l.next.CompareAndSwap(prev, slot+int64(l.delay)) {
			break
		}
	}

	wait := time.Duration(slot - now)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Limiters hands out one Limiter per provider name, shared by every
// enrichment operation in the process.
type Limiters struct {
	m sync.Map
}

// NewLimiters returns an empty registry.
func NewLimiters() *Limiters {
	return &Limiters{}
}

// For returns the Limiter for p, creating it from p.RateLimit() on first use.
func (r *Limiters) For(p Provider) *Limiter {
	if l, ok := r.m.Load(p.Name()); ok {
		return l.(*Limiter)
	}
	l, _ := r.m.LoadOrStore(p.Name(), NewLimiter(p.RateLimit()))
	return l.(*Limiter)
}
