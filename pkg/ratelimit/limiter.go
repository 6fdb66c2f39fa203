// pkg/ratelimit/limiter.go
// Token bucket limiter shared by scan workers

package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter wraps golang.org/x/time/rate with statistics. A nil *Limiter
// never blocks.
type Limiter struct {
	limiter *rate.Limiter

	mu    sync.Mutex
	stats Stats
}

// Stats contains rate limiter statistics
type Stats struct {
	Allowed  int64
	Rejected int64 // waits aborted by context
	Rate     float64
}

// Config holds rate limiter configuration
type Config struct {
	Rate  int // probes per second, <= 0 means unlimited
	Burst int // defaults to Rate
}

// New creates a new rate limiter
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.Rate)
	if cfg.Rate <= 0 {
		r = rate.Inf
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.Rate
	}
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(r, burst),
		stats:   Stats{Rate: float64(r)},
	}
}

// Wait blocks until a token is available or ctx is done
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}

	err := l.limiter.Wait(ctx)

	l.mu.Lock()
	if err != nil {
		l.stats.Rejected++
	} else {
		l.stats.Allowed++
	}
	l.mu.Unlock()

	return err
}

// Stats returns a copy of the current statistics
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}
