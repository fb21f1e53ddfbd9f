package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ppiankov/kgcurator/internal/model"
)

// Limiter throttles calls per key, one token bucket per collaborator
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter. A non-positive rate disables
// throttling.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limitFor(requestsPerSecond),
		defaultBurst: burst,
	}
}

// NewLimiterFor creates a limiter from configuration, including the
// per-collaborator overrides
func NewLimiterFor(cfg model.RateLimitingConfig) *Limiter {
	l := NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize)
	for key, r := range cfg.PerCollaborator {
		l.SetRate(key, r.RequestsPerSecond, r.BurstSize)
	}
	return l
}

// Wait blocks until key may make another call or ctx is done
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.getLimiter(key).Wait(ctx)
}

// getLimiter returns the bucket for key, creating it on first use
func (l *Limiter) getLimiter(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[key]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[key] = limiter

	return limiter
}

// SetRate sets a custom rate limit for one key
func (l *Limiter) SetRate(key string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[key] = rate.NewLimiter(limitFor(requestsPerSecond), burst)
}

func limitFor(requestsPerSecond float64) rate.Limit {
	if requestsPerSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(requestsPerSecond)
}
