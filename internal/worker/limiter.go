package worker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ppiankov/factlens/internal/util"
)

// Limiter implements per-domain rate limiting for page fetches.
// Domains are normalized, so www.a.com and a.com share one limiter.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter. A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until the URL's domain may be requested again
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	domain, err := util.NormalizeDomain(rawURL)
	if err != nil {
		return err
	}
	return l.getLimiter(domain).Wait(ctx)
}

// getLimiter returns the rate limiter for a domain
func (l *Limiter) getLimiter(domain string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[domain]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[domain]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[domain] = limiter

	return limiter
}

// ApplyCrawlDelay slows a domain down to one request per delay.
// It never speeds a domain up past the configured default.
func (l *Limiter) ApplyCrawlDelay(rawURL string, delay time.Duration) {
	if delay <= 0 {
		return
	}
	domain, err := util.NormalizeDomain(rawURL)
	if err != nil {
		return
	}

	limiter := l.getLimiter(domain)
	slower := rate.Every(delay)
	if slower < limiter.Limit() {
		limiter.SetLimit(slower)
		limiter.SetBurst(1)
	}
}

// Rate returns the current limit for a URL's domain
func (l *Limiter) Rate(rawURL string) rate.Limit {
	domain, err := util.NormalizeDomain(rawURL)
	if err != nil {
		return l.defaultRate
	}
	return l.getLimiter(domain).Limit()
}
