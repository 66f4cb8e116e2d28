package services

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Default rate limits per upstream (requests per second).
var defaultRateLimits = map[ProviderName]rate.Limit{
	NameSpotify:     10,
	NameLastFM:      5,
	NameSuggestions: 2,
}

// RateLimiterMap holds one [rate.Limiter] per upstream, created once at startup.
type RateLimiterMap struct {
	mu       sync.RWMutex
	limiters map[ProviderName]*rate.Limiter
}

// NewRateLimiterMap creates limiters from the defaults, replacing any entry in overrides with a positive value.
func NewRateLimiterMap(overrides map[ProviderName]int) *RateLimiterMap {
	m := &RateLimiterMap{limiters: make(map[ProviderName]*rate.Limiter, len(defaultRateLimits))}
	for name, limit := range defaultRateLimits {
		m.limiters[name] = rate.NewLimiter(limit, 1)
	}
	for name, rps := range overrides {
		if rps > 0 {
			m.limiters[name] = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
	return m
}

// Wait blocks until the limiter for name allows a request, or ctx is canceled.
// Unknown names and a nil map never block.
func (m *RateLimiterMap) Wait(ctx context.Context, name ProviderName) error {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}

// SetLimit replaces the limit for name.
func (m *RateLimiterMap) SetLimit(name ProviderName, rps float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[name] = rate.NewLimiter(rate.Limit(rps), 1)
}
