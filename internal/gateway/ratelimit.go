package gateway

import (
	"sync"

	"golang.org/x/time/rate"
)

// limiterPool hands out one token-bucket limiter per (source, caller)
// pair so a noisy caller cannot starve the other callers of a source.
type limiterPool struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rates    map[string]SourceLimit
}

// SourceLimit is the per-source rate limit configuration.
type SourceLimit struct {
	Rate  float64 // sustained events per second
	Burst int
}

func newLimiterPool(rates map[string]SourceLimit) *limiterPool {
	return &limiterPool{
		limiters: make(map[string]*rate.Limiter),
		rates:    rates,
	}
}

// Allow reports whether one more event from (source, caller) fits the
// source's rate limit. Sources without a configured limit are not
// limited.
func (p *limiterPool) Allow(source, caller string) bool {
	limit, ok := p.rates[source]
	if !ok || limit.Rate <= 0 {
		return true
	}

	key := source + "\x00" + caller
	p.mu.Lock()
	l, ok := p.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(limit.Rate), limit.Burst)
		p.limiters[key] = l
	}
	p.mu.Unlock()

	return l.Allow()
}
