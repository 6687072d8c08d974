package notify

import (
	"errors"
	"math"
	"time"
)

// Policy defines the bounded retry behavior for outbound deliveries.
type Policy struct {
	MaxRetries        int           `mapstructure:"max_retries"`        // retries after the first attempt (0 = no retries)
	InitialDelay      time.Duration `mapstructure:"initial_delay"`      // delay before the first retry
	MaxDelay          time.Duration `mapstructure:"max_delay"`          // cap on the backoff growth
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"` // e.g. 2.0
}

// DefaultPolicy returns the default delivery retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:        3,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// CalculateDelay returns the wait before the next retry, using
// exponential backoff capped at MaxDelay.
func (p *Policy) CalculateDelay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return p.InitialDelay
	}
	delay := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(retryCount))
	if time.Duration(delay) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// ShouldRetry reports whether another attempt is allowed after
// retryCount failed retries.
func (p *Policy) ShouldRetry(retryCount int) bool {
	return retryCount < p.MaxRetries
}

// Validate checks the policy configuration.
func (p *Policy) Validate() error {
	if p.MaxRetries < 0 {
		return errors.New("max_retries must be non-negative")
	}
	if p.InitialDelay <= 0 {
		return errors.New("initial_delay must be positive")
	}
	if p.MaxDelay <= 0 {
		return errors.New("max_delay must be positive")
	}
	if p.BackoffMultiplier <= 0 {
		return errors.New("backoff_multiplier must be positive")
	}
	if p.InitialDelay > p.MaxDelay {
		return errors.New("initial_delay cannot be greater than max_delay")
	}
	return nil
}
