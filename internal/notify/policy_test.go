package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_CalculateDelay(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, 500*time.Millisecond, p.CalculateDelay(0))
	assert.Equal(t, 1*time.Second, p.CalculateDelay(1))
	assert.Equal(t, 2*time.Second, p.CalculateDelay(2))

	// The backoff is capped at MaxDelay.
	assert.Equal(t, 10*time.Second, p.CalculateDelay(10))
}

func TestPolicy_ShouldRetry(t *testing.T) {
	p := Policy{MaxRetries: 3}
	assert.True(t, p.ShouldRetry(0))
	assert.True(t, p.ShouldRetry(2))
	assert.False(t, p.ShouldRetry(3))

	none := Policy{MaxRetries: 0}
	assert.False(t, none.ShouldRetry(0))
}

func TestPolicy_Validate(t *testing.T) {
	valid := DefaultPolicy()
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"negative max_retries", func(p *Policy) { p.MaxRetries = -1 }},
		{"zero initial_delay", func(p *Policy) { p.InitialDelay = 0 }},
		{"zero max_delay", func(p *Policy) { p.MaxDelay = 0 }},
		{"zero multiplier", func(p *Policy) { p.BackoffMultiplier = 0 }},
		{"initial exceeds max", func(p *Policy) { p.InitialDelay = time.Minute }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}
