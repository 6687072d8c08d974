package models

import (
	"time"
)

// WebhookOutcome classifies an inbound webhook attempt at each gate of
// the ingestion pipeline.
type WebhookOutcome string

const (
	WebhookOutcomeSuccess     WebhookOutcome = "success"
	WebhookOutcomeAuthFailure WebhookOutcome = "authentication_failure"
	WebhookOutcomeRateLimited WebhookOutcome = "rate_limited"
	WebhookOutcomeUnsupported WebhookOutcome = "unsupported_event"
	WebhookOutcomeError       WebhookOutcome = "error"
)

// WebhookLogRecord is written for every inbound webhook attempt,
// authenticated or not. The payload is never stored verbatim; only a
// truncated SHA-256 digest is kept so attempts stay forensically
// traceable without retaining third-party data.
type WebhookLogRecord struct {
	ID            string         `json:"id" db:"id"`
	Source        string         `json:"source" db:"source"`
	EventType     string         `json:"event_type" db:"event_type"`
	Caller        string         `json:"caller" db:"caller"`
	Outcome       WebhookOutcome `json:"outcome" db:"outcome"`
	Detail        *string        `json:"detail,omitempty" db:"detail"`
	PayloadDigest string         `json:"payload_digest" db:"payload_digest"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}
