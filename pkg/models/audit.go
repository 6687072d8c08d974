package models

import (
	"time"
)

// AuditOutcome classifies a transition attempt.
type AuditOutcome string

const (
	AuditOutcomeApplied  AuditOutcome = "applied"
	AuditOutcomeRejected AuditOutcome = "rejected"
)

// AuditRecord is the immutable trace of a single transition attempt.
// Records are append-only; nothing in the process ever updates or
// deletes one.
type AuditRecord struct {
	ID            string       `json:"id" db:"id"`
	EntityID      string       `json:"entity_id" db:"entity_id"`
	WorkflowType  string       `json:"workflow_type" db:"workflow_type"`
	FromState     *string      `json:"from_state,omitempty" db:"from_state"` // nil on the creation path
	ToState       string       `json:"to_state" db:"to_state"`
	Actor         string       `json:"actor" db:"actor"`
	Outcome       AuditOutcome `json:"outcome" db:"outcome"`
	Reason        *string      `json:"reason,omitempty" db:"reason"`
	CorrelationID string       `json:"correlation_id" db:"correlation_id"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}
