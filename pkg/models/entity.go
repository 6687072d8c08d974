// Package models defines the domain models for the workflow hub.
package models

import (
	"time"
)

// Entity is a business record moving through a workflow. Its state is
// mutated only by the entity state controller; the version number backs
// the optimistic concurrency check on every write.
type Entity struct {
	ID           string         `json:"id" db:"id"`
	WorkflowType string         `json:"workflow_type" db:"workflow_type"`
	State        string         `json:"state" db:"state"`
	Version      int64          `json:"version" db:"version"`
	Payload      map[string]any `json:"payload,omitempty" db:"payload"` // JSONB
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// Actor is a verified caller identity. Actors are resolved by the auth
// middleware before any request reaches the transition validator; the
// core never constructs one from unauthenticated claims.
type Actor struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles,omitempty"`
}

// HasRole reports whether the actor carries the given role.
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}
