// Package repository defines the storage interfaces for entities and
// the append-only audit and webhook logs, plus their PostgreSQL
// implementations.
package repository

import (
	"context"
	"errors"

	"github.com/atelier-ops/workflow-hub/pkg/models"
)

// ErrEntityNotFound is returned when the requested entity does not exist.
var ErrEntityNotFound = errors.New("entity not found")

// ErrVersionConflict is returned when a version-checked write loses the
// race to a concurrent writer. Callers may re-read and retry.
var ErrVersionConflict = errors.New("entity version conflict")

// EntityStore is the system-of-record facade for entities. The state
// write path is exclusively owned by the entity state controller.
type EntityStore interface {
	// GetEntity loads an entity with its current version.
	GetEntity(ctx context.Context, id string) (*models.Entity, error)
	// CreateEntity inserts a new entity at version 1 together with its
	// creation audit record, atomically.
	CreateEntity(ctx context.Context, entity *models.Entity, audit *models.AuditRecord) error
	// ApplyTransition updates the entity state and bumps its version,
	// conditioned on expectedVersion still being current, and writes
	// the applied audit record in the same transaction. audit may be
	// nil for edges that opt out of auditing. Returns
	// ErrVersionConflict when a concurrent writer won the race.
	ApplyTransition(ctx context.Context, entityID, toState string, expectedVersion int64, audit *models.AuditRecord) (*models.Entity, error)
}

// AuditLog is the append-only record of transition attempts.
type AuditLog interface {
	// Record appends one audit record.
	Record(ctx context.Context, record *models.AuditRecord) error
	// ListByEntity returns the audit trail for an entity, oldest first.
	ListByEntity(ctx context.Context, entityID string) ([]*models.AuditRecord, error)
}

// WebhookLog is the append-only record of inbound webhook attempts.
type WebhookLog interface {
	// Record appends one webhook log record.
	Record(ctx context.Context, record *models.WebhookLogRecord) error
}
