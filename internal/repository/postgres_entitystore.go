package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-ops/workflow-hub/pkg/models"
)

// PostgresEntityStore is the PostgreSQL implementation of EntityStore.
type PostgresEntityStore struct {
	db *pgxpool.Pool
}

// NewPostgresEntityStore creates a new PostgresEntityStore.
func NewPostgresEntityStore(db *pgxpool.Pool) *PostgresEntityStore {
	return &PostgresEntityStore{db: db}
}

// GetEntity loads an entity with its current version.
func (s *PostgresEntityStore) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	var e models.Entity
	err := s.db.QueryRow(ctx,
		`SELECT id, workflow_type, state, version, payload, created_at, updated_at
		 FROM entities WHERE id = $1`, id).
		Scan(&e.ID, &e.WorkflowType, &e.State, &e.Version, &e.Payload, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntityNotFound
		}
		return nil, fmt.Errorf("load entity %s: %w", id, err)
	}
	return &e, nil
}

// CreateEntity inserts a new entity at version 1 together with its
// creation audit record in one transaction.
func (s *PostgresEntityStore) CreateEntity(ctx context.Context, entity *models.Entity, audit *models.AuditRecord) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create entity: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	entity.Version = 1
	entity.CreatedAt = now
	entity.UpdatedAt = now
	_, err = tx.Exec(ctx,
		`INSERT INTO entities (id, workflow_type, state, version, payload, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entity.ID, entity.WorkflowType, entity.State, entity.Version, entity.Payload, entity.CreatedAt, entity.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert entity %s: %w", entity.ID, err)
	}
	if audit != nil {
		if err := insertAudit(ctx, tx, audit); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ApplyTransition performs the version-checked state write and the
// applied audit insert atomically. The UPDATE matching zero rows means
// a concurrent writer won the race and the caller sees a conflict; the
// audit insert sharing the transaction means an applied transition can
// never be observed without its audit record.
func (s *PostgresEntityStore) ApplyTransition(ctx context.Context, entityID, toState string, expectedVersion int64, audit *models.AuditRecord) (*models.Entity, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	var e models.Entity
	err = tx.QueryRow(ctx,
		`UPDATE entities
		 SET state = $1, version = version + 1, updated_at = now()
		 WHERE id = $2 AND version = $3
		 RETURNING id, workflow_type, state, version, payload, created_at, updated_at`,
		toState, entityID, expectedVersion).
		Scan(&e.ID, &e.WorkflowType, &e.State, &e.Version, &e.Payload, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVersionConflict
		}
		return nil, fmt.Errorf("update entity %s: %w", entityID, err)
	}

	if audit != nil {
		if err := insertAudit(ctx, tx, audit); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition for %s: %w", entityID, err)
	}
	return &e, nil
}

func insertAudit(ctx context.Context, tx pgx.Tx, record *models.AuditRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO audit_records (id, entity_id, workflow_type, from_state, to_state, actor, outcome, reason, correlation_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		record.ID, record.EntityID, record.WorkflowType, record.FromState, record.ToState,
		record.Actor, record.Outcome, record.Reason, record.CorrelationID, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit record for %s: %w", record.EntityID, err)
	}
	return nil
}
