package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-ops/workflow-hub/pkg/models"
)

// PostgresAuditLog is the PostgreSQL implementation of AuditLog. Used
// for standalone rejected-attempt records; applied records ride in the
// entity store's transaction.
type PostgresAuditLog struct {
	db *pgxpool.Pool
}

// NewPostgresAuditLog creates a new PostgresAuditLog.
func NewPostgresAuditLog(db *pgxpool.Pool) *PostgresAuditLog {
	return &PostgresAuditLog{db: db}
}

// Record appends one audit record.
func (l *PostgresAuditLog) Record(ctx context.Context, record *models.AuditRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := l.db.Exec(ctx,
		`INSERT INTO audit_records (id, entity_id, workflow_type, from_state, to_state, actor, outcome, reason, correlation_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		record.ID, record.EntityID, record.WorkflowType, record.FromState, record.ToState,
		record.Actor, record.Outcome, record.Reason, record.CorrelationID, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit record for %s: %w", record.EntityID, err)
	}
	return nil
}

// ListByEntity returns the audit trail for an entity, oldest first.
func (l *PostgresAuditLog) ListByEntity(ctx context.Context, entityID string) ([]*models.AuditRecord, error) {
	rows, err := l.db.Query(ctx,
		`SELECT id, entity_id, workflow_type, from_state, to_state, actor, outcome, reason, correlation_id, created_at
		 FROM audit_records WHERE entity_id = $1 ORDER BY created_at`, entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit records for %s: %w", entityID, err)
	}
	defer rows.Close()

	var records []*models.AuditRecord
	for rows.Next() {
		var r models.AuditRecord
		if err := rows.Scan(&r.ID, &r.EntityID, &r.WorkflowType, &r.FromState, &r.ToState,
			&r.Actor, &r.Outcome, &r.Reason, &r.CorrelationID, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}
