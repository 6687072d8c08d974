package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-ops/workflow-hub/pkg/models"
)

// PostgresWebhookLog is the PostgreSQL implementation of WebhookLog.
type PostgresWebhookLog struct {
	db *pgxpool.Pool
}

// NewPostgresWebhookLog creates a new PostgresWebhookLog.
func NewPostgresWebhookLog(db *pgxpool.Pool) *PostgresWebhookLog {
	return &PostgresWebhookLog{db: db}
}

// Record appends one webhook log record.
func (l *PostgresWebhookLog) Record(ctx context.Context, record *models.WebhookLogRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := l.db.Exec(ctx,
		`INSERT INTO webhook_log (id, source, event_type, caller, outcome, detail, payload_digest, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, record.Source, record.EventType, record.Caller,
		record.Outcome, record.Detail, record.PayloadDigest, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert webhook log record for %s: %w", record.Source, err)
	}
	return nil
}
