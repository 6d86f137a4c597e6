package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS order_audit_log (
		id            BIGSERIAL PRIMARY KEY,
		order_id      TEXT        NOT NULL,
		action        TEXT        NOT NULL,
		actor_id      TEXT        NOT NULL DEFAULT '',
		delivery_date TEXT        NOT NULL DEFAULT '',
		status        TEXT        NOT NULL DEFAULT '',
		details       JSONB       NOT NULL DEFAULT '{}'::jsonb,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_audit_log_order ON order_audit_log (order_id, created_at)`,
}

type auditRepository struct {
	db DB
}

func NewAuditRepository(db DB) interfaces.AuditRepository {
	return &auditRepository{db: db}
}

// EnsureSchema creates the journal table and its index when missing.
func EnsureSchema(ctx context.Context, db DB) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *auditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO order_audit_log (order_id, action, actor_id, delivery_date, status, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.Exec(ctx, query,
		entry.OrderID, entry.Action, entry.ActorID, entry.DeliveryDate, string(entry.Status), raw, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (r *auditRepository) History(ctx context.Context, orderID string) ([]domain.AuditEntry, error) {
	query := `
		SELECT id, order_id, action, actor_id, delivery_date, status, details, created_at
		FROM order_audit_log
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit history: %w", err)
	}
	defer rows.Close()

	entries := []domain.AuditEntry{}
	for rows.Next() {
		var (
			e      domain.AuditEntry
			status string
			raw    []byte
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Action, &e.ActorID, &e.DeliveryDate, &status, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Status = domain.Status(status)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Details); err != nil {
				return nil, fmt.Errorf("failed to decode audit details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit history: %w", err)
	}

	return entries, nil
}
