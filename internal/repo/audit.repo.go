package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditRepo is the write-only payment event log. Every orchestrator mutation
// appends one row; nothing in this core reads it back.
type AuditRepo interface {
	Record(ctx context.Context, tx *sql.Tx, orderID uuid.UUID, event string, detail map[string]any) error
}

type auditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) AuditRepo {
	return &auditRepo{db: db}
}

func (r *auditRepo) Record(ctx context.Context, tx *sql.Tx, orderID uuid.UUID, event string, detail map[string]any) error {
	blob, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	query := `INSERT INTO payment_events (id, order_id, event, detail, created_at) VALUES ($1, $2, $3, $4, $5)`
	args := []any{uuid.New(), orderID, event, blob, time.Now()}

	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	return err
}
