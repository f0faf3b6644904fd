package database

import (
	"context"
	"database/sql"
)

// Schema covers the payment-relevant slice of orders plus the write-only
// payment audit log. Order creation itself happens in the ordering service;
// the table shape here is the shared contract.
const Schema = `
CREATE TABLE IF NOT EXISTS orders (
	id             UUID PRIMARY KEY,
	user_id        UUID NOT NULL,
	provider_id    UUID,
	order_number   TEXT NOT NULL UNIQUE,
	total_amount   BIGINT NOT NULL CHECK (total_amount >= 0),
	payment_mode   TEXT NOT NULL,
	payment_status TEXT NOT NULL DEFAULT 'PENDING',
	transaction_id TEXT,
	payment_detail JSONB NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_txn ON orders (transaction_id);
CREATE INDEX IF NOT EXISTS idx_orders_payment_status ON orders (payment_status, updated_at);

CREATE TABLE IF NOT EXISTS payment_events (
	id         UUID PRIMARY KEY,
	order_id   UUID NOT NULL,
	event      TEXT NOT NULL,
	detail     JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_payment_events_order ON payment_events (order_id, created_at);
`

// Migrate applies the schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
