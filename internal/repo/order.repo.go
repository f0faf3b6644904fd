package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"foodpay/internal/domain"
)

const orderColumns = `id, user_id, provider_id, order_number, total_amount, payment_mode, payment_status, transaction_id, payment_detail, created_at, updated_at`

type OrderRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// FindByIdentifier resolves an external order number first, then falls
	// back to the internal id, always scoped to the owning user.
	FindByIdentifier(ctx context.Context, identifier string, userID uuid.UUID) (*domain.Order, error)
	FindByTransactionIDForUser(ctx context.Context, transactionID string, userID uuid.UUID) (*domain.Order, error)
	// FindForWebhook matches by transaction id or order number; a
	// transaction-id match always wins when both resolve.
	FindForWebhook(ctx context.Context, transactionID, orderNumber string) (*domain.Order, error)
	// MarkProcessing is the compare-and-set gate: it only succeeds when the
	// stored status is PENDING or FAILED, so racing charge attempts cannot
	// both pass.
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	UpdatePayment(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Order, int, error)
	FindStuckProcessing(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// exec lets writes run inside a caller-owned transaction or directly on the
// pool when tx is nil.
func (r *orderRepo) exec(tx *sql.Tx) execer {
	if tx != nil {
		return tx
	}
	return r.db
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var amount int64
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.ProviderID,
		&o.OrderNumber,
		&amount,
		&o.PaymentMode,
		&o.PaymentStatus,
		&o.TransactionID,
		&o.PaymentDetail,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err // system error
	}
	o.TotalAmount = domain.AmountFromMinor(amount)
	return &o, nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (r *orderRepo) FindByIdentifier(ctx context.Context, identifier string, userID uuid.UUID) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1 AND user_id = $2`,
		identifier, userID)
	order, err := scanOrder(row)
	if err != nil || order != nil {
		return order, err
	}

	id, parseErr := uuid.Parse(identifier)
	if parseErr != nil {
		return nil, nil
	}
	row = r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`,
		id, userID)
	return scanOrder(row)
}

func (r *orderRepo) FindByTransactionIDForUser(ctx context.Context, transactionID string, userID uuid.UUID) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE transaction_id = $1 AND user_id = $2`,
		transactionID, userID)
	return scanOrder(row)
}

func (r *orderRepo) FindForWebhook(ctx context.Context, transactionID, orderNumber string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE transaction_id = $1 OR order_number = $2
		 ORDER BY (transaction_id = $1) DESC
		 LIMIT 1`,
		transactionID, orderNumber)
	return scanOrder(row)
}

func (r *orderRepo) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET payment_status = $1, updated_at = now()
		 WHERE id = $2 AND payment_status IN ($3, $4)`,
		domain.PaymentProcessing, id, domain.PaymentPending, domain.PaymentFailed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *orderRepo) UpdatePayment(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	_, err := r.exec(tx).ExecContext(ctx,
		`UPDATE orders
		 SET payment_status = $2,
		     payment_mode = $3,
		     transaction_id = $4,
		     payment_detail = $5,
		     updated_at = now()
		 WHERE id = $1`,
		order.ID, order.PaymentStatus, order.PaymentMode, order.TransactionID, order.PaymentDetail)
	return err
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	_, err := r.exec(tx).ExecContext(ctx,
		`INSERT INTO orders (id, user_id, provider_id, order_number, total_amount, payment_mode, payment_status, transaction_id, payment_detail, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		order.ID, order.UserID, order.ProviderID, order.OrderNumber, order.TotalAmount.Minor(),
		order.PaymentMode, order.PaymentStatus, order.TransactionID, order.PaymentDetail,
		order.CreatedAt, order.UpdatedAt)
	return err
}

func (r *orderRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Order, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	return orders, total, rows.Err()
}

func (r *orderRepo) FindStuckProcessing(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE payment_status = $1 AND updated_at < $2
		 ORDER BY updated_at
		 LIMIT $3`,
		domain.PaymentProcessing, time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}
