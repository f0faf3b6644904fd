package repo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"

	"foodpay/internal/database"
	"foodpay/internal/domain"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("foodpay_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(ctx, db))
	return db
}

func seedOrder(t *testing.T, r OrderRepo, userID uuid.UUID, number string, status domain.PaymentStatus) *domain.Order {
	t.Helper()
	now := time.Now()
	order := &domain.Order{
		ID:            uuid.New(),
		UserID:        userID,
		OrderNumber:   number,
		TotalAmount:   domain.AmountFromMinor(120000),
		PaymentMode:   domain.ModeCIB,
		PaymentStatus: status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, r.CreateOrder(context.Background(), nil, order))
	return order
}

func TestOrderRepoPostgres(t *testing.T) {
	db := setupDB(t)
	r := NewOrderRepo(db)
	ctx := context.Background()
	userID := uuid.New()

	t.Run("find by identifier prefers order number then id, scoped to user", func(t *testing.T) {
		order := seedOrder(t, r, userID, "ORD-2026-0001", domain.PaymentPending)

		byNumber, err := r.FindByIdentifier(ctx, "ORD-2026-0001", userID)
		require.NoError(t, err)
		require.NotNil(t, byNumber)
		assert.Equal(t, order.ID, byNumber.ID)

		byID, err := r.FindByIdentifier(ctx, order.ID.String(), userID)
		require.NoError(t, err)
		require.NotNil(t, byID)

		foreign, err := r.FindByIdentifier(ctx, "ORD-2026-0001", uuid.New())
		require.NoError(t, err)
		assert.Nil(t, foreign, "another user's order must read as missing")

		missing, err := r.FindByIdentifier(ctx, "ORD-NOPE", userID)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("mark processing is a compare-and-set", func(t *testing.T) {
		order := seedOrder(t, r, userID, "ORD-2026-0002", domain.PaymentPending)

		ok, err := r.MarkProcessing(ctx, order.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		// a racing second attempt loses
		ok, err = r.MarkProcessing(ctx, order.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		// FAILED is retryable
		order.PaymentStatus = domain.PaymentFailed
		require.NoError(t, r.UpdatePayment(ctx, nil, order))
		ok, err = r.MarkProcessing(ctx, order.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		// SUCCESS is not
		order.PaymentStatus = domain.PaymentSuccess
		require.NoError(t, r.UpdatePayment(ctx, nil, order))
		ok, err = r.MarkProcessing(ctx, order.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("payment detail survives the round trip", func(t *testing.T) {
		order := seedOrder(t, r, userID, "ORD-2026-0003", domain.PaymentProcessing)

		txn := "TXN-123"
		order.PaymentStatus = domain.PaymentSuccess
		order.TransactionID = &txn
		order.PaymentDetail.MergeCharge(domain.ChargeDetail{
			CardLast4:         "1111",
			CardType:          string(domain.ModeCIB),
			AuthorizationCode: "654321",
			ResponseCode:      "00",
			TransactionID:     txn,
			At:                time.Now().UTC(),
		})
		require.NoError(t, r.UpdatePayment(ctx, nil, order))

		order.PaymentDetail.MergeRefund(domain.RefundDetail{
			RefundID: "RF-1", Amount: domain.AmountFromMinor(120000),
			Status: "completed", EstimatedDelay: "3-7 business days", At: time.Now().UTC(),
		})
		order.PaymentStatus = domain.PaymentRefunded
		require.NoError(t, r.UpdatePayment(ctx, nil, order))

		stored, err := r.FindByID(ctx, order.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, domain.PaymentRefunded, stored.PaymentStatus)
		require.NotNil(t, stored.PaymentDetail.Charge, "charge record kept after refund merge")
		assert.Equal(t, "1111", stored.PaymentDetail.Charge.CardLast4)
		require.NotNil(t, stored.PaymentDetail.Refund)
		assert.Equal(t, "RF-1", stored.PaymentDetail.Refund.RefundID)
		assert.Equal(t, int64(120000), stored.TotalAmount.Minor())
	})

	t.Run("webhook lookup prefers transaction id over order number", func(t *testing.T) {
		a := seedOrder(t, r, userID, "ORD-2026-0004", domain.PaymentProcessing)
		b := seedOrder(t, r, userID, "ORD-2026-0005", domain.PaymentProcessing)

		txn := "TXN-A"
		a.TransactionID = &txn
		require.NoError(t, r.UpdatePayment(ctx, nil, a))

		// transaction id matches a, order number matches b
		match, err := r.FindForWebhook(ctx, "TXN-A", "ORD-2026-0005")
		require.NoError(t, err)
		require.NotNil(t, match)
		assert.Equal(t, a.ID, match.ID)

		// order-number fallback when the transaction id is unknown
		match, err = r.FindForWebhook(ctx, "TXN-UNSEEN", "ORD-2026-0005")
		require.NoError(t, err)
		require.NotNil(t, match)
		assert.Equal(t, b.ID, match.ID)
	})

	t.Run("stuck processing sweep", func(t *testing.T) {
		fresh := seedOrder(t, r, userID, "ORD-2026-0006", domain.PaymentProcessing)
		stale := seedOrder(t, r, userID, "ORD-2026-0007", domain.PaymentProcessing)

		_, err := db.ExecContext(ctx,
			`UPDATE orders SET updated_at = now() - interval '1 hour' WHERE id = $1`, stale.ID)
		require.NoError(t, err)

		stuck, err := r.FindStuckProcessing(ctx, 5*time.Minute, 10)
		require.NoError(t, err)

		ids := make(map[uuid.UUID]bool)
		for _, o := range stuck {
			ids[o.ID] = true
		}
		assert.True(t, ids[stale.ID])
		assert.False(t, ids[fresh.ID])
	})

	t.Run("history pagination", func(t *testing.T) {
		other := uuid.New()
		for _, n := range []string{"ORD-H1", "ORD-H2", "ORD-H3"} {
			seedOrder(t, r, other, n, domain.PaymentPending)
		}

		orders, total, err := r.ListByUser(ctx, other, 2, 0)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Len(t, orders, 2)

		orders, _, err = r.ListByUser(ctx, other, 2, 2)
		require.NoError(t, err)
		assert.Len(t, orders, 1)
	})
}
