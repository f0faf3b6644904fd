package worker

import (
	"context"
	"database/sql"
	"log"
	"time"

	"foodpay/internal/domain"
	"foodpay/internal/infrastructure/gateway"
	"foodpay/internal/repo"
)

const stuckBatchSize = 100

// ReconciliationWorker sweeps orders stuck in PROCESSING: a crash between the
// gateway call and the local write leaves the order there, and the gateway
// holds the truth about whether money moved.
type ReconciliationWorker struct {
	db         *sql.DB
	orders     repo.OrderRepo
	audit      repo.AuditRepo
	gateway    gateway.Gateway
	interval   time.Duration
	stuckAfter time.Duration
}

func NewReconciliationWorker(
	db *sql.DB,
	orders repo.OrderRepo,
	audit repo.AuditRepo,
	gw gateway.Gateway,
	interval time.Duration,
	stuckAfter time.Duration,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		db:         db,
		orders:     orders,
		audit:      audit,
		gateway:    gw,
		interval:   interval,
		stuckAfter: stuckAfter,
	}
}

func (rw *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	log.Println("[reconcile] worker started")

	for {
		select {
		case <-ctx.Done():
			log.Println("[reconcile] worker stopped")
			return
		case <-ticker.C:
			if err := rw.process(ctx); err != nil {
				log.Printf("[reconcile] sweep failed: %v", err)
			}
		}
	}
}

func (rw *ReconciliationWorker) process(ctx context.Context) error {
	stuck, err := rw.orders.FindStuckProcessing(ctx, rw.stuckAfter, stuckBatchSize)
	if err != nil {
		return err
	}
	if len(stuck) == 0 {
		return nil
	}

	log.Printf("[reconcile] found %d stuck orders", len(stuck))

	for i := range stuck {
		order := &stuck[i]
		if order.TransactionID == nil {
			// never reached the gateway; safe to release for a retry
			rw.fix(ctx, order, domain.PaymentFailed, "no transaction recorded")
			continue
		}

		res, err := rw.gateway.Status(ctx, *order.TransactionID)
		if err != nil {
			log.Printf("[reconcile] status check failed for order %s: %v", order.ID, err)
			continue // next sweep retries
		}

		switch res.RemoteStatus {
		case string(domain.PaymentSuccess):
			// the gateway charged the card but we never heard back
			rw.fix(ctx, order, domain.PaymentSuccess, "remote reports charged")
		case string(domain.PaymentFailed):
			rw.fix(ctx, order, domain.PaymentFailed, "remote reports failed")
		default:
			// UNKNOWN or still pending remotely; leave for the next sweep
		}
	}
	return nil
}

func (rw *ReconciliationWorker) fix(ctx context.Context, order *domain.Order, target domain.PaymentStatus, reason string) {
	if err := order.PaymentStatus.CanTransitionTo(target); err != nil {
		log.Printf("[reconcile] skip order %s: %v", order.ID, err)
		return
	}
	order.PaymentStatus = target

	run := func(tx *sql.Tx) error {
		if err := rw.orders.UpdatePayment(ctx, tx, order); err != nil {
			return err
		}
		return rw.audit.Record(ctx, tx, order.ID, "payment.reconciled", map[string]any{
			"status": string(target),
			"reason": reason,
		})
	}

	var err error
	if rw.db == nil {
		err = run(nil)
	} else {
		var tx *sql.Tx
		tx, err = rw.db.BeginTx(ctx, nil)
		if err == nil {
			defer tx.Rollback()
			if err = run(tx); err == nil {
				err = tx.Commit()
			}
		}
	}
	if err != nil {
		log.Printf("[reconcile] failed to fix order %s: %v", order.ID, err)
		return
	}
	log.Printf("[reconcile] order %s -> %s (%s)", order.ID, target, reason)
}
