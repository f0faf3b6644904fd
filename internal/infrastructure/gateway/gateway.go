package gateway

import (
	"context"
	"time"

	"foodpay/internal/config"
	"foodpay/internal/domain"
)

// Session describes a hosted-payment session returned by InitSession.
type Session struct {
	ID         string
	PaymentURL string
	ExpiresAt  time.Time
}

// ChargeRequest carries everything a direct (non-redirect) charge needs.
// Amount is in minor units end to end.
type ChargeRequest struct {
	OrderNumber    string
	Amount         domain.Amount
	Network        domain.PaymentMode
	CardNumber     string
	CardholderName string
	ExpiryMonth    int
	ExpiryYear     int
	CVV            string
}

// Result is the normalized outcome every mode translates into, so the
// orchestrator never branches on simulated vs real.
type Result struct {
	Approved          bool
	TransactionID     string
	AuthorizationCode string
	RefundID          string
	ActionCode        string
	Message           string
	RemoteStatus      string
}

// Gateway is the adapter contract. Declines come back as a Result with
// Approved=false and a nil error; errors are reserved for local validation
// and connectivity failures (*domain.PaymentError).
type Gateway interface {
	InitSession(ctx context.Context, orderNumber string, amount domain.Amount, network domain.PaymentMode, returnURL string) (*Session, error)
	Charge(ctx context.Context, req *ChargeRequest) (*Result, error)
	Status(ctx context.Context, transactionID string) (*Result, error)
	Refund(ctx context.Context, transactionID string, amount domain.Amount, reason string) (*Result, error)
}

// New selects the implementation for the configured mode. Sandbox and
// production share the HTTP client; only endpoints and credentials differ.
func New(cfg config.Gateway) Gateway {
	switch cfg.Mode {
	case config.ModeSandbox, config.ModeProduction:
		return NewSatimClient(cfg)
	default:
		return NewSimulated(cfg, nil)
	}
}

// checkLimits enforces the configured per-transaction bounds before any
// network attempt. Violations are local failures, never gateway errors.
func checkLimits(cfg config.Gateway, amount domain.Amount) *domain.PaymentError {
	if amount <= 0 {
		return domain.ErrValidation("amount must be positive")
	}
	if cfg.MinAmount > 0 && amount < cfg.MinAmount {
		return domain.NewPaymentError(domain.CodeMinAmount,
			"amount below minimum of "+cfg.MinAmount.String()+" DZD")
	}
	if cfg.MaxAmount > 0 && amount > cfg.MaxAmount {
		return domain.NewPaymentError(domain.CodeMaxAmount,
			"amount above maximum of "+cfg.MaxAmount.String()+" DZD")
	}
	return nil
}
