package service

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"

	"foodpay/internal/config"
	"foodpay/internal/domain"
	"foodpay/internal/infrastructure/gateway"
	"foodpay/internal/notify"
	"foodpay/internal/repo"
)

// Notification event names pushed to users.
const (
	EventPaymentSuccess  = "payment.success"
	EventPaymentFailed   = "payment.failed"
	EventPaymentRefunded = "payment.refunded"
	EventOrderPaid       = "order.paid"
)

const refundDelay = "3-7 business days"

type CardDetails struct {
	Network        domain.PaymentMode
	Number         string
	CardholderName string
	ExpiryMonth    int
	ExpiryYear     int
	CVV            string
}

type SessionInfo struct {
	SessionID   string             `json:"sessionId"`
	OrderNumber string             `json:"orderNumber"`
	PaymentURL  string             `json:"paymentUrl"`
	ExpiresAt   time.Time          `json:"expiresAt"`
	Amount      domain.Amount      `json:"amount"`
	CardNetwork domain.PaymentMode `json:"cardNetwork"`
}

type ChargeInfo struct {
	TransactionID     string             `json:"transactionId"`
	AuthorizationCode string             `json:"authorizationCode"`
	CardLast4         string             `json:"cardLast4"`
	CardNetwork       domain.PaymentMode `json:"cardNetwork"`
	Amount            domain.Amount      `json:"amount"`
	ResponseCode      string             `json:"responseCode"`
}

type CashInfo struct {
	Instructions []string      `json:"instructions"`
	OrderID      uuid.UUID     `json:"orderId"`
	OrderNumber  string        `json:"orderNumber"`
	Amount       domain.Amount `json:"amount"`
}

type StatusInfo struct {
	TransactionID string             `json:"transactionId"`
	LocalStatus   string             `json:"localStatus"`
	RemoteStatus  string             `json:"remoteStatus"`
	Amount        domain.Amount      `json:"amount"`
	PaymentMode   domain.PaymentMode `json:"paymentMode"`
	Timestamp     time.Time          `json:"timestamp"`
}

type RefundInfo struct {
	RefundID       string        `json:"refundId"`
	Amount         domain.Amount `json:"amount"`
	Status         string        `json:"status"`
	EstimatedDelay string        `json:"estimatedDelay"`
}

type HistoryItem struct {
	OrderID       uuid.UUID            `json:"orderId"`
	OrderNumber   string               `json:"orderNumber"`
	Amount        domain.Amount        `json:"amount"`
	PaymentMode   domain.PaymentMode   `json:"paymentMode"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	TransactionID string               `json:"transactionId,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type HistoryPage struct {
	Items      []HistoryItem `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

// WebhookPayload is the gateway callback body. Signature covers every other
// field.
type WebhookPayload struct {
	OrderID       string `json:"orderId"`
	TransactionID string `json:"transactionId,omitempty"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	ActionCode    string `json:"actionCode"`
	Signature     string `json:"signature"`
}

type WebhookAck struct {
	Received  bool   `json:"received"`
	Processed bool   `json:"processed"`
	OrderID   string `json:"orderId,omitempty"`
}

type MethodLimits struct {
	Min domain.Amount `json:"min"`
	Max domain.Amount `json:"max"`
}

type MethodInfo struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Enabled     bool         `json:"enabled"`
	Limits      MethodLimits `json:"limits"`
}

// PaymentService is the only mutation entry point into order payment fields.
type PaymentService interface {
	InitiateSession(ctx context.Context, userID, orderID uuid.UUID, network domain.PaymentMode, returnURL string) (*SessionInfo, error)
	ChargeDirect(ctx context.Context, userID uuid.UUID, identifier string, card CardDetails, amount domain.Amount) (*ChargeInfo, error)
	ConfirmCash(ctx context.Context, userID uuid.UUID, identifier string) (*CashInfo, error)
	CheckStatus(ctx context.Context, userID uuid.UUID, transactionID string) (*StatusInfo, error)
	History(ctx context.Context, userID uuid.UUID, page, limit int) (*HistoryPage, error)
	Refund(ctx context.Context, orderID uuid.UUID, amount *domain.Amount, reason string) (*RefundInfo, error)
	HandleWebhook(ctx context.Context, payload WebhookPayload) *WebhookAck
	Methods() []MethodInfo
}

type paymentService struct {
	db       *sql.DB
	orders   repo.OrderRepo
	audit    repo.AuditRepo
	gateway  gateway.Gateway
	notifier notify.Notifier
	cfg      config.Gateway
}

func NewPaymentService(
	db *sql.DB,
	orders repo.OrderRepo,
	audit repo.AuditRepo,
	gw gateway.Gateway,
	notifier notify.Notifier,
	cfg config.Gateway,
) PaymentService {
	return &paymentService{
		db:       db,
		orders:   orders,
		audit:    audit,
		gateway:  gw,
		notifier: notifier,
		cfg:      cfg,
	}
}

// withTx runs fn inside a transaction when a pool is present. Repositories
// accept a nil tx, so tests can run the service against fakes.
func (s *paymentService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if s.db == nil {
		return fn(nil)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *paymentService) InitiateSession(ctx context.Context, userID, orderID uuid.UUID, network domain.PaymentMode, returnURL string) (*SessionInfo, error) {
	if network != domain.ModeCIB && network != domain.ModeEdahabia {
		return nil, domain.ErrValidation("unsupported card network")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != userID {
		return nil, domain.ErrOrderNotFound()
	}
	if order.PaymentStatus.IsTerminal() {
		return nil, domain.ErrAlreadyPaid()
	}
	if order.PaymentMode == domain.ModeCash {
		return nil, domain.NewPaymentError(domain.CodeInvalidMode, "cash orders cannot be paid by card")
	}

	session, err := s.gateway.InitSession(ctx, order.OrderNumber, order.TotalAmount, network, returnURL)
	if err != nil {
		return nil, err
	}

	ok, err := s.orders.MarkProcessing(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.transitionConflict(ctx, order.ID)
	}

	order.PaymentStatus = domain.PaymentProcessing
	order.PaymentMode = network
	sid := session.ID
	order.TransactionID = &sid
	if err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.orders.UpdatePayment(ctx, tx, order); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, order.ID, "payment.session_initiated", map[string]any{
			"sessionId": session.ID,
			"network":   string(network),
			"amount":    order.TotalAmount.Minor(),
		})
	}); err != nil {
		return nil, err
	}

	return &SessionInfo{
		SessionID:   session.ID,
		OrderNumber: order.OrderNumber,
		PaymentURL:  session.PaymentURL,
		ExpiresAt:   session.ExpiresAt,
		Amount:      order.TotalAmount,
		CardNetwork: network,
	}, nil
}

func (s *paymentService) ChargeDirect(ctx context.Context, userID uuid.UUID, identifier string, card CardDetails, amount domain.Amount) (*ChargeInfo, error) {
	// local validation fails fast, before any state write or network call
	if err := domain.ValidateCardNumber(card.Network, card.Number); err != nil {
		return nil, err
	}
	if err := domain.ValidateExpiry(card.ExpiryMonth, card.ExpiryYear, time.Now()); err != nil {
		return nil, err
	}
	if err := domain.ValidateCVV(card.Network, card.CVV); err != nil {
		return nil, err
	}

	order, err := s.orders.FindByIdentifier(ctx, identifier, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound()
	}
	if order.PaymentStatus.IsTerminal() {
		return nil, domain.ErrAlreadyPaid()
	}
	if order.PaymentMode == domain.ModeCash {
		return nil, domain.NewPaymentError(domain.CodeInvalidMode, "cash orders cannot be paid by card")
	}
	if amount > 0 && amount != order.TotalAmount {
		return nil, domain.ErrValidation("amount does not match order total")
	}

	// move to PROCESSING before the gateway call: a crash mid-charge leaves a
	// recoverable state for the reconciliation worker, never a silent pending
	ok, err := s.orders.MarkProcessing(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.transitionConflict(ctx, order.ID)
	}
	order.PaymentStatus = domain.PaymentProcessing

	res, gwErr := s.gateway.Charge(ctx, &gateway.ChargeRequest{
		OrderNumber:    order.OrderNumber,
		Amount:         order.TotalAmount,
		Network:        card.Network,
		CardNumber:     card.Number,
		CardholderName: card.CardholderName,
		ExpiryMonth:    card.ExpiryMonth,
		ExpiryYear:     card.ExpiryYear,
		CVV:            card.CVV,
	})
	if gwErr != nil {
		perr, ok := gwErr.(*domain.PaymentError)
		if !ok {
			perr = domain.NewPaymentError(domain.CodeServiceUnavailable, gwErr.Error())
		}
		s.recordChargeFailure(ctx, order, domain.ChargeDetail{
			Error:     perr.Message,
			ErrorCode: perr.Code,
			At:        time.Now(),
		})
		return nil, perr
	}

	if !res.Approved {
		s.recordChargeFailure(ctx, order, domain.ChargeDetail{
			Error:         res.Message,
			ErrorCode:     res.ActionCode,
			TransactionID: res.TransactionID,
			At:            time.Now(),
		})
		return nil, &domain.PaymentError{
			Code:          domain.CodeGatewayDeclined,
			Message:       res.Message,
			TransactionID: res.TransactionID,
		}
	}

	order.PaymentStatus = domain.PaymentSuccess
	order.PaymentMode = card.Network
	txn := res.TransactionID
	order.TransactionID = &txn
	order.PaymentDetail.MergeCharge(domain.ChargeDetail{
		CardLast4:         domain.CardLast4(card.Number),
		CardType:          string(card.Network),
		AuthorizationCode: res.AuthorizationCode,
		ResponseCode:      res.ActionCode,
		TransactionID:     res.TransactionID,
		At:                time.Now(),
	})

	if err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.orders.UpdatePayment(ctx, tx, order); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, order.ID, "payment.charged", map[string]any{
			"transactionId": res.TransactionID,
			"amount":        order.TotalAmount.Minor(),
			"responseCode":  res.ActionCode,
		})
	}); err != nil {
		return nil, err
	}

	s.fanOutSuccess(ctx, order)

	return &ChargeInfo{
		TransactionID:     res.TransactionID,
		AuthorizationCode: res.AuthorizationCode,
		CardLast4:         domain.CardLast4(card.Number),
		CardNetwork:       card.Network,
		Amount:            order.TotalAmount,
		ResponseCode:      res.ActionCode,
	}, nil
}

// recordChargeFailure persists the FAILED state and detail. The write happens
// regardless of how the caller-side response is rendered.
func (s *paymentService) recordChargeFailure(ctx context.Context, order *domain.Order, detail domain.ChargeDetail) {
	order.PaymentStatus = domain.PaymentFailed
	if detail.TransactionID != "" {
		txn := detail.TransactionID
		order.TransactionID = &txn
	}
	order.PaymentDetail.MergeCharge(detail)

	if err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.orders.UpdatePayment(ctx, tx, order); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, order.ID, "payment.failed", map[string]any{
			"error": detail.Error,
			"code":  detail.ErrorCode,
		})
	}); err != nil {
		log.Printf("[payment] failed to persist charge failure for order %s: %v", order.ID, err)
	}

	if err := s.notifier.Notify(ctx, order.UserID, EventPaymentFailed, map[string]any{
		"orderId":     order.ID.String(),
		"orderNumber": order.OrderNumber,
		"error":       detail.Error,
		"code":        detail.ErrorCode,
	}); err != nil {
		log.Printf("[payment] notify failed: %v", err)
	}
}

func (s *paymentService) fanOutSuccess(ctx context.Context, order *domain.Order) {
	payload := map[string]any{
		"orderId":     order.ID.String(),
		"orderNumber": order.OrderNumber,
		"amount":      order.TotalAmount.String(),
	}
	if err := s.notifier.Notify(ctx, order.UserID, EventPaymentSuccess, payload); err != nil {
		log.Printf("[payment] notify payer failed: %v", err)
	}
	if order.ProviderID != nil {
		if err := s.notifier.Notify(ctx, *order.ProviderID, EventOrderPaid, payload); err != nil {
			log.Printf("[payment] notify provider failed: %v", err)
		}
	}
}

// transitionConflict distinguishes "already paid" from "another attempt is in
// flight" after a failed compare-and-set.
func (s *paymentService) transitionConflict(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order != nil && order.PaymentStatus.IsTerminal() {
		return domain.ErrAlreadyPaid()
	}
	return domain.NewPaymentError(domain.CodePaymentInProgress, "a payment attempt is already in progress")
}

func (s *paymentService) ConfirmCash(ctx context.Context, userID uuid.UUID, identifier string) (*CashInfo, error) {
	order, err := s.orders.FindByIdentifier(ctx, identifier, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound()
	}
	if order.PaymentStatus.IsTerminal() {
		return nil, domain.ErrAlreadyPaid()
	}

	// cash never touches the gateway and never passes through PROCESSING:
	// the courier collects on delivery
	order.PaymentMode = domain.ModeCash
	order.PaymentStatus = domain.PaymentPending
	if err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.orders.UpdatePayment(ctx, tx, order); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, order.ID, "payment.cash_confirmed", map[string]any{
			"amount": order.TotalAmount.Minor(),
		})
	}); err != nil {
		return nil, err
	}

	return &CashInfo{
		Instructions: []string{
			"Prepare the exact amount of " + order.TotalAmount.String() + " DZD.",
			"Pay the courier in cash on delivery.",
			"Ask for your receipt after payment.",
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Amount:      order.TotalAmount,
	}, nil
}

func (s *paymentService) CheckStatus(ctx context.Context, userID uuid.UUID, transactionID string) (*StatusInfo, error) {
	order, err := s.orders.FindByTransactionIDForUser(ctx, transactionID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		// an order owned by another user is indistinguishable from a missing
		// one, on purpose
		return nil, domain.ErrOrderNotFound()
	}

	// remote truth is advisory; never written back here
	remoteStatus := "UNAVAILABLE"
	if remote, err := s.gateway.Status(ctx, transactionID); err == nil {
		remoteStatus = remote.RemoteStatus
	}

	return &StatusInfo{
		TransactionID: transactionID,
		LocalStatus:   string(order.PaymentStatus),
		RemoteStatus:  remoteStatus,
		Amount:        order.TotalAmount,
		PaymentMode:   order.PaymentMode,
		Timestamp:     order.UpdatedAt,
	}, nil
}

func (s *paymentService) History(ctx context.Context, userID uuid.UUID, page, limit int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	orders, total, err := s.orders.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	items := make([]HistoryItem, 0, len(orders))
	for _, o := range orders {
		item := HistoryItem{
			OrderID:       o.ID,
			OrderNumber:   o.OrderNumber,
			Amount:        o.TotalAmount,
			PaymentMode:   o.PaymentMode,
			PaymentStatus: o.PaymentStatus,
			CreatedAt:     o.CreatedAt,
		}
		if o.TransactionID != nil {
			item.TransactionID = *o.TransactionID
		}
		items = append(items, item)
	}

	totalPages := (total + limit - 1) / limit
	return &HistoryPage{
		Items: items,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

func (s *paymentService) Refund(ctx context.Context, orderID uuid.UUID, amount *domain.Amount, reason string) (*RefundInfo, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound()
	}
	if order.PaymentStatus != domain.PaymentSuccess ||
		order.PaymentMode == domain.ModeCash ||
		order.TransactionID == nil {
		return nil, domain.NewPaymentError(domain.CodeNotRefundable, "order is not refundable")
	}

	amt := order.TotalAmount
	if amount != nil {
		if *amount <= 0 || *amount > order.TotalAmount {
			return nil, domain.ErrValidation("refund amount must be positive and at most the order total")
		}
		amt = *amount
	}

	res, err := s.gateway.Refund(ctx, *order.TransactionID, amt, reason)
	if err != nil {
		return nil, err
	}
	if !res.Approved {
		return nil, &domain.PaymentError{
			Code:          domain.CodeGatewayDeclined,
			Message:       res.Message,
			TransactionID: *order.TransactionID,
		}
	}

	order.PaymentStatus = domain.PaymentRefunded
	order.PaymentDetail.MergeRefund(domain.RefundDetail{
		RefundID:       res.RefundID,
		Amount:         amt,
		Reason:         reason,
		Status:         "completed",
		EstimatedDelay: refundDelay,
		At:             time.Now(),
	})
	if err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.orders.UpdatePayment(ctx, tx, order); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, order.ID, "payment.refunded", map[string]any{
			"refundId": res.RefundID,
			"amount":   amt.Minor(),
			"reason":   reason,
		})
	}); err != nil {
		return nil, err
	}

	if err := s.notifier.Notify(ctx, order.UserID, EventPaymentRefunded, map[string]any{
		"orderId":        order.ID.String(),
		"orderNumber":    order.OrderNumber,
		"refundId":       res.RefundID,
		"amount":         amt.String(),
		"estimatedDelay": refundDelay,
	}); err != nil {
		log.Printf("[payment] notify refund failed: %v", err)
	}

	return &RefundInfo{
		RefundID:       res.RefundID,
		Amount:         amt,
		Status:         "completed",
		EstimatedDelay: refundDelay,
	}, nil
}

// HandleWebhook never surfaces an error to the sender: the HTTP layer always
// acknowledges with 200, and the Processed flag carries the internal outcome.
func (s *paymentService) HandleWebhook(ctx context.Context, payload WebhookPayload) *WebhookAck {
	ack := &WebhookAck{Received: true, OrderID: payload.OrderID}

	fields := map[string]string{
		"orderId":    payload.OrderID,
		"amount":     payload.Amount,
		"status":     payload.Status,
		"actionCode": payload.ActionCode,
	}
	if payload.TransactionID != "" {
		fields["transactionId"] = payload.TransactionID
	}
	if !gateway.VerifySignature(fields, payload.Signature, s.cfg.SecretKey) {
		log.Printf("[webhook] invalid signature for order %s", payload.OrderID)
		return ack
	}

	txnCandidate := payload.TransactionID
	if txnCandidate == "" {
		txnCandidate = payload.OrderID
	}
	order, err := s.orders.FindForWebhook(ctx, txnCandidate, payload.OrderID)
	if err != nil {
		log.Printf("[webhook] order lookup failed: %v", err)
		return ack
	}
	if order == nil {
		log.Printf("[webhook] no matching order for %s", payload.OrderID)
		return ack
	}
	ack.OrderID = order.OrderNumber

	// redelivery for an already-terminal order is a no-op on state and must
	// not re-trigger notifications
	if order.PaymentStatus.IsTerminal() {
		if order.TransactionID != nil && (*order.TransactionID == txnCandidate || payload.TransactionID == "") {
			ack.Processed = true
		}
		return ack
	}

	approved := gateway.CodeApproved(payload.ActionCode)
	target := domain.PaymentFailed
	if approved {
		target = domain.PaymentSuccess
	}
	// a callback for an order that never entered PROCESSING is treated like an
	// unmatched one: acknowledged, not applied
	if err := order.PaymentStatus.CanTransitionTo(target); err != nil {
		log.Printf("[webhook] ignoring callback for order %s: %v", order.OrderNumber, err)
		return ack
	}
	if approved && order.TransactionID == nil && payload.TransactionID == "" {
		log.Printf("[webhook] success callback without a transaction id for order %s", order.OrderNumber)
		return ack
	}

	order.PaymentStatus = target
	if order.TransactionID == nil && payload.TransactionID != "" {
		txn := payload.TransactionID
		order.TransactionID = &txn
	}
	order.PaymentDetail.MergeWebhook(domain.WebhookReceipt{
		Received:   true,
		ActionCode: payload.ActionCode,
		At:         time.Now(),
	})

	if err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.orders.UpdatePayment(ctx, tx, order); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, order.ID, "payment.webhook", map[string]any{
			"actionCode": payload.ActionCode,
			"status":     payload.Status,
		})
	}); err != nil {
		log.Printf("[webhook] persist failed for order %s: %v", order.ID, err)
		return ack
	}

	if approved {
		s.fanOutSuccess(ctx, order)
	} else if err := s.notifier.Notify(ctx, order.UserID, EventPaymentFailed, map[string]any{
		"orderId":     order.ID.String(),
		"orderNumber": order.OrderNumber,
		"code":        payload.ActionCode,
	}); err != nil {
		log.Printf("[webhook] notify failed: %v", err)
	}

	ack.Processed = true
	return ack
}

func (s *paymentService) Methods() []MethodInfo {
	limits := MethodLimits{Min: s.cfg.MinAmount, Max: s.cfg.MaxAmount}
	return []MethodInfo{
		{
			ID:          "cash",
			Name:        "Cash on delivery",
			Description: "Pay the courier when your order arrives",
			Enabled:     true,
		},
		{
			ID:          "cib",
			Name:        "CIB card",
			Description: "Interbank CIB card payment",
			Enabled:     true,
			Limits:      limits,
		},
		{
			ID:          "edahabia",
			Name:        "EDAHABIA card",
			Description: "Algérie Poste EDAHABIA card payment",
			Enabled:     true,
			Limits:      limits,
		},
	}
}
