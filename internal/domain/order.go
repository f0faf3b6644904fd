package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentSuccess    PaymentStatus = "SUCCESS"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
)

type PaymentMode string

const (
	ModeCash     PaymentMode = "CASH"
	ModeCIB      PaymentMode = "CIB"
	ModeEdahabia PaymentMode = "EDAHABIA"
)

// CanTransitionTo reports whether moving the payment status to target is a
// legal step. A FAILED attempt may re-enter PROCESSING (retry); SUCCESS only
// moves forward to REFUNDED; REFUNDED is terminal.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) error {
	switch s {
	case PaymentPending:
		if target == PaymentProcessing || target == PaymentPending {
			return nil
		}
	case PaymentProcessing:
		if target == PaymentSuccess || target == PaymentFailed {
			return nil
		}
	case PaymentFailed:
		if target == PaymentProcessing {
			return nil
		}
	case PaymentSuccess:
		if target == PaymentRefunded {
			return nil
		}
	case PaymentRefunded:
	}
	return fmt.Errorf("illegal payment transition %s -> %s", s, target)
}

// IsTerminal reports whether no further charge attempt applies to the order.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentSuccess || s == PaymentRefunded
}

// ChargeDetail records the outcome of the last charge attempt. On success the
// card fields are set; on failure Error/ErrorCode carry the decline.
type ChargeDetail struct {
	CardLast4         string    `json:"cardLast4,omitempty"`
	CardType          string    `json:"cardType,omitempty"`
	AuthorizationCode string    `json:"authorizationCode,omitempty"`
	ResponseCode      string    `json:"responseCode,omitempty"`
	TransactionID     string    `json:"transactionId,omitempty"`
	Error             string    `json:"error,omitempty"`
	ErrorCode         string    `json:"errorCode,omitempty"`
	At                time.Time `json:"timestamp"`
}

type RefundDetail struct {
	RefundID       string    `json:"refundId"`
	Amount         Amount    `json:"amount"`
	Reason         string    `json:"reason,omitempty"`
	Status         string    `json:"status"`
	EstimatedDelay string    `json:"estimatedDelay"`
	At             time.Time `json:"timestamp"`
}

type WebhookReceipt struct {
	Received   bool      `json:"received"`
	ActionCode string    `json:"actionCode"`
	At         time.Time `json:"timestamp"`
}

// PaymentDetail is the structured detail blob stored on the order. Updates go
// through the Merge* setters, which replace only their own sub-record and keep
// the rest, so a refund never erases the original charge metadata.
type PaymentDetail struct {
	Charge  *ChargeDetail   `json:"charge,omitempty"`
	Refund  *RefundDetail   `json:"refund,omitempty"`
	Webhook *WebhookReceipt `json:"webhook,omitempty"`
}

func (d *PaymentDetail) MergeCharge(c ChargeDetail) { d.Charge = &c }

func (d *PaymentDetail) MergeRefund(r RefundDetail) { d.Refund = &r }

func (d *PaymentDetail) MergeWebhook(w WebhookReceipt) { d.Webhook = &w }

// Value / Scan store the detail as JSONB.
func (d PaymentDetail) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *PaymentDetail) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = PaymentDetail{}
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("cannot scan %T into PaymentDetail", src)
	}
}

// Order is the payment-relevant slice of an order row. Catalog lines, address
// and courier assignment live elsewhere; this core only reads and writes the
// payment fields.
type Order struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	ProviderID    *uuid.UUID
	OrderNumber   string
	TotalAmount   Amount
	PaymentMode   PaymentMode
	PaymentStatus PaymentStatus
	TransactionID *string
	PaymentDetail PaymentDetail
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
