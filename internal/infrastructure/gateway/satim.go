package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"foodpay/internal/config"
	"foodpay/internal/domain"
)

// Endpoint paths under the configured base URL.
const (
	pathRegister = "/register.do"
	pathConfirm  = "/confirm.do"
	pathStatus   = "/getOrderStatus.do"
	pathRefund   = "/refund.do"
)

// ISO 4217 numeric code for the Algerian dinar.
const currencyDZD = "012"

// SatimClient talks to the real gateway (sandbox or production — same wire
// contract, different base URL and credentials). Every request body carries
// merchantId, terminalId, the integer minor-unit amount and a trailing
// signature over all other fields.
type SatimClient struct {
	cfg  config.Gateway
	http *http.Client
}

func NewSatimClient(cfg config.Gateway) *SatimClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SatimClient{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

type satimResponse struct {
	ActionCode    string `json:"actionCode"`
	ErrorMessage  string `json:"errorMessage"`
	TransactionID string `json:"transactionId"`
	AuthCode      string `json:"authCode"`
	SessionID     string `json:"sessionId"`
	FormURL       string `json:"formUrl"`
	ExpiresIn     int    `json:"expiresIn"`
	OrderStatus   string `json:"orderStatus"`
	RefundID      string `json:"refundId"`
}

// post sends a signed JSON request. Connectivity, timeout and decode failures
// all come back as SERVICE_UNAVAILABLE so the orchestrator never sees a raw
// transport error.
func (c *SatimClient) post(ctx context.Context, path string, fields map[string]string) (*satimResponse, error) {
	fields["merchantId"] = c.cfg.MerchantID
	fields["terminalId"] = c.cfg.TerminalID
	fields["signature"] = Sign(fields, c.cfg.SecretKey)

	body, err := json.Marshal(fields)
	if err != nil {
		return nil, domain.NewPaymentError(domain.CodeServiceUnavailable, "gateway request encode failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewPaymentError(domain.CodeServiceUnavailable, "gateway request build failed")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.NewPaymentError(domain.CodeServiceUnavailable,
			fmt.Sprintf("payment gateway unreachable: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewPaymentError(domain.CodeServiceUnavailable,
			fmt.Sprintf("payment gateway returned HTTP %d", resp.StatusCode))
	}

	var out satimResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, domain.NewPaymentError(domain.CodeServiceUnavailable, "payment gateway response decode failed")
	}
	return &out, nil
}

func (c *SatimClient) InitSession(ctx context.Context, orderNumber string, amount domain.Amount, network domain.PaymentMode, returnURL string) (*Session, error) {
	if err := checkLimits(c.cfg, amount); err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, pathRegister, map[string]string{
		"orderNumber": orderNumber,
		"amount":      strconv.FormatInt(amount.Minor(), 10),
		"currency":    currencyDZD,
		"network":     string(network),
		"returnUrl":   returnURL,
	})
	if err != nil {
		return nil, err
	}
	if !CodeApproved(resp.ActionCode) {
		return nil, &domain.PaymentError{
			Code:          domain.CodeGatewayDeclined,
			Message:       declineMessage(resp),
			TransactionID: resp.TransactionID,
		}
	}

	expires := time.Duration(resp.ExpiresIn) * time.Second
	if expires <= 0 {
		expires = 15 * time.Minute
	}
	return &Session{
		ID:         resp.SessionID,
		PaymentURL: resp.FormURL,
		ExpiresAt:  time.Now().Add(expires),
	}, nil
}

func (c *SatimClient) Charge(ctx context.Context, req *ChargeRequest) (*Result, error) {
	if err := checkLimits(c.cfg, req.Amount); err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, pathConfirm, map[string]string{
		"orderNumber":    req.OrderNumber,
		"amount":         strconv.FormatInt(req.Amount.Minor(), 10),
		"currency":       currencyDZD,
		"network":        string(req.Network),
		"cardNumber":     req.CardNumber,
		"cardholderName": req.CardholderName,
		"expiry":         fmt.Sprintf("%02d/%02d", req.ExpiryMonth, req.ExpiryYear),
		"cvv":            req.CVV,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		Approved:          CodeApproved(resp.ActionCode),
		TransactionID:     resp.TransactionID,
		AuthorizationCode: resp.AuthCode,
		ActionCode:        resp.ActionCode,
		Message:           declineMessage(resp),
	}
	if res.Approved {
		res.Message = CodeMessage(resp.ActionCode)
		res.RemoteStatus = string(domain.PaymentSuccess)
	} else {
		res.RemoteStatus = string(domain.PaymentFailed)
	}
	return res, nil
}

func (c *SatimClient) Status(ctx context.Context, transactionID string) (*Result, error) {
	resp, err := c.post(ctx, pathStatus, map[string]string{
		"transactionId": transactionID,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Approved:      CodeApproved(resp.ActionCode),
		TransactionID: transactionID,
		ActionCode:    resp.ActionCode,
		Message:       CodeMessage(resp.ActionCode),
		RemoteStatus:  resp.OrderStatus,
	}, nil
}

func (c *SatimClient) Refund(ctx context.Context, transactionID string, amount domain.Amount, reason string) (*Result, error) {
	if err := checkLimits(c.cfg, amount); err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, pathRefund, map[string]string{
		"transactionId": transactionID,
		"amount":        strconv.FormatInt(amount.Minor(), 10),
		"currency":      currencyDZD,
		"reason":        reason,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Approved:      CodeApproved(resp.ActionCode),
		TransactionID: transactionID,
		RefundID:      resp.RefundID,
		ActionCode:    resp.ActionCode,
		Message:       declineMessage(resp),
	}, nil
}

func declineMessage(resp *satimResponse) string {
	if resp.ErrorMessage != "" {
		return resp.ErrorMessage
	}
	return CodeMessage(resp.ActionCode)
}
