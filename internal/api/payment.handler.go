package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"foodpay/internal/domain"
	"foodpay/internal/service"
)

type PaymentHandler struct {
	payments service.PaymentService
}

func NewPaymentHandler(payments service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// writeError maps the orchestrator's typed errors to HTTP. Anything untyped
// is a genuine infrastructure failure.
func writeError(c *gin.Context, err error) {
	var perr *domain.PaymentError
	if !errors.As(err, &perr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "internal error", "code": "INTERNAL_ERROR",
		})
		return
	}

	status := http.StatusBadRequest
	switch perr.Code {
	case domain.CodeOrderNotFound:
		status = http.StatusNotFound
	case domain.CodeServiceUnavailable:
		status = http.StatusServiceUnavailable
	case domain.CodePaymentInProgress:
		status = http.StatusConflict
	}

	body := gin.H{"error": perr.Message, "code": perr.Code}
	if perr.TransactionID != "" {
		body["transactionId"] = perr.TransactionID
	}
	c.JSON(status, body)
}

func parseNetwork(s string) (domain.PaymentMode, bool) {
	switch domain.PaymentMode(strings.ToUpper(s)) {
	case domain.ModeCIB:
		return domain.ModeCIB, true
	case domain.ModeEdahabia:
		return domain.ModeEdahabia, true
	default:
		return "", false
	}
}

type initiateRequest struct {
	OrderID     string `json:"orderId" binding:"required"`
	CardNetwork string `json:"cardNetwork" binding:"required"`
	ReturnURL   string `json:"returnUrl"`
}

// POST /payments/initiate
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": domain.CodeValidation})
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId must be a UUID", "code": domain.CodeValidation})
		return
	}
	network, ok := parseNetwork(req.CardNetwork)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported card network", "code": domain.CodeValidation})
		return
	}

	session, err := h.payments.InitiateSession(c.Request.Context(), currentUser(c), orderID, network, req.ReturnURL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type chargeRequest struct {
	OrderIdentifier string        `json:"orderIdentifier" binding:"required"`
	CardNetwork     string        `json:"cardNetwork" binding:"required"`
	CardNumber      string        `json:"cardNumber" binding:"required"`
	CardholderName  string        `json:"cardholderName"`
	ExpiryMonth     int           `json:"expiryMonth" binding:"required"`
	ExpiryYear      int           `json:"expiryYear" binding:"required"`
	CVV             string        `json:"cvv" binding:"required"`
	Amount          domain.Amount `json:"amount"`
}

// POST /payments/charge
func (h *PaymentHandler) Charge(c *gin.Context) {
	var req chargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": domain.CodeValidation})
		return
	}

	network, ok := parseNetwork(req.CardNetwork)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported card network", "code": domain.CodeValidation})
		return
	}

	info, err := h.payments.ChargeDirect(c.Request.Context(), currentUser(c), req.OrderIdentifier, service.CardDetails{
		Network:        network,
		Number:         req.CardNumber,
		CardholderName: req.CardholderName,
		ExpiryMonth:    req.ExpiryMonth,
		ExpiryYear:     req.ExpiryYear,
		CVV:            req.CVV,
	}, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

type cashRequest struct {
	OrderIdentifier string `json:"orderIdentifier" binding:"required"`
}

// POST /payments/cash
func (h *PaymentHandler) Cash(c *gin.Context) {
	var req cashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": domain.CodeValidation})
		return
	}

	info, err := h.payments.ConfirmCash(c.Request.Context(), currentUser(c), req.OrderIdentifier)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// GET /payments/status/:transactionId
func (h *PaymentHandler) Status(c *gin.Context) {
	info, err := h.payments.CheckStatus(c.Request.Context(), currentUser(c), c.Param("transactionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// GET /payments/history?page&limit
func (h *PaymentHandler) History(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	history, err := h.payments.History(c.Request.Context(), currentUser(c), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

type refundRequest struct {
	OrderID string         `json:"orderId" binding:"required"`
	Amount  *domain.Amount `json:"amount"`
	Reason  string         `json:"reason"`
}

// POST /payments/refund (admin only)
func (h *PaymentHandler) Refund(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": domain.CodeValidation})
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId must be a UUID", "code": domain.CodeValidation})
		return
	}

	info, err := h.payments.Refund(c.Request.Context(), orderID, req.Amount, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// POST /payments/webhook/gateway
// Always acknowledges with 200 so the gateway stops retrying; the processed
// flag carries the internal outcome.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var payload service.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusOK, service.WebhookAck{Received: true, Processed: false})
		return
	}
	c.JSON(http.StatusOK, h.payments.HandleWebhook(c.Request.Context(), payload))
}

// GET /payments/methods
func (h *PaymentHandler) Methods(c *gin.Context) {
	c.JSON(http.StatusOK, h.payments.Methods())
}
