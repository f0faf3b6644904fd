package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodpay/internal/domain"
	"foodpay/internal/service"
)

const testSecret = "test-jwt-secret"

type fakePayments struct {
	webhookAck *service.WebhookAck
	chargeErr  error
	chargeRes  *service.ChargeInfo
	refundRes  *service.RefundInfo
}

func (f *fakePayments) InitiateSession(context.Context, uuid.UUID, uuid.UUID, domain.PaymentMode, string) (*service.SessionInfo, error) {
	return &service.SessionInfo{SessionID: "S-1"}, nil
}

func (f *fakePayments) ChargeDirect(context.Context, uuid.UUID, string, service.CardDetails, domain.Amount) (*service.ChargeInfo, error) {
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	return f.chargeRes, nil
}

func (f *fakePayments) ConfirmCash(context.Context, uuid.UUID, string) (*service.CashInfo, error) {
	return &service.CashInfo{OrderNumber: "ORD-1"}, nil
}

func (f *fakePayments) CheckStatus(context.Context, uuid.UUID, string) (*service.StatusInfo, error) {
	return nil, domain.ErrOrderNotFound()
}

func (f *fakePayments) History(context.Context, uuid.UUID, int, int) (*service.HistoryPage, error) {
	return &service.HistoryPage{}, nil
}

func (f *fakePayments) Refund(context.Context, uuid.UUID, *domain.Amount, string) (*service.RefundInfo, error) {
	return f.refundRes, nil
}

func (f *fakePayments) HandleWebhook(context.Context, service.WebhookPayload) *service.WebhookAck {
	return f.webhookAck
}

func (f *fakePayments) Methods() []service.MethodInfo {
	return []service.MethodInfo{{ID: "cash"}}
}

func token(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newTestRouter(p service.PaymentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	h := NewPaymentHandler(p)
	pg := r.Group("/payments")
	pg.POST("/webhook/gateway", h.Webhook)
	pg.GET("/methods", h.Methods)

	authed := pg.Group("", AuthRequired(testSecret))
	authed.POST("/charge", h.Charge)
	authed.GET("/status/:transactionId", h.Status)

	admin := pg.Group("", AuthRequired(testSecret), AdminRequired())
	admin.POST("/refund", h.Refund)
	return r
}

func doJSON(r *gin.Engine, method, path, bearer string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	r := newTestRouter(&fakePayments{webhookAck: &service.WebhookAck{Received: true, Processed: false}})

	// even an unprocessable payload gets a 200
	w := doJSON(r, http.MethodPost, "/payments/webhook/gateway", "", map[string]any{
		"orderId": "ORD-X", "actionCode": "00", "signature": "bad",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var ack service.WebhookAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.True(t, ack.Received)
	assert.False(t, ack.Processed)

	// malformed JSON still acknowledged
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook/gateway", bytes.NewBufferString("{not json"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChargeRequiresAuth(t *testing.T) {
	r := newTestRouter(&fakePayments{})

	w := doJSON(r, http.MethodPost, "/payments/charge", "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, "/payments/charge", "not-a-token", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChargeErrorMapping(t *testing.T) {
	userID := uuid.New()

	cases := []struct {
		code   string
		status int
	}{
		{domain.CodeOrderNotFound, http.StatusNotFound},
		{domain.CodeAlreadyPaid, http.StatusBadRequest},
		{domain.CodeGatewayDeclined, http.StatusBadRequest},
		{domain.CodeServiceUnavailable, http.StatusServiceUnavailable},
		{domain.CodePaymentInProgress, http.StatusConflict},
	}
	for _, tc := range cases {
		r := newTestRouter(&fakePayments{chargeErr: domain.NewPaymentError(tc.code, "boom")})
		w := doJSON(r, http.MethodPost, "/payments/charge", token(t, userID, "client"), map[string]any{
			"orderIdentifier": "ORD-1",
			"cardNetwork":     "CIB",
			"cardNumber":      "6280581000000001111",
			"expiryMonth":     12,
			"expiryYear":      30,
			"cvv":             "123",
		})
		assert.Equal(t, tc.status, w.Code, tc.code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body["code"])
	}
}

func TestRefundIsAdminOnly(t *testing.T) {
	r := newTestRouter(&fakePayments{refundRes: &service.RefundInfo{RefundID: "RF-1"}})
	body := map[string]any{"orderId": uuid.NewString()}

	w := doJSON(r, http.MethodPost, "/payments/refund", token(t, uuid.New(), "client"), body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodPost, "/payments/refund", token(t, uuid.New(), "admin"), body)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusNotFoundLeaksNothing(t *testing.T) {
	r := newTestRouter(&fakePayments{})
	w := doJSON(r, http.MethodGet, "/payments/status/TXN-1", token(t, uuid.New(), "client"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMethodsIsPublic(t *testing.T) {
	r := newTestRouter(&fakePayments{})
	w := doJSON(r, http.MethodGet, "/payments/methods", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
