package domain

// Machine-readable error codes surfaced to the HTTP layer.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeOrderNotFound      = "ORDER_NOT_FOUND"
	CodeAlreadyPaid        = "ALREADY_PAID"
	CodeInvalidMode        = "INVALID_MODE"
	CodeNotRefundable      = "NOT_REFUNDABLE"
	CodeGatewayDeclined    = "GATEWAY_DECLINED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInvalidSignature   = "INVALID_SIGNATURE"
	CodeMinAmount          = "MIN_AMOUNT_ERROR"
	CodeMaxAmount          = "MAX_AMOUNT_ERROR"
	CodePaymentInProgress  = "PAYMENT_IN_PROGRESS"
)

// PaymentError is the structured failure every orchestrator and adapter
// operation returns instead of a bare error. TransactionID is set when the
// gateway assigned one before declining.
type PaymentError struct {
	Code          string
	Message       string
	TransactionID string
}

func (e *PaymentError) Error() string {
	return e.Code + ": " + e.Message
}

func NewPaymentError(code, message string) *PaymentError {
	return &PaymentError{Code: code, Message: message}
}

func ErrOrderNotFound() *PaymentError {
	return &PaymentError{Code: CodeOrderNotFound, Message: "order not found"}
}

func ErrAlreadyPaid() *PaymentError {
	return &PaymentError{Code: CodeAlreadyPaid, Message: "order is already paid"}
}

func ErrValidation(msg string) *PaymentError {
	return &PaymentError{Code: CodeValidation, Message: msg}
}
