package paymentgateway

import (
	"errors"
	"fmt"
)

const (
	EventPaymentCaptured   = "payment.captured"
	EventPaymentFailed     = "payment.failed"
	EventPaymentAuthorized = "payment.authorized"
	EventOrderPaid         = "order.paid"
)

const MaxReceiptLength = 40

// OrderRequest is the body of POST /v1/orders. Amount is in minor units
// (paise for INR).
type OrderRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt,omitempty"`
	PaymentCapture int               `json:"payment_capture"`
	Notes          map[string]string `json:"notes,omitempty"`
}

func (r *OrderRequest) Validate() error {
	if r.Amount <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if r.Currency == "" {
		return errors.New("currency is required")
	}
	if len(r.Receipt) > MaxReceiptLength {
		return fmt.Errorf("receipt must not exceed %d characters", MaxReceiptLength)
	}
	return nil
}

type Order struct {
	ID         string `json:"id"`
	Entity     string `json:"entity"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	AmountDue  int64  `json:"amount_due"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`
	CreatedAt  int64  `json:"created_at"`
}

// ErrorResponse is the error envelope the gateway returns on 4xx/5xx.
type ErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Source      string `json:"source"`
		Reason      string `json:"reason"`
	} `json:"error"`
}

type WebhookEvent struct {
	Entity    string         `json:"entity"`
	AccountID string         `json:"account_id"`
	Event     string         `json:"event"`
	Contains  []string       `json:"contains"`
	Payload   WebhookPayload `json:"payload"`
	CreatedAt int64          `json:"created_at"`
}

type WebhookPayload struct {
	Payment *PaymentEnvelope `json:"payment,omitempty"`
}

type PaymentEnvelope struct {
	Entity PaymentEntity `json:"entity"`
}

type PaymentEntity struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	OrderID  string `json:"order_id"`
	Method   string `json:"method"`
	Captured bool   `json:"captured"`
}

// PaymentEntity returns the nested payment, or nil when the event carries none.
func (e *WebhookEvent) PaymentEntity() *PaymentEntity {
	if e.Payload.Payment == nil {
		return nil
	}
	return &e.Payload.Payment.Entity
}
