package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentPaid = "payment.paid"
)

const (
	SourceClientVerification = "client_verification"
	SourceWebhook            = "webhook"
	SourceCLI                = "cli"
)

// PaymentPaidEvent is emitted once, by whichever path moved the record from
// created to paid.
type PaymentPaidEvent struct {
	BaseEvent
	PaymentID        int64  `json:"payment_id"`
	JobID            int64  `json:"job_id"`
	ApplicationID    int64  `json:"application_id"`
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	AmountMinor      int64  `json:"amount_minor"`
	Currency         string `json:"currency"`
	Source           string `json:"source"`
}

type PaymentPaid struct {
	PaymentID        int64
	JobID            int64
	ApplicationID    int64
	GatewayOrderID   string
	GatewayPaymentID string
	AmountMinor      int64
	Currency         string
	Source           string
}

func NewPaymentPaidEvent(p PaymentPaid) *PaymentPaidEvent {
	return &PaymentPaidEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentPaid,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"payment_id":         p.PaymentID,
				"job_id":             p.JobID,
				"application_id":     p.ApplicationID,
				"gateway_order_id":   p.GatewayOrderID,
				"gateway_payment_id": p.GatewayPaymentID,
				"amount_minor":       p.AmountMinor,
				"currency":           p.Currency,
				"source":             p.Source,
			},
		},
		PaymentID:        p.PaymentID,
		JobID:            p.JobID,
		ApplicationID:    p.ApplicationID,
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		AmountMinor:      p.AmountMinor,
		Currency:         p.Currency,
		Source:           p.Source,
	}
}
