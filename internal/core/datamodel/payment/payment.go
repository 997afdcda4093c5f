package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusCreated  Status = "created"
	StatusPaid     Status = "paid"
	StatusFailed   Status = "failed"
	StatusRefunded Status = "refunded"
)

const DefaultCurrency = "INR"

// transitions lists the forward moves a payment may make. Anything absent is
// a regression and must never be written.
var transitions = map[Status][]Status{
	StatusCreated: {StatusPaid, StatusFailed},
	StatusPaid:    {StatusRefunded},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusPaid, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionResult tells the caller whether its update actually moved the
// record, so side effects fire once per transition and not once per delivery.
type TransitionResult int

const (
	Transitioned TransitionResult = iota + 1
	AlreadyApplied
)

func (r TransitionResult) String() string {
	switch r {
	case Transitioned:
		return "transitioned"
	case AlreadyApplied:
		return "already_applied"
	}
	return "unknown"
}

var (
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrTransitionConflict = errors.New("payment state conflicts with requested transition")
)

type Payment struct {
	ID               int64           `gorm:"primaryKey"`
	JobID            int64           `gorm:"column:job_id;not null"`
	ApplicationID    int64           `gorm:"column:application_id;not null"`
	ClientID         int64           `gorm:"column:client_id;not null"`
	FreelancerID     int64           `gorm:"column:freelancer_id;not null"`
	Amount           decimal.Decimal `gorm:"column:amount;type:decimal(10,2);not null"`
	Currency         string          `gorm:"column:currency;size:10;not null;default:INR"`
	GatewayOrderID   string          `gorm:"column:gateway_order_id;size:100;not null;uniqueIndex;<-:create"`
	GatewayPaymentID *string         `gorm:"column:gateway_payment_id;size:100"`
	GatewaySignature *string         `gorm:"column:gateway_signature;size:255"`
	Status           Status          `gorm:"column:status;size:20;not null;default:created;index"`
	CreatedAt        time.Time       `gorm:"column:created_at;<-:create"`
	UpdatedAt        time.Time       `gorm:"column:updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// IsPaidWith reports whether the record is already paid by paymentID.
func (p *Payment) IsPaidWith(paymentID string) bool {
	return p.Status == StatusPaid && p.GatewayPaymentID != nil && *p.GatewayPaymentID == paymentID
}
