package payment

import (
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/freelance-payments/internal"
	"github.com/frahmantamala/freelance-payments/internal/core/common/validation"
	"github.com/frahmantamala/freelance-payments/internal/core/datamodel/payment"
)

// MaxAmount is the largest value a decimal(10,2) column holds.
var MaxAmount = decimal.RequireFromString("99999999.99")

// CreateOrderRequest is the body of POST /payments/create-order. Amount
// accepts a JSON number or a numeric string.
type CreateOrderRequest struct {
	JobID         *int64           `json:"job_id"`
	ApplicationID *int64           `json:"application_id"`
	ClientID      *int64           `json:"client_id"`
	FreelancerID  *int64           `json:"freelancer_id"`
	Amount        *decimal.Decimal `json:"amount"`
}

func (r *CreateOrderRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("job_id", r.JobID).Required().MinInt(1, errors.ErrCodeValidationFailed)
	validator.Field("application_id", r.ApplicationID).Required().MinInt(1, errors.ErrCodeValidationFailed)
	validator.Field("client_id", r.ClientID).Required().MinInt(1, errors.ErrCodeValidationFailed)
	validator.Field("freelancer_id", r.FreelancerID).Required().MinInt(1, errors.ErrCodeValidationFailed)
	validator.Field("amount", r.Amount).Required().PositiveDecimal().MaxDecimalPlaces(2).MaxDecimal(MaxAmount)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type CreateOrderResponse struct {
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PaymentID int64  `json:"payment_id"`
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

func (r *VerifyPaymentRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("razorpay_order_id", r.RazorpayOrderID).Required().MaxLength(100)
	validator.Field("razorpay_payment_id", r.RazorpayPaymentID).Required().MaxLength(100)
	validator.Field("razorpay_signature", r.RazorpaySignature).Required().MaxLength(255)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type VerifyPaymentResponse struct {
	Message string `json:"message"`
}

// PaymentView is the public shape of a stored payment. The signature is
// never exposed.
type PaymentView struct {
	ID               int64          `json:"id"`
	JobID            int64          `json:"job_id"`
	ApplicationID    int64          `json:"application_id"`
	ClientID         int64          `json:"client_id"`
	FreelancerID     int64          `json:"freelancer_id"`
	Amount           string         `json:"amount"`
	Currency         string         `json:"currency"`
	Status           payment.Status `json:"status"`
	GatewayOrderID   string         `json:"gateway_order_id"`
	GatewayPaymentID *string        `json:"gateway_payment_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

func ToView(p *payment.Payment) PaymentView {
	return PaymentView{
		ID:               p.ID,
		JobID:            p.JobID,
		ApplicationID:    p.ApplicationID,
		ClientID:         p.ClientID,
		FreelancerID:     p.FreelancerID,
		Amount:           p.Amount.StringFixed(2),
		Currency:         p.Currency,
		Status:           p.Status,
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		CreatedAt:        p.CreatedAt,
	}
}

// MinorUnits converts a validated major-unit amount to paise. The shift is
// exact; callers must have rejected more than two fractional digits.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}
