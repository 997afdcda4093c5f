package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/freelance-payments/internal/core/datamodel/payment"
	paymentpkg "github.com/frahmantamala/freelance-payments/internal/payment"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) paymentpkg.RepositoryAPI {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	if p.Status == "" {
		p.Status = payment.StatusCreated
	}
	if p.Currency == "" {
		p.Currency = payment.DefaultCurrency
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).Where("gateway_order_id = ?", orderID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// MarkPaid moves the order's record from created to paid in one conditional
// UPDATE. When no row matches, the record is re-read to tell a replay of the
// same payment apart from a conflict or a missing order.
func (r *PaymentRepository) MarkPaid(ctx context.Context, orderID, paymentID string, signature *string) (*payment.Payment, payment.TransitionResult, error) {
	updates := map[string]interface{}{
		"status":             payment.StatusPaid,
		"gateway_payment_id": paymentID,
	}
	if signature != nil {
		updates["gateway_signature"] = *signature
	}

	res := r.db.WithContext(ctx).
		Model(&payment.Payment{}).
		Where("gateway_order_id = ? AND status = ?", orderID, payment.StatusCreated).
		Updates(updates)
	if res.Error != nil {
		return nil, 0, fmt.Errorf("mark payment paid: %w", res.Error)
	}

	current, err := r.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, 0, err
	}

	if res.RowsAffected == 1 {
		return current, payment.Transitioned, nil
	}

	if !current.IsPaidWith(paymentID) {
		return current, 0, payment.ErrTransitionConflict
	}

	if signature != nil && current.GatewaySignature == nil {
		fill := r.db.WithContext(ctx).
			Model(&payment.Payment{}).
			Where("gateway_order_id = ? AND status = ? AND gateway_payment_id = ? AND gateway_signature IS NULL",
				orderID, payment.StatusPaid, paymentID).
			Update("gateway_signature", *signature)
		if fill.Error != nil {
			return nil, 0, fmt.Errorf("fill payment signature: %w", fill.Error)
		}
		if fill.RowsAffected == 1 {
			current.GatewaySignature = signature
		}
	}

	return current, payment.AlreadyApplied, nil
}
