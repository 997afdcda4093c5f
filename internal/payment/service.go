package payment

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	errors "github.com/frahmantamala/freelance-payments/internal"
	"github.com/frahmantamala/freelance-payments/internal/core/datamodel/payment"
	paymentgatewaytypes "github.com/frahmantamala/freelance-payments/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/freelance-payments/internal/core/events"
	"github.com/frahmantamala/freelance-payments/internal/paymentgateway"
)

type RepositoryAPI interface {
	Create(ctx context.Context, p *payment.Payment) error
	GetByID(ctx context.Context, id int64) (*payment.Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (*payment.Payment, error)
	MarkPaid(ctx context.Context, orderID, paymentID string, signature *string) (*payment.Payment, payment.TransitionResult, error)
}

type GatewayAPI interface {
	CreateOrder(ctx context.Context, req *paymentgatewaytypes.OrderRequest) (*paymentgatewaytypes.Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) error
	VerifyWebhookSignature(body []byte, signature string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo      RepositoryAPI
	gateway   GatewayAPI
	publisher EventPublisher
	anomalies AnomalyReporter
	metrics   *Metrics
	currency  string
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, gateway GatewayAPI, publisher EventPublisher, anomalies AnomalyReporter, metrics *Metrics, currency string, logger *slog.Logger) *Service {
	if anomalies == nil {
		anomalies = NewSlogAnomalyReporter(logger)
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if currency == "" {
		currency = payment.DefaultCurrency
	}
	return &Service{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		anomalies: anomalies,
		metrics:   metrics,
		currency:  currency,
		logger:    logger,
	}
}

// CreateOrder registers an auto-capture order with the gateway and records it
// as created. Nothing is stored when the gateway call fails.
func (s *Service) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	amount := *req.Amount
	minor := MinorUnits(amount)

	orderReq := &paymentgatewaytypes.OrderRequest{
		Amount:         minor,
		Currency:       s.currency,
		Receipt:        receipt(*req.JobID, *req.ApplicationID),
		PaymentCapture: 1,
		Notes: map[string]string{
			"job_id":         strconv.FormatInt(*req.JobID, 10),
			"application_id": strconv.FormatInt(*req.ApplicationID, 10),
			"client_id":      strconv.FormatInt(*req.ClientID, 10),
			"freelancer_id":  strconv.FormatInt(*req.FreelancerID, 10),
		},
	}

	order, err := s.gateway.CreateOrder(ctx, orderReq)
	if err != nil {
		s.metrics.GatewayErrors.Inc()
		s.logger.Error("gateway order creation failed",
			"error", err,
			"job_id", *req.JobID,
			"application_id", *req.ApplicationID,
			"amount_minor", minor)
		return nil, gatewayError(err)
	}

	record := &payment.Payment{
		JobID:          *req.JobID,
		ApplicationID:  *req.ApplicationID,
		ClientID:       *req.ClientID,
		FreelancerID:   *req.FreelancerID,
		Amount:         amount,
		Currency:       s.currency,
		GatewayOrderID: order.ID,
		Status:         payment.StatusCreated,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		// the gateway order exists but nothing points at it; it expires unpaid
		s.logger.Error("failed to record payment for gateway order",
			"error", err,
			"gateway_order_id", order.ID,
			"job_id", *req.JobID)
		return nil, errors.NewInternalError("failed to record payment", err)
	}

	s.metrics.OrdersCreated.Inc()
	s.logger.Info("payment order created",
		"payment_id", record.ID,
		"gateway_order_id", order.ID,
		"job_id", record.JobID,
		"application_id", record.ApplicationID,
		"amount_minor", minor)

	return &CreateOrderResponse{
		OrderID:   order.ID,
		Amount:    minor,
		Currency:  s.currency,
		PaymentID: record.ID,
	}, nil
}

// receipt fits the gateway's 40 character limit for any pair of positive ids;
// the full ids always travel in the order notes.
func receipt(jobID, applicationID int64) string {
	r := fmt.Sprintf("job-%d-app-%d", jobID, applicationID)
	if len(r) > paymentgatewaytypes.MaxReceiptLength {
		return fmt.Sprintf("job-%d", jobID)
	}
	return r
}

func gatewayError(err error) error {
	if appErr, ok := errors.IsAppError(err); ok && appErr.Type == errors.ErrorTypeValidation {
		return appErr
	}
	if stderrors.Is(err, paymentgateway.ErrInvalidOrder) {
		return errors.NewInternalError("failed to build payment order", err)
	}
	var apiErr *paymentgateway.APIError
	if stderrors.As(err, &apiErr) && apiErr.Rejected() {
		return errors.NewGatewayError(http.StatusBadRequest, errors.ErrCodeGatewayError, err)
	}
	return errors.NewGatewayError(http.StatusBadGateway, errors.ErrCodeGatewayUnavailable, err)
}

// VerifyPayment applies a checkout confirmation submitted by the client. Every
// failure comes back as the same verification error.
func (s *Service) VerifyPayment(ctx context.Context, req *VerifyPaymentRequest) (*VerifyPaymentResponse, error) {
	if err := req.Validate(); err != nil {
		s.metrics.Verifications.WithLabelValues(events.SourceClientVerification, ResultFailed).Inc()
		s.logger.Warn("payment verification rejected: incomplete request", "error", err)
		return nil, errors.ErrPaymentVerification
	}

	if err := s.gateway.VerifyPaymentSignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature); err != nil {
		s.metrics.Verifications.WithLabelValues(events.SourceClientVerification, ResultFailed).Inc()
		s.logger.Warn("payment verification rejected: signature mismatch",
			"gateway_order_id", req.RazorpayOrderID,
			"gateway_payment_id", req.RazorpayPaymentID)
		return nil, errors.ErrPaymentVerification
	}

	signature := req.RazorpaySignature
	p, result, err := s.repo.MarkPaid(ctx, req.RazorpayOrderID, req.RazorpayPaymentID, &signature)
	if err != nil {
		s.metrics.Verifications.WithLabelValues(events.SourceClientVerification, ResultFailed).Inc()
		switch {
		case stderrors.Is(err, payment.ErrPaymentNotFound):
			s.logger.Warn("payment verification rejected: unknown order",
				"gateway_order_id", req.RazorpayOrderID,
				"gateway_payment_id", req.RazorpayPaymentID)
		case stderrors.Is(err, payment.ErrTransitionConflict):
			var status payment.Status
			if p != nil {
				status = p.Status
			}
			s.logger.Warn("payment verification rejected: order state conflict",
				"gateway_order_id", req.RazorpayOrderID,
				"gateway_payment_id", req.RazorpayPaymentID,
				"current_status", status)
		default:
			s.logger.Error("payment verification failed: store error",
				"error", err,
				"gateway_order_id", req.RazorpayOrderID)
		}
		return nil, errors.ErrPaymentVerification
	}

	s.recordTransition(ctx, p, result, events.SourceClientVerification)

	return &VerifyPaymentResponse{Message: "Payment verified"}, nil
}

// HandleWebhook authenticates a raw webhook delivery and applies captured
// payments. The body is not parsed until its signature checks out.
// Reconciliation anomalies are reported and swallowed so the gateway stops
// redelivering; only store failures surface as internal errors.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if err := s.gateway.VerifyWebhookSignature(body, signature); err != nil {
		s.metrics.WebhookEvents.WithLabelValues("unverified", ResultRejected).Inc()
		s.logger.Warn("webhook rejected: signature mismatch", "body_size", len(body))
		return errors.ErrInvalidWebhookSignature
	}

	var event paymentgatewaytypes.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.metrics.WebhookEvents.WithLabelValues("unparsed", ResultRejected).Inc()
		s.logger.Error("webhook rejected: malformed payload", "error", err)
		return errors.ErrInvalidWebhookPayload
	}

	if event.Event != paymentgatewaytypes.EventPaymentCaptured {
		s.metrics.WebhookEvents.WithLabelValues(event.Event, ResultIgnored).Inc()
		s.logger.Info("webhook event ignored", "event", event.Event)
		return nil
	}

	entity := event.PaymentEntity()
	if entity == nil || entity.ID == "" || entity.OrderID == "" {
		s.metrics.WebhookEvents.WithLabelValues(event.Event, ResultRejected).Inc()
		s.logger.Error("webhook rejected: captured event without payment or order id")
		return errors.ErrInvalidWebhookPayload
	}

	p, result, err := s.repo.MarkPaid(ctx, entity.OrderID, entity.ID, nil)
	if err != nil {
		switch {
		case stderrors.Is(err, payment.ErrPaymentNotFound):
			s.reportAnomaly(ctx, Anomaly{
				Reason:           AnomalyUnknownOrder,
				Event:            event.Event,
				GatewayOrderID:   entity.OrderID,
				GatewayPaymentID: entity.ID,
			})
			return nil
		case stderrors.Is(err, payment.ErrTransitionConflict):
			a := Anomaly{
				Reason:           AnomalyPaymentConflict,
				Event:            event.Event,
				GatewayOrderID:   entity.OrderID,
				GatewayPaymentID: entity.ID,
			}
			if p != nil {
				a.CurrentStatus = string(p.Status)
				if p.GatewayPaymentID != nil {
					a.StoredPaymentID = *p.GatewayPaymentID
				}
			}
			s.reportAnomaly(ctx, a)
			return nil
		}

		s.metrics.WebhookEvents.WithLabelValues(event.Event, ResultError).Inc()
		s.logger.Error("webhook reconciliation failed: store error",
			"error", err,
			"gateway_order_id", entity.OrderID,
			"gateway_payment_id", entity.ID)
		return errors.NewInternalError("failed to reconcile payment", err)
	}

	if entity.Amount != 0 && entity.Amount != MinorUnits(p.Amount) {
		s.logger.Warn("captured amount differs from order amount",
			"gateway_order_id", entity.OrderID,
			"captured_minor", entity.Amount,
			"order_minor", MinorUnits(p.Amount))
	}

	s.metrics.WebhookEvents.WithLabelValues(event.Event, resultLabel(result)).Inc()
	s.recordTransition(ctx, p, result, events.SourceWebhook)
	return nil
}

func (s *Service) GetPayment(ctx context.Context, id int64) (*PaymentView, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, payment.ErrPaymentNotFound) {
			return nil, errors.ErrPaymentNotFound
		}
		s.logger.Error("failed to load payment", "error", err, "payment_id", id)
		return nil, errors.NewInternalError("failed to load payment", err)
	}

	view := ToView(p)
	return &view, nil
}

func (s *Service) reportAnomaly(ctx context.Context, a Anomaly) {
	s.metrics.WebhookEvents.WithLabelValues(a.Event, ResultAnomaly).Inc()
	s.metrics.Anomalies.WithLabelValues(a.Reason).Inc()
	s.anomalies.Report(ctx, a)
}

func resultLabel(result payment.TransitionResult) string {
	if result == payment.Transitioned {
		return ResultSuccess
	}
	return ResultAlreadyApplied
}

// recordTransition publishes payment.paid only for the caller whose update
// moved the record.
func (s *Service) recordTransition(ctx context.Context, p *payment.Payment, result payment.TransitionResult, source string) {
	s.metrics.Verifications.WithLabelValues(source, resultLabel(result)).Inc()

	if result != payment.Transitioned {
		s.logger.Info("payment already marked paid",
			"payment_id", p.ID,
			"gateway_order_id", p.GatewayOrderID,
			"source", source)
		return
	}

	s.logger.Info("payment marked paid",
		"payment_id", p.ID,
		"gateway_order_id", p.GatewayOrderID,
		"source", source)

	if s.publisher == nil {
		return
	}

	var paymentID string
	if p.GatewayPaymentID != nil {
		paymentID = *p.GatewayPaymentID
	}

	event := events.NewPaymentPaidEvent(events.PaymentPaid{
		PaymentID:        p.ID,
		JobID:            p.JobID,
		ApplicationID:    p.ApplicationID,
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: paymentID,
		AmountMinor:      MinorUnits(p.Amount),
		Currency:         p.Currency,
		Source:           source,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish payment paid event",
			"error", err,
			"payment_id", p.ID,
			"event_id", event.EventID())
	}
}
