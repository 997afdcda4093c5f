package payment

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/frahmantamala/freelance-payments/pkg/logger"
)

const (
	AnomalyUnknownOrder    = "unknown_order"
	AnomalyPaymentConflict = "payment_conflict"
)

// Anomaly is a verified gateway event the store could not reconcile. It never
// reaches the caller; operators see it through the reporters.
type Anomaly struct {
	Reason           string
	Event            string
	GatewayOrderID   string
	GatewayPaymentID string
	CurrentStatus    string
	StoredPaymentID  string
}

type AnomalyReporter interface {
	Report(ctx context.Context, a Anomaly)
}

type SlogAnomalyReporter struct {
	logger *slog.Logger
}

func NewSlogAnomalyReporter(logger *slog.Logger) *SlogAnomalyReporter {
	return &SlogAnomalyReporter{logger: logger}
}

func (r *SlogAnomalyReporter) Report(ctx context.Context, a Anomaly) {
	r.logger.ErrorContext(ctx, "payment reconciliation anomaly",
		"reason", a.Reason,
		"event", a.Event,
		"gateway_order_id", a.GatewayOrderID,
		"gateway_payment_id", a.GatewayPaymentID,
		"current_status", a.CurrentStatus,
		"stored_payment_id", a.StoredPaymentID)
}

type SentryAnomalyReporter struct {
	hub *sentry.Hub
}

// NewSentryAnomalyReporter reports through hub, or the process-wide hub set
// up by sentry.Init when hub is nil.
func NewSentryAnomalyReporter(hub *sentry.Hub) *SentryAnomalyReporter {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &SentryAnomalyReporter{hub: hub}
}

func (r *SentryAnomalyReporter) Report(ctx context.Context, a Anomaly) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		scope.SetTag("reason", a.Reason)
		scope.SetTag("event", a.Event)
		if traceID := logger.TraceID(ctx); traceID != "" {
			scope.SetTag("trace_id", traceID)
		}
		scope.SetContext("reconciliation", sentry.Context{
			"gateway_order_id":   a.GatewayOrderID,
			"gateway_payment_id": a.GatewayPaymentID,
			"current_status":     a.CurrentStatus,
			"stored_payment_id":  a.StoredPaymentID,
		})
		r.hub.CaptureMessage("payment reconciliation anomaly: " + a.Reason)
	})
}

type MultiAnomalyReporter []AnomalyReporter

func (m MultiAnomalyReporter) Report(ctx context.Context, a Anomaly) {
	for _, r := range m {
		r.Report(ctx, a)
	}
}
