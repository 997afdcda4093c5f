package payment

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess        = "success"
	ResultAlreadyApplied = "already_applied"
	ResultFailed         = "failed"
	ResultIgnored        = "ignored"
	ResultAnomaly        = "anomaly"
	ResultRejected       = "rejected"
	ResultError          = "error"
)

type Metrics struct {
	OrdersCreated prometheus.Counter
	GatewayErrors prometheus.Counter
	Verifications *prometheus.CounterVec
	WebhookEvents *prometheus.CounterVec
	Anomalies     *prometheus.CounterVec
}

// NewMetrics registers the payment counters on reg. A nil reg leaves them
// unregistered, which tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payments_orders_created_total",
			Help: "Gateway orders created and persisted",
		}),
		GatewayErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payments_gateway_errors_total",
			Help: "Order creation attempts that failed at the gateway",
		}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_verifications_total",
			Help: "Paid transitions attempted, by source and result",
		}, []string{"source", "result"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_webhook_events_total",
			Help: "Webhook deliveries, by event type and result",
		}, []string{"event", "result"}),
		Anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_reconciliation_anomalies_total",
			Help: "Verified gateway events that could not be reconciled",
		}, []string{"reason"}),
	}

	if reg != nil {
		reg.MustRegister(m.OrdersCreated, m.GatewayErrors, m.Verifications, m.WebhookEvents, m.Anomalies)
	}
	return m
}
