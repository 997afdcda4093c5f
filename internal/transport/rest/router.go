package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/freelance-payments/api"
	"github.com/frahmantamala/freelance-payments/internal/payment"
	"github.com/frahmantamala/freelance-payments/internal/transport/middleware"
	"github.com/frahmantamala/freelance-payments/internal/transport/swagger"
)

// WebhookPath receives unauthenticated gateway deliveries; its body is never
// logged.
const WebhookPath = "/api/v1/payments/webhook"

type Routes struct {
	DB          Pinger
	Checks      map[string]CheckFunc
	Payments    *payment.Handler
	Webhooks    *payment.WebhookHandler
	Metrics     http.Handler
	MetricsPath string
	Logger      *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, routes Routes) {
	healthHandler := NewHealthHandler(routes.DB)
	for name, check := range routes.Checks {
		healthHandler.AddCheck(name, check)
	}

	// Apply global middleware
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(routes.Logger, middleware.OmitBody(WebhookPath)))
	router.Use(middleware.RecoveryMiddleware(routes.Logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Method(http.MethodGet, "/openapi.yml", api.Handler())
	router.Handle("/swagger/*", swagger.Handler())

	if routes.Metrics != nil && routes.MetricsPath != "" {
		router.Method(http.MethodGet, routes.MetricsPath, routes.Metrics)
	}

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)
		r.Get("/ping", healthHandler.Ping)

		r.Route("/payments", func(pr chi.Router) {
			if routes.Webhooks != nil {
				pr.Post("/webhook", routes.Webhooks.HandleRazorpayWebhook)
			}

			if routes.Payments != nil {
				pr.Post("/create-order", routes.Payments.CreateOrder)
				pr.Post("/verify", routes.Payments.VerifyPayment)
				pr.Get("/{id:[0-9]+}", routes.Payments.GetPayment)
			}
		})
	})
}
