package payment

import (
	"io"
	"net/http"

	errors "github.com/frahmantamala/freelance-payments/internal"
	"github.com/frahmantamala/freelance-payments/internal/transport"
)

const (
	SignatureHeader = "X-Razorpay-Signature"
	maxWebhookBytes = 1 << 20
)

type WebhookHandler struct {
	*transport.BaseHandler
	paymentService ServiceAPI
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, paymentService ServiceAPI) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:    baseHandler,
		paymentService: paymentService,
	}
}

// HandleRazorpayWebhook handles POST /api/v1/payments/webhook. Responses carry
// no body: 200 tells the gateway to stop redelivering, 400 marks a delivery
// that will never succeed, 500 asks for a retry.
func (h *WebhookHandler) HandleRazorpayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		h.Logger.Warn("webhook body could not be read", "error", err)
		h.WriteStatus(w, http.StatusBadRequest)
		return
	}

	err = h.paymentService.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader))
	if err == nil {
		h.WriteStatus(w, http.StatusOK)
		return
	}

	if appErr, ok := errors.IsAppError(err); ok && appErr.StatusCode < http.StatusInternalServerError {
		h.WriteStatus(w, http.StatusBadRequest)
		return
	}

	h.Logger.Error("webhook processing failed", "error", err)
	h.WriteStatus(w, http.StatusInternalServerError)
}
