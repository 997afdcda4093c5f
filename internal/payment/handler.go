package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/freelance-payments/internal"
	"github.com/frahmantamala/freelance-payments/internal/transport"
)

const maxRequestBytes = 64 << 10

type ServiceAPI interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error)
	VerifyPayment(ctx context.Context, req *VerifyPaymentRequest) (*VerifyPaymentResponse, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
	GetPayment(ctx context.Context, id int64) (*PaymentView, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// CreateOrder handles POST /api/v1/payments/create-order
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		h.Logger.Error("CreateOrder: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.CreateOrder(r.Context(), &req)
	if err != nil {
		h.Logger.Error("CreateOrder: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

type verifyErrorResponse struct {
	Error string `json:"error"`
}

// VerifyPayment handles POST /api/v1/payments/verify. Every failure gets the
// same body so callers learn nothing about which check failed.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	failed := verifyErrorResponse{Error: errors.ErrPaymentVerification.Message}

	var req VerifyPaymentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		h.Logger.Warn("VerifyPayment: failed to parse request body", "error", err)
		h.WriteJSON(w, http.StatusBadRequest, failed)
		return
	}

	resp, err := h.Service.VerifyPayment(r.Context(), &req)
	if err != nil {
		h.WriteJSON(w, http.StatusBadRequest, failed)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// GetPayment handles GET /api/v1/payments/{id}
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.HandleError(w, errors.NewValidationFieldError("id", "id must be a positive integer", errors.ErrCodeValidationFailed))
		return
	}

	view, err := h.Service.GetPayment(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, view)
}
