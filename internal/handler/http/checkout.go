package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/service"
	"github.com/utafrali/agromarket-storefront/pkg/httputil"
)

// CheckoutHandler drives the checkout workflow of the session's draft.
type CheckoutHandler struct {
	checkout *service.CheckoutService
	logger   *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(checkout *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, logger: logger}
}

// Start handles POST /api/v1/checkout
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req service.StartCheckoutInput
	if !decodeJSON(w, r, &req) {
		return
	}

	draft, err := h.checkout.Start(r.Context(), sessionID(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, draft)
}

// Get handles GET /api/v1/checkout
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	draft, err := h.checkout.Draft(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, draft)
}

// SetDelivery handles PUT /api/v1/checkout/delivery
func (h *CheckoutHandler) SetDelivery(w http.ResponseWriter, r *http.Request) {
	var req domain.DeliveryInfo
	if !decodeJSON(w, r, &req) {
		return
	}

	draft, err := h.checkout.SetDelivery(r.Context(), sessionID(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, draft)
}

// Submit handles POST /api/v1/checkout/submit. A failed submission leaves
// the draft retryable; the client reloads it with GET /api/v1/checkout.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitInput
	if !decodeJSON(w, r, &req) {
		return
	}

	draft, err := h.checkout.Submit(r.Context(), sessionID(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, draft)
}

// Abandon handles DELETE /api/v1/checkout
func (h *CheckoutHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	if err := h.checkout.Abandon(r.Context(), sessionID(r)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
