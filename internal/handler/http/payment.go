package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/service"
	"github.com/utafrali/agromarket-storefront/pkg/httputil"
)

// PaymentHandler handles saved cards, transactions and refunds.
type PaymentHandler struct {
	payments *service.PaymentService
	logger   *slog.Logger
}

// NewPaymentHandler creates a new payment HTTP handler.
func NewPaymentHandler(payments *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

// SavedCard handles GET /api/v1/payments/card
func (h *PaymentHandler) SavedCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.payments.SavedCard(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, card)
}

// Transactions handles GET /api/v1/payments/transactions
func (h *PaymentHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.payments.Transactions(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, txs)
}

// Refund handles POST /api/v1/payments/refunds
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	var req domain.RefundRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.payments.Refund(r.Context(), sessionID(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeMessage(w, http.StatusOK, msg)
}
