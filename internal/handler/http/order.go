package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/service"
	"github.com/utafrali/agromarket-storefront/pkg/httputil"
)

// OrderHandler handles buyer order history and farmer fulfilment.
type OrderHandler struct {
	orders *service.OrderService
	logger *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// List handles GET /api/v1/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.MyOrders(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, orders)
}

// Get handles GET /api/v1/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orders.MyOrder(r.Context(), sessionID(r), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}

// FarmerOrders handles GET /api/v1/farmer/orders
func (h *OrderHandler) FarmerOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.FarmerOrders(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, orders)
}

// UpdateStatus handles PATCH /api/v1/farmer/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.OrderStatusUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), sessionID(r), id, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}
