package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/service"
	"github.com/utafrali/agromarket-storefront/internal/state"
	"github.com/utafrali/agromarket-storefront/pkg/httputil"
)

// CartHandler handles the cart mirror endpoints.
type CartHandler struct {
	carts  *service.CartService
	logger *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(carts *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

// --- Request DTOs ---

// AddItemRequest is the JSON body of POST /api/v1/cart/items.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// UpdateItemRequest is the JSON body of PATCH /api/v1/cart/items/{id}.
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// --- Handlers ---

// Get handles GET /api/v1/cart?delivery_method=
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), sessionID(r))
	h.respond(w, r, c, err)
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	c, err := h.carts.Add(r.Context(), sessionID(r), req.ProductID, req.Quantity)
	h.respond(w, r, c, err)
}

// UpdateItem handles PATCH /api/v1/cart/items/{id}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.carts.Update(r.Context(), sessionID(r), id, req.Quantity)
	h.respond(w, r, c, err)
}

// RemoveItem handles DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	c, err := h.carts.Remove(r.Context(), sessionID(r), id)
	h.respond(w, r, c, err)
}

// Clear handles DELETE /api/v1/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Clear(r.Context(), sessionID(r))
	h.respond(w, r, c, err)
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, c state.CartState, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	method := domain.DeliveryMethod(r.URL.Query().Get("delivery_method"))
	httputil.WriteData(w, http.StatusOK, h.carts.View(c, method))
}
