package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/realtime"
	"github.com/utafrali/agromarket-storefront/internal/service"
	"github.com/utafrali/agromarket-storefront/pkg/httputil"
)

// TicketHandler handles the support dashboard and its live rooms.
type TicketHandler struct {
	tickets  *service.TicketService
	hub      *realtime.Hub
	upgrader *websocket.Upgrader
	logger   *slog.Logger
}

// NewTicketHandler creates a new ticket HTTP handler. origins restricts
// WebSocket upgrades; empty admits any origin.
func NewTicketHandler(tickets *service.TicketService, hub *realtime.Hub, origins []string, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{
		tickets:  tickets,
		hub:      hub,
		upgrader: realtime.Upgrader(origins),
		logger:   logger,
	}
}

// List handles GET /api/v1/tickets
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.tickets.List(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, tickets)
}

// Create handles POST /api/v1/tickets
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.TicketInput
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.tickets.Create(r.Context(), sessionID(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, t)
}

// Get handles GET /api/v1/tickets/{id}
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	t, err := h.tickets.Get(r.Context(), sessionID(r), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, t)
}

// UpdateStatus handles PUT /api/v1/tickets/{id}
func (h *TicketHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.TicketStatusUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.tickets.UpdateStatus(r.Context(), sessionID(r), id, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, t)
}

// Messages handles GET /api/v1/tickets/{id}/messages
func (h *TicketHandler) Messages(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	msgs, err := h.tickets.Messages(r.Context(), sessionID(r), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, msgs)
}

// PostMessage handles POST /api/v1/tickets/{id}/messages
func (h *TicketHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.TicketMessageInput
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.tickets.PostMessage(r.Context(), sessionID(r), id, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, msg)
}

// Socket handles GET /api/v1/tickets/{id}/ws. The ticket is fetched first
// so only shoppers who can see it join its room.
func (h *TicketHandler) Socket(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}
	sid := sessionID(r)

	if _, err := h.tickets.Get(r.Context(), sid, id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	send := func(ctx context.Context, text string) error {
		_, err := h.tickets.PostMessage(ctx, sid, id, domain.TicketMessageInput{Message: text})
		return err
	}
	if err := h.hub.Serve(w, r, h.upgrader, id, send); err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("ticket_id", id),
			slog.String("error", err.Error()),
		)
	}
}
