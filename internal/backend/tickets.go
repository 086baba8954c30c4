package backend

import (
	"context"
	"net/http"

	"github.com/utafrali/agromarket-storefront/internal/domain"
)

// ListTickets lists the user's tickets (all tickets for admins).
func (c *Client) ListTickets(ctx context.Context, token string) ([]domain.Ticket, error) {
	body, err := c.do(ctx, call{method: http.MethodGet, path: "/tickets", token: token})
	if err != nil {
		return nil, err
	}
	items, _, err := decodeList[ticketWire](body, "tickets")
	if err != nil {
		return nil, err
	}
	return mapSlice(items, ticketWire.toDomain), nil
}

// CreateTicket opens a ticket.
func (c *Client) CreateTicket(ctx context.Context, token string, in domain.TicketInput) (domain.Ticket, error) {
	var out ticketWire
	if err := c.doJSON(ctx, call{method: http.MethodPost, path: "/tickets", token: token, body: in}, &out); err != nil {
		return domain.Ticket{}, err
	}
	return out.toDomain(), nil
}

// GetTicket returns one ticket.
func (c *Client) GetTicket(ctx context.Context, token, id string) (domain.Ticket, error) {
	var out ticketWire
	if err := c.doJSON(ctx, call{method: http.MethodGet, path: path("tickets", id), token: token}, &out); err != nil {
		return domain.Ticket{}, err
	}
	return out.toDomain(), nil
}

// UpdateTicket changes a ticket's status.
func (c *Client) UpdateTicket(ctx context.Context, token, id, status string) (domain.Ticket, error) {
	payload := struct {
		Status string `json:"status"`
	}{status}

	var out ticketWire
	if err := c.doJSON(ctx, call{method: http.MethodPut, path: path("tickets", id), token: token, body: payload}, &out); err != nil {
		return domain.Ticket{}, err
	}
	return out.toDomain(), nil
}

// TicketMessages lists a ticket's conversation.
func (c *Client) TicketMessages(ctx context.Context, token, id string) ([]domain.TicketMessage, error) {
	body, err := c.do(ctx, call{method: http.MethodGet, path: path("tickets", id, "messages"), token: token})
	if err != nil {
		return nil, err
	}
	items, _, err := decodeList[ticketMessageWire](body, "messages")
	if err != nil {
		return nil, err
	}
	return mapSlice(items, func(w ticketMessageWire) domain.TicketMessage { return w.toDomain(id) }), nil
}

// PostTicketMessage appends a message to a ticket.
func (c *Client) PostTicketMessage(ctx context.Context, token, id, msg string) (domain.TicketMessage, error) {
	payload := struct {
		Message string `json:"message"`
	}{msg}

	var out ticketMessageWire
	err := c.doJSON(ctx, call{method: http.MethodPost, path: path("tickets", id, "messages"), token: token, body: payload}, &out)
	if err != nil {
		return domain.TicketMessage{}, err
	}
	return out.toDomain(id), nil
}
