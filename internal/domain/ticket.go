package domain

import "time"

// TicketStatus values.
const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"
)

// Ticket is a support ticket.
type Ticket struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// TicketInput is the body for opening a ticket.
type TicketInput struct {
	Subject     string `json:"subject" validate:"required,min=5,max=200"`
	Description string `json:"description" validate:"required,min=10"`
	Category    string `json:"category" validate:"required,max=50"`
	Priority    string `json:"priority" validate:"required,oneof=low medium high"`
}

// TicketStatusUpdate changes a ticket's status.
type TicketStatusUpdate struct {
	Status string `json:"status" validate:"required,oneof=open in_progress resolved closed"`
}

// TicketMessage is one message in a ticket conversation.
type TicketMessage struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	SenderID   string    `json:"sender_id,omitempty"`
	SenderName string    `json:"sender_name,omitempty"`
	SenderRole string    `json:"sender_role,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
}

// TicketMessageInput is the body of a new message.
type TicketMessageInput struct {
	Message string `json:"message" validate:"required,min=1,max=2000"`
}
