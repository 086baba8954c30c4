package service

import (
	"context"
	"log/slog"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/repository"
	"github.com/utafrali/agromarket-storefront/internal/state"
	"github.com/utafrali/agromarket-storefront/pkg/validator"
)

// MessageBroadcaster delivers a posted ticket message to every open socket
// of the ticket.
type MessageBroadcaster interface {
	Broadcast(ctx context.Context, msg domain.TicketMessage)
}

// TicketService runs the support dashboard.
type TicketService struct {
	backend     TicketBackend
	sessions    repository.SessionRepository
	broadcaster MessageBroadcaster
	logger      *slog.Logger
}

// NewTicketService creates a new ticket service.
func NewTicketService(b TicketBackend, sessions repository.SessionRepository, broadcaster MessageBroadcaster, logger *slog.Logger) *TicketService {
	return &TicketService{
		backend:     b,
		sessions:    sessions,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// List returns the shopper's tickets.
func (s *TicketService) List(ctx context.Context, sid string) ([]domain.Ticket, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return nil, err
	}
	return s.backend.ListTickets(ctx, sess.Auth.Token)
}

// Create opens a ticket.
func (s *TicketService) Create(ctx context.Context, sid string, in domain.TicketInput) (domain.Ticket, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return domain.Ticket{}, err
	}
	if err := validator.Validate(in); err != nil {
		return domain.Ticket{}, err
	}
	t, err := s.backend.CreateTicket(ctx, sess.Auth.Token, in)
	if err != nil {
		return domain.Ticket{}, err
	}
	s.logger.InfoContext(ctx, "ticket opened",
		slog.String("ticket_id", t.ID),
		slog.String("priority", in.Priority),
	)
	return t, nil
}

// Get returns one ticket.
func (s *TicketService) Get(ctx context.Context, sid, id string) (domain.Ticket, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return domain.Ticket{}, err
	}
	return s.backend.GetTicket(ctx, sess.Auth.Token, id)
}

// UpdateStatus changes a ticket's status.
func (s *TicketService) UpdateStatus(ctx context.Context, sid, id string, in domain.TicketStatusUpdate) (domain.Ticket, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return domain.Ticket{}, err
	}
	if err := validator.Validate(in); err != nil {
		return domain.Ticket{}, err
	}
	return s.backend.UpdateTicket(ctx, sess.Auth.Token, id, in.Status)
}

// Messages returns a ticket's conversation.
func (s *TicketService) Messages(ctx context.Context, sid, id string) ([]domain.TicketMessage, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return nil, err
	}
	return s.backend.TicketMessages(ctx, sess.Auth.Token, id)
}

// PostMessage persists a message and broadcasts it to the ticket's room.
func (s *TicketService) PostMessage(ctx context.Context, sid, id string, in domain.TicketMessageInput) (domain.TicketMessage, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return domain.TicketMessage{}, err
	}
	if err := validator.Validate(in); err != nil {
		return domain.TicketMessage{}, err
	}

	msg, err := s.backend.PostTicketMessage(ctx, sess.Auth.Token, id, in.Message)
	if err != nil {
		return domain.TicketMessage{}, err
	}
	fillSender(&msg, sess)
	if msg.TicketID == "" {
		msg.TicketID = id
	}

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(ctx, msg)
	}
	s.logger.DebugContext(ctx, "ticket message posted",
		slog.String("ticket_id", id),
		slog.String("message_id", msg.ID),
	)
	return msg, nil
}

// fillSender completes sender fields the backend left unpopulated.
func fillSender(msg *domain.TicketMessage, sess *state.Session) {
	u := sess.Auth.User
	if u == nil {
		return
	}
	if msg.SenderID == "" {
		msg.SenderID = u.ID
	}
	if msg.SenderName == "" {
		msg.SenderName = u.Name
	}
	if msg.SenderRole == "" {
		msg.SenderRole = u.Role
	}
}
