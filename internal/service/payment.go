package service

import (
	"context"
	"log/slog"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/repository"
	"github.com/utafrali/agromarket-storefront/pkg/validator"
)

// PaymentService exposes saved cards, transactions and refunds.
type PaymentService struct {
	backend  PaymentBackend
	sessions repository.SessionRepository
	logger   *slog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(b PaymentBackend, sessions repository.SessionRepository, logger *slog.Logger) *PaymentService {
	return &PaymentService{backend: b, sessions: sessions, logger: logger}
}

// SavedCard returns the shopper's card on file.
func (s *PaymentService) SavedCard(ctx context.Context, sid string) (domain.SavedCard, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return domain.SavedCard{}, err
	}
	return s.backend.SavedCard(ctx, sess.Auth.Token, sess.UserID())
}

// Transactions lists the shopper's payments.
func (s *PaymentService) Transactions(ctx context.Context, sid string) ([]domain.Transaction, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return nil, err
	}
	return s.backend.Transactions(ctx, sess.Auth.Token, sess.UserID())
}

// Refund asks for a refund and returns the marketplace's message.
func (s *PaymentService) Refund(ctx context.Context, sid string, req domain.RefundRequest) (string, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return "", err
	}
	if err := validator.Validate(req); err != nil {
		return "", err
	}
	msg, err := s.backend.Refund(ctx, sess.Auth.Token, req)
	if err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "refund requested",
		slog.String("order_id", req.OrderID),
		slog.String("amount", req.Amount.StringFixed(2)),
	)
	return msg, nil
}
