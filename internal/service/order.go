package service

import (
	"context"
	"log/slog"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/repository"
	"github.com/utafrali/agromarket-storefront/pkg/validator"
)

// OrderService lists a buyer's orders and lets farmers fulfil theirs.
type OrderService struct {
	backend  OrderBackend
	sessions repository.SessionRepository
	logger   *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(b OrderBackend, sessions repository.SessionRepository, logger *slog.Logger) *OrderService {
	return &OrderService{backend: b, sessions: sessions, logger: logger}
}

// MyOrders lists the buyer's orders.
func (s *OrderService) MyOrders(ctx context.Context, sid string) ([]domain.Order, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return nil, err
	}
	return s.backend.MyOrders(ctx, sess.Auth.Token)
}

// MyOrder returns one of the buyer's orders.
func (s *OrderService) MyOrder(ctx context.Context, sid, id string) (domain.Order, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return domain.Order{}, err
	}
	return s.backend.MyOrder(ctx, sess.Auth.Token, id)
}

// FarmerOrders lists orders for the farmer's products.
func (s *OrderService) FarmerOrders(ctx context.Context, sid string) ([]domain.Order, error) {
	sess, err := farmer(ctx, s.sessions, sid)
	if err != nil {
		return nil, err
	}
	return s.backend.FarmerOrders(ctx, sess.Auth.Token)
}

// UpdateStatus moves an order to a new fulfilment status.
func (s *OrderService) UpdateStatus(ctx context.Context, sid, id string, in domain.OrderStatusUpdate) (domain.Order, error) {
	sess, err := farmer(ctx, s.sessions, sid)
	if err != nil {
		return domain.Order{}, err
	}
	if err := validator.Validate(in); err != nil {
		return domain.Order{}, err
	}
	order, err := s.backend.UpdateOrderStatus(ctx, sess.Auth.Token, id, in.Status)
	if err != nil {
		return domain.Order{}, err
	}
	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", id),
		slog.String("status", string(in.Status)),
	)
	return order, nil
}
