package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/event"
	"github.com/utafrali/agromarket-storefront/internal/repository"
	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
	"github.com/utafrali/agromarket-storefront/pkg/validator"
)

// errDraftReplaced marks an update aimed at a draft that is no longer the
// session's current one.
var errDraftReplaced = errors.New("checkout draft was replaced")

// StartCheckoutInput selects the items of a new draft.
type StartCheckoutInput struct {
	Source    domain.CheckoutSource `json:"source" validate:"required,oneof=cart buy_now"`
	ProductID string                `json:"product_id" validate:"required_if=Source buy_now"`
	Quantity  int                   `json:"quantity" validate:"omitempty,gte=1"`
}

// SubmitInput selects the payment method.
type SubmitInput struct {
	PaymentMethod domain.PaymentMethod `json:"payment_method" validate:"required,oneof=cash_on_delivery card"`
}

// CheckoutService drives the checkout workflow. Drafts live only in
// process memory until they are submitted.
type CheckoutService struct {
	backend  CheckoutBackend
	sessions repository.SessionRepository
	drafts   repository.DraftStore
	carts    *CartService
	producer *event.Producer
	fees     domain.DeliveryFees
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	b CheckoutBackend,
	sessions repository.SessionRepository,
	drafts repository.DraftStore,
	carts *CartService,
	producer *event.Producer,
	fees domain.DeliveryFees,
	ttl time.Duration,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		backend:  b,
		sessions: sessions,
		drafts:   drafts,
		carts:    carts,
		producer: producer,
		fees:     fees,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Start opens a draft from the cart mirror or from a single product. An
// empty item set yields EMPTY_CART and no draft.
func (s *CheckoutService) Start(ctx context.Context, sid string, in StartCheckoutInput) (*domain.OrderDraft, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return nil, err
	}

	var items []domain.CartLine
	switch in.Source {
	case domain.SourceCart:
		items = sess.Cart.Lines
	case domain.SourceBuyNow:
		qty := max(in.Quantity, 1)
		product, err := s.backend.GetProduct(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		if _, err := domain.CheckQuantity(product, qty); err != nil {
			return nil, err
		}
		items = []domain.CartLine{{ID: product.ID, Product: product, Quantity: qty}}
	}

	draft, err := domain.NewOrderDraft(uuid.NewString(), sid, in.Source, items, s.fees, s.now().UTC(), s.ttl)
	if err != nil {
		return nil, err
	}
	if err := s.drafts.Put(draft); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "checkout started",
		slog.String("session_id", sid),
		slog.String("draft_id", draft.ID),
		slog.String("source", string(in.Source)),
		slog.Int("items", len(draft.Items)),
	)
	return draft, nil
}

// Draft returns the session's draft.
func (s *CheckoutService) Draft(_ context.Context, sid string) (*domain.OrderDraft, error) {
	return s.drafts.Get(sid)
}

// SetDelivery validates delivery details and records them. Invalid details
// leave the draft untouched.
func (s *CheckoutService) SetDelivery(ctx context.Context, sid string, info domain.DeliveryInfo) (*domain.OrderDraft, error) {
	if err := validator.Validate(info); err != nil {
		return nil, err
	}
	draft, err := s.drafts.Update(sid, func(d *domain.OrderDraft) error {
		return d.SetDelivery(info, s.fees)
	})
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "delivery details recorded",
		slog.String("draft_id", draft.ID),
		slog.String("method", string(info.Method)),
	)
	return draft, nil
}

// Submit places the order with the chosen payment method. A failure leaves
// the draft in FAILED so it can be retried without re-entering details.
func (s *CheckoutService) Submit(ctx context.Context, sid string, in SubmitInput) (*domain.OrderDraft, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return nil, err
	}

	draft, err := s.drafts.Update(sid, func(d *domain.OrderDraft) error {
		return d.BeginSubmit(in.PaymentMethod)
	})
	if err != nil {
		return nil, err
	}

	req := draft.OrderRequest()
	orderID, submitErr := s.place(ctx, sess.Auth.Token, sess.UserID(), req)
	if submitErr != nil {
		msg := apperrors.Normalize(submitErr, domain.SubmissionFallbackMessage).Message
		failed := s.settle(ctx, sid, draft, func(d *domain.OrderDraft) { d.Fail(msg) })
		s.logger.WarnContext(ctx, "order submission failed",
			slog.String("draft_id", draft.ID),
			slog.String("payment_method", string(in.PaymentMethod)),
			slog.String("error", submitErr.Error()),
		)
		return failed, submitErr
	}

	// The order exists from here on; nothing below may turn it into a failure.
	confirmed := s.settle(ctx, sid, draft, func(d *domain.OrderDraft) { d.Confirm(orderID) })

	s.logger.InfoContext(ctx, "order placed",
		slog.String("draft_id", draft.ID),
		slog.String("order_id", orderID),
		slog.String("payment_method", string(in.PaymentMethod)),
		slog.String("total", req.Total.StringFixed(2)),
	)

	if draft.Source == domain.SourceCart && s.carts != nil {
		if _, err := s.carts.Clear(ctx, sid); err != nil {
			s.logger.WarnContext(ctx, "failed to clear cart after order",
				slog.String("order_id", orderID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.producer.PublishOrderPlaced(ctx, event.OrderPlacedData{
		OrderID:        orderID,
		UserID:         sess.UserID(),
		PaymentMethod:  string(in.PaymentMethod),
		DeliveryMethod: string(req.DeliveryMethod),
		ItemCount:      draft.Totals.ItemCount,
		Total:          req.Total,
		Currency:       s.fees.Currency.String(),
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order placed event",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	return confirmed, nil
}

// settle applies fn to the stored draft if it is still the one that was
// submitted. When the draft was dropped or replaced meanwhile, fn is applied
// to the submitted copy only and the store is left alone.
func (s *CheckoutService) settle(ctx context.Context, sid string, submitted *domain.OrderDraft, fn func(*domain.OrderDraft)) *domain.OrderDraft {
	updated, err := s.drafts.Update(sid, func(d *domain.OrderDraft) error {
		if d.ID != submitted.ID {
			return errDraftReplaced
		}
		fn(d)
		return nil
	})
	if err == nil {
		return updated
	}

	s.logger.WarnContext(ctx, "checkout draft changed while submitting",
		slog.String("draft_id", submitted.ID),
		slog.String("error", err.Error()),
	)
	detached := *submitted
	fn(&detached)
	return &detached
}

func (s *CheckoutService) place(ctx context.Context, token, userID string, req domain.OrderRequest) (string, error) {
	switch req.PaymentMethod {
	case domain.PaymentCard:
		res, err := s.backend.Charge(ctx, token, userID, req.Total, req)
		if err != nil {
			return "", err
		}
		return res.OrderID, nil
	default:
		order, err := s.backend.CreateOrder(ctx, token, req)
		if err != nil {
			return "", err
		}
		return order.ID, nil
	}
}

// Abandon drops the draft without side effects. A draft that is being
// submitted cannot be abandoned.
func (s *CheckoutService) Abandon(ctx context.Context, sid string) error {
	if err := s.drafts.Discard(sid); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "checkout abandoned", slog.String("session_id", sid))
	return nil
}

// ForgetSession drops the session's draft.
func (s *CheckoutService) ForgetSession(sid string) {
	s.drafts.Delete(sid)
}
