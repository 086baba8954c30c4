package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/repository"
	"github.com/utafrali/agromarket-storefront/internal/state"
	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
)

const cartFallbackMessage = "we could not update your cart, please try again"

// CartView is the cart mirror with totals for a delivery method.
type CartView struct {
	Lines  []domain.CartLine `json:"lines"`
	Totals domain.CartTotals `json:"totals"`
	Error  string            `json:"error,omitempty"`
}

// CartService mirrors cart mutations to the marketplace and reduces the
// responses into the session's cart state.
type CartService struct {
	backend  CartBackend
	sessions repository.SessionRepository
	fees     domain.DeliveryFees
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(b CartBackend, sessions repository.SessionRepository, fees domain.DeliveryFees, logger *slog.Logger) *CartService {
	return &CartService{
		backend:  b,
		sessions: sessions,
		fees:     fees,
		logger:   logger,
	}
}

// View renders cart state with totals for method.
func (s *CartService) View(c state.CartState, method domain.DeliveryMethod) CartView {
	if !method.Valid() {
		method = domain.DeliveryStandard
	}
	return CartView{
		Lines:  c.Lines,
		Totals: domain.CalculateTotals(c.Lines, method, s.fees),
		Error:  c.Error,
	}
}

// Get fetches the cart from the marketplace into the session.
func (s *CartService) Get(ctx context.Context, sid string) (state.CartState, error) {
	return s.mutate(ctx, sid, "load", func(token string, seq int64) (state.CartAction, error) {
		lines, err := s.backend.GetCart(ctx, token)
		if err != nil {
			return nil, err
		}
		return state.CartLoaded{Seq: seq, Lines: lines}, nil
	})
}

// Mirror returns the stored cart without calling the marketplace.
func (s *CartService) Mirror(ctx context.Context, sid string) (state.CartState, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return state.CartState{}, err
	}
	return sess.Cart, nil
}

// Add puts quantity of productID in the cart. Quantities below 1 are a
// no-op. The backend merges a re-added product into its line, so the merged
// quantity is checked against the stock before any backend call.
func (s *CartService) Add(ctx context.Context, sid, productID string, quantity int) (state.CartState, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return state.CartState{}, err
	}
	if productID == "" {
		return sess.Cart, apperrors.InvalidInput("product id is required")
	}
	if quantity < 1 {
		return sess.Cart, nil
	}

	product, err := s.backend.GetProduct(ctx, productID)
	if err != nil {
		return sess.Cart, err
	}
	merged := quantity
	if i := domain.FindLine(sess.Cart.Lines, "", productID); i >= 0 {
		merged += sess.Cart.Lines[i].Quantity
	}
	decision, err := domain.CheckQuantity(product, merged)
	if err != nil || decision == domain.QuantityIgnored {
		return sess.Cart, err
	}

	return s.mutate(ctx, sid, "add", func(token string, seq int64) (state.CartAction, error) {
		lines, err := s.backend.AddToCart(ctx, token, productID, quantity)
		if err != nil {
			return nil, err
		}
		if i := domain.FindLine(lines, "", productID); i >= 0 {
			return state.LineAdded{Seq: seq, Line: lines[i]}, nil
		}
		return state.CartLoaded{Seq: seq, Lines: lines}, nil
	})
}

// Update sets the quantity of a line. Quantities below 1 return the current
// cart unchanged; quantities above the stock are rejected with the prior
// quantity kept.
func (s *CartService) Update(ctx context.Context, sid, lineID string, quantity int) (state.CartState, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return state.CartState{}, err
	}
	i := domain.FindLine(sess.Cart.Lines, lineID, "")
	if i < 0 {
		return sess.Cart, apperrors.NotFound("cart item", lineID)
	}
	decision, err := domain.CheckQuantity(sess.Cart.Lines[i].Product, quantity)
	if err != nil || decision == domain.QuantityIgnored {
		return sess.Cart, err
	}

	return s.mutate(ctx, sid, "update", func(token string, seq int64) (state.CartAction, error) {
		lines, err := s.backend.UpdateCartItem(ctx, token, lineID, quantity)
		if err != nil {
			return nil, err
		}
		if j := domain.FindLine(lines, lineID, ""); j >= 0 {
			return state.LineUpdated{Seq: seq, Line: lines[j]}, nil
		}
		return state.CartLoaded{Seq: seq, Lines: lines}, nil
	})
}

// Remove drops a line from the cart.
func (s *CartService) Remove(ctx context.Context, sid, lineID string) (state.CartState, error) {
	return s.mutate(ctx, sid, "remove", func(token string, seq int64) (state.CartAction, error) {
		if _, err := s.backend.RemoveCartItem(ctx, token, lineID); err != nil {
			return nil, err
		}
		return state.LineRemoved{Seq: seq, LineID: lineID}, nil
	})
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, sid string) (state.CartState, error) {
	return s.mutate(ctx, sid, "clear", func(token string, seq int64) (state.CartAction, error) {
		if err := s.backend.ClearCart(ctx, token); err != nil {
			return nil, err
		}
		return state.CartCleared{Seq: seq}, nil
	})
}

// mutate takes a sequence number before calling the marketplace and reduces
// the outcome into the session. A response that lost the race to a newer one
// is dropped by the reducer.
func (s *CartService) mutate(ctx context.Context, sid, op string, call func(token string, seq int64) (state.CartAction, error)) (state.CartState, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return state.CartState{}, err
	}

	seq, err := s.sessions.NextSeq(ctx, sid)
	if err != nil {
		return sess.Cart, fmt.Errorf("next cart sequence: %w", err)
	}

	action, callErr := call(sess.Auth.Token, seq)
	if callErr != nil {
		action = state.CartFailed{Seq: seq, Message: apperrors.Normalize(callErr, cartFallbackMessage).Message}
	}

	updated, err := apply(ctx, s.sessions, sid, action)
	if err != nil {
		return sess.Cart, err
	}

	if callErr != nil {
		s.logger.WarnContext(ctx, "cart request failed",
			slog.String("op", op),
			slog.String("session_id", sid),
			slog.String("error", callErr.Error()),
		)
		return updated.Cart, callErr
	}

	s.logger.DebugContext(ctx, "cart updated",
		slog.String("op", op),
		slog.String("session_id", sid),
		slog.Int64("seq", seq),
		slog.Int("lines", len(updated.Cart.Lines)),
	)
	return updated.Cart, nil
}
