package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/event"
	"github.com/utafrali/agromarket-storefront/internal/repository"
	"github.com/utafrali/agromarket-storefront/internal/state"
	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
	"github.com/utafrali/agromarket-storefront/pkg/validator"
)

const walletFallbackMessage = "we could not load your wallet, please try again"

// WalletService serves a farmer's balance and withdrawal requests.
type WalletService struct {
	backend  WalletBackend
	sessions repository.SessionRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewWalletService creates a new wallet service.
func NewWalletService(b WalletBackend, sessions repository.SessionRepository, producer *event.Producer, logger *slog.Logger) *WalletService {
	return &WalletService{
		backend:  b,
		sessions: sessions,
		producer: producer,
		logger:   logger,
	}
}

// Balance refreshes the balance. A refresh that started before the last
// accepted withdrawal is discarded by the reducer.
func (s *WalletService) Balance(ctx context.Context, sid string) (state.WalletState, error) {
	return s.refresh(ctx, sid, func(token string, seq int64) (state.WalletAction, error) {
		b, err := s.backend.WalletBalance(ctx, token)
		if err != nil {
			return nil, err
		}
		return state.BalanceLoaded{Seq: seq, Balance: b}, nil
	})
}

// History refreshes the withdrawal history.
func (s *WalletService) History(ctx context.Context, sid string) (state.WalletState, error) {
	return s.refresh(ctx, sid, func(token string, seq int64) (state.WalletAction, error) {
		ws, err := s.backend.WithdrawalHistory(ctx, token)
		if err != nil {
			return nil, err
		}
		return state.HistoryLoaded{Seq: seq, Withdrawals: ws}, nil
	})
}

// Withdraw validates req against the known balance and, if it passes, asks
// the marketplace for a payout. The accepted amount moves from available to
// pending at once. Rejected requests make no backend call and change
// nothing.
func (s *WalletService) Withdraw(ctx context.Context, sid string, req domain.WithdrawalRequest) (state.WalletState, error) {
	sess, err := farmer(ctx, s.sessions, sid)
	if err != nil {
		return state.WalletState{}, err
	}
	if err := validator.Validate(req); err != nil {
		return sess.Wallet, err
	}

	wallet := sess.Wallet
	if !wallet.Loaded {
		if wallet, err = s.Balance(ctx, sid); err != nil {
			return wallet, err
		}
	}
	if err := req.CheckFunds(wallet.Available); err != nil {
		return wallet, err
	}

	seq, err := s.sessions.NextSeq(ctx, sid)
	if err != nil {
		return wallet, fmt.Errorf("next wallet sequence: %w", err)
	}

	w, err := s.backend.Withdraw(ctx, sess.Auth.Token, req)
	if err != nil {
		s.logger.WarnContext(ctx, "withdrawal rejected",
			slog.String("user_id", sess.UserID()),
			slog.String("error", err.Error()),
		)
		return wallet, err
	}
	if w.Amount.IsZero() {
		w.Amount = req.Amount
	}
	if w.Status == "" {
		w.Status = "pending"
	}

	updated, err := apply(ctx, s.sessions, sid, state.WithdrawalApplied{Seq: seq, Withdrawal: w})
	if err != nil {
		return wallet, err
	}

	s.logger.InfoContext(ctx, "withdrawal requested",
		slog.String("user_id", sess.UserID()),
		slog.String("withdrawal_id", w.ID),
		slog.String("amount", w.Amount.StringFixed(2)),
	)

	if err := s.producer.PublishWithdrawalRequested(ctx, event.WithdrawalRequestedData{
		WithdrawalID: w.ID,
		UserID:       sess.UserID(),
		Amount:       w.Amount,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish withdrawal event",
			slog.String("withdrawal_id", w.ID),
			slog.String("error", err.Error()),
		)
	}

	return updated.Wallet, nil
}

func (s *WalletService) refresh(ctx context.Context, sid string, call func(token string, seq int64) (state.WalletAction, error)) (state.WalletState, error) {
	sess, err := farmer(ctx, s.sessions, sid)
	if err != nil {
		return state.WalletState{}, err
	}
	seq, err := s.sessions.NextSeq(ctx, sid)
	if err != nil {
		return sess.Wallet, fmt.Errorf("next wallet sequence: %w", err)
	}

	action, callErr := call(sess.Auth.Token, seq)
	if callErr != nil {
		action = state.WalletFailed{Seq: seq, Message: apperrors.Normalize(callErr, walletFallbackMessage).Message}
	}

	updated, err := apply(ctx, s.sessions, sid, action)
	if err != nil {
		return sess.Wallet, err
	}
	if callErr != nil {
		return updated.Wallet, callErr
	}
	return updated.Wallet, nil
}
