package state

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/utafrali/agromarket-storefront/internal/domain"
)

// walletEntity is the Applied key of withdrawal mutations.
const walletEntity = "wallet"

// WalletState is a farmer's balance view.
type WalletState struct {
	Available   decimal.Decimal     `json:"available"`
	Pending     decimal.Decimal     `json:"pending"`
	Withdrawals []domain.Withdrawal `json:"withdrawals"`
	Loaded      bool                `json:"loaded"`
	Error       string              `json:"error,omitempty"`
	Applied     map[string]int64    `json:"applied,omitempty"`
}

// Balance returns the current balance.
func (s WalletState) Balance() domain.Balance {
	return domain.Balance{Available: s.Available, Pending: s.Pending}
}

// WalletAction is an event reduced by ReduceWallet.
type WalletAction interface {
	Sequence() int64
	walletAction()
}

type (
	// BalanceLoaded is a balance refresh from the backend.
	BalanceLoaded struct {
		Seq     int64
		Balance domain.Balance
	}
	// HistoryLoaded is a withdrawal history refresh.
	HistoryLoaded struct {
		Seq         int64
		Withdrawals []domain.Withdrawal
	}
	// WithdrawalApplied is the optimistic effect of an accepted withdrawal.
	WithdrawalApplied struct {
		Seq        int64
		Withdrawal domain.Withdrawal
	}
	// WalletFailed records a failed wallet request.
	WalletFailed struct {
		Seq     int64
		Message string
	}
)

func (a BalanceLoaded) Sequence() int64     { return a.Seq }
func (a HistoryLoaded) Sequence() int64     { return a.Seq }
func (a WithdrawalApplied) Sequence() int64 { return a.Seq }
func (a WalletFailed) Sequence() int64      { return a.Seq }

func (BalanceLoaded) walletAction()     {}
func (HistoryLoaded) walletAction()     {}
func (WithdrawalApplied) walletAction() {}
func (WalletFailed) walletAction()      {}

// WalletStale reports whether a refresh predates the last applied
// withdrawal. Withdrawals themselves are never stale.
func WalletStale(s WalletState, a WalletAction) bool {
	switch a.(type) {
	case WithdrawalApplied:
		return false
	}
	return a.Sequence() < s.Applied[walletEntity]
}

// ReduceWallet returns the state that follows s after a. s is never mutated.
func ReduceWallet(s WalletState, a WalletAction) WalletState {
	if WalletStale(s, a) {
		return s
	}

	next := s
	next.Withdrawals = slices.Clone(s.Withdrawals)
	next.Applied = maps.Clone(s.Applied)
	if next.Applied == nil {
		next.Applied = make(map[string]int64)
	}

	switch a := a.(type) {
	case BalanceLoaded:
		next.Available = a.Balance.Available
		next.Pending = a.Balance.Pending
		next.Loaded = true
		next.Error = ""
	case HistoryLoaded:
		next.Withdrawals = slices.Clone(a.Withdrawals)
		next.Error = ""
	case WithdrawalApplied:
		b := s.Balance().ApplyWithdrawal(a.Withdrawal.Amount)
		next.Available = b.Available
		next.Pending = b.Pending
		next.Withdrawals = append([]domain.Withdrawal{a.Withdrawal}, next.Withdrawals...)
		next.Applied[walletEntity] = max(next.Applied[walletEntity], a.Seq)
		next.Error = ""
	case WalletFailed:
		next.Error = a.Message
	}
	return next
}
