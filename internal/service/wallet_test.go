package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/event"
	redisrepo "github.com/utafrali/agromarket-storefront/internal/repository/redis"
	"github.com/utafrali/agromarket-storefront/internal/state"
	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
	"github.com/utafrali/agromarket-storefront/pkg/validator"
)

func newTestWalletService(t *testing.T) (*WalletService, *mockBackend, *redisrepo.SessionRepository, *mockPublisher) {
	t.Helper()
	b := new(mockBackend)
	sessions := newTestSessions(t)
	events := new(mockPublisher)
	return NewWalletService(b, sessions, event.NewProducer(events, newTestLogger()), newTestLogger()), b, sessions, events
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var loadedWallet = state.BalanceLoaded{Seq: 0, Balance: domain.Balance{Available: dec("5000"), Pending: dec("0")}}

func withdrawal(amount string) domain.WithdrawalRequest {
	return domain.WithdrawalRequest{
		Amount:        dec(amount),
		BankName:      "Bank of Ceylon",
		AccountNumber: "0012345678",
		AccountHolder: "Kamal Silva",
	}
}

func TestWalletBalance_Loads(t *testing.T) {
	svc, b, sessions, _ := newTestWalletService(t)
	ctx := context.Background()
	sid := seedSession(t, sessions, testFarmer)

	b.On("WalletBalance", ctx, testToken).Return(domain.Balance{Available: dec("1200.50"), Pending: dec("300")}, nil)

	w, err := svc.Balance(ctx, sid)

	require.NoError(t, err)
	assert.True(t, w.Loaded)
	assert.True(t, w.Available.Equal(dec("1200.50")))
}

func TestWalletBalance_BuyerIsForbidden(t *testing.T) {
	svc, b, sessions, _ := newTestWalletService(t)
	sid := seedSession(t, sessions, testBuyer)

	_, err := svc.Balance(context.Background(), sid)

	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	assert.Empty(t, b.Calls)
}

func TestWithdraw_OptimisticUpdate(t *testing.T) {
	svc, b, sessions, events := newTestWalletService(t)
	ctx := context.Background()
	sid := seedSession(t, sessions, testFarmer, loadedWallet)

	b.On("Withdraw", ctx, testToken, mock.Anything).
		Return(domain.Withdrawal{ID: "w-1", Amount: dec("1500"), Status: "pending"}, nil)
	events.On("Publish", ctx, event.TopicWithdrawalRequested, mock.Anything).Return(nil)

	w, err := svc.Withdraw(ctx, sid, withdrawal("1500"))

	require.NoError(t, err)
	assert.True(t, w.Available.Equal(dec("3500")))
	assert.True(t, w.Pending.Equal(dec("1500")))
	require.Len(t, w.Withdrawals, 1)
	assert.Equal(t, "w-1", w.Withdrawals[0].ID)
	events.AssertExpectations(t)
}

func TestWithdraw_RejectedRequestsMakeNoCall(t *testing.T) {
	tests := []struct {
		name     string
		req      domain.WithdrawalRequest
		wantCode string
	}{
		{"over balance", withdrawal("5000.01"), "INSUFFICIENT_BALANCE"},
		{"zero amount", withdrawal("0"), ""},
		{"missing bank", func() domain.WithdrawalRequest { r := withdrawal("10"); r.BankName = ""; return r }(), ""},
		{"missing holder", func() domain.WithdrawalRequest { r := withdrawal("10"); r.AccountHolder = ""; return r }(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, b, sessions, _ := newTestWalletService(t)
			ctx := context.Background()
			sid := seedSession(t, sessions, testFarmer, loadedWallet)
			before, err := sessions.Get(ctx, sid)
			require.NoError(t, err)

			_, err = svc.Withdraw(ctx, sid, tt.req)

			require.Error(t, err)
			if tt.wantCode != "" {
				var appErr *apperrors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, tt.wantCode, appErr.Code)
			} else {
				var valErr *validator.ValidationError
				assert.ErrorAs(t, err, &valErr)
			}
			assert.Empty(t, b.Calls)

			after, err := sessions.Get(ctx, sid)
			require.NoError(t, err)
			assert.True(t, before.Wallet.Available.Equal(after.Wallet.Available))
			assert.Equal(t, before.Wallet.Applied, after.Wallet.Applied)
		})
	}
}

func TestWithdraw_LoadsBalanceFirstWhenUnknown(t *testing.T) {
	svc, b, sessions, events := newTestWalletService(t)
	ctx := context.Background()
	sid := seedSession(t, sessions, testFarmer)

	b.On("WalletBalance", ctx, testToken).Return(domain.Balance{Available: dec("100"), Pending: dec("0")}, nil)

	_, err := svc.Withdraw(ctx, sid, withdrawal("150"))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INSUFFICIENT_BALANCE", appErr.Code)
	b.AssertNotCalled(t, "Withdraw", mock.Anything, mock.Anything, mock.Anything)
	events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestWithdraw_BackendFailureLeavesStateUnchanged(t *testing.T) {
	svc, b, sessions, _ := newTestWalletService(t)
	ctx := context.Background()
	sid := seedSession(t, sessions, testFarmer, loadedWallet)

	b.On("Withdraw", ctx, testToken, mock.Anything).Return(domain.Withdrawal{}, apperrors.InvalidInput("Bank details could not be verified"))

	_, err := svc.Withdraw(ctx, sid, withdrawal("100"))

	require.Error(t, err)
	assert.Equal(t, "Bank details could not be verified", apperrors.Normalize(err, "").Message)
	stored, err := sessions.Get(ctx, sid)
	require.NoError(t, err)
	assert.True(t, stored.Wallet.Available.Equal(dec("5000")))
	assert.Empty(t, stored.Wallet.Withdrawals)
	assert.Empty(t, stored.Wallet.Error)
}

func TestWalletBalance_StaleRefreshAfterWithdrawalIsDiscarded(t *testing.T) {
	svc, b, sessions, events := newTestWalletService(t)
	ctx := context.Background()
	sid := seedSession(t, sessions, testFarmer, loadedWallet)

	entered := make(chan struct{})
	release := make(chan struct{})
	b.On("WalletBalance", ctx, testToken).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(domain.Balance{Available: dec("5000"), Pending: dec("0")}, nil)
	b.On("Withdraw", ctx, testToken, mock.Anything).Return(domain.Withdrawal{ID: "w-1", Amount: dec("1000")}, nil)
	events.On("Publish", ctx, event.TopicWithdrawalRequested, mock.Anything).Return(nil)

	refreshed := make(chan state.WalletState, 1)
	go func() {
		w, _ := svc.Balance(ctx, sid)
		refreshed <- w
	}()
	<-entered

	_, err := svc.Withdraw(ctx, sid, withdrawal("1000"))
	require.NoError(t, err)
	close(release)

	w := <-refreshed
	assert.True(t, w.Available.Equal(dec("4000")), "stale refresh must not restore the old balance")
	assert.True(t, w.Pending.Equal(dec("1000")))
}
