package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	redisrepo "github.com/utafrali/agromarket-storefront/internal/repository/redis"
	"github.com/utafrali/agromarket-storefront/internal/session"
	"github.com/utafrali/agromarket-storefront/internal/state"
	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
	"github.com/utafrali/agromarket-storefront/pkg/validator"
)

type recordingForgetter struct {
	mu   sync.Mutex
	sids []string
}

func (f *recordingForgetter) ForgetSession(sid string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sids = append(f.sids, sid)
}

func newTestAuthService(t *testing.T) (*AuthService, *mockBackend, *redisrepo.SessionRepository, *session.TokenManager, *recordingForgetter) {
	t.Helper()
	b := new(mockBackend)
	sessions := newTestSessions(t)
	tokens := session.NewTokenManager("test-secret-test-secret-test-secret", time.Hour)
	carts := NewCartService(b, sessions, domain.DefaultDeliveryFees(), newTestLogger())
	forgetter := &recordingForgetter{}
	return NewAuthService(b, sessions, tokens, carts, newTestLogger(), forgetter), b, sessions, tokens, forgetter
}

// ============================================================
// Login
// ============================================================

func TestLogin_CreatesSessionAndLoadsCart(t *testing.T) {
	svc, b, sessions, tokens, _ := newTestAuthService(t)
	ctx := context.Background()
	creds := domain.Credentials{Email: "nimali@example.lk", Password: "secret123"}
	lines := []domain.CartLine{line("l1", product("p1", "250", 10), 2)}

	b.On("Login", ctx, creds).Return(testToken, testBuyer, nil)
	b.On("GetCart", ctx, testToken).Return(lines, nil)

	res, err := svc.Login(ctx, creds)

	require.NoError(t, err)
	assert.Equal(t, testBuyer, res.User)

	claims, err := tokens.Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, testBuyer.ID, claims.UserID)

	stored, err := sessions.Get(ctx, claims.SessionID)
	require.NoError(t, err)
	assert.True(t, stored.Auth.IsAuthenticated)
	assert.Equal(t, testToken, stored.Auth.Token)
	require.Len(t, stored.Cart.Lines, 1)
	assert.Equal(t, "l1", stored.Cart.Lines[0].ID)
	b.AssertExpectations(t)
}

func TestLogin_FarmerSkipsCart(t *testing.T) {
	svc, b, _, _, _ := newTestAuthService(t)
	ctx := context.Background()
	creds := domain.Credentials{Email: "kamal@example.lk", Password: "secret123"}

	b.On("Login", ctx, creds).Return(testToken, testFarmer, nil)

	_, err := svc.Login(ctx, creds)

	require.NoError(t, err)
	b.AssertNotCalled(t, "GetCart", mock.Anything, mock.Anything)
}

func TestLogin_CartFailureDoesNotFailLogin(t *testing.T) {
	svc, b, _, _, _ := newTestAuthService(t)
	ctx := context.Background()
	creds := domain.Credentials{Email: "nimali@example.lk", Password: "secret123"}

	b.On("Login", ctx, creds).Return(testToken, testBuyer, nil)
	b.On("GetCart", ctx, testToken).Return(nil, apperrors.ServiceUnavailable("down"))

	res, err := svc.Login(ctx, creds)

	require.NoError(t, err)
	assert.Equal(t, "down", res.Session.Cart.Error)
}

func TestLogin_BackendRejection(t *testing.T) {
	svc, b, _, _, _ := newTestAuthService(t)
	ctx := context.Background()
	creds := domain.Credentials{Email: "nimali@example.lk", Password: "wrong"}

	b.On("Login", ctx, creds).Return("", domain.User{}, apperrors.Unauthorized("Invalid email or password"))

	res, err := svc.Login(ctx, creds)

	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, "Invalid email or password", apperrors.Normalize(err, "").Message)
}

func TestLogin_InvalidCredentialsNeverReachBackend(t *testing.T) {
	svc, b, _, _, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), domain.Credentials{Email: "abc"})

	var valErr *validator.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields(), "email")
	assert.Contains(t, valErr.Fields(), "password")
	b.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

// ============================================================
// LoadUser / Logout
// ============================================================

func TestLoadUser_RefreshesProfile(t *testing.T) {
	svc, b, sessions, _, _ := newTestAuthService(t)
	ctx := context.Background()
	sid := seedSession(t, sessions, testBuyer)

	refreshed := testBuyer
	refreshed.EmailVerified = true
	var loadingDuringCall bool
	b.On("Me", ctx, testToken).
		Run(func(mock.Arguments) {
			mid, err := sessions.Get(ctx, sid)
			require.NoError(t, err)
			loadingDuringCall = mid.Auth.Loading
		}).
		Return(refreshed, nil)

	sess, err := svc.LoadUser(ctx, sid)

	require.NoError(t, err)
	assert.True(t, loadingDuringCall)
	assert.False(t, sess.Auth.Loading)
	assert.True(t, sess.Auth.User.EmailVerified)
}

func TestLoadUser_FailureSignsOut(t *testing.T) {
	svc, b, sessions, _, forgetter := newTestAuthService(t)
	ctx := context.Background()
	sid := seedSession(t, sessions, testBuyer,
		state.LineAdded{Seq: 1, Line: line("l1", product("p1", "100", 5), 1)})

	b.On("Me", ctx, testToken).Return(domain.User{}, apperrors.Unauthorized("token expired"))

	_, err := svc.LoadUser(ctx, sid)

	require.Error(t, err)
	stored, err := sessions.Get(ctx, sid)
	require.NoError(t, err)
	assert.False(t, stored.Auth.IsAuthenticated)
	assert.Empty(t, stored.Auth.Token)
	assert.Equal(t, "token expired", stored.Auth.Error)
	assert.Empty(t, stored.Cart.Lines)
	assert.Equal(t, []string{sid}, forgetter.sids)

	_, err = svc.Session(ctx, sid)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestLogout_DeletesSessionAndForgets(t *testing.T) {
	svc, _, sessions, _, forgetter := newTestAuthService(t)
	ctx := context.Background()
	sid := seedSession(t, sessions, testBuyer)

	require.NoError(t, svc.Logout(ctx, sid))

	_, err := sessions.Get(ctx, sid)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, []string{sid}, forgetter.sids)
}

func TestSession_UnknownIsUnauthorized(t *testing.T) {
	svc, _, _, _, _ := newTestAuthService(t)

	_, err := svc.Session(context.Background(), "nope")

	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

// ============================================================
// Pass-through
// ============================================================

func TestRegister_SurfacesBackendMessage(t *testing.T) {
	svc, b, _, _, _ := newTestAuthService(t)
	ctx := context.Background()
	reg := domain.Registration{Name: "Kamal", Email: "kamal@example.lk", Password: "longenough", Role: domain.RoleFarmer}

	b.On("Register", ctx, reg).Return("Please verify your email", nil)

	msg, err := svc.Register(ctx, reg)

	require.NoError(t, err)
	assert.Equal(t, "Please verify your email", msg)
}

func TestVerifyEmail_RequiresToken(t *testing.T) {
	svc, b, _, _, _ := newTestAuthService(t)

	_, err := svc.VerifyEmail(context.Background(), "")

	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	b.AssertNotCalled(t, "VerifyEmail", mock.Anything, mock.Anything)
}
