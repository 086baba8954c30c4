package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/repository"
	"github.com/utafrali/agromarket-storefront/internal/session"
	"github.com/utafrali/agromarket-storefront/internal/state"
	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
	"github.com/utafrali/agromarket-storefront/pkg/validator"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string         `json:"-"`
	ExpiresAt time.Time      `json:"expires_at"`
	Session   *state.Session `json:"-"`
	User      domain.User    `json:"user"`
}

// AuthService signs shoppers in and out and keeps their profile fresh.
type AuthService struct {
	backend    AuthBackend
	sessions   repository.SessionRepository
	tokens     *session.TokenManager
	carts      *CartService
	forgetters []SessionForgetter
	logger     *slog.Logger
	now        func() time.Time
}

// NewAuthService creates a new auth service. forgetters are told about
// every logout.
func NewAuthService(b AuthBackend, sessions repository.SessionRepository, tokens *session.TokenManager, carts *CartService, logger *slog.Logger, forgetters ...SessionForgetter) *AuthService {
	return &AuthService{
		backend:    b,
		sessions:   sessions,
		tokens:     tokens,
		carts:      carts,
		forgetters: forgetters,
		logger:     logger,
		now:        time.Now,
	}
}

// Login authenticates with the marketplace, opens a storefront session and
// fetches the shopper's cart into it.
func (s *AuthService) Login(ctx context.Context, creds domain.Credentials) (*LoginResult, error) {
	if err := validator.Validate(creds); err != nil {
		return nil, err
	}

	sess := state.New(uuid.NewString(), s.now().UTC())
	sess.Apply(state.AuthRequested{})

	backendToken, user, err := s.backend.Login(ctx, creds)
	if err != nil {
		s.logger.InfoContext(ctx, "login rejected",
			slog.String("email", creds.Email),
			slog.String("reason", apperrors.Normalize(err, "").Message),
		)
		return nil, err
	}
	sess.Apply(state.LoginSucceeded{User: user, Token: backendToken})

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if s.carts != nil && !user.IsFarmer() {
		if _, err := s.carts.Get(ctx, sess.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to load cart after login",
				slog.String("session_id", sess.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	token, expiresAt, err := s.tokens.Issue(sess.ID, user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	s.logger.InfoContext(ctx, "shopper signed in",
		slog.String("session_id", sess.ID),
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)

	if fresh, err := s.sessions.Get(ctx, sess.ID); err == nil {
		sess = fresh
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Session: sess, User: user}, nil
}

// Register creates a marketplace account and returns the backend message.
func (s *AuthService) Register(ctx context.Context, reg domain.Registration) (string, error) {
	if err := validator.Validate(reg); err != nil {
		return "", err
	}
	msg, err := s.backend.Register(ctx, reg)
	if err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "account registered", slog.String("role", reg.Role))
	return msg, nil
}

// ForgotPassword requests a reset email.
func (s *AuthService) ForgotPassword(ctx context.Context, req domain.ForgotPassword) (string, error) {
	if err := validator.Validate(req); err != nil {
		return "", err
	}
	return s.backend.ForgotPassword(ctx, req)
}

// ResetPassword sets a new password from a reset token.
func (s *AuthService) ResetPassword(ctx context.Context, req domain.ResetPassword) (string, error) {
	if err := validator.Validate(req); err != nil {
		return "", err
	}
	return s.backend.ResetPassword(ctx, req)
}

// VerifyEmail confirms an email address.
func (s *AuthService) VerifyEmail(ctx context.Context, verifyToken string) (string, error) {
	if verifyToken == "" {
		return "", apperrors.InvalidInput("verification token is required")
	}
	return s.backend.VerifyEmail(ctx, verifyToken)
}

// Session returns the stored session of a signed-in shopper.
func (s *AuthService) Session(ctx context.Context, sid string) (*state.Session, error) {
	return signedIn(ctx, s.sessions, sid)
}

// LoadUser refreshes the profile from the marketplace. A failed refresh
// signs the shopper out, keeps the failure message on the session and
// returns the error.
func (s *AuthService) LoadUser(ctx context.Context, sid string) (*state.Session, error) {
	if _, err := signedIn(ctx, s.sessions, sid); err != nil {
		return nil, err
	}
	sess, err := apply(ctx, s.sessions, sid, state.AuthRequested{})
	if err != nil {
		return nil, err
	}

	user, err := s.backend.Me(ctx, sess.Auth.Token)
	if err != nil {
		s.logger.WarnContext(ctx, "profile refresh failed, signing out",
			slog.String("session_id", sid),
			slog.String("error", err.Error()),
		)
		failed := state.AuthFailed{Message: apperrors.Normalize(err, "").Message}
		if _, applyErr := apply(ctx, s.sessions, sid, failed); applyErr != nil {
			s.logger.ErrorContext(ctx, "failed to reset session", slog.String("error", applyErr.Error()))
		}
		s.forget(sid)
		return nil, err
	}

	return apply(ctx, s.sessions, sid, state.UserLoaded{User: user})
}

// Logout ends the session and drops everything held for it.
func (s *AuthService) Logout(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	s.forget(sid)
	if err := s.sessions.Delete(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.logger.InfoContext(ctx, "shopper signed out", slog.String("session_id", sid))
	return nil
}

func (s *AuthService) forget(sid string) {
	for _, f := range s.forgetters {
		f.ForgetSession(sid)
	}
}
