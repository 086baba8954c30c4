package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/utafrali/agromarket-storefront/internal/repository"
	"github.com/utafrali/agromarket-storefront/internal/state"
	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
)

// SessionForgetter drops per-session process memory on logout.
type SessionForgetter interface {
	ForgetSession(sid string)
}

// signedIn loads the session and requires an authenticated user.
func signedIn(ctx context.Context, sessions repository.SessionRepository, sid string) (*state.Session, error) {
	if sid == "" {
		return nil, apperrors.Unauthorized("please sign in to continue")
	}
	sess, err := sessions.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("your session has expired, please sign in again")
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !sess.Auth.IsAuthenticated || sess.Auth.Token == "" {
		return nil, apperrors.Unauthorized("please sign in to continue")
	}
	return sess, nil
}

// farmer loads the session and requires a farmer account.
func farmer(ctx context.Context, sessions repository.SessionRepository, sid string) (*state.Session, error) {
	sess, err := signedIn(ctx, sessions, sid)
	if err != nil {
		return nil, err
	}
	if sess.Auth.User == nil || !sess.Auth.User.IsFarmer() {
		return nil, apperrors.Forbidden("this page is only available to farmers")
	}
	return sess, nil
}

// apply dispatches actions into the stored session.
func apply(ctx context.Context, sessions repository.SessionRepository, sid string, actions ...any) (*state.Session, error) {
	sess, err := sessions.Update(ctx, sid, func(s *state.Session) error {
		for _, a := range actions {
			s.Apply(a)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return sess, nil
}
