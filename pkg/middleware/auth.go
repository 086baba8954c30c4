package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/utafrali/agromarket-storefront/pkg/httputil"
	"github.com/utafrali/agromarket-storefront/pkg/logger"
)

type contextKeyType string

const claimsKey contextKeyType = "session_claims"

// SessionCookieName is the cookie carrying the storefront session token.
const SessionCookieName = "agro_session"

// Claims are the identity facts carried by a storefront session token.
type Claims struct {
	SessionID string `json:"sid"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
}

// TokenValidator validates a session token and returns its claims.
type TokenValidator func(token string) (*Claims, error)

// Auth validates the session token from the Authorization bearer header or
// the session cookie and stores the claims in the request context.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := tokenFromRequest(r)
			if !ok {
				writeJSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "please log in to continue")
				return
			}

			claims, err := validate(token)
			if err != nil {
				writeJSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "your session has expired, please log in again")
				return
			}

			ctx := WithClaims(r.Context(), claims)
			ctx = logger.WithSessionID(ctx, claims.SessionID)
			if claims.UserID != "" {
				ctx = logger.WithUserID(ctx, claims.UserID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose session role is not in roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := roleSet[RoleFromContext(r.Context())]; !ok {
				writeJSONError(w, r, http.StatusForbidden, "FORBIDDEN", "you do not have access to this page")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the session claims, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

// SessionIDFromContext extracts the session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.SessionID
	}
	return ""
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UserID
	}
	return ""
}

// RoleFromContext extracts the user role from the request context.
func RoleFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.Role
	}
	return ""
}

func tokenFromRequest(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") && parts[1] != "" {
			return parts[1], true
		}
		return "", false
	}
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	// Browsers cannot set headers on WebSocket upgrades.
	if t := r.URL.Query().Get("token"); t != "" && strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return t, true
	}
	return "", false
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	httputil.WriteJSON(w, status, httputil.Response{
		Error: &httputil.ErrorResponse{
			Code:      code,
			Message:   message,
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}
