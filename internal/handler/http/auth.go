package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/service"
	"github.com/utafrali/agromarket-storefront/internal/state"
	"github.com/utafrali/agromarket-storefront/pkg/httputil"
)

// AuthHandler handles sign in, sign out and account endpoints.
type AuthHandler struct {
	auth    *service.AuthService
	carts   *service.CartService
	cookies CookieConfig
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(auth *service.AuthService, carts *service.CartService, cookies CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, carts: carts, cookies: cookies, logger: logger}
}

// --- Response types ---

// LoginResponse carries the storefront session token for clients that
// cannot use the cookie.
type LoginResponse struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// SessionResponse is the client view of a session. The backend token is
// never included.
type SessionResponse struct {
	User            *domain.User       `json:"user"`
	IsAuthenticated bool               `json:"is_authenticated"`
	Error           string             `json:"error,omitempty"`
	Cart            service.CartView   `json:"cart"`
	Wallet          *state.WalletState `json:"wallet,omitempty"`
}

func (h *AuthHandler) sessionResponse(s *state.Session) SessionResponse {
	resp := SessionResponse{
		User:            s.Auth.User,
		IsAuthenticated: s.Auth.IsAuthenticated,
		Error:           s.Auth.Error,
		Cart:            h.carts.View(s.Cart, domain.DeliveryStandard),
	}
	if s.Auth.User != nil && s.Auth.User.IsFarmer() && s.Wallet.Loaded {
		w := s.Wallet
		resp.Wallet = &w
	}
	return resp
}

// --- Handlers ---

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.Credentials
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.auth.Login(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.set(w, res.Token, res.ExpiresAt)
	httputil.WriteData(w, http.StatusOK, LoginResponse{
		User:      res.User,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	})
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.Registration
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.auth.Register(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeMessage(w, http.StatusCreated, msg)
}

// ForgotPassword handles POST /api/v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ForgotPassword
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.auth.ForgotPassword(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeMessage(w, http.StatusOK, msg)
}

// ResetPassword handles POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPassword
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.auth.ResetPassword(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeMessage(w, http.StatusOK, msg)
}

// VerifyEmail handles GET /api/v1/auth/verify-email?token=
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	msg, err := h.auth.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeMessage(w, http.StatusOK, msg)
}

// Me handles GET /api/v1/auth/me. ?refresh=true reloads the profile from
// the marketplace and signs the session out if that fails.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	var (
		s   *state.Session
		err error
	)
	if r.URL.Query().Get("refresh") == "true" {
		s, err = h.auth.LoadUser(r.Context(), sessionID(r))
		if err != nil {
			h.cookies.clear(w)
		}
	} else {
		s, err = h.auth.Session(r.Context(), sessionID(r))
	}
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.sessionResponse(s))
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), sessionID(r)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.cookies.clear(w)
	w.WriteHeader(http.StatusNoContent)
}
