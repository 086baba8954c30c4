package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/utafrali/agromarket-storefront/internal/domain"
)

// Login exchanges credentials for a backend token and the user profile.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (string, domain.User, error) {
	var out struct {
		Token string   `json:"token"`
		User  userWire `json:"user"`
	}
	err := c.doJSON(ctx, call{method: http.MethodPost, path: "/auth/login", body: creds}, &out)
	if err != nil {
		return "", domain.User{}, err
	}
	return out.Token, out.User.toDomain(), nil
}

// Register creates an account and returns the backend's confirmation message.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (string, error) {
	payload := struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
		Phone    string `json:"phone,omitempty"`
		FarmName string `json:"farmName,omitempty"`
	}{reg.Name, reg.Email, reg.Password, reg.Role, reg.Phone, reg.FarmName}

	body, err := c.do(ctx, call{method: http.MethodPost, path: "/auth/register", body: payload})
	if err != nil {
		return "", err
	}
	return message(body), nil
}

// Me returns the profile of the token's owner.
func (c *Client) Me(ctx context.Context, token string) (domain.User, error) {
	var out struct {
		User *userWire `json:"user"`
		userWire
	}
	if err := c.doJSON(ctx, call{method: http.MethodGet, path: "/auth/me", token: token}, &out); err != nil {
		return domain.User{}, err
	}
	if out.User != nil {
		return out.User.toDomain(), nil
	}
	return out.userWire.toDomain(), nil
}

// ForgotPassword starts a password reset for email.
func (c *Client) ForgotPassword(ctx context.Context, req domain.ForgotPassword) (string, error) {
	body, err := c.do(ctx, call{method: http.MethodPost, path: "/auth/forgot-password", body: req})
	if err != nil {
		return "", err
	}
	return message(body), nil
}

// ResetPassword completes a password reset.
func (c *Client) ResetPassword(ctx context.Context, req domain.ResetPassword) (string, error) {
	body, err := c.do(ctx, call{method: http.MethodPost, path: "/auth/reset-password", body: req})
	if err != nil {
		return "", err
	}
	return message(body), nil
}

// VerifyEmail confirms an email address with the token from the mail link.
func (c *Client) VerifyEmail(ctx context.Context, verifyToken string) (string, error) {
	body, err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/auth/verify-email",
		query:  url.Values{"token": {verifyToken}},
	})
	if err != nil {
		return "", err
	}
	return message(body), nil
}
