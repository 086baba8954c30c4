package errors

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubFieldError struct{ fields map[string]string }

func (e stubFieldError) Error() string             { return "validation failed" }
func (e stubFieldError) Fields() map[string]string { return e.fields }

func TestNormalize(t *testing.T) {
	const fallback = "something went wrong"

	tests := []struct {
		name    string
		err     error
		kind    Kind
		message string
	}{
		{"nil", nil, "", ""},
		{"backend message kept verbatim", &AppError{Code: "BACKEND_ERROR", Message: "Insufficient stock for Carrots", Status: http.StatusBadRequest}, KindAPI, "Insufficient stock for Carrots"},
		{"invalid input", InvalidInput("quantity must be at least 1"), KindValidation, "quantity must be at least 1"},
		{"unauthorized", Unauthorized("session expired"), KindAuth, "session expired"},
		{"forbidden", Forbidden("farmers only"), KindAuth, "farmers only"},
		{"service unavailable", ServiceUnavailable("backend is down"), KindNetwork, "backend is down"},
		{"internal hides detail", Internal(fmt.Errorf("redis: connection refused")), KindInternal, fallback},
		{"empty app message", &AppError{Code: "X", Status: http.StatusConflict}, KindAPI, fallback},
		{"deadline", fmt.Errorf("call backend: %w", context.DeadlineExceeded), KindNetwork, NetworkMessage},
		{"net error", &net.OpError{Op: "dial", Err: fmt.Errorf("refused")}, KindNetwork, NetworkMessage},
		{"plain error", fmt.Errorf("boom"), KindInternal, fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.err, fallback)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.message, got.Message)
		})
	}
}

func TestNormalize_FieldErrors(t *testing.T) {
	err := fmt.Errorf("delivery: %w", stubFieldError{fields: map[string]string{"email": "must be a valid email address"}})

	got := Normalize(err, "fallback")
	assert.Equal(t, KindValidation, got.Kind)
	assert.Equal(t, "must be a valid email address", got.Fields["email"])
}
