package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
)

func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func appErrorOf(t *testing.T, err error) *apperrors.AppError {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr
}

func TestExtractMessage_Shapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
		msg  string
	}{
		{"top level message", `{"success":false,"message":"Product not found"}`, "", "Product not found"},
		{"nested error object", `{"error":{"code":"OUT_OF_STOCK","message":"Only 3 kg left"}}`, "OUT_OF_STOCK", "Only 3 kg left"},
		{"flat error string", `{"error":"Invalid credentials"}`, "", "Invalid credentials"},
		{"message wins over flat error", `{"message":"Withdrawal failed","error":"ECONNRESET"}`, "", "Withdrawal failed"},
		{"express validator array", `{"errors":[{"msg":"Amount must be positive"}]}`, "", "Amount must be positive"},
		{"html", `<html>502 Bad Gateway</html>`, "", ""},
		{"empty", ``, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := ExtractMessage([]byte(tt.body))
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.msg, msg)
		})
	}
}

func TestParseResponseError_StatusMapping(t *testing.T) {
	tests := []struct {
		status     int
		wantStatus int
		sentinel   error
	}{
		{http.StatusNotFound, http.StatusNotFound, apperrors.ErrNotFound},
		{http.StatusUnauthorized, http.StatusUnauthorized, apperrors.ErrUnauthorized},
		{http.StatusForbidden, http.StatusForbidden, apperrors.ErrForbidden},
		{http.StatusConflict, http.StatusConflict, apperrors.ErrConflict},
		{http.StatusGone, http.StatusGone, apperrors.ErrGone},
		{http.StatusPaymentRequired, http.StatusUnprocessableEntity, apperrors.ErrPaymentFailed},
		{http.StatusServiceUnavailable, http.StatusServiceUnavailable, apperrors.ErrServiceUnavail},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := ParseResponseError(makeResponse(tt.status, `{"message":"backend says no"}`))
			appErr := appErrorOf(t, err)
			assert.Equal(t, tt.wantStatus, appErr.Status)
			assert.Equal(t, "backend says no", appErr.Message)
			assert.True(t, errors.Is(err, tt.sentinel))
		})
	}
}

func TestParseResponseError_BadRequestKeepsMessageVerbatim(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusBadRequest, `{"message":"Insufficient stock for Carrots"}`))

	appErr := appErrorOf(t, err)
	assert.Equal(t, "BACKEND_REJECTED", appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "Insufficient stock for Carrots", appErr.Message)
	assert.Equal(t, apperrors.KindAPI, apperrors.Normalize(err, "fallback").Kind)
}

func TestParseResponseError_ServerErrorBecomesBadGateway(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusInternalServerError, `{"message":"Database down"}`))

	appErr := appErrorOf(t, err)
	assert.Equal(t, "BACKEND_ERROR", appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
	assert.Equal(t, "Database down", apperrors.Normalize(err, "fallback").Message)
}

func TestParseResponseError_NoMessageUsesFallback(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusBadRequest, `<html>oops</html>`))

	appErr := appErrorOf(t, err)
	assert.Empty(t, appErr.Message)
	assert.Equal(t, "order submission failed", apperrors.Normalize(err, "order submission failed").Message)
}

func TestStatusError_Error(t *testing.T) {
	err := &StatusError{StatusCode: 502, Body: []byte(strings.Repeat("x", 500))}
	assert.Contains(t, err.Error(), "server error 502")
	assert.Less(t, len(err.Error()), 300)
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(400))
	assert.True(t, IsClientError(499))
	assert.False(t, IsClientError(399))
	assert.False(t, IsClientError(500))
}
