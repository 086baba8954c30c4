package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
)

// maxErrorBody bounds how much of an error body is read.
const maxErrorBody = 1 << 20

// StatusError is returned by CircuitBreakerClient for 5xx responses, which
// count as breaker failures. It keeps the body so the message survives.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, truncate(string(e.Body), 200))
}

// errorBody covers the shapes the marketplace backend uses for failures:
// {"message": "..."}, {"error": "..."}, {"error": {"code","message"}} and
// {"errors": [{"msg": "..."}]}.
type errorBody struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
	Errors  []struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	} `json:"errors"`
}

// ExtractMessage returns the human readable message carried by an error
// body, or "" when none can be found.
func ExtractMessage(body []byte) (code, message string) {
	var eb errorBody
	if json.Unmarshal(body, &eb) != nil {
		return "", ""
	}
	if len(eb.Error) > 0 {
		var nested struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		var flat string
		switch {
		case json.Unmarshal(eb.Error, &nested) == nil && nested.Message != "":
			return nested.Code, nested.Message
		case json.Unmarshal(eb.Error, &flat) == nil && flat != "" && eb.Message == "":
			return "", flat
		}
	}
	if eb.Message != "" {
		return "", eb.Message
	}
	for _, e := range eb.Errors {
		if e.Msg != "" {
			return "", e.Msg
		}
		if e.Message != "" {
			return "", e.Message
		}
	}
	return "", ""
}

// ParseResponseError reads the body of a non-2xx response and translates it
// into an AppError carrying the backend's message verbatim. The body is
// consumed and closed.
func ParseResponseError(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("backend returned status %d (failed to read body: %w)", resp.StatusCode, err)
	}
	return ErrorFromBody(resp.StatusCode, body)
}

// ErrorFromBody maps a status and error body to an AppError. A missing
// message leaves AppError.Message empty so callers supply their fallback.
func ErrorFromBody(status int, body []byte) error {
	code, message := ExtractMessage(body)

	switch {
	case status == http.StatusNotFound:
		return &apperrors.AppError{Code: orDefault(code, "NOT_FOUND"), Message: message, Status: status, Err: apperrors.ErrNotFound}
	case status == http.StatusUnauthorized:
		return &apperrors.AppError{Code: "UNAUTHORIZED", Message: message, Status: status, Err: apperrors.ErrUnauthorized}
	case status == http.StatusForbidden:
		return &apperrors.AppError{Code: "FORBIDDEN", Message: message, Status: status, Err: apperrors.ErrForbidden}
	case status == http.StatusConflict:
		return &apperrors.AppError{Code: orDefault(code, "CONFLICT"), Message: message, Status: status, Err: apperrors.ErrConflict}
	case status == http.StatusGone:
		return &apperrors.AppError{Code: "GONE", Message: message, Status: status, Err: apperrors.ErrGone}
	case status == http.StatusPaymentRequired:
		return apperrors.PaymentFailed(message)
	case status == http.StatusServiceUnavailable:
		return &apperrors.AppError{Code: "SERVICE_UNAVAILABLE", Message: message, Status: status, Err: apperrors.ErrServiceUnavail}
	case status >= 500:
		return &apperrors.AppError{Code: "BACKEND_ERROR", Message: message, Status: http.StatusBadGateway}
	default:
		return &apperrors.AppError{Code: orDefault(code, "BACKEND_REJECTED"), Message: message, Status: status}
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
