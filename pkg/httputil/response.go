package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
	"github.com/utafrali/agromarket-storefront/pkg/logger"
	"github.com/utafrali/agromarket-storefront/pkg/validator"
)

// GenericErrorMessage is shown when nothing more specific is known.
const GenericErrorMessage = "something went wrong, please try again"

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Response is the JSON envelope returned by every storefront endpoint.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the error half of Response.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Kind      apperrors.Kind    `json:"kind,omitempty"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes a successful envelope.
func WriteData(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Response{Data: data})
}

// WriteError normalizes err and writes the matching error envelope. The
// request-scoped logger from context is preferred over fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteValidationError(w, r, err)
		return
	}

	norm := apperrors.Normalize(err, GenericErrorMessage)
	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"

	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
	case norm.Kind == apperrors.KindNetwork:
		code = "BACKEND_UNREACHABLE"
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("kind", string(norm.Kind)),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{
		Error: &ErrorResponse{Code: code, Kind: norm.Kind, Message: norm.Message, RequestID: requestID},
	})
}

// WriteValidationError writes a 400 with per-field messages.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:      "VALIDATION_ERROR",
				Kind:      apperrors.KindValidation,
				Message:   "please correct the highlighted fields",
				Fields:    valErr.Fields(),
				RequestID: requestID,
			},
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: "INVALID_INPUT", Kind: apperrors.KindValidation, Message: err.Error(), RequestID: requestID},
	})
}

// PathID returns the named chi URL parameter after checking it is a plain
// identifier safe to splice into a backend path. On failure it writes a 400
// and returns false.
func PathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := chi.URLParam(r, name)
	if !idPattern.MatchString(id) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:      "INVALID_PARAMETER",
				Kind:      apperrors.KindValidation,
				Message:   "invalid " + name,
				RequestID: logger.CorrelationIDFromContext(r.Context()),
			},
		})
		return "", false
	}
	return id, true
}
