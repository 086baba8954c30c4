package errors

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Kind classifies an error for display.
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindAPI        Kind = "api"
	KindNetwork    Kind = "network"
	KindInternal   Kind = "internal"
)

// NetworkMessage is shown when the marketplace backend cannot be reached.
const NetworkMessage = "unable to reach the marketplace, please check your connection and try again"

// Normalized is the single display form every failure is reduced to.
type Normalized struct {
	Kind    Kind              `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type fieldErrors interface {
	error
	Fields() map[string]string
}

// Normalize maps any error to a Normalized value. The AppError message wins
// when present; otherwise fallback is used.
func Normalize(err error, fallback string) Normalized {
	if err == nil {
		return Normalized{}
	}

	var fe fieldErrors
	if errors.As(err, &fe) {
		return Normalized{Kind: KindValidation, Message: "please correct the highlighted fields", Fields: fe.Fields()}
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		msg := appErr.Message
		if msg == "" {
			msg = fallback
		}
		switch {
		case appErr.Status == http.StatusUnauthorized, appErr.Status == http.StatusForbidden:
			return Normalized{Kind: KindAuth, Message: msg}
		case errors.Is(appErr, ErrInvalidInput):
			return Normalized{Kind: KindValidation, Message: msg}
		case appErr.Status == http.StatusServiceUnavailable:
			return Normalized{Kind: KindNetwork, Message: msg}
		case appErr.Status >= http.StatusInternalServerError && appErr.Err != nil && !errors.Is(appErr, ErrServiceUnavail):
			return Normalized{Kind: KindInternal, Message: fallback}
		default:
			return Normalized{Kind: KindAPI, Message: msg}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return Normalized{Kind: KindNetwork, Message: NetworkMessage}
	}

	return Normalized{Kind: KindInternal, Message: fallback}
}
