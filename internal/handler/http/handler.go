// Package http exposes the storefront services over a chi router.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
	"github.com/utafrali/agromarket-storefront/pkg/httputil"
	"github.com/utafrali/agromarket-storefront/pkg/logger"
	"github.com/utafrali/agromarket-storefront/pkg/middleware"
)

const (
	maxJSONBody     = 1 << 20
	maxUploadFiles  = 10
	multipartMemory = 32 << 20
)

// decodeJSON reads a JSON body into dst. On failure it writes a 400 and
// returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		msg := "invalid request body: " + err.Error()
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			msg = "request body is too large"
		}
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{
				Code:      "INVALID_INPUT",
				Kind:      apperrors.KindValidation,
				Message:   msg,
				RequestID: logger.CorrelationIDFromContext(r.Context()),
			},
		})
		return false
	}
	return true
}

// sessionID returns the storefront session of an authenticated request.
func sessionID(r *http.Request) string {
	return middleware.SessionIDFromContext(r.Context())
}

// CookieConfig controls the session cookie attributes.
type CookieConfig struct {
	Secure bool
}

func (c CookieConfig) set(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// readImages parses a multipart form and returns the files under field.
// Size and type checks happen in the services.
func readImages(w http.ResponseWriter, r *http.Request, field string) ([]domain.UploadFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadFiles*(domain.MaxImageSize+(1<<20)))

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, apperrors.InvalidInput("failed to parse multipart form: " + err.Error())
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("at least one file is required in %q", field))
	}
	if len(headers) > maxUploadFiles {
		return nil, apperrors.InvalidInput(fmt.Sprintf("at most %d images may be uploaded at once", maxUploadFiles))
	}

	files := make([]domain.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, apperrors.InvalidInput("failed to read " + fh.Filename)
		}
		// Read one byte past the limit so oversize files are detected.
		data, err := io.ReadAll(io.LimitReader(f, domain.MaxImageSize+1))
		_ = f.Close()
		if err != nil {
			return nil, apperrors.InvalidInput("failed to read " + fh.Filename)
		}
		files = append(files, domain.UploadFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	httputil.WriteData(w, status, map[string]string{"message": msg})
}
