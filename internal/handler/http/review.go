package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/service"
	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
	"github.com/utafrali/agromarket-storefront/pkg/httputil"
)

// ReviewHandler handles the multi-line review dialog and its image uploads.
type ReviewHandler struct {
	reviews *service.ReviewService
	uploads *service.UploadService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(reviews *service.ReviewService, uploads *service.UploadService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, uploads: uploads, logger: logger}
}

// Eligibility handles GET /api/v1/reviews/eligibility?product_id=a,b
func (h *ReviewHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, v := range r.URL.Query()["product_id"] {
		for id := range strings.SplitSeq(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	lines, err := h.reviews.Eligibility(r.Context(), sessionID(r), ids)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, lines)
}

// StageImages handles POST /api/v1/reviews/uploads (multipart, fields
// "form_id" and "images"). Uploads continue after the response.
func (h *ReviewHandler) StageImages(w http.ResponseWriter, r *http.Request) {
	files, err := readImages(w, r, "images")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	view, err := h.reviews.Stage(r.Context(), sessionID(r), r.FormValue("form_id"), files)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusAccepted, view)
}

// Form handles GET /api/v1/reviews/uploads/{formId}
func (h *ReviewHandler) Form(w http.ResponseWriter, r *http.Request) {
	formID, ok := httputil.PathID(w, r, "formId")
	if !ok {
		return
	}
	httputil.WriteData(w, http.StatusOK, h.uploads.Form(sessionID(r), formID))
}

// RemoveSlot handles DELETE /api/v1/reviews/uploads/{formId}/slots/{slotId}
func (h *ReviewHandler) RemoveSlot(w http.ResponseWriter, r *http.Request) {
	formID, ok := httputil.PathID(w, r, "formId")
	if !ok {
		return
	}
	slotID, ok := httputil.PathID(w, r, "slotId")
	if !ok {
		return
	}

	if err := h.uploads.RemoveSlot(sessionID(r), formID, slotID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DiscardForm handles DELETE /api/v1/reviews/uploads/{formId}
func (h *ReviewHandler) DiscardForm(w http.ResponseWriter, r *http.Request) {
	formID, ok := httputil.PathID(w, r, "formId")
	if !ok {
		return
	}
	h.uploads.Discard(sessionID(r), formID)
	w.WriteHeader(http.StatusNoContent)
}

// SubmitBatch handles POST /api/v1/reviews/batch. Partial success is a 200
// with per-line results.
func (h *ReviewHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req service.ReviewBatch
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.reviews.SubmitBatch(r.Context(), sessionID(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

// Update handles PUT /api/v1/reviews/{id}
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.ReviewInput
	if !decodeJSON(w, r, &req) {
		return
	}

	review, err := h.reviews.Update(r.Context(), sessionID(r), id, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, review)
}

// Delete handles DELETE /api/v1/reviews/{id}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.reviews.Delete(r.Context(), sessionID(r), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Preview handles GET /api/v1/previews/{id}, the local URL of a pending
// image. Only the owning session can read it.
func (h *ReviewHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	blob, err := h.uploads.Preview(sessionID(r), id)
	if err != nil {
		httputil.WriteError(w, r, apperrors.NotFound("preview", id), h.logger)
		return
	}

	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob.Data)
}
