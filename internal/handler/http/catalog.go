package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/service"
	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
	"github.com/utafrali/agromarket-storefront/pkg/httputil"
	"github.com/utafrali/agromarket-storefront/pkg/pagination"
)

// CatalogHandler serves the public catalog and a farmer's listings.
type CatalogHandler struct {
	catalog *service.CatalogService
	reviews *service.ReviewService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(catalog *service.CatalogService, reviews *service.ReviewService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, reviews: reviews, logger: logger}
}

// ListProducts handles GET /api/v1/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := domain.ProductQuery{
		Category: q.Get("category"),
		Search:   strings.TrimSpace(q.Get("search")),
		FarmerID: q.Get("farmer"),
		Sort:     q.Get("sort"),
	}

	res, err := h.catalog.List(r.Context(), query, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// GetProduct handles GET /api/v1/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, p)
}

// ProductReviews handles GET /api/v1/products/{id}/reviews
func (h *CatalogHandler) ProductReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	reviews, err := h.reviews.ProductReviews(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, reviews)
}

// MyProducts handles GET /api/v1/farmer/products
func (h *CatalogHandler) MyProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.MyProducts(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, products)
}

// CreateProduct handles POST /api/v1/farmer/products
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductInput
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.catalog.Create(r.Context(), sessionID(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, p)
}

// UpdateProduct handles PUT /api/v1/farmer/products/{id}
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.ProductInput
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.catalog.Update(r.Context(), sessionID(r), id, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, p)
}

// DeleteProduct handles DELETE /api/v1/farmer/products/{id}
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.catalog.Delete(r.Context(), sessionID(r), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImages handles POST /api/v1/farmer/products/images (multipart,
// field "images").
func (h *CatalogHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	files, err := readImages(w, r, "images")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	images, err := h.catalog.UploadImages(r.Context(), sessionID(r), files)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, images)
}

// DeleteImage handles DELETE /api/v1/farmer/products/images/*. Media
// store public IDs may contain slashes.
func (h *CatalogHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	publicID := strings.Trim(chi.URLParam(r, "*"), "/")
	if publicID == "" || strings.Contains(publicID, "..") {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid image id"), h.logger)
		return
	}

	if err := h.catalog.DeleteImage(r.Context(), sessionID(r), publicID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
