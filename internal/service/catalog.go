package service

import (
	"context"
	"log/slog"

	"github.com/utafrali/agromarket-storefront/internal/backend"
	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/repository"
	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
	"github.com/utafrali/agromarket-storefront/pkg/pagination"
	"github.com/utafrali/agromarket-storefront/pkg/validator"
)

// CatalogService serves the public catalog and a farmer's own listings.
type CatalogService struct {
	backend  ProductBackend
	images   UploadBackend
	sessions repository.SessionRepository
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(b ProductBackend, images UploadBackend, sessions repository.SessionRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		backend:  b,
		images:   images,
		sessions: sessions,
		logger:   logger,
	}
}

// List returns one page of the catalog.
func (s *CatalogService) List(ctx context.Context, q domain.ProductQuery, p pagination.Params) (pagination.Result[domain.Product], error) {
	products, total, err := s.backend.ListProducts(ctx, q, p)
	if err != nil {
		return pagination.Result[domain.Product]{}, err
	}
	return pagination.NewResult(products, total, p), nil
}

// Get returns one product.
func (s *CatalogService) Get(ctx context.Context, id string) (domain.Product, error) {
	return s.backend.GetProduct(ctx, id)
}

// MyProducts lists the signed-in farmer's products.
func (s *CatalogService) MyProducts(ctx context.Context, sid string) ([]domain.Product, error) {
	sess, err := farmer(ctx, s.sessions, sid)
	if err != nil {
		return nil, err
	}
	return s.backend.MyProducts(ctx, sess.Auth.Token)
}

// Create lists a new product.
func (s *CatalogService) Create(ctx context.Context, sid string, in domain.ProductInput) (domain.Product, error) {
	sess, err := farmer(ctx, s.sessions, sid)
	if err != nil {
		return domain.Product{}, err
	}
	if err := validator.Validate(in); err != nil {
		return domain.Product{}, err
	}
	p, err := s.backend.CreateProduct(ctx, sess.Auth.Token, in)
	if err != nil {
		return domain.Product{}, err
	}
	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID),
		slog.String("farmer_id", sess.UserID()),
	)
	return p, nil
}

// Update edits a product.
func (s *CatalogService) Update(ctx context.Context, sid, id string, in domain.ProductInput) (domain.Product, error) {
	sess, err := farmer(ctx, s.sessions, sid)
	if err != nil {
		return domain.Product{}, err
	}
	if err := validator.Validate(in); err != nil {
		return domain.Product{}, err
	}
	p, err := s.backend.UpdateProduct(ctx, sess.Auth.Token, id, in)
	if err != nil {
		return domain.Product{}, err
	}
	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", id))
	return p, nil
}

// Delete removes a product.
func (s *CatalogService) Delete(ctx context.Context, sid, id string) error {
	sess, err := farmer(ctx, s.sessions, sid)
	if err != nil {
		return err
	}
	if err := s.backend.DeleteProduct(ctx, sess.Auth.Token, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

// UploadImages validates and hosts product images synchronously.
func (s *CatalogService) UploadImages(ctx context.Context, sid string, files []domain.UploadFile) ([]domain.UploadedImage, error) {
	sess, err := farmer(ctx, s.sessions, sid)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperrors.InvalidInput("at least one image is required")
	}
	checked := make([]domain.UploadFile, 0, len(files))
	for _, f := range files {
		ct, err := CheckImage(f)
		if err != nil {
			return nil, err
		}
		f.ContentType = ct
		checked = append(checked, f)
	}
	return s.images.UploadImages(ctx, sess.Auth.Token, backend.UploadProducts, checked)
}

// DeleteImage removes a hosted product image.
func (s *CatalogService) DeleteImage(ctx context.Context, sid, publicID string) error {
	sess, err := farmer(ctx, s.sessions, sid)
	if err != nil {
		return err
	}
	return s.images.DeleteProductImage(ctx, sess.Auth.Token, publicID)
}
