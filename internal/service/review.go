package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/repository"
	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
	"github.com/utafrali/agromarket-storefront/pkg/validator"
)

const (
	reviewFallbackMessage = "we could not save your review, please try again"
	reviewNotAllowed      = "you can no longer review this product"
	reviewConcurrency     = 4
)

// LineEligibility is the review mode of one order line.
type LineEligibility struct {
	ProductID      string         `json:"product_id"`
	CanReview      bool           `json:"can_review"`
	Mode           string         `json:"mode"`
	ExistingReview *domain.Review `json:"existing_review,omitempty"`
}

// ReviewLine is one order line of a review batch. Whether it creates or
// edits a review is decided by the backend's eligibility answer. Images are
// already-hosted URLs to keep; images staged under FormID are appended once
// uploaded.
type ReviewLine struct {
	ProductID string   `json:"product_id"`
	OrderID   string   `json:"order_id"`
	FormID    string   `json:"form_id,omitempty"`
	Rating    int      `json:"rating"`
	Title     string   `json:"title"`
	Comment   string   `json:"comment"`
	Images    []string `json:"images,omitempty"`
}

// ReviewBatch is the body of a multi-line review submission.
type ReviewBatch struct {
	Lines []ReviewLine `json:"lines" validate:"required,min=1,max=50"`
}

// LineResult is the outcome of one line.
type LineResult struct {
	ProductID string            `json:"product_id"`
	Status    string            `json:"status"`
	Review    *domain.Review    `json:"review,omitempty"`
	Error     string            `json:"error,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// Line result statuses.
const (
	LineCreated = "created"
	LineUpdated = "updated"
	LineFailed  = "failed"
)

// BatchResult reports a review batch. Close is true when at least one line
// was saved.
type BatchResult struct {
	Succeeded      int                    `json:"succeeded"`
	Failed         int                    `json:"failed"`
	Lines          []LineResult           `json:"lines"`
	UploadFailures []domain.UploadFailure `json:"upload_failures,omitempty"`
	Close          bool                   `json:"close"`
}

// ReviewService handles product reviews and multi-line submissions.
type ReviewService struct {
	backend  ReviewBackend
	sessions repository.SessionRepository
	uploads  *UploadService
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(b ReviewBackend, sessions repository.SessionRepository, uploads *UploadService, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		backend:  b,
		sessions: sessions,
		uploads:  uploads,
		logger:   logger,
	}
}

// ProductReviews lists a product's reviews.
func (s *ReviewService) ProductReviews(ctx context.Context, productID string) ([]domain.Review, error) {
	return s.backend.ProductReviews(ctx, productID)
}

// Eligibility resolves the review mode of each product.
func (s *ReviewService) Eligibility(ctx context.Context, sid string, productIDs []string) ([]LineEligibility, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return nil, err
	}
	if len(productIDs) == 0 {
		return nil, apperrors.InvalidInput("at least one product is required")
	}

	out := make([]LineEligibility, len(productIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reviewConcurrency)
	for i, id := range productIDs {
		g.Go(func() error {
			e, err := s.backend.ReviewEligibility(gctx, sess.Auth.Token, id)
			if err != nil {
				return err
			}
			out[i] = LineEligibility{
				ProductID:      id,
				CanReview:      e.CanReview,
				Mode:           e.Mode(),
				ExistingReview: e.ExistingReview,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Stage adds images to a line's form and starts uploading them.
func (s *ReviewService) Stage(ctx context.Context, sid, formID string, files []domain.UploadFile) (FormView, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return FormView{}, err
	}
	return s.uploads.Stage(ctx, sid, sess.Auth.Token, formID, files)
}

// SubmitBatch waits for every staged upload to resolve and then saves each
// line independently: lines with an existing review edit it, eligible lines
// create one and the rest fail without a write. Saved lines are not rolled
// back when others fail.
func (s *ReviewService) SubmitBatch(ctx context.Context, sid string, batch ReviewBatch) (*BatchResult, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(batch); err != nil {
		return nil, err
	}

	result := &BatchResult{Lines: make([]LineResult, len(batch.Lines))}
	images := make([][]string, len(batch.Lines))
	for i, line := range batch.Lines {
		images[i] = append(images[i], line.Images...)
		if line.FormID == "" {
			continue
		}
		res, err := s.uploads.Wait(ctx, sid, line.FormID)
		if err != nil {
			return nil, err
		}
		images[i] = append(images[i], res.HostedURLs...)
		result.UploadFailures = append(result.UploadFailures, res.Failures...)
	}

	var g errgroup.Group
	g.SetLimit(reviewConcurrency)
	for i, line := range batch.Lines {
		g.Go(func() error {
			result.Lines[i] = s.saveLine(ctx, sess.Auth.Token, line, images[i])
			return nil
		})
	}
	_ = g.Wait()

	for i, lr := range result.Lines {
		if lr.Status == LineFailed {
			result.Failed++
			continue
		}
		result.Succeeded++
		if f := batch.Lines[i].FormID; f != "" {
			s.uploads.Discard(sid, f)
		}
	}
	result.Close = result.Succeeded > 0

	s.logger.InfoContext(ctx, "review batch submitted",
		slog.String("user_id", sess.UserID()),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *ReviewService) saveLine(ctx context.Context, token string, line ReviewLine, images []string) LineResult {
	in := domain.ReviewInput{
		ProductID: line.ProductID,
		OrderID:   line.OrderID,
		Rating:    line.Rating,
		Title:     line.Title,
		Comment:   line.Comment,
		Images:    images,
	}
	lr := LineResult{ProductID: line.ProductID}

	if err := validator.Validate(in); err != nil {
		n := apperrors.Normalize(err, reviewFallbackMessage)
		lr.Status, lr.Error, lr.Fields = LineFailed, n.Message, n.Fields
		return lr
	}

	elig, err := s.backend.ReviewEligibility(ctx, token, line.ProductID)
	if err != nil {
		lr.Status, lr.Error = LineFailed, apperrors.Normalize(err, reviewFallbackMessage).Message
		return lr
	}

	var review domain.Review
	switch {
	case elig.ExistingReview != nil:
		review, err = s.backend.UpdateReview(ctx, token, elig.ExistingReview.ID, in)
		lr.Status = LineUpdated
	case elig.CanReview:
		review, err = s.backend.CreateReview(ctx, token, in)
		lr.Status = LineCreated
	default:
		lr.Status, lr.Error = LineFailed, reviewNotAllowed
		return lr
	}
	if err != nil {
		lr.Status, lr.Error = LineFailed, apperrors.Normalize(err, reviewFallbackMessage).Message
		return lr
	}
	lr.Review = &review
	return lr
}

// Update edits a single review.
func (s *ReviewService) Update(ctx context.Context, sid, id string, in domain.ReviewInput) (domain.Review, error) {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return domain.Review{}, err
	}
	if err := validator.Validate(in); err != nil {
		return domain.Review{}, err
	}
	return s.backend.UpdateReview(ctx, sess.Auth.Token, id, in)
}

// Delete removes a review.
func (s *ReviewService) Delete(ctx context.Context, sid, id string) error {
	sess, err := signedIn(ctx, s.sessions, sid)
	if err != nil {
		return err
	}
	if err := s.backend.DeleteReview(ctx, sess.Auth.Token, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "review deleted", slog.String("review_id", id))
	return nil
}
