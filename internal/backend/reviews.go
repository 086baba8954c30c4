package backend

import (
	"context"
	"net/http"

	"github.com/utafrali/agromarket-storefront/internal/domain"
)

// ProductReviews lists a product's reviews.
func (c *Client) ProductReviews(ctx context.Context, productID string) ([]domain.Review, error) {
	body, err := c.do(ctx, call{method: http.MethodGet, path: path("reviews", "product", productID)})
	if err != nil {
		return nil, err
	}
	items, _, err := decodeList[reviewWire](body, "reviews")
	if err != nil {
		return nil, err
	}
	return mapSlice(items, reviewWire.toDomain), nil
}

// CreateReview posts a new review.
func (c *Client) CreateReview(ctx context.Context, token string, in domain.ReviewInput) (domain.Review, error) {
	var out reviewWire
	err := c.doJSON(ctx, call{method: http.MethodPost, path: "/reviews", token: token, body: toReviewPayload(in)}, &out)
	if err != nil {
		return domain.Review{}, err
	}
	return out.toDomain(), nil
}

// UpdateReview edits an existing review.
func (c *Client) UpdateReview(ctx context.Context, token, id string, in domain.ReviewInput) (domain.Review, error) {
	var out reviewWire
	err := c.doJSON(ctx, call{method: http.MethodPut, path: path("reviews", id), token: token, body: toReviewPayload(in)}, &out)
	if err != nil {
		return domain.Review{}, err
	}
	return out.toDomain(), nil
}

// DeleteReview removes a review.
func (c *Client) DeleteReview(ctx context.Context, token, id string) error {
	return c.doJSON(ctx, call{method: http.MethodDelete, path: path("reviews", id), token: token}, nil)
}

// ReviewEligibility reports whether the user may review productID.
func (c *Client) ReviewEligibility(ctx context.Context, token, productID string) (domain.Eligibility, error) {
	var out eligibilityWire
	err := c.doJSON(ctx, call{method: http.MethodGet, path: path("reviews", "eligibility", productID), token: token}, &out)
	if err != nil {
		return domain.Eligibility{}, err
	}
	e := domain.Eligibility{CanReview: out.CanReview}
	if out.ExistingReview != nil {
		r := out.ExistingReview.toDomain()
		e.ExistingReview = &r
	}
	return e, nil
}
