package domain

import "time"

// Review is a buyer's review of a product.
type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	UserID    string    `json:"user_id,omitempty"`
	UserName  string    `json:"user_name,omitempty"`
	OrderID   string    `json:"order_id,omitempty"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title"`
	Comment   string    `json:"comment"`
	Images    []string  `json:"images,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// ReviewInput is the validated review form.
type ReviewInput struct {
	ProductID string   `json:"product_id" validate:"required"`
	OrderID   string   `json:"order_id,omitempty"`
	Rating    int      `json:"rating" validate:"required,min=1,max=5"`
	Title     string   `json:"title" validate:"required,min=5,max=100"`
	Comment   string   `json:"comment" validate:"required,min=10,max=1000"`
	Images    []string `json:"images,omitempty"`
}

// Eligibility says whether the buyer may review a product, and the review to
// edit if one already exists.
type Eligibility struct {
	CanReview      bool    `json:"can_review"`
	ExistingReview *Review `json:"existing_review,omitempty"`
}

// Mode returns "edit" when a review exists, "create" when a new one is
// allowed and "" otherwise.
func (e Eligibility) Mode() string {
	switch {
	case e.ExistingReview != nil:
		return "edit"
	case e.CanReview:
		return "create"
	default:
		return ""
	}
}
