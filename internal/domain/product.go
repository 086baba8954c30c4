package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog listing owned by a farmer.
type Product struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	Category          string          `json:"category,omitempty"`
	Price             decimal.Decimal `json:"price"`
	Unit              string          `json:"unit"`
	AvailableQuantity int             `json:"available_quantity"`
	Images            []string        `json:"images,omitempty"`
	FarmerID          string          `json:"farmer_id,omitempty"`
	FarmerName        string          `json:"farmer_name,omitempty"`
	Rating            float64         `json:"rating,omitempty"`
	CreatedAt         time.Time       `json:"created_at,omitzero"`
}

// ProductInput is the farmer-supplied body for creating or editing a product.
type ProductInput struct {
	Name              string          `json:"name" validate:"required,min=2,max=120"`
	Description       string          `json:"description" validate:"max=2000"`
	Category          string          `json:"category" validate:"required"`
	Price             decimal.Decimal `json:"price" validate:"dgt=0"`
	Unit              string          `json:"unit" validate:"required,max=20"`
	AvailableQuantity int             `json:"available_quantity" validate:"gte=0"`
	Images            []string        `json:"images" validate:"max=10,dive,url"`
}

// ProductQuery filters a catalog listing.
type ProductQuery struct {
	Category string
	Search   string
	FarmerID string
	Sort     string
}
