package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SavedCard is the masked card on file for a buyer.
type SavedCard struct {
	ID       string `json:"id"`
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
}

// Transaction is one entry of a user's payment history.
type Transaction struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id,omitempty"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at,omitzero"`
}

// ChargeResult is the backend's reply to a successful charge.
type ChargeResult struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// RefundRequest asks for a refund on an order.
type RefundRequest struct {
	OrderID string          `json:"order_id" validate:"required"`
	Amount  decimal.Decimal `json:"amount" validate:"dgt=0"`
	Reason  string          `json:"reason" validate:"required,max=500"`
}
