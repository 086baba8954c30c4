package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
)

// CartLine is one product and quantity in a buyer's cart. The backend keeps
// 1 <= Quantity <= Product.AvailableQuantity.
type CartLine struct {
	ID       string    `json:"id"`
	Product  Product   `json:"product"`
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"added_at,omitzero"`
}

// LineTotal is price × quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// DeliveryMethod selects the shipping fee.
type DeliveryMethod string

const (
	DeliveryStandard DeliveryMethod = "standard"
	DeliveryExpress  DeliveryMethod = "express"
	DeliveryPickup   DeliveryMethod = "pickup"
)

// Valid reports whether m is a known method.
func (m DeliveryMethod) Valid() bool {
	switch m {
	case DeliveryStandard, DeliveryExpress, DeliveryPickup:
		return true
	}
	return false
}

// DeliveryFees maps delivery methods to flat fees. Pickup is always free.
type DeliveryFees struct {
	Standard decimal.Decimal
	Express  decimal.Decimal
	Currency currency.Unit
}

// DefaultDeliveryFees returns the stock LKR fee table.
func DefaultDeliveryFees() DeliveryFees {
	return DeliveryFees{
		Standard: decimal.NewFromInt(200),
		Express:  decimal.NewFromInt(500),
		Currency: currency.MustParseISO("LKR"),
	}
}

// Fee returns the fee for m. Unknown methods and pickup cost nothing.
func (f DeliveryFees) Fee(m DeliveryMethod) decimal.Decimal {
	switch m {
	case DeliveryStandard:
		return f.Standard
	case DeliveryExpress:
		return f.Express
	default:
		return decimal.Zero
	}
}

// CartTotals is derived from cart lines and never stored.
type CartTotals struct {
	Subtotal  Money `json:"subtotal"`
	Shipping  Money `json:"shipping"`
	Total     Money `json:"total"`
	ItemCount int   `json:"item_count"`
}

// CalculateTotals computes subtotal, shipping and total for lines delivered
// by method. Shipping is zero for an empty cart and for pickup. Arithmetic is
// exact; rounding happens only when the result is rendered.
func CalculateTotals(lines []CartLine, method DeliveryMethod, fees DeliveryFees) CartTotals {
	subtotal := decimal.Zero
	count := 0
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal())
		count += l.Quantity
	}

	shipping := decimal.Zero
	if count > 0 {
		shipping = fees.Fee(method)
	}

	return CartTotals{
		Subtotal:  NewMoney(subtotal, fees.Currency),
		Shipping:  NewMoney(shipping, fees.Currency),
		Total:     NewMoney(subtotal.Add(shipping), fees.Currency),
		ItemCount: count,
	}
}

// QuantityDecision is the outcome of checking a requested quantity.
type QuantityDecision int

const (
	// QuantityAccepted means the update should be sent to the backend.
	QuantityAccepted QuantityDecision = iota
	// QuantityIgnored means the request is a no-op (below 1).
	QuantityIgnored
)

// CheckQuantity decides what to do with a requested quantity for product.
// Below 1 is ignored; above the available stock is rejected with a message
// naming the stock and unit.
func CheckQuantity(product Product, requested int) (QuantityDecision, error) {
	if requested < 1 {
		return QuantityIgnored, nil
	}
	if requested > product.AvailableQuantity {
		return QuantityIgnored, apperrors.InvalidInputCode("QUANTITY_UNAVAILABLE",
			fmt.Sprintf("only %d %s available", product.AvailableQuantity, product.Unit))
	}
	return QuantityAccepted, nil
}

// FindLine returns the index of the line with lineID, or of the line holding
// productID when lineID is empty or absent. It returns -1 when nothing matches.
func FindLine(lines []CartLine, lineID, productID string) int {
	if lineID != "" {
		for i := range lines {
			if lines[i].ID == lineID {
				return i
			}
		}
	}
	if productID != "" {
		for i := range lines {
			if lines[i].Product.ID == productID {
				return i
			}
		}
	}
	return -1
}
