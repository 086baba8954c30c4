package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Money is an exact amount in a currency.
type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

// NewMoney builds a Money value.
func NewMoney(amount decimal.Decimal, cur currency.Unit) Money {
	return Money{Amount: amount, Currency: cur}
}

// String renders the amount rounded to the currency minor unit, e.g. "LKR 850.00".
func (m Money) String() string {
	return m.Currency.String() + " " + formatAmount(m.Amount, m.Currency)
}

// MarshalJSON renders {"amount":"850.00","currency":"LKR"}.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}{formatAmount(m.Amount, m.Currency), m.Currency.String()})
}

// formatAmount rounds to the currency's standard scale. Rounding happens only
// here, never in arithmetic.
func formatAmount(d decimal.Decimal, cur currency.Unit) string {
	scale, _ := currency.Standard.Rounding(cur)
	return d.StringFixed(int32(scale))
}
