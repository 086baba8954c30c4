package domain

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
)

// Balance is a farmer's wallet balance.
type Balance struct {
	Available decimal.Decimal `json:"available"`
	Pending   decimal.Decimal `json:"pending"`
}

// Withdrawal is a payout request.
type Withdrawal struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	BankName      string          `json:"bank_name"`
	AccountNumber string          `json:"account_number"`
	AccountHolder string          `json:"account_holder"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at,omitzero"`
}

// WithdrawalRequest is the farmer's payout form.
type WithdrawalRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"dgt=0"`
	BankName      string          `json:"bank_name" validate:"required,max=100"`
	AccountNumber string          `json:"account_number" validate:"required,max=34"`
	AccountHolder string          `json:"account_holder" validate:"required,max=100"`
}

// CheckFunds rejects a request for more than available.
func (r WithdrawalRequest) CheckFunds(available decimal.Decimal) error {
	if r.Amount.GreaterThan(available) {
		return apperrors.InvalidInputCode("INSUFFICIENT_BALANCE",
			"amount exceeds your available balance of "+available.StringFixed(2))
	}
	return nil
}

// ApplyWithdrawal returns b after moving amount from available to pending.
func (b Balance) ApplyWithdrawal(amount decimal.Decimal) Balance {
	return Balance{
		Available: b.Available.Sub(amount),
		Pending:   b.Pending.Add(amount),
	}
}
