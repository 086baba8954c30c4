package backend

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/utafrali/agromarket-storefront/internal/domain"
)

// SavedCard returns the user's card on file.
func (c *Client) SavedCard(ctx context.Context, token, userID string) (domain.SavedCard, error) {
	var out cardWire
	if err := c.doJSON(ctx, call{method: http.MethodGet, path: path("payments", "card", userID), token: token}, &out); err != nil {
		return domain.SavedCard{}, err
	}
	return domain.SavedCard{
		ID:       out.value(),
		Brand:    out.Brand,
		Last4:    out.Last4,
		ExpMonth: out.ExpMonth,
		ExpYear:  out.ExpYear,
	}, nil
}

// Charge charges the saved card and places the embedded order.
func (c *Client) Charge(ctx context.Context, token, userID string, amount decimal.Decimal, order domain.OrderRequest) (domain.ChargeResult, error) {
	payload := struct {
		UserID    string          `json:"userId"`
		Amount    decimal.Decimal `json:"amount"`
		OrderData orderPayload    `json:"orderData"`
	}{userID, amount, toOrderPayload(order)}

	var out chargeWire
	err := c.doJSON(ctx, call{method: http.MethodPost, path: "/payments/charge", token: token, body: payload}, &out)
	if err != nil {
		return domain.ChargeResult{}, err
	}
	res := domain.ChargeResult{OrderID: out.OrderID, TransactionID: out.TransactionID}
	if res.OrderID == "" && out.Order != nil {
		res.OrderID = out.Order.value()
	}
	return res, nil
}

// Refund requests a refund and returns the backend's message.
func (c *Client) Refund(ctx context.Context, token string, req domain.RefundRequest) (string, error) {
	payload := struct {
		OrderID string          `json:"orderId"`
		Amount  decimal.Decimal `json:"amount"`
		Reason  string          `json:"reason"`
	}{req.OrderID, req.Amount, req.Reason}

	body, err := c.do(ctx, call{method: http.MethodPost, path: "/payments/process-refund", token: token, body: payload})
	if err != nil {
		return "", err
	}
	return message(body), nil
}

// Transactions lists the user's payment history.
func (c *Client) Transactions(ctx context.Context, token, userID string) ([]domain.Transaction, error) {
	body, err := c.do(ctx, call{method: http.MethodGet, path: path("payments", "transactions", userID), token: token})
	if err != nil {
		return nil, err
	}
	items, _, err := decodeList[transactionWire](body, "transactions")
	if err != nil {
		return nil, err
	}
	return mapSlice(items, func(w transactionWire) domain.Transaction {
		return domain.Transaction{
			ID:        w.value(),
			OrderID:   w.Order.ID,
			Type:      w.Type,
			Amount:    w.Amount,
			Status:    w.Status,
			CreatedAt: w.CreatedAt,
		}
	}), nil
}

// WalletBalance returns the farmer's balance.
func (c *Client) WalletBalance(ctx context.Context, token string) (domain.Balance, error) {
	var out balanceWire
	err := c.doJSON(ctx, call{method: http.MethodGet, path: "/payments/withdraw/balance", token: token}, &out)
	if err != nil {
		return domain.Balance{}, err
	}
	return domain.Balance{Available: out.AvailableBalance, Pending: out.PendingBalance}, nil
}

// WithdrawalHistory lists the farmer's withdrawals, newest first.
func (c *Client) WithdrawalHistory(ctx context.Context, token string) ([]domain.Withdrawal, error) {
	body, err := c.do(ctx, call{method: http.MethodGet, path: "/payments/withdraw/history", token: token})
	if err != nil {
		return nil, err
	}
	items, _, err := decodeList[withdrawalWire](body, "withdrawals")
	if err != nil {
		return nil, err
	}
	return mapSlice(items, withdrawalWire.toDomain), nil
}

// Withdraw requests a payout.
func (c *Client) Withdraw(ctx context.Context, token string, req domain.WithdrawalRequest) (domain.Withdrawal, error) {
	payload := struct {
		Amount            decimal.Decimal `json:"amount"`
		BankName          string          `json:"bankName"`
		AccountNumber     string          `json:"accountNumber"`
		AccountHolderName string          `json:"accountHolderName"`
	}{req.Amount, req.BankName, req.AccountNumber, req.AccountHolder}

	var out withdrawalWire
	err := c.doJSON(ctx, call{method: http.MethodPost, path: "/payments/withdraw", token: token, body: payload}, &out)
	if err != nil {
		return domain.Withdrawal{}, err
	}
	return out.toDomain(), nil
}
