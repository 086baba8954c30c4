package backend

import (
	"context"
	"net/http"

	"github.com/utafrali/agromarket-storefront/internal/domain"
)

// GetCart returns the backend cart.
func (c *Client) GetCart(ctx context.Context, token string) ([]domain.CartLine, error) {
	var out cartWire
	if err := c.doJSON(ctx, call{method: http.MethodGet, path: "/cart", token: token}, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// AddToCart adds a product and returns the updated cart.
func (c *Client) AddToCart(ctx context.Context, token, productID string, quantity int) ([]domain.CartLine, error) {
	payload := struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}{productID, quantity}

	var out cartWire
	if err := c.doJSON(ctx, call{method: http.MethodPost, path: "/cart", token: token, body: payload}, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// UpdateCartItem sets a line's quantity and returns the updated cart.
func (c *Client) UpdateCartItem(ctx context.Context, token, itemID string, quantity int) ([]domain.CartLine, error) {
	payload := struct {
		Quantity int `json:"quantity"`
	}{quantity}

	var out cartWire
	if err := c.doJSON(ctx, call{method: http.MethodPatch, path: path("cart", itemID), token: token, body: payload}, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// RemoveCartItem deletes a line and returns the updated cart.
func (c *Client) RemoveCartItem(ctx context.Context, token, itemID string) ([]domain.CartLine, error) {
	var out cartWire
	if err := c.doJSON(ctx, call{method: http.MethodDelete, path: path("cart", itemID), token: token}, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// ClearCart empties the backend cart.
func (c *Client) ClearCart(ctx context.Context, token string) error {
	return c.doJSON(ctx, call{method: http.MethodDelete, path: "/cart", token: token}, nil)
}
