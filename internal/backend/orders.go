package backend

import (
	"context"
	"net/http"

	"github.com/utafrali/agromarket-storefront/internal/domain"
)

// CreateOrder places a cash-on-delivery order.
func (c *Client) CreateOrder(ctx context.Context, token string, req domain.OrderRequest) (domain.Order, error) {
	var out orderWire
	err := c.doJSON(ctx, call{method: http.MethodPost, path: "/orders", token: token, body: toOrderPayload(req)}, &out)
	if err != nil {
		return domain.Order{}, err
	}
	return out.toDomain(), nil
}

// MyOrders lists the buyer's orders.
func (c *Client) MyOrders(ctx context.Context, token string) ([]domain.Order, error) {
	return c.listOrders(ctx, token, "/orders/my")
}

// MyOrder returns one of the buyer's orders.
func (c *Client) MyOrder(ctx context.Context, token, id string) (domain.Order, error) {
	var out orderWire
	if err := c.doJSON(ctx, call{method: http.MethodGet, path: "/orders/my" + path(id), token: token}, &out); err != nil {
		return domain.Order{}, err
	}
	return out.toDomain(), nil
}

// FarmerOrders lists orders containing the farmer's products.
func (c *Client) FarmerOrders(ctx context.Context, token string) ([]domain.Order, error) {
	return c.listOrders(ctx, token, "/orders/farmer/orders")
}

// UpdateOrderStatus changes an order's fulfilment status.
func (c *Client) UpdateOrderStatus(ctx context.Context, token, id string, status domain.OrderStatus) (domain.Order, error) {
	payload := struct {
		Status string `json:"status"`
	}{string(status)}

	var out orderWire
	err := c.doJSON(ctx, call{method: http.MethodPatch, path: path("orders", id, "status"), token: token, body: payload}, &out)
	if err != nil {
		return domain.Order{}, err
	}
	return out.toDomain(), nil
}

func (c *Client) listOrders(ctx context.Context, token, p string) ([]domain.Order, error) {
	body, err := c.do(ctx, call{method: http.MethodGet, path: p, token: token})
	if err != nil {
		return nil, err
	}
	items, _, err := decodeList[orderWire](body, "orders")
	if err != nil {
		return nil, err
	}
	return mapSlice(items, orderWire.toDomain), nil
}
