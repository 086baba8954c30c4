package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/pkg/pagination"
)

// ListProducts returns one catalog page and the total when the backend
// reports it (-1 otherwise).
func (c *Client) ListProducts(ctx context.Context, q domain.ProductQuery, p pagination.Params) ([]domain.Product, int, error) {
	query := url.Values{}
	p.Apply(query)
	if q.Category != "" {
		query.Set("category", q.Category)
	}
	if q.Search != "" {
		query.Set("search", q.Search)
	}
	if q.FarmerID != "" {
		query.Set("farmer", q.FarmerID)
	}
	if q.Sort != "" {
		query.Set("sort", q.Sort)
	}

	body, err := c.do(ctx, call{method: http.MethodGet, path: "/products", query: query})
	if err != nil {
		return nil, 0, err
	}
	items, total, err := decodeList[productWire](body, "products")
	if err != nil {
		return nil, 0, err
	}
	return mapSlice(items, productWire.toDomain), total, nil
}

// GetProduct returns one product.
func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var out productWire
	if err := c.doJSON(ctx, call{method: http.MethodGet, path: path("products", id)}, &out); err != nil {
		return domain.Product{}, err
	}
	return out.toDomain(), nil
}

// MyProducts lists the signed-in farmer's products.
func (c *Client) MyProducts(ctx context.Context, token string) ([]domain.Product, error) {
	body, err := c.do(ctx, call{method: http.MethodGet, path: "/products/my/products", token: token})
	if err != nil {
		return nil, err
	}
	items, _, err := decodeList[productWire](body, "products")
	if err != nil {
		return nil, err
	}
	return mapSlice(items, productWire.toDomain), nil
}

// CreateProduct lists a new product for the signed-in farmer.
func (c *Client) CreateProduct(ctx context.Context, token string, in domain.ProductInput) (domain.Product, error) {
	var out productWire
	err := c.doJSON(ctx, call{method: http.MethodPost, path: "/products", token: token, body: toProductPayload(in)}, &out)
	if err != nil {
		return domain.Product{}, err
	}
	return out.toDomain(), nil
}

// UpdateProduct replaces a product's fields.
func (c *Client) UpdateProduct(ctx context.Context, token, id string, in domain.ProductInput) (domain.Product, error) {
	var out productWire
	err := c.doJSON(ctx, call{method: http.MethodPut, path: path("products", id), token: token, body: toProductPayload(in)}, &out)
	if err != nil {
		return domain.Product{}, err
	}
	return out.toDomain(), nil
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, token, id string) error {
	return c.doJSON(ctx, call{method: http.MethodDelete, path: path("products", id), token: token}, nil)
}
