package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/utafrali/agromarket-storefront/internal/domain"
)

// UploadKind selects the backend media folder.
type UploadKind string

const (
	UploadProducts UploadKind = "products"
	UploadReviews  UploadKind = "reviews"
)

// UploadImages posts files as multipart field "images" and returns the
// hosted URLs in order.
func (c *Client) UploadImages(ctx context.Context, token string, kind UploadKind, files []domain.UploadFile) ([]domain.UploadedImage, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, f.Name))
		h.Set("Content-Type", f.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("create multipart part: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("write multipart part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	var out uploadWire
	err := c.doJSON(ctx, call{
		method:      http.MethodPost,
		path:        path("upload", string(kind)),
		token:       token,
		rawBody:     &buf,
		contentType: mw.FormDataContentType(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// DeleteProductImage removes a hosted product image.
func (c *Client) DeleteProductImage(ctx context.Context, token, publicID string) error {
	return c.doJSON(ctx, call{method: http.MethodDelete, path: path("upload", "products", publicID), token: token}, nil)
}
