// Package backend is the typed client of the marketplace REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/utafrali/agromarket-storefront/pkg/httpclient"
)

// maxResponseBody bounds a decoded success body.
const maxResponseBody = 8 << 20

// Doer executes HTTP requests. *httpclient.CircuitBreakerClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client talks to the marketplace backend. Every method takes the caller's
// backend bearer token; an empty token sends no Authorization header.
type Client struct {
	http    Doer
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a backend client rooted at baseURL (e.g.
// http://localhost:5000/api).
func NewClient(doer Doer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		http:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Ping reports whether the backend answers at all. Any status below 500
// counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("ping backend: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

// call is one backend request.
type call struct {
	method      string
	path        string
	query       url.Values
	token       string
	body        any
	rawBody     io.Reader
	contentType string
}

// doJSON performs c and decodes the body into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, cl call, out any) error {
	body, err := c.do(ctx, cl)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeData(body, out)
}

// do performs cl and returns the raw success body.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var reader io.Reader = http.NoBody
	contentType := cl.contentType
	switch {
	case cl.rawBody != nil:
		reader = cl.rawBody
	case cl.body != nil:
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s %s body: %w", cl.method, cl.path, err)
		}
		reader = bytes.NewReader(b)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", cl.method, cl.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	start := time.Now()
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			c.logResult(ctx, cl, se.StatusCode, start)
			return nil, httpclient.ErrorFromBody(se.StatusCode, se.Body)
		}
		c.logger.DebugContext(ctx, "backend request failed",
			slog.String("method", cl.method),
			slog.String("path", cl.path),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%s %s: %w", cl.method, cl.path, err)
	}
	c.logResult(ctx, cl, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpclient.ParseResponseError(resp)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", cl.method, cl.path, err)
	}
	return body, nil
}

func (c *Client) logResult(ctx context.Context, cl call, status int, start time.Time) {
	c.logger.DebugContext(ctx, "backend request",
		slog.String("method", cl.method),
		slog.String("path", cl.path),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
	)
}

// decodeData decodes body into out, unwrapping a {"data": ...} envelope when
// one is present.
func decodeData(body []byte, out any) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	if body[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
			body = env.Data
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}

// decodeList extracts a list and, when reported, its total. It accepts a bare
// array, {"data": [...]}, {"<key>": [...]} and {"data": {"<key>": [...]}}.
// Total is -1 when the backend does not report one.
func decodeList[T any](body []byte, key string) ([]T, int, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, -1, nil
	}
	if body[0] == '[' {
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, -1, fmt.Errorf("decode backend list: %w", err)
		}
		return items, -1, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, -1, fmt.Errorf("decode backend list: %w", err)
	}
	total := readTotal(obj)

	raw, ok := obj[key]
	if !ok {
		raw, ok = obj["data"]
	}
	if !ok || string(raw) == "null" {
		return nil, total, nil
	}
	items, inner, err := decodeList[T](raw, key)
	if err != nil {
		return nil, -1, err
	}
	if total < 0 {
		total = inner
	}
	return items, total, nil
}

func readTotal(obj map[string]json.RawMessage) int {
	for _, k := range []string{"total", "count", "totalCount"} {
		if raw, ok := obj[k]; ok {
			var n int
			if json.Unmarshal(raw, &n) == nil {
				return n
			}
		}
	}
	if raw, ok := obj["pagination"]; ok {
		var p struct {
			Total int `json:"total"`
		}
		if json.Unmarshal(raw, &p) == nil {
			return p.Total
		}
	}
	return -1
}

// message extracts {"message": "..."} from a success body.
func message(body []byte) string {
	var m struct {
		Message string `json:"message"`
	}
	_ = decodeData(body, &m)
	if m.Message == "" {
		_ = json.Unmarshal(body, &m)
	}
	return m.Message
}

func path(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}
