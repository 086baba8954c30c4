package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/agromarket-storefront/pkg/httputil"
	"github.com/utafrali/agromarket-storefront/pkg/logger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *httputil.ErrorResponse {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

// ============================================================================
// Auth
// ============================================================================

func staticValidator(token string) (*Claims, error) {
	if token != "good-token" {
		return nil, errors.New("bad token")
	}
	return &Claims{SessionID: "sess-1", UserID: "user-7", Role: "farmer"}, nil
}

func TestAuth_BearerHeader(t *testing.T) {
	var got *Claims
	h := Auth(staticValidator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClaimsFromContext(r.Context())
		assert.Equal(t, "sess-1", logger.SessionIDFromContext(r.Context()))
		assert.Equal(t, "user-7", logger.UserIDFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "farmer", got.Role)
}

func TestAuth_Cookie(t *testing.T) {
	h := Auth(staticValidator)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good-token"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_MissingToken(t *testing.T) {
	h := Auth(staticValidator)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)
}

func TestAuth_InvalidToken(t *testing.T) {
	h := Auth(staticValidator)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_MalformedHeaderIgnoresCookie(t *testing.T) {
	h := Auth(staticValidator)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Basic abc")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good-token"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_QueryTokenOnlyForUpgrade(t *testing.T) {
	h := Auth(staticValidator)(okHandler())

	plain := httptest.NewRecorder()
	h.ServeHTTP(plain, httptest.NewRequest(http.MethodGet, "/ws?token=good-token", nil))
	assert.Equal(t, http.StatusUnauthorized, plain.Code)

	req := httptest.NewRequest(http.MethodGet, "/ws?token=good-token", nil)
	req.Header.Set("Upgrade", "websocket")
	upgrade := httptest.NewRecorder()
	h.ServeHTTP(upgrade, req)
	assert.Equal(t, http.StatusOK, upgrade.Code)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole("farmer")(okHandler())

	tests := []struct {
		name   string
		claims *Claims
		want   int
	}{
		{"farmer allowed", &Claims{Role: "farmer"}, http.StatusOK},
		{"customer denied", &Claims{Role: "customer"}, http.StatusForbidden},
		{"no session denied", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
			if tt.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tt.claims))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

// ============================================================================
// Rate limiting
// ============================================================================

func TestRateLimit_RejectsAfterBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := RateLimit(ctx, 1, 2, discardLogger())(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.9:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_SeparateBucketsPerIP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := RateLimit(ctx, 1, 1, discardLogger())(okHandler())

	for _, addr := range []string{"203.0.113.1:1", "203.0.113.2:1"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, addr)
	}
}

func TestVisitorStore_CleanupEvictsIdle(t *testing.T) {
	store := newVisitorStore(1, 1, time.Minute)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	store.nowFunc = func() time.Time { return now }

	store.getVisitor("198.51.100.1")
	now = now.Add(30 * time.Second)
	store.getVisitor("198.51.100.2")
	now = now.Add(45 * time.Second)

	store.cleanup()

	assert.Equal(t, 1, store.len())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.1"}, "10.0.0.1:80", "198.51.100.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.8"}, "10.0.0.1:80", "198.51.100.8"},
		{"garbage forwarded", map[string]string{"X-Forwarded-For": "nope"}, "192.0.2.4:80", "192.0.2.4"},
		{"remote addr", nil, "192.0.2.5:443", "192.0.2.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}

// ============================================================================
// CORS
// ============================================================================

func TestCORS_ListedOriginWithCredentials(t *testing.T) {
	h := CORS(CORSConfig{
		AllowedOrigins:   []string{"https://agromarket.lk"},
		AllowCredentials: true,
	})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://agromarket.lk")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://agromarket.lk", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_UnlistedOrigin(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"https://agromarket.lk"}})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_WildcardWithCredentialsEchoesOrigin(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS(DefaultCORSConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart/items", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
}

// ============================================================================
// Logging and recovery
// ============================================================================

func TestRequestLogging_SetsCorrelationID(t *testing.T) {
	var seen string
	h := RequestLogging(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(CorrelationHeader))
}

func TestRequestLogging_KeepsInboundCorrelationID(t *testing.T) {
	h := RequestLogging(discardLogger())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "corr-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "corr-123", rec.Header().Get(CorrelationHeader))
}

func TestRecovery_ReturnsEnvelope(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", errResp.Code)
	assert.Equal(t, httputil.GenericErrorMessage, errResp.Message)
}

func TestNoStore(t *testing.T) {
	rec := httptest.NewRecorder()
	NoStore(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "private, no-store", rec.Header().Get("Cache-Control"))
}

func TestCacheControl_OnlyGET(t *testing.T) {
	h := CacheControl(60)(okHandler())

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "public, max-age=60", get.Header().Get("Cache-Control"))

	post := httptest.NewRecorder()
	h.ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Empty(t, post.Header().Get("Cache-Control"))
}

// ============================================================================
// Ops endpoints
// ============================================================================

func TestRegisterOps_AllowlistGuardsMetrics(t *testing.T) {
	r := chi.NewRouter()
	RegisterOps(r, []string{"127.0.0.0/8", "not-a-cidr"}, false, discardLogger())

	local := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	local.RemoteAddr = "127.0.0.1:9999"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, local)
	assert.Equal(t, http.StatusOK, rec.Code)

	remote := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	remote.RemoteAddr = "203.0.113.50:9999"
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, remote)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	pprofReq := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	pprofReq.RemoteAddr = "127.0.0.1:9999"
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, pprofReq)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
