package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/pkg/health"
	"github.com/utafrali/agromarket-storefront/pkg/middleware"
)

const requestTimeout = 30 * time.Second

// RouterConfig holds the edge settings of the storefront router.
type RouterConfig struct {
	CORS             middleware.CORSConfig
	RateLimitRPS     int
	RateLimitBurst   int
	OpsAllowedCIDRs  []string
	PprofEnabled     bool
	CatalogCacheSecs int
}

// Handlers groups every endpoint handler mounted by NewRouter.
type Handlers struct {
	Auth     *AuthHandler
	Catalog  *CatalogHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrderHandler
	Payments *PaymentHandler
	Reviews  *ReviewHandler
	Farmer   *FarmerHandler
	Tickets  *TicketHandler
}

// NewRouter creates a chi router with global middleware, health and ops
// endpoints and all storefront routes. ctx bounds background middleware
// goroutines.
func NewRouter(
	ctx context.Context,
	cfg RouterConfig,
	h Handlers,
	validate middleware.TokenValidator,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack (applied in order).
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.RateLimit(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.Tracing)
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints (no auth required).
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())

	// /metrics and /debug/pprof behind the ops allowlist.
	middleware.RegisterOps(r, cfg.OpsAllowedCIDRs, cfg.PprofEnabled, logger)

	r.Route("/api/v1", func(r chi.Router) {
		// Public catalog.
		r.Group(func(r chi.Router) {
			r.Use(chimw.Compress(5))
			r.Use(chimw.Timeout(requestTimeout))
			r.Use(middleware.CacheControl(cfg.CatalogCacheSecs))

			r.Get("/products", h.Catalog.ListProducts)
			r.Get("/products/{id}", h.Catalog.GetProduct)
			r.Get("/products/{id}/reviews", h.Catalog.ProductReviews)
		})

		// Public account endpoints.
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(requestTimeout))
			r.Use(middleware.NoStore)

			r.Post("/auth/login", h.Auth.Login)
			r.Post("/auth/register", h.Auth.Register)
			r.Post("/auth/forgot-password", h.Auth.ForgotPassword)
			r.Post("/auth/reset-password", h.Auth.ResetPassword)
			r.Get("/auth/verify-email", h.Auth.VerifyEmail)
		})

		// Everything below needs a session.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(validate))
			r.Use(middleware.RequestLogger(logger))
			r.Use(middleware.NoStore)

			// Sockets are long lived and must not be compressed or timed out.
			r.Get("/tickets/{id}/ws", h.Tickets.Socket)

			r.Group(func(r chi.Router) {
				r.Use(chimw.Compress(5))
				r.Use(chimw.Timeout(requestTimeout))

				r.Get("/auth/me", h.Auth.Me)
				r.Post("/auth/logout", h.Auth.Logout)

				r.Get("/cart", h.Cart.Get)
				r.Delete("/cart", h.Cart.Clear)
				r.Post("/cart/items", h.Cart.AddItem)
				r.Patch("/cart/items/{id}", h.Cart.UpdateItem)
				r.Delete("/cart/items/{id}", h.Cart.RemoveItem)

				r.Post("/checkout", h.Checkout.Start)
				r.Get("/checkout", h.Checkout.Get)
				r.Delete("/checkout", h.Checkout.Abandon)
				r.Put("/checkout/delivery", h.Checkout.SetDelivery)
				r.Post("/checkout/submit", h.Checkout.Submit)

				r.Get("/orders", h.Orders.List)
				r.Get("/orders/{id}", h.Orders.Get)

				r.Get("/payments/card", h.Payments.SavedCard)
				r.Get("/payments/transactions", h.Payments.Transactions)
				r.Post("/payments/refunds", h.Payments.Refund)

				r.Get("/reviews/eligibility", h.Reviews.Eligibility)
				r.Post("/reviews/uploads", h.Reviews.StageImages)
				r.Get("/reviews/uploads/{formId}", h.Reviews.Form)
				r.Delete("/reviews/uploads/{formId}", h.Reviews.DiscardForm)
				r.Delete("/reviews/uploads/{formId}/slots/{slotId}", h.Reviews.RemoveSlot)
				r.Post("/reviews/batch", h.Reviews.SubmitBatch)
				r.Put("/reviews/{id}", h.Reviews.Update)
				r.Delete("/reviews/{id}", h.Reviews.Delete)
				r.Get("/previews/{id}", h.Reviews.Preview)

				r.Get("/tickets", h.Tickets.List)
				r.Post("/tickets", h.Tickets.Create)
				r.Get("/tickets/{id}", h.Tickets.Get)
				r.Put("/tickets/{id}", h.Tickets.UpdateStatus)
				r.Get("/tickets/{id}/messages", h.Tickets.Messages)
				r.Post("/tickets/{id}/messages", h.Tickets.PostMessage)

				r.Route("/farmer", func(r chi.Router) {
					r.Use(middleware.RequireRole(domain.RoleFarmer))

					r.Get("/products", h.Catalog.MyProducts)
					r.Post("/products", h.Catalog.CreateProduct)
					r.Put("/products/{id}", h.Catalog.UpdateProduct)
					r.Delete("/products/{id}", h.Catalog.DeleteProduct)
					r.Post("/products/images", h.Catalog.UploadImages)
					r.Delete("/products/images/*", h.Catalog.DeleteImage)

					r.Get("/orders", h.Orders.FarmerOrders)
					r.Patch("/orders/{id}/status", h.Orders.UpdateStatus)

					r.Get("/wallet", h.Farmer.Balance)
					r.Get("/wallet/history", h.Farmer.History)
					r.Post("/wallet/withdrawals", h.Farmer.Withdraw)
					r.Get("/certificate", h.Farmer.Certificate)
				})
			})
		})
	})

	return r
}
