package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/utafrali/agromarket-storefront/internal/backend"
	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/pkg/pagination"
)

// The interfaces below are the slices of the marketplace API each service
// consumes. *backend.Client implements all of them.

// AuthBackend is the account part of the marketplace API.
type AuthBackend interface {
	Login(ctx context.Context, creds domain.Credentials) (string, domain.User, error)
	Register(ctx context.Context, reg domain.Registration) (string, error)
	Me(ctx context.Context, token string) (domain.User, error)
	ForgotPassword(ctx context.Context, req domain.ForgotPassword) (string, error)
	ResetPassword(ctx context.Context, req domain.ResetPassword) (string, error)
	VerifyEmail(ctx context.Context, verifyToken string) (string, error)
}

// ProductBackend is the catalog part of the marketplace API.
type ProductBackend interface {
	ListProducts(ctx context.Context, q domain.ProductQuery, p pagination.Params) ([]domain.Product, int, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	MyProducts(ctx context.Context, token string) ([]domain.Product, error)
	CreateProduct(ctx context.Context, token string, in domain.ProductInput) (domain.Product, error)
	UpdateProduct(ctx context.Context, token, id string, in domain.ProductInput) (domain.Product, error)
	DeleteProduct(ctx context.Context, token, id string) error
}

// CartBackend is the cart part of the marketplace API.
type CartBackend interface {
	GetCart(ctx context.Context, token string) ([]domain.CartLine, error)
	AddToCart(ctx context.Context, token, productID string, quantity int) ([]domain.CartLine, error)
	UpdateCartItem(ctx context.Context, token, itemID string, quantity int) ([]domain.CartLine, error)
	RemoveCartItem(ctx context.Context, token, itemID string) ([]domain.CartLine, error)
	ClearCart(ctx context.Context, token string) error
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}

// OrderBackend is the order part of the marketplace API.
type OrderBackend interface {
	CreateOrder(ctx context.Context, token string, req domain.OrderRequest) (domain.Order, error)
	MyOrders(ctx context.Context, token string) ([]domain.Order, error)
	MyOrder(ctx context.Context, token, id string) (domain.Order, error)
	FarmerOrders(ctx context.Context, token string) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, token, id string, status domain.OrderStatus) (domain.Order, error)
}

// CheckoutBackend is what order submission needs.
type CheckoutBackend interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	CreateOrder(ctx context.Context, token string, req domain.OrderRequest) (domain.Order, error)
	Charge(ctx context.Context, token, userID string, amount decimal.Decimal, order domain.OrderRequest) (domain.ChargeResult, error)
}

// PaymentBackend is the payment part of the marketplace API.
type PaymentBackend interface {
	SavedCard(ctx context.Context, token, userID string) (domain.SavedCard, error)
	Refund(ctx context.Context, token string, req domain.RefundRequest) (string, error)
	Transactions(ctx context.Context, token, userID string) ([]domain.Transaction, error)
}

// WalletBackend is the withdrawal part of the marketplace API.
type WalletBackend interface {
	WalletBalance(ctx context.Context, token string) (domain.Balance, error)
	WithdrawalHistory(ctx context.Context, token string) ([]domain.Withdrawal, error)
	Withdraw(ctx context.Context, token string, req domain.WithdrawalRequest) (domain.Withdrawal, error)
}

// ReviewBackend is the review part of the marketplace API.
type ReviewBackend interface {
	ProductReviews(ctx context.Context, productID string) ([]domain.Review, error)
	CreateReview(ctx context.Context, token string, in domain.ReviewInput) (domain.Review, error)
	UpdateReview(ctx context.Context, token, id string, in domain.ReviewInput) (domain.Review, error)
	DeleteReview(ctx context.Context, token, id string) error
	ReviewEligibility(ctx context.Context, token, productID string) (domain.Eligibility, error)
}

// UploadBackend hosts images.
type UploadBackend interface {
	UploadImages(ctx context.Context, token string, kind backend.UploadKind, files []domain.UploadFile) ([]domain.UploadedImage, error)
	DeleteProductImage(ctx context.Context, token, publicID string) error
}

// TicketBackend is the support part of the marketplace API.
type TicketBackend interface {
	ListTickets(ctx context.Context, token string) ([]domain.Ticket, error)
	CreateTicket(ctx context.Context, token string, in domain.TicketInput) (domain.Ticket, error)
	GetTicket(ctx context.Context, token, id string) (domain.Ticket, error)
	UpdateTicket(ctx context.Context, token, id, status string) (domain.Ticket, error)
	TicketMessages(ctx context.Context, token, id string) ([]domain.TicketMessage, error)
	PostTicketMessage(ctx context.Context, token, id, msg string) (domain.TicketMessage, error)
}

var (
	_ AuthBackend     = (*backend.Client)(nil)
	_ ProductBackend  = (*backend.Client)(nil)
	_ CartBackend     = (*backend.Client)(nil)
	_ OrderBackend    = (*backend.Client)(nil)
	_ CheckoutBackend = (*backend.Client)(nil)
	_ PaymentBackend  = (*backend.Client)(nil)
	_ WalletBackend   = (*backend.Client)(nil)
	_ ReviewBackend   = (*backend.Client)(nil)
	_ UploadBackend   = (*backend.Client)(nil)
	_ TicketBackend   = (*backend.Client)(nil)
)
