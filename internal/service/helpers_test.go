package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/agromarket-storefront/internal/backend"
	"github.com/utafrali/agromarket-storefront/internal/domain"
	redisrepo "github.com/utafrali/agromarket-storefront/internal/repository/redis"
	"github.com/utafrali/agromarket-storefront/internal/state"
	"github.com/utafrali/agromarket-storefront/pkg/pagination"
)

// --- Mock Backend ---

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Login(ctx context.Context, creds domain.Credentials) (string, domain.User, error) {
	args := m.Called(ctx, creds)
	return args.String(0), args.Get(1).(domain.User), args.Error(2)
}

func (m *mockBackend) Register(ctx context.Context, reg domain.Registration) (string, error) {
	args := m.Called(ctx, reg)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) Me(ctx context.Context, token string) (domain.User, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockBackend) ForgotPassword(ctx context.Context, req domain.ForgotPassword) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) ResetPassword(ctx context.Context, req domain.ResetPassword) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) VerifyEmail(ctx context.Context, verifyToken string) (string, error) {
	args := m.Called(ctx, verifyToken)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) ListProducts(ctx context.Context, q domain.ProductQuery, p pagination.Params) ([]domain.Product, int, error) {
	args := m.Called(ctx, q, p)
	products, _ := args.Get(0).([]domain.Product)
	return products, args.Int(1), args.Error(2)
}

func (m *mockBackend) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *mockBackend) MyProducts(ctx context.Context, token string) ([]domain.Product, error) {
	args := m.Called(ctx, token)
	products, _ := args.Get(0).([]domain.Product)
	return products, args.Error(1)
}

func (m *mockBackend) CreateProduct(ctx context.Context, token string, in domain.ProductInput) (domain.Product, error) {
	args := m.Called(ctx, token, in)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *mockBackend) UpdateProduct(ctx context.Context, token, id string, in domain.ProductInput) (domain.Product, error) {
	args := m.Called(ctx, token, id, in)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *mockBackend) DeleteProduct(ctx context.Context, token, id string) error {
	return m.Called(ctx, token, id).Error(0)
}

func (m *mockBackend) GetCart(ctx context.Context, token string) ([]domain.CartLine, error) {
	args := m.Called(ctx, token)
	lines, _ := args.Get(0).([]domain.CartLine)
	return lines, args.Error(1)
}

func (m *mockBackend) AddToCart(ctx context.Context, token, productID string, quantity int) ([]domain.CartLine, error) {
	args := m.Called(ctx, token, productID, quantity)
	lines, _ := args.Get(0).([]domain.CartLine)
	return lines, args.Error(1)
}

func (m *mockBackend) UpdateCartItem(ctx context.Context, token, itemID string, quantity int) ([]domain.CartLine, error) {
	args := m.Called(ctx, token, itemID, quantity)
	lines, _ := args.Get(0).([]domain.CartLine)
	return lines, args.Error(1)
}

func (m *mockBackend) RemoveCartItem(ctx context.Context, token, itemID string) ([]domain.CartLine, error) {
	args := m.Called(ctx, token, itemID)
	lines, _ := args.Get(0).([]domain.CartLine)
	return lines, args.Error(1)
}

func (m *mockBackend) ClearCart(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockBackend) CreateOrder(ctx context.Context, token string, req domain.OrderRequest) (domain.Order, error) {
	args := m.Called(ctx, token, req)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *mockBackend) MyOrders(ctx context.Context, token string) ([]domain.Order, error) {
	args := m.Called(ctx, token)
	orders, _ := args.Get(0).([]domain.Order)
	return orders, args.Error(1)
}

func (m *mockBackend) MyOrder(ctx context.Context, token, id string) (domain.Order, error) {
	args := m.Called(ctx, token, id)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *mockBackend) FarmerOrders(ctx context.Context, token string) ([]domain.Order, error) {
	args := m.Called(ctx, token)
	orders, _ := args.Get(0).([]domain.Order)
	return orders, args.Error(1)
}

func (m *mockBackend) UpdateOrderStatus(ctx context.Context, token, id string, status domain.OrderStatus) (domain.Order, error) {
	args := m.Called(ctx, token, id, status)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *mockBackend) Charge(ctx context.Context, token, userID string, amount decimal.Decimal, order domain.OrderRequest) (domain.ChargeResult, error) {
	args := m.Called(ctx, token, userID, amount, order)
	return args.Get(0).(domain.ChargeResult), args.Error(1)
}

func (m *mockBackend) SavedCard(ctx context.Context, token, userID string) (domain.SavedCard, error) {
	args := m.Called(ctx, token, userID)
	return args.Get(0).(domain.SavedCard), args.Error(1)
}

func (m *mockBackend) Refund(ctx context.Context, token string, req domain.RefundRequest) (string, error) {
	args := m.Called(ctx, token, req)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) Transactions(ctx context.Context, token, userID string) ([]domain.Transaction, error) {
	args := m.Called(ctx, token, userID)
	txs, _ := args.Get(0).([]domain.Transaction)
	return txs, args.Error(1)
}

func (m *mockBackend) WalletBalance(ctx context.Context, token string) (domain.Balance, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.Balance), args.Error(1)
}

func (m *mockBackend) WithdrawalHistory(ctx context.Context, token string) ([]domain.Withdrawal, error) {
	args := m.Called(ctx, token)
	ws, _ := args.Get(0).([]domain.Withdrawal)
	return ws, args.Error(1)
}

func (m *mockBackend) Withdraw(ctx context.Context, token string, req domain.WithdrawalRequest) (domain.Withdrawal, error) {
	args := m.Called(ctx, token, req)
	return args.Get(0).(domain.Withdrawal), args.Error(1)
}

func (m *mockBackend) ProductReviews(ctx context.Context, productID string) ([]domain.Review, error) {
	args := m.Called(ctx, productID)
	reviews, _ := args.Get(0).([]domain.Review)
	return reviews, args.Error(1)
}

func (m *mockBackend) CreateReview(ctx context.Context, token string, in domain.ReviewInput) (domain.Review, error) {
	args := m.Called(ctx, token, in)
	return args.Get(0).(domain.Review), args.Error(1)
}

func (m *mockBackend) UpdateReview(ctx context.Context, token, id string, in domain.ReviewInput) (domain.Review, error) {
	args := m.Called(ctx, token, id, in)
	return args.Get(0).(domain.Review), args.Error(1)
}

func (m *mockBackend) DeleteReview(ctx context.Context, token, id string) error {
	return m.Called(ctx, token, id).Error(0)
}

func (m *mockBackend) ReviewEligibility(ctx context.Context, token, productID string) (domain.Eligibility, error) {
	args := m.Called(ctx, token, productID)
	return args.Get(0).(domain.Eligibility), args.Error(1)
}

func (m *mockBackend) UploadImages(ctx context.Context, token string, kind backend.UploadKind, files []domain.UploadFile) ([]domain.UploadedImage, error) {
	args := m.Called(ctx, token, kind, files)
	images, _ := args.Get(0).([]domain.UploadedImage)
	return images, args.Error(1)
}

func (m *mockBackend) DeleteProductImage(ctx context.Context, token, publicID string) error {
	return m.Called(ctx, token, publicID).Error(0)
}

func (m *mockBackend) ListTickets(ctx context.Context, token string) ([]domain.Ticket, error) {
	args := m.Called(ctx, token)
	tickets, _ := args.Get(0).([]domain.Ticket)
	return tickets, args.Error(1)
}

func (m *mockBackend) CreateTicket(ctx context.Context, token string, in domain.TicketInput) (domain.Ticket, error) {
	args := m.Called(ctx, token, in)
	return args.Get(0).(domain.Ticket), args.Error(1)
}

func (m *mockBackend) GetTicket(ctx context.Context, token, id string) (domain.Ticket, error) {
	args := m.Called(ctx, token, id)
	return args.Get(0).(domain.Ticket), args.Error(1)
}

func (m *mockBackend) UpdateTicket(ctx context.Context, token, id, status string) (domain.Ticket, error) {
	args := m.Called(ctx, token, id, status)
	return args.Get(0).(domain.Ticket), args.Error(1)
}

func (m *mockBackend) TicketMessages(ctx context.Context, token, id string) ([]domain.TicketMessage, error) {
	args := m.Called(ctx, token, id)
	msgs, _ := args.Get(0).([]domain.TicketMessage)
	return msgs, args.Error(1)
}

func (m *mockBackend) PostTicketMessage(ctx context.Context, token, id, msg string) (domain.TicketMessage, error) {
	args := m.Called(ctx, token, id, msg)
	return args.Get(0).(domain.TicketMessage), args.Error(1)
}

// --- Test Helpers ---

const testToken = "backend-token"

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestSessions(t *testing.T) *redisrepo.SessionRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redisrepo.NewSessionRepository(client, 24*time.Hour)
}

var (
	testBuyer  = domain.User{ID: "u-buyer", Name: "Nimali Perera", Email: "nimali@example.lk", Role: domain.RoleBuyer}
	testFarmer = domain.User{ID: "u-farmer", Name: "Kamal Silva", Email: "kamal@example.lk", Role: domain.RoleFarmer, FarmName: "Green Valley Farm"}
)

// seedSession stores a signed-in session for user and returns its ID.
func seedSession(t *testing.T, repo *redisrepo.SessionRepository, user domain.User, actions ...any) string {
	t.Helper()
	sess := state.New("sid-"+user.ID, time.Now().UTC())
	sess.Apply(state.LoginSucceeded{User: user, Token: testToken})
	for _, a := range actions {
		sess.Apply(a)
	}
	require.NoError(t, repo.Create(context.Background(), sess))
	return sess.ID
}

func product(id string, price string, stock int) domain.Product {
	return domain.Product{
		ID:                id,
		Name:              "Product " + id,
		Price:             decimal.RequireFromString(price),
		Unit:              "kg",
		AvailableQuantity: stock,
	}
}

func line(id string, p domain.Product, qty int) domain.CartLine {
	return domain.CartLine{ID: id, Product: p, Quantity: qty}
}
