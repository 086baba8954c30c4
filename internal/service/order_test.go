package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
	"github.com/utafrali/agromarket-storefront/pkg/validator"
)

func TestOrders_BuyerAndFarmerViews(t *testing.T) {
	b := new(mockBackend)
	sessions := newTestSessions(t)
	svc := NewOrderService(b, sessions, newTestLogger())
	ctx := context.Background()
	buyer := seedSession(t, sessions, testBuyer)
	farmerSID := seedSession(t, sessions, testFarmer)

	b.On("MyOrders", ctx, testToken).Return([]domain.Order{{ID: "o-1"}}, nil)
	b.On("MyOrder", ctx, testToken, "o-1").Return(domain.Order{ID: "o-1"}, nil)
	b.On("FarmerOrders", ctx, testToken).Return([]domain.Order{{ID: "o-2"}}, nil)

	orders, err := svc.MyOrders(ctx, buyer)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	order, err := svc.MyOrder(ctx, buyer, "o-1")
	require.NoError(t, err)
	assert.Equal(t, "o-1", order.ID)

	_, err = svc.FarmerOrders(ctx, buyer)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	orders, err = svc.FarmerOrders(ctx, farmerSID)
	require.NoError(t, err)
	assert.Equal(t, "o-2", orders[0].ID)
}

func TestOrderUpdateStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  domain.OrderStatus
		wantErr bool
	}{
		{"shipped", domain.OrderShipped, false},
		{"delivered", domain.OrderDelivered, false},
		{"unknown status", domain.OrderStatus("teleported"), true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := new(mockBackend)
			sessions := newTestSessions(t)
			svc := NewOrderService(b, sessions, newTestLogger())
			ctx := context.Background()
			sid := seedSession(t, sessions, testFarmer)

			if !tt.wantErr {
				b.On("UpdateOrderStatus", ctx, testToken, "o-1", tt.status).Return(domain.Order{ID: "o-1", Status: tt.status}, nil)
			}

			order, err := svc.UpdateStatus(ctx, sid, "o-1", domain.OrderStatusUpdate{Status: tt.status})

			if tt.wantErr {
				var valErr *validator.ValidationError
				assert.ErrorAs(t, err, &valErr)
				assert.Empty(t, b.Calls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, order.Status)
		})
	}
}
