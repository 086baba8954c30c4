package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment status of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// OrderItem is one product line of a placed order.
type OrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Image       string          `json:"image,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Order is a placed order as reported by the backend.
type Order struct {
	ID             string          `json:"id"`
	BuyerID        string          `json:"buyer_id,omitempty"`
	Items          []OrderItem     `json:"items"`
	Status         OrderStatus     `json:"status"`
	PaymentMethod  PaymentMethod   `json:"payment_method,omitempty"`
	PaymentStatus  string          `json:"payment_status,omitempty"`
	DeliveryMethod DeliveryMethod  `json:"delivery_method,omitempty"`
	Delivery       *DeliveryInfo   `json:"delivery,omitempty"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	ShippingFee    decimal.Decimal `json:"shipping_fee"`
	Total          decimal.Decimal `json:"total"`
	CreatedAt      time.Time       `json:"created_at,omitzero"`
}

// OrderStatusUpdate is the farmer's status change body.
type OrderStatusUpdate struct {
	Status OrderStatus `json:"status" validate:"required,oneof=pending confirmed processing shipped delivered cancelled"`
}
