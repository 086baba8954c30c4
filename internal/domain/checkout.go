package domain

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
)

// CheckoutState is a step of the checkout workflow.
type CheckoutState string

const (
	CheckoutCollectingDelivery CheckoutState = "COLLECTING_DELIVERY_INFO"
	CheckoutAwaitingPayment    CheckoutState = "AWAITING_PAYMENT_SELECTION"
	CheckoutSubmitting         CheckoutState = "SUBMITTING"
	CheckoutConfirmed          CheckoutState = "CONFIRMED"
	CheckoutFailed             CheckoutState = "FAILED"
)

// CheckoutSource says where the draft's items came from.
type CheckoutSource string

const (
	SourceCart   CheckoutSource = "cart"
	SourceBuyNow CheckoutSource = "buy_now"
)

// PaymentMethod selects how the order is paid.
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentCard           PaymentMethod = "card"
)

// SubmissionFallbackMessage is shown when a failed submission carries no
// backend message.
const SubmissionFallbackMessage = "order submission failed, please try again"

// OrderDraft is the in-memory checkout payload. It is never persisted and is
// handed to the backend only on submit.
type OrderDraft struct {
	ID            string         `json:"id"`
	SessionID     string         `json:"-"`
	Source        CheckoutSource `json:"source"`
	Items         []CartLine     `json:"items"`
	Delivery      *DeliveryInfo  `json:"delivery,omitempty"`
	Totals        CartTotals     `json:"totals"`
	PaymentMethod PaymentMethod  `json:"payment_method,omitempty"`
	State         CheckoutState  `json:"state"`
	OrderID       string         `json:"order_id,omitempty"`
	Error         string         `json:"error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	ExpiresAt     time.Time      `json:"expires_at"`
}

// NewOrderDraft starts a workflow in COLLECTING_DELIVERY_INFO. An empty item
// set yields EMPTY_CART and no draft.
func NewOrderDraft(id, sessionID string, source CheckoutSource, items []CartLine, fees DeliveryFees, now time.Time, ttl time.Duration) (*OrderDraft, error) {
	if len(items) == 0 {
		return nil, apperrors.InvalidInputCode("EMPTY_CART", "your cart is empty")
	}
	cp := make([]CartLine, len(items))
	copy(cp, items)

	return &OrderDraft{
		ID:        id,
		SessionID: sessionID,
		Source:    source,
		Items:     cp,
		Totals:    CalculateTotals(cp, DeliveryStandard, fees),
		State:     CheckoutCollectingDelivery,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// SetDelivery records validated delivery info and recomputes totals for the
// chosen method. It is allowed while collecting, while awaiting payment and
// after a failure.
func (d *OrderDraft) SetDelivery(info DeliveryInfo, fees DeliveryFees) error {
	switch d.State {
	case CheckoutCollectingDelivery, CheckoutAwaitingPayment, CheckoutFailed:
	default:
		return d.transitionError("update delivery details")
	}
	d.Delivery = &info
	d.Totals = CalculateTotals(d.Items, info.Method, fees)
	d.State = CheckoutAwaitingPayment
	d.Error = ""
	return nil
}

// BeginSubmit moves to SUBMITTING. It is allowed from AWAITING_PAYMENT_SELECTION
// and, as a retry, from FAILED.
func (d *OrderDraft) BeginSubmit(method PaymentMethod) error {
	switch method {
	case PaymentCashOnDelivery, PaymentCard:
	default:
		return apperrors.InvalidInput("payment method must be cash_on_delivery or card")
	}
	switch d.State {
	case CheckoutAwaitingPayment, CheckoutFailed:
	case CheckoutSubmitting:
		return apperrors.Conflict("your order is already being submitted")
	default:
		return d.transitionError("submit")
	}
	if d.Delivery == nil {
		return apperrors.InvalidInput("delivery details are required")
	}
	d.PaymentMethod = method
	d.State = CheckoutSubmitting
	d.Error = ""
	return nil
}

// Confirm records a successful submission.
func (d *OrderDraft) Confirm(orderID string) {
	d.State = CheckoutConfirmed
	d.OrderID = orderID
	d.Error = ""
}

// Fail records a failed submission. An empty message uses the fallback.
func (d *OrderDraft) Fail(message string) {
	if message == "" {
		message = SubmissionFallbackMessage
	}
	d.State = CheckoutFailed
	d.Error = message
}

// Expired reports whether the draft outlived its TTL at now.
func (d *OrderDraft) Expired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

func (d *OrderDraft) transitionError(action string) error {
	if d.State == CheckoutConfirmed {
		return apperrors.Gone("this order was already placed")
	}
	return apperrors.Conflict("cannot " + action + " while checkout is " + string(d.State))
}

// OrderItemRequest is one line of an order-creation payload.
type OrderItemRequest struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// OrderRequest is what the backend needs to place an order.
type OrderRequest struct {
	Items          []OrderItemRequest
	Delivery       DeliveryInfo
	DeliveryMethod DeliveryMethod
	PaymentMethod  PaymentMethod
	Subtotal       decimal.Decimal
	ShippingFee    decimal.Decimal
	Total          decimal.Decimal
}

// OrderRequest packages the draft for the backend.
func (d *OrderDraft) OrderRequest() OrderRequest {
	items := make([]OrderItemRequest, 0, len(d.Items))
	for _, l := range d.Items {
		items = append(items, OrderItemRequest{
			ProductID: l.Product.ID,
			Quantity:  l.Quantity,
			Price:     l.Product.Price,
		})
	}
	req := OrderRequest{
		Items:         items,
		PaymentMethod: d.PaymentMethod,
		Subtotal:      d.Totals.Subtotal.Amount,
		ShippingFee:   d.Totals.Shipping.Amount,
		Total:         d.Totals.Total.Amount,
	}
	if d.Delivery != nil {
		req.Delivery = *d.Delivery
		req.DeliveryMethod = d.Delivery.Method
	}
	return req
}
