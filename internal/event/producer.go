package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	pkgkafka "github.com/utafrali/agromarket-storefront/pkg/kafka"
)

// Kafka topics written by the storefront.
var (
	TopicOrderPlaced         = pkgkafka.Topic("order", "placed")
	TopicWithdrawalRequested = pkgkafka.Topic("wallet", "withdrawal_requested")
	TopicTicketMessage       = pkgkafka.Topic("ticket", "message")
)

// Aggregate types.
const (
	AggregateTypeOrder  = "order"
	AggregateTypeWallet = "wallet"
	AggregateTypeTicket = "ticket"
)

// SourceStorefront identifies events originating from the storefront.
const SourceStorefront = "storefront"

// Publisher writes events to a topic. *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// OrderPlacedData is the payload of an order.placed event.
type OrderPlacedData struct {
	OrderID        string          `json:"order_id"`
	UserID         string          `json:"user_id"`
	PaymentMethod  string          `json:"payment_method"`
	DeliveryMethod string          `json:"delivery_method"`
	ItemCount      int             `json:"item_count"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
}

// WithdrawalRequestedData is the payload of a wallet.withdrawal_requested event.
type WithdrawalRequestedData struct {
	WithdrawalID string          `json:"withdrawal_id"`
	UserID       string          `json:"user_id"`
	Amount       decimal.Decimal `json:"amount"`
}

// Producer publishes storefront events. A nil Publisher makes every publish a
// no-op, which is how the storefront runs without Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// Enabled reports whether events leave the process.
func (p *Producer) Enabled() bool {
	return p != nil && p.kafka != nil
}

// PublishOrderPlaced publishes an order.placed event.
func (p *Producer) PublishOrderPlaced(ctx context.Context, data OrderPlacedData) error {
	return p.publish(ctx, TopicOrderPlaced, data.OrderID, AggregateTypeOrder, data)
}

// PublishWithdrawalRequested publishes a wallet.withdrawal_requested event.
func (p *Producer) PublishWithdrawalRequested(ctx context.Context, data WithdrawalRequestedData) error {
	return p.publish(ctx, TopicWithdrawalRequested, data.UserID, AggregateTypeWallet, data)
}

// NewTicketMessageEvent builds the fan-out event for msg without sending it.
func NewTicketMessageEvent(ctx context.Context, msg domain.TicketMessage) (*pkgkafka.Event, error) {
	ev, err := pkgkafka.NewEvent(ctx, TopicTicketMessage, msg.TicketID, AggregateTypeTicket, SourceStorefront, msg)
	if err != nil {
		return nil, fmt.Errorf("create %s event: %w", TopicTicketMessage, err)
	}
	return ev, nil
}

// PublishEvent sends a prepared event.
func (p *Producer) PublishEvent(ctx context.Context, topic string, ev *pkgkafka.Event) error {
	if !p.Enabled() {
		return nil
	}
	if err := p.kafka.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if !p.Enabled() {
		return nil
	}

	ev, err := pkgkafka.NewEvent(ctx, topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.PublishEvent(ctx, topic, ev); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
