package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	pkgkafka "github.com/utafrali/agromarket-storefront/pkg/kafka"
)

// echoTTL bounds how long an instance remembers the IDs it broadcast itself.
const echoTTL = 10 * time.Minute

// RoomBroadcaster delivers a ticket message to the sockets of this instance.
type RoomBroadcaster interface {
	BroadcastTicketMessage(msg domain.TicketMessage) int
}

// TicketFanout broadcasts ticket messages locally and, when Kafka is
// configured, to every other instance. Each instance consumes the topic in
// its own group and skips the events it produced.
type TicketFanout struct {
	rooms    RoomBroadcaster
	producer *Producer
	seen     *pkgkafka.MemoryIdempotencyStore
	logger   *slog.Logger
}

// NewTicketFanout creates a fan-out over rooms.
func NewTicketFanout(rooms RoomBroadcaster, producer *Producer, logger *slog.Logger) *TicketFanout {
	return &TicketFanout{
		rooms:    rooms,
		producer: producer,
		seen:     pkgkafka.NewMemoryIdempotencyStore(echoTTL),
		logger:   logger,
	}
}

// Broadcast delivers msg to local sockets and publishes it for the other
// instances. A publish failure is logged; local delivery already happened.
func (f *TicketFanout) Broadcast(ctx context.Context, msg domain.TicketMessage) {
	delivered := f.rooms.BroadcastTicketMessage(msg)

	if !f.producer.Enabled() {
		return
	}

	ev, err := NewTicketMessageEvent(ctx, msg)
	if err != nil {
		f.logger.ErrorContext(ctx, "failed to build ticket message event", slog.String("error", err.Error()))
		return
	}
	_ = f.seen.Add(ctx, ev.EventID)

	if err := f.producer.PublishEvent(ctx, TopicTicketMessage, ev); err != nil {
		f.logger.ErrorContext(ctx, "failed to fan out ticket message",
			slog.String("ticket_id", msg.TicketID),
			slog.String("error", err.Error()),
		)
		return
	}

	f.logger.DebugContext(ctx, "ticket message fanned out",
		slog.String("ticket_id", msg.TicketID),
		slog.Int("local_sockets", delivered),
	)
}

// Handler returns the consumer handler that delivers remote ticket messages
// to local rooms, skipping this instance's own events.
func (f *TicketFanout) Handler() pkgkafka.Handler {
	return pkgkafka.IdempotentHandler(f.seen, f.handle, f.logger)
}

func (f *TicketFanout) handle(ctx context.Context, ev *pkgkafka.Event) error {
	if ev.EventType != TopicTicketMessage {
		f.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", ev.EventType),
			slog.String("event_id", ev.EventID),
		)
		return nil
	}

	var msg domain.TicketMessage
	if err := ev.UnmarshalData(&msg); err != nil {
		return fmt.Errorf("unmarshal ticket message: %w", err)
	}
	if msg.TicketID == "" {
		msg.TicketID = ev.AggregateID
	}

	n := f.rooms.BroadcastTicketMessage(msg)
	f.logger.DebugContext(ctx, "remote ticket message delivered",
		slog.String("ticket_id", msg.TicketID),
		slog.String("event_id", ev.EventID),
		slog.Int("local_sockets", n),
	)
	return nil
}

// ConsumerConfig returns the consumer settings for ticket fan-out. The group
// is unique per instance so every instance sees every message, and history
// is skipped.
func ConsumerConfig(brokers []string, instanceID string, dlq *pkgkafka.DLQProducer) pkgkafka.ConsumerConfig {
	return pkgkafka.ConsumerConfig{
		Brokers:       brokers,
		GroupID:       "storefront-ticket-" + instanceID,
		Topic:         TopicTicketMessage,
		StartAtNewest: true,
		DLQ:           dlq,
	}
}
