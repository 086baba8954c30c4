package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/agromarket-storefront/pkg/logger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// ============================================================================
// Fakes
// ============================================================================

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func eventMessage(t *testing.T, offset int64, eventType string) kafka.Message {
	t.Helper()
	evt, err := NewEvent(context.Background(), eventType, "ticket-1", "ticket", "storefront", map[string]string{"text": "hi"})
	require.NoError(t, err)
	b, err := evt.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: "agromarket.ticket.message", Offset: offset, Value: b}
}

// ============================================================================
// Event
// ============================================================================

func TestNewEvent_Fields(t *testing.T) {
	type chat struct {
		TicketID string `json:"ticket_id"`
		Text     string `json:"text"`
	}
	data := chat{TicketID: "t-9", Text: "my order never arrived"}

	event, err := NewEvent(context.Background(), "ticket.message", "t-9", "ticket", "storefront", data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)

	var got chat
	require.NoError(t, event.UnmarshalData(&got))
	assert.Equal(t, data, got)
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent(context.Background(), "ticket.message", "t-1", "ticket", "storefront", make(chan int))
	require.Error(t, err)
}

func TestUnmarshalEvent_RequiresIdentity(t *testing.T) {
	_, err := UnmarshalEvent([]byte(`{"event_type":"ticket.message"}`))
	assert.Error(t, err)

	_, err = UnmarshalEvent([]byte(`{broken`))
	assert.Error(t, err)
}

func TestEvent_CorrelationRoundTrip(t *testing.T) {
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	event, err := NewEvent(ctx, "ticket.message", "t-1", "ticket", "storefront", nil)
	require.NoError(t, err)
	assert.Equal(t, "corr-1", event.CorrelationID)

	restored := event.Context(context.Background())
	assert.Equal(t, "corr-1", logger.CorrelationIDFromContext(restored))

	bare := &Event{EventID: "e1", EventType: "x"}
	assert.Empty(t, logger.CorrelationIDFromContext(bare.Context(context.Background())))
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "agromarket.ticket.message", Topic("ticket", "message"))
	assert.Equal(t, "agromarket.dlq.agromarket.ticket.message", DLQTopic(Topic("ticket", "message")))
}

// ============================================================================
// Producer
// ============================================================================

func TestProducer_Publish(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	w := &fakeWriter{}
	p := &Producer{writer: w, logger: testLogger()}

	evt, err := NewEvent(logger.WithCorrelationID(context.Background(), "corr-7"),
		"ticket.message", "ticket-42", "ticket", "storefront", map[string]string{"text": "hello"})
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	require.NoError(t, p.Publish(ctx, "agromarket.ticket.message", evt))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, []byte("ticket-42"), msg.Key)
	carrier := NewKafkaHeaderCarrier(&msg.Headers)
	assert.Equal(t, "ticket.message", carrier.Get("event_type"))
	assert.Equal(t, "corr-7", carrier.Get("correlation_id"))
	assert.NotEmpty(t, carrier.Get("traceparent"))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, evt.EventID, decoded.EventID)
}

func TestProducer_PublishError(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("leader not available")}, logger: testLogger()}
	evt, err := NewEvent(context.Background(), "ticket.message", "t", "ticket", "storefront", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "agromarket.ticket.message", evt)
	assert.ErrorContains(t, err, "leader not available")
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	assert.ErrorContains(t, err, "no brokers configured")
}

func TestKafkaHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{{Key: "existing", Value: []byte("v1")}}
	c := NewKafkaHeaderCarrier(&headers)

	assert.Equal(t, "v1", c.Get("existing"))
	assert.Empty(t, c.Get("missing"))

	c.Set("existing", "v2")
	c.Set("new", "v3")
	assert.Equal(t, "v2", c.Get("existing"))
	assert.ElementsMatch(t, []string{"existing", "new"}, c.Keys())
	assert.Len(t, headers, 2)
}

// ============================================================================
// Consumer
// ============================================================================

func TestConsumer_ProcessesAndCommits(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{
		eventMessage(t, 1, "ticket.message"),
		{Topic: "agromarket.ticket.message", Offset: 2, Value: []byte("garbage")},
		eventMessage(t, 3, "ticket.message"),
	}}

	var (
		mu   sync.Mutex
		seen int
	)
	ctx, cancel := context.WithCancel(context.Background())
	handler := func(context.Context, *Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen++
		if seen == 2 {
			cancel()
		}
		return nil
	}

	c := newConsumer(r, ConsumerConfig{Topic: "agromarket.ticket.message", GroupID: "g"}, handler, testLogger())
	require.NoError(t, c.Start(ctx))

	assert.Equal(t, 2, seen)
	assert.Contains(t, r.commits(), int64(2), "undecodable messages are committed and skipped")
	assert.Equal(t, 1, r.closed)
}

func TestConsumer_RetriesThenParksInDLQ(t *testing.T) {
	dlqWriter := &fakeWriter{}
	dlq := &DLQProducer{writer: dlqWriter, logger: testLogger()}

	attempts := 0
	handler := func(context.Context, *Event) error {
		attempts++
		return errors.New("room closed")
	}

	c := newConsumer(&fakeReader{}, ConsumerConfig{Topic: "agromarket.ticket.message", GroupID: "g", DLQ: dlq}, handler, testLogger())
	c.backoff = func(int) time.Duration { return time.Millisecond }

	ok := c.process(context.Background(), eventMessage(t, 10, "ticket.message"))

	assert.True(t, ok)
	assert.Equal(t, maxHandlerRetries, attempts)
	require.Len(t, dlqWriter.msgs, 1)
	parked := dlqWriter.msgs[0]
	assert.Equal(t, "agromarket.dlq.agromarket.ticket.message", parked.Topic)
	assert.Equal(t, "room closed", NewKafkaHeaderCarrier(&parked.Headers).Get("dlq.error"))
	assert.Equal(t, "10", NewKafkaHeaderCarrier(&parked.Headers).Get("dlq.original_offset"))
}

func TestConsumer_CanceledDuringRetryLeavesMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	handler := func(context.Context, *Event) error {
		cancel()
		return errors.New("transient")
	}

	c := newConsumer(&fakeReader{}, ConsumerConfig{Topic: "t"}, handler, testLogger())
	c.backoff = func(int) time.Duration { return time.Hour }

	assert.False(t, c.process(ctx, eventMessage(t, 1, "ticket.message")))
}

func TestConsumer_CloseIdempotent(t *testing.T) {
	r := &fakeReader{}
	c := newConsumer(r, ConsumerConfig{Topic: "t"}, nil, testLogger())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, r.closed)
}

// ============================================================================
// Idempotency
// ============================================================================

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "evt-1"))
	ok, err := store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, err = store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryIdempotencyStore_AddSweepsExpired(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "old"))
	now = now.Add(5 * time.Minute)
	require.NoError(t, store.Add(ctx, "new"))

	assert.Equal(t, 1, store.Len())
}

type failingStore struct{}

func (failingStore) Contains(context.Context, string) (bool, error) { return false, errors.New("down") }
func (failingStore) Add(context.Context, string) error             { return errors.New("down") }

func TestIdempotentHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("skips seen events", func(t *testing.T) {
		store := NewMemoryIdempotencyStore(time.Minute)
		calls := 0
		h := IdempotentHandler(store, func(context.Context, *Event) error { calls++; return nil }, testLogger())

		evt := &Event{EventID: "e-1", EventType: "ticket.message"}
		require.NoError(t, h(ctx, evt))
		require.NoError(t, h(ctx, evt))
		assert.Equal(t, 1, calls)
	})

	t.Run("failed handling is not recorded", func(t *testing.T) {
		store := NewMemoryIdempotencyStore(time.Minute)
		h := IdempotentHandler(store, func(context.Context, *Event) error { return errors.New("boom") }, testLogger())

		require.Error(t, h(ctx, &Event{EventID: "e-2"}))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("store failure falls through", func(t *testing.T) {
		calls := 0
		h := IdempotentHandler(failingStore{}, func(context.Context, *Event) error { calls++; return nil }, testLogger())

		require.NoError(t, h(ctx, &Event{EventID: "e-3"}))
		assert.Equal(t, 1, calls)
	})

	t.Run("missing id passes through", func(t *testing.T) {
		calls := 0
		h := IdempotentHandler(NewMemoryIdempotencyStore(time.Minute), func(context.Context, *Event) error { calls++; return nil }, testLogger())
		require.NoError(t, h(ctx, &Event{}))
		require.NoError(t, h(ctx, &Event{}))
		assert.Equal(t, 2, calls)
	})
}
