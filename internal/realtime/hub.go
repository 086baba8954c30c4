package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/utafrali/agromarket-storefront/internal/domain"
)

// Frame events.
const (
	EventSendMessage    = "sendMessage"
	EventReceiveMessage = "receiveMessage"
	EventError          = "error"
)

// Frame is the envelope exchanged over a ticket socket.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type errorData struct {
	Message string `json:"message"`
}

// RoomName returns the room a ticket's sockets join.
func RoomName(ticketID string) string {
	return "ticket:" + ticketID
}

// Hub tracks open sockets grouped by room.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	closed bool
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		logger: logger,
	}
}

func (h *Hub) join(room string, c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
		wsRooms.Inc()
	}
	members[c] = struct{}{}
	wsConnections.Inc()
	// one for each pump
	h.wg.Add(2)
	return true
}

func (h *Hub) leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return
	}
	if _, ok := members[c]; !ok {
		return
	}
	delete(members, c)
	wsConnections.Dec()
	if len(members) == 0 {
		delete(h.rooms, room)
		wsRooms.Dec()
	}
}

// Broadcast queues a frame to every socket in room and returns how many
// sockets accepted it.
func (h *Hub) Broadcast(room string, frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for c := range h.rooms[room] {
		if c.enqueue(frame) {
			n++
		}
	}
	return n
}

// BroadcastTicketMessage sends msg to the ticket's room as a
// receiveMessage frame.
func (h *Hub) BroadcastTicketMessage(msg domain.TicketMessage) int {
	frame, err := encodeFrame(EventReceiveMessage, msg)
	if err != nil {
		h.logger.Error("failed to encode ticket message frame",
			slog.String("ticket_id", msg.TicketID),
			slog.String("error", err.Error()),
		)
		return 0
	}
	n := h.Broadcast(RoomName(msg.TicketID), frame)
	wsFramesSent.WithLabelValues(EventReceiveMessage).Add(float64(n))
	return n
}

// Members returns the number of sockets in room.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close disconnects every socket and waits for their pumps to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var clients []*Client
	for _, members := range h.rooms {
		for c := range members {
			clients = append(clients, c)
		}
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	h.wg.Wait()
}

func encodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}
