package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
	sendBuffer     = 32
	handleTimeout  = 15 * time.Second
)

// MessageHandler persists a message sent by the socket's user. Delivery to
// the room happens through the hub once it succeeds.
type MessageHandler func(ctx context.Context, text string) error

// Client is one socket joined to one room.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	room      string
	closeOnce sync.Once
	done      chan struct{}
}

func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		wsFramesDropped.Inc()
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Upgrader returns the upgrader used for ticket sockets. An empty origins
// list accepts every origin.
func Upgrader(origins []string) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// Serve upgrades the request, joins the ticket room and blocks until the
// socket closes. Frames from the client with event sendMessage go to handle.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, up *websocket.Upgrader, ticketID string, handle MessageHandler) error {
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		room: RoomName(ticketID),
		done: make(chan struct{}),
	}
	if !h.join(c.room, c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return nil
	}

	go func() {
		defer h.wg.Done()
		h.writePump(c)
	}()

	defer h.wg.Done()
	h.readPump(context.WithoutCancel(r.Context()), c, handle)
	return nil
}

func (h *Hub) readPump(ctx context.Context, c *Client, handle MessageHandler) {
	defer func() {
		h.leave(c.room, c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.logger.DebugContext(ctx, "ticket socket closed",
					slog.String("room", c.room),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.sendError(c, "malformed frame")
			continue
		}
		if frame.Event != EventSendMessage {
			h.sendError(c, "unsupported event")
			continue
		}

		var body struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(frame.Data, &body); err != nil {
			h.sendError(c, "malformed message")
			continue
		}

		hctx, cancel := context.WithTimeout(ctx, handleTimeout)
		err = handle(hctx, body.Message)
		cancel()
		if err != nil {
			h.sendError(c, errorMessage(err))
		}
	}
}

func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) sendError(c *Client, msg string) {
	frame, err := encodeFrame(EventError, errorData{Message: msg})
	if err != nil {
		return
	}
	if c.enqueue(frame) {
		wsFramesSent.WithLabelValues(EventError).Inc()
	}
}

func errorMessage(err error) string {
	return apperrors.Normalize(err, "failed to send message").Message
}
