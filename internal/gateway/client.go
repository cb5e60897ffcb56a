package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Time allowed to write a frame to the peer.
const writeWait = 10 * time.Second

// Client is one websocket session. Its lifecycle is linear:
// authenticated at upgrade or by a first auth frame, registered with
// the hub, then torn down when either pump exits.
type Client struct {
	conn *websocket.Conn
	send chan []byte

	// mu guards closed. The hub drops a client (closing send) from its
	// own goroutine while the read pump may still be mid-dispatch and
	// about to queue a reply; sendEvent and close serialize on mu so
	// that reply lands on a closed flag, not a closed channel.
	mu     sync.Mutex
	closed bool

	userID   string
	username string

	// channels this session has joined, for presence cleanup on
	// disconnect. Only the read pump touches it.
	channels map[string]struct{}

	handler *Handler
	logger  *zap.Logger
}

// sendEvent queues an event for this client only. Returns false if the
// session is gone or its buffer is full.
func (c *Client) sendEvent(event *Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- event.encode():
		return true
	default:
		return false
	}
}

// close shuts the send channel exactly once. Only the hub calls this;
// after it returns no event is ever queued again.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) sendError(sourceEvent string, err error) {
	c.sendEvent(newEvent(EventError, errorPayload{
		Message: err.Error(),
		Event:   sourceEvent,
	}))
}

// readPump consumes inbound frames until the connection dies, then
// triggers full session cleanup.
func (c *Client) readPump(ctx context.Context) {
	h := c.handler
	pongWait := h.pongWait()

	defer func() {
		h.disconnect(ctx, c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(h.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		// A live socket refreshes the presence TTL.
		h.presence.SetOnline(ctx, c.userID)
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("gateway read error", zap.Error(err))
			}
			return
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			c.sendError("", errMalformedEvent)
			continue
		}
		h.dispatch(ctx, c, &event)
	}
}

// writePump drains the send channel and keeps the heartbeat going. A
// closed send channel (hub-side drop) ends the session.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.handler.pingPeriod())
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
