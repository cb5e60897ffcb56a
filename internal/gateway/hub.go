package gateway

import (
	"context"

	"go.uber.org/zap"
)

// Hub owns every room membership mutation and all fan-out. Everything
// flows through one loop, so two broadcasts into the same room reach
// its members in the same order, and membership changes are never
// concurrent with delivery.
type Hub struct {
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]map[string]struct{}

	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	unsubscribe chan subscription
	broadcasts  chan broadcast
	globals     chan broadcast

	logger *zap.Logger
}

type subscription struct {
	client *Client
	room   string
	done   chan struct{}
}

type broadcast struct {
	room    string
	data    []byte
	exclude *Client
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:       make(map[string]map[*Client]struct{}),
		clients:     make(map[*Client]map[string]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		broadcasts:  make(chan broadcast, 64),
		globals:     make(chan broadcast, 64),
		logger:      logger,
	}
}

// Run processes hub commands until the context ends. Call it once,
// from its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = make(map[string]struct{})
			h.join(client, userRoom(client.userID))

		case client := <-h.unregister:
			h.drop(client)

		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; ok {
				h.join(sub.client, sub.room)
			}
			close(sub.done)

		case sub := <-h.unsubscribe:
			h.leave(sub.client, sub.room)
			close(sub.done)

		case b := <-h.broadcasts:
			for client := range h.rooms[b.room] {
				if client != b.exclude {
					h.deliver(client, b.data)
				}
			}

		case b := <-h.globals:
			for client := range h.clients {
				if client != b.exclude {
					h.deliver(client, b.data)
				}
			}
		}
	}
}

func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		// A full send buffer means the reader is gone or hopelessly
		// behind; cut it loose rather than stall the whole room.
		h.logger.Warn("dropping slow gateway client",
			zap.String("user_id", client.userID))
		h.drop(client)
	}
}

func (h *Hub) join(client *Client, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	h.clients[client][room] = struct{}{}
}

func (h *Hub) leave(client *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.clients[client]; ok {
		delete(rooms, room)
	}
}

func (h *Hub) drop(client *Client) {
	rooms, ok := h.clients[client]
	if !ok {
		return
	}
	for room := range rooms {
		h.leave(client, room)
	}
	delete(h.clients, client)
	client.close()
}

// Register adds an authenticated client and its private user room.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes the client from every room and closes its send
// channel. Safe to call for a client the hub never saw.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Join subscribes the client to a room, returning once the membership
// is visible to subsequent broadcasts.
func (h *Hub) Join(client *Client, room string) {
	sub := subscription{client: client, room: room, done: make(chan struct{})}
	h.subscribe <- sub
	<-sub.done
}

// Leave unsubscribes the client from a room.
func (h *Hub) Leave(client *Client, room string) {
	sub := subscription{client: client, room: room, done: make(chan struct{})}
	h.unsubscribe <- sub
	<-sub.done
}

// Broadcast queues an event for every member of the room, optionally
// excluding one client (typically the sender).
func (h *Hub) Broadcast(room string, event *Event, exclude *Client) {
	h.broadcasts <- broadcast{room: room, data: event.encode(), exclude: exclude}
}

// BroadcastAll queues an event for every connected session, whatever
// rooms it is in. Presence changes fan out this way.
func (h *Hub) BroadcastAll(event *Event, exclude *Client) {
	h.globals <- broadcast{data: event.encode(), exclude: exclude}
}
