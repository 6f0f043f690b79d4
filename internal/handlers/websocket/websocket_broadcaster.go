// Package websocket implements the push channel: a hub of persistent
// client connections receiving classified change events.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/model"
	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/useCases"
)

// Event is the server→client envelope. Every push, including subscription
// echoes, uses this shape.
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// clientMessage is what subscribers send: join or leave interest groups
// keyed by token address.
type clientMessage struct {
	Action    string   `json:"action"`
	Addresses []string `json:"addresses"`
}

type client struct {
	id            string
	conn          *websocket.Conn
	subscriptions map[string]struct{}
	writeMu       sync.Mutex
}

// Hub implements the Broadcaster interface over gorilla websockets.
// Subscription groups are tracked per client and echoed back, but delivery
// is broadcast-to-all: every connected client receives every event.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	closed   bool
	upgrader websocket.Upgrader
	initial  InitialDataFunc
	log      *slog.Logger
}

// InitialDataFunc produces the one-time snapshot pushed to a client right
// after it connects.
type InitialDataFunc func(ctx context.Context) (any, error)

var _ useCases.Broadcaster = (*Hub)(nil)

func NewHub(initial InitialDataFunc, log *slog.Logger) *Hub {
	return &Hub{
		clients:  make(map[*client]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		initial:  initial,
		log:      log,
	}
}

// Broadcast sends one event envelope stamped with at to every connected
// client. Clients whose connection fails are dropped.
func (h *Hub) Broadcast(eventType string, data any, at time.Time) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	payload, err := json.Marshal(Event{Type: eventType, Data: data, Timestamp: at})
	if err != nil {
		h.log.Error("failed to marshal event", "type", eventType, "error", err)
		return
	}

	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.write(payload); err != nil {
			h.log.Debug("dropping client after write error", "client", c.id, "error", err)
			h.removeClient(c)
		}
	}
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Handler returns an http.HandlerFunc that upgrades connections, pushes
// the initial snapshot, and serves the subscribe/unsubscribe loop.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn("websocket upgrade failed", "error", err)
			return
		}

		c := &client{
			id:            uuid.NewString(),
			conn:          conn,
			subscriptions: make(map[string]struct{}),
		}

		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			conn.Close()
			return
		}
		h.clients[c] = struct{}{}
		h.mu.Unlock()
		h.log.Info("client connected", "client", c.id)

		h.sendInitialData(r.Context(), c)
		go h.readLoop(c)
	}
}

// Close disconnects every client and rejects further connections. The
// detector's in-memory snapshot is not flushed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.conn.Close()
	}
	h.clients = make(map[*client]struct{})
}

func (h *Hub) sendInitialData(ctx context.Context, c *client) {
	if h.initial == nil {
		return
	}
	data, err := h.initial(ctx)
	if err != nil {
		h.log.Warn("initial snapshot unavailable", "client", c.id, "error", err)
		return
	}
	h.sendEvent(c, model.EventInitialData, data)
}

func (h *Hub) sendEvent(c *client, eventType string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		h.log.Error("failed to marshal event", "type", eventType, "error", err)
		return
	}
	if err := c.write(payload); err != nil {
		h.removeClient(c)
	}
}

func (h *Hub) readLoop(c *client) {
	defer h.removeClient(c)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.log.Debug("ignoring malformed client message", "client", c.id, "error", err)
			continue
		}
		switch msg.Action {
		case "subscribe":
			for _, addr := range msg.Addresses {
				c.subscriptions[strings.ToLower(addr)] = struct{}{}
			}
			h.sendEvent(c, model.EventSubscribed, msg.Addresses)
		case "unsubscribe":
			for _, addr := range msg.Addresses {
				delete(c.subscriptions, strings.ToLower(addr))
			}
			h.sendEvent(c, model.EventUnsubscribed, msg.Addresses)
		default:
			h.log.Debug("ignoring unknown client action", "client", c.id, "action", msg.Action)
		}
	}
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if present {
		c.conn.Close()
		h.log.Info("client disconnected", "client", c.id)
	}
}

// write serializes writes per connection; gorilla allows only one
// concurrent writer.
func (c *client) write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}
