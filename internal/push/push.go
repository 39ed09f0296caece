// Package push fans out Agent state changes to WebSocket subscribers, and
// optionally relays them across replicas over Redis pub/sub so every gateway
// process pushes the same event stream regardless of which one handled the
// mutating request.
package push

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lumenbus/lcs-gateway/internal/metrics"
)

// Message is the JSON envelope broadcast to every connected WebSocket client.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// NewMessage builds a Message ready for broadcasting.
func NewMessage(msgType string, payload interface{}) Message {
	return Message{Type: msgType, Payload: payload}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub tracks connected WebSocket clients and fans out broadcast messages to
// all of them. One process-wide Hub is expected; Run must be started once.
type Hub struct {
	logger  *zap.Logger
	metrics *metrics.AppMetrics

	mu      sync.Mutex
	clients map[*websocket.Conn]bool

	broadcast  chan Message
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
}

// NewHub creates an idle Hub; call Run in a goroutine to start its loop.
func NewHub(logger *zap.Logger, m *metrics.AppMetrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger,
		metrics:    m,
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Message, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run drives the Hub's event loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.Close()
			}
			h.clients = make(map[*websocket.Conn]bool)
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			n := len(h.clients)
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.PushClients.Set(float64(n))
			}
			h.logger.Debug("push client connected", zap.Int("clients", n))

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.PushClients.Set(float64(n))
			}

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					h.logger.Warn("push write failed, dropping client", zap.Error(err))
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues msg for delivery to every connected client. Non-blocking:
// a full queue drops the message rather than stalling the caller.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("push broadcast queue full, dropping message", zap.String("type", msg.Type))
	}
}

// ServeWS upgrades an HTTP request to a WebSocket and registers the
// connection with the Hub. The connection is read-only from the client's
// perspective: incoming frames are drained and discarded, since this feed is
// push-only.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	h.register <- conn

	go func() {
		defer func() { h.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return nil
}

// Relay publishes messages on a Redis channel, and re-broadcasts every
// message received on that channel onto the local Hub. It exists
// so a fleet of gateway processes behind a load balancer converges on one
// push feed regardless of which instance handled the originating request.
type Relay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  *zap.Logger
}

// NewRelay wraps an existing Redis client for pub/sub relay duty.
func NewRelay(client *redis.Client, channel string, hub *Hub, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{client: client, channel: channel, hub: hub, logger: logger}
}

// Publish sends msg to the Redis channel. Every subscriber's Run loop,
// including this process's own, picks it up and broadcasts it locally — so
// callers should use Publish instead of Hub.Broadcast directly once a Relay
// is active, or clients would see each event twice.
func (r *Relay) Publish(ctx context.Context, msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		r.logger.Warn("push relay marshal failed", zap.Error(err))
		return
	}
	if err := r.client.Publish(ctx, r.channel, b).Err(); err != nil {
		r.logger.Warn("push relay publish failed", zap.Error(err))
	}
}

// Run subscribes to the Redis channel and re-broadcasts every message it
// receives, including those this process published, onto the local Hub. It
// blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case rmsg, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(rmsg.Payload), &msg); err != nil {
				r.logger.Warn("push relay decode failed", zap.Error(err))
				continue
			}
			r.hub.Broadcast(msg)
		}
	}
}
