package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"finagent-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel carries session messages between instances.
const ClusterChannel = "chat_events"

type binding struct {
	client    *Client
	sessionId string
}

// Hub tracks chat connections by session so every tab on a session sees each answer.
type Hub struct {
	// SessionID -> connected clients
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	bind       chan binding

	mu sync.RWMutex

	// Redis connection for cross-instance delivery, may be nil
	rdb        *redis.Client
	instanceId string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		bind:       make(chan binding),
		rdb:        rdb,
		instanceId: uuid.NewString(),
		logger:     log,
	}
}

// Run serializes membership changes until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.add(client)
			h.logger.Info("WS_HUB", "Client registered", map[string]interface{}{"session_id": client.SessionId})

		case b := <-h.bind:
			if b.client.SessionId == b.sessionId {
				continue
			}
			h.remove(b.client)
			b.client.SessionId = b.sessionId
			h.add(b.client)

		case client := <-h.unregister:
			h.remove(client)
			close(client.Send)
			h.logger.Info("WS_HUB", "Client unregistered", map[string]interface{}{"session_id": client.SessionId})
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.SessionId]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.SessionId] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.SessionId]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.SessionId)
		}
	}
}

// Sessions returns the number of sessions with at least one local connection.
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send delivers data to local clients on the session and publishes it for other instances.
func (h *Hub) Send(sessionId string, data []byte) {
	h.deliver(sessionId, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"origin":     h.instanceId,
			"session_id": sessionId,
			"message":    json.RawMessage(data),
		})
		if err := h.rdb.Publish(context.Background(), ClusterChannel, payload).Err(); err != nil {
			h.logger.Warn("WS_HUB", "Failed to publish to cluster", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (h *Hub) deliver(sessionId string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[sessionId] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("WS_HUB", "Client send buffer full, dropping message", map[string]interface{}{"session_id": sessionId})
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload struct {
				Origin    string          `json:"origin"`
				SessionId string          `json:"session_id"`
				Message   json.RawMessage `json:"message"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("WS_HUB", "Cluster message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instanceId {
				continue
			}
			h.deliver(payload.SessionId, payload.Message)
		}
	}
}
