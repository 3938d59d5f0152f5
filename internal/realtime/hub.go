package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// ActionHandler is invoked for client-submitted action frames (submit_vote,
// submit_swipe, mark_complete) so the server can persist them with the same
// semantics as the REST endpoints.
type ActionHandler func(code, participantID, participantName, event string, data json.RawMessage)

// AudienceChangeHandler is called when the connected-client count changes for
// a session (e.g. to refresh the session's last-active timestamp).
type AudienceChangeHandler func(code string, count int)

// Hub maintains session code -> set of connections and broadcasts document
// change events. Uses Redis pub/sub for horizontal scaling: local broadcast +
// publish to Redis.
type Hub struct {
	// session code -> map[clientID]*Client
	sessions   map[string]map[string]*Client
	subs       map[string]func() // cancel Redis subscription per session
	mu         sync.RWMutex
	logger     *zap.Logger
	redis      RedisPublisher
	redisSub   RedisSubscriber
	onAction   ActionHandler
	onAudience AudienceChangeHandler
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishSessionEvent(code, event string, payload []byte) error
}

// RedisSubscriber subscribes to session channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeSession(code string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		sessions: make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// SetActionHandler sets the callback for client-submitted action frames.
func (h *Hub) SetActionHandler(fn ActionHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onAction = fn
}

// SetAudienceChangeHandler sets the callback for connected-client count changes.
func (h *Hub) SetAudienceChangeHandler(fn AudienceChangeHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onAudience = fn
}

// Register adds a client to a session room. Starts the Redis subscription for
// this session if it is the first local client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.sessions[c.Code] == nil {
		h.sessions[c.Code] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeSession(c.Code, func(event string, payload []byte) {
				h.BroadcastToSession(c.Code, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.Code] = cancel
			}
		}
	}
	h.sessions[c.Code][c.ID] = c
	count := len(h.sessions[c.Code])
	onAudience := h.onAudience
	h.mu.Unlock()
	if onAudience != nil {
		onAudience(c.Code, count)
	}
	h.logger.Debug("client joined session", zap.String("client_id", c.ID), zap.String("code", c.Code))
}

// Unregister removes a client from a session room. Cancels the Redis
// subscription when the last local client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	var count int
	if m, ok := h.sessions[c.Code]; ok {
		delete(m, c.ID)
		count = len(m)
		if count == 0 {
			delete(h.sessions, c.Code)
			if cancel, ok := h.subs[c.Code]; ok {
				cancel()
				delete(h.subs, c.Code)
			}
		}
	}
	onAudience := h.onAudience
	h.mu.Unlock()
	if onAudience != nil && count > 0 {
		onAudience(c.Code, count)
	}
	h.logger.Debug("client left session", zap.String("client_id", c.ID), zap.String("code", c.Code))
}

// BroadcastToSession sends a message to all clients in a session (local only).
func (h *Hub) BroadcastToSession(code, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := h.sessions[code]
	h.mu.RUnlock()

	if clients == nil {
		return
	}
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastToSessionAndPublish sends to local clients and publishes to Redis
// for other instances.
func (h *Hub) BroadcastToSessionAndPublish(code, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.BroadcastToSession(code, event, payload)
	if h.redis != nil {
		_ = h.redis.PublishSessionEvent(code, event, data)
	}
}

// AudienceCount returns the number of locally connected clients in a session.
func (h *Hub) AudienceCount(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[code])
}

// SendToClient sends a message to a single client in a session (e.g. the
// initial snapshot frame).
func (h *Hub) SendToClient(code, clientID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	clients := h.sessions[code]
	c, ok := clients[clientID]
	h.mu.RUnlock()
	if !ok || c == nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Hub) action() ActionHandler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onAction
}
