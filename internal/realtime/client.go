package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SnapshotFunc loads the full session document for the initial frame.
// Returning an error means the code does not resolve to a live session.
type SnapshotFunc func(ctx context.Context, code string) (interface{}, error)

// Client represents a single WebSocket connection in a session.
type Client struct {
	ID            string
	Code          string
	ParticipantID string
	Name          string
	JoinedAt      time.Time
	hub           *Hub
	conn          *websocket.Conn
	send          chan WSMessage
	logger        *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop. The first
// frame delivered to the client is a full document snapshot, so subscribing
// blocks until the current state is known.
func ServeWs(hub *Hub, logger *zap.Logger, snapshot SnapshotFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Query("code")
		participantID := c.Query("participant_id")
		if code == "" || participantID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "code and participant_id required"})
			return
		}

		view, err := snapshot(c.Request.Context(), code)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:            uuid.New().String(),
			Code:          code,
			ParticipantID: participantID,
			Name:          c.Query("name"),
			JoinedAt:      time.Now(),
			hub:           hub,
			conn:          conn,
			send:          make(chan WSMessage, 256),
			logger:        logger,
		}
		hub.Register(client)
		go client.writePump()
		hub.SendToClient(code, client.ID, "snapshot", view)
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "join":
			c.hub.BroadcastToSessionAndPublish(c.Code, "audience_count", map[string]int{
				"count": c.hub.AudienceCount(c.Code),
			})
		case "submit_vote", "submit_swipe", "mark_complete":
			// Persisted through the same path as the REST endpoints; the
			// handler is responsible for broadcasting the resulting change.
			if fn := c.hub.action(); fn != nil {
				fn(c.Code, c.ParticipantID, c.Name, msg.Event, msg.Data)
			}
		default:
			// ignore
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
