package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames and pongs
	maxMessageSize = 4 * 1024

	sendBufferSize = 256
)

// Client represents a WebSocket client connection
type Client struct {
	id     string
	userID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger
}

// NewClient creates a new WebSocket client with the connection greeting
// already queued
func NewClient(userID string, hub *Hub, conn *websocket.Conn, logger *zap.Logger) *Client {
	id := uuid.New().String()
	c := &Client{
		id:     id,
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: logger.With(
			zap.String("userID", userID),
			zap.String("connectionID", id),
		),
	}
	c.Enqueue(TypeConnectionEstablished, map[string]string{
		"connectionId": id,
		"userId":       userID,
		"message":      "WebSocket connection established",
	})
	return c
}

// Start registers the client and begins its read and write pumps. Messages
// queued before Start are sent first.
func (c *Client) Start() {
	select {
	case c.hub.register <- c:
	case <-c.hub.ctx.Done():
		c.conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// Enqueue queues a message for this client only. It must not be called
// after Start, once the hub owns the send channel.
func (c *Client) Enqueue(messageType string, data interface{}) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return false
	}
	payload, err := json.Marshal(BroadcastMessage{Type: messageType, Data: raw, Timestamp: time.Now().Unix()})
	if err != nil {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		c.logger.Warn("Send buffer full", zap.String("messageType", messageType))
		return false
	}
}

func (c *Client) close() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.ctx.Done():
	}
	c.conn.Close()
}

func (c *Client) readPump() {
	defer func() {
		c.close()
		c.logger.Debug("Read pump stopped")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.Debug("Write pump stopped")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Warn("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// GetID returns the client's connection ID
func (c *Client) GetID() string {
	return c.id
}
