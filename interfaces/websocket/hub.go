// Package websocket streams engine snapshots and domain events to connected
// clients.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Message types sent to clients
const (
	TypeConnectionEstablished = "CONNECTION_ESTABLISHED"
	TypeSnapshot              = "SNAPSHOT"
	TypeEvent                 = "EVENT"
	TypePing                  = "PING"
)

const (
	pingInterval = 30 * time.Second
	enqueueWait  = 5 * time.Second
)

var (
	ErrHubStopped = errors.New("hub stopped")
	ErrHubBusy    = errors.New("hub busy")
)

// BroadcastMessage is a message for one user, or for everyone when UserID
// is empty
type BroadcastMessage struct {
	UserID    string          `json:"-"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// HubStats is a point-in-time view of hub counters
type HubStats struct {
	Connections int64
	Sent        int64
	Dropped     int64
}

// Hub owns the set of live clients, keyed by user. Only Run mutates it.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	outbound   chan *BroadcastMessage

	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	connections atomic.Int64
	sent        atomic.Int64
	dropped     atomic.Int64
}

func NewHub(logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client, 100),
		unregister: make(chan *Client, 100),
		outbound:   make(chan *BroadcastMessage, 1000),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger.Named("ws"),
	}
}

// Run processes registrations and outbound messages until Stop
func (h *Hub) Run() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.disconnectAll()
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case msg := <-h.outbound:
			h.fanOut(msg)
		case <-ping.C:
			h.ping()
		}
	}
}

func (h *Hub) Stop() {
	h.logger.Info("Stopping WebSocket hub")
	h.cancel()
}

// SendToUser queues data for every connection of userID
func (h *Hub) SendToUser(userID string, messageType string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", messageType, err)
	}
	msg := &BroadcastMessage{UserID: userID, Type: messageType, Data: raw, Timestamp: time.Now().Unix()}

	wait := time.NewTimer(enqueueWait)
	defer wait.Stop()

	select {
	case h.outbound <- msg:
		return nil
	case <-h.ctx.Done():
		return ErrHubStopped
	case <-wait.C:
		return ErrHubBusy
	}
}

// Broadcast queues data for every connection
func (h *Hub) Broadcast(messageType string, data interface{}) error {
	return h.SendToUser("", messageType, data)
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	n := len(set)
	h.mu.Unlock()

	h.connections.Add(1)
	h.logger.Info("Client registered",
		zap.String("userID", c.userID),
		zap.String("connectionID", c.id),
		zap.Int("userConnections", n),
	)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	set := h.clients[c.userID]
	if _, ok := set[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()

	h.connections.Add(-1)
	h.logger.Info("Client unregistered",
		zap.String("userID", c.userID),
		zap.String("connectionID", c.id),
	)
}

// targets returns the clients a message for userID reaches
func (h *Hub) targets(userID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*Client
	for uid, set := range h.clients {
		if userID != "" && uid != userID {
			continue
		}
		for c := range set {
			out = append(out, c)
		}
	}
	return out
}

// fanOut hands msg to every target. A client whose buffer is full is
// dropped rather than allowed to stall the hub.
func (h *Hub) fanOut(msg *BroadcastMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.String("messageType", msg.Type), zap.Error(err))
		return
	}

	for _, c := range h.targets(msg.UserID) {
		select {
		case c.send <- payload:
			h.sent.Add(1)
		default:
			h.dropped.Add(1)
			h.logger.Warn("Closing slow client",
				zap.String("userID", c.userID),
				zap.String("connectionID", c.id),
			)
			go c.close()
		}
	}
}

func (h *Hub) ping() {
	payload, _ := json.Marshal(BroadcastMessage{Type: TypePing, Timestamp: time.Now().Unix()})
	clients := h.targets("")
	for _, c := range clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("Failed to ping client", zap.String("connectionID", c.id))
		}
	}
	h.logger.Debug("Pinged clients", zap.Int("count", len(clients)))
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for uid, set := range h.clients {
		for c := range set {
			close(c.send)
			c.conn.Close()
		}
		delete(h.clients, uid)
	}
	h.connections.Store(0)
	h.logger.Info("All connections closed")
}

// Stats returns the current counters
func (h *Hub) Stats() HubStats {
	return HubStats{
		Connections: h.connections.Load(),
		Sent:        h.sent.Load(),
		Dropped:     h.dropped.Load(),
	}
}

// GetConnectionCount returns the number of live connections for a user
func (h *Hub) GetConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
