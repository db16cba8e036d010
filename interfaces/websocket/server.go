package websocket

import (
	"net/http"

	"sentinel/application/engine"
	"sentinel/pkg/auth"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SnapshotSource provides the engine state and change notifications
type SnapshotSource interface {
	Snapshot() engine.Snapshot
	Subscribe(fn func()) func()
}

// ServerConfig holds WebSocket server configuration
type ServerConfig struct {
	ReadBufferSize        int
	WriteBufferSize       int
	CheckOrigin           func(r *http.Request) bool
	MaxConnectionsPerUser int
}

// DefaultServerConfig returns default WebSocket server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ReadBufferSize:        1024,
		WriteBufferSize:       1024,
		MaxConnectionsPerUser: 10,
	}
}

// Server upgrades authenticated requests to snapshot streams
type Server struct {
	hub      *Hub
	source   SnapshotSource
	upgrader websocket.Upgrader
	maxConns int
	logger   *zap.Logger
}

// NewServer creates a new WebSocket server. Requests must already carry a
// user context from the auth middleware.
func NewServer(hub *Hub, source SnapshotSource, config *ServerConfig, logger *zap.Logger) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}

	return &Server{
		hub:    hub,
		source: source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		maxConns: config.MaxConnectionsPerUser,
		logger:   logger.Named("ws"),
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if s.maxConns > 0 && s.hub.GetConnectionCount(user.UserID) >= s.maxConns {
		s.logger.Warn("Connection limit exceeded for user",
			zap.String("userID", user.UserID),
			zap.Int("limit", s.maxConns),
		)
		http.Error(w, "Connection limit exceeded", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade connection",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		return
	}

	client := NewClient(user.UserID, s.hub, conn, s.logger)
	if s.source != nil {
		client.Enqueue(TypeSnapshot, s.source.Snapshot())
	}
	client.Start()

	s.logger.Info("New WebSocket connection established",
		zap.String("userID", user.UserID),
		zap.String("connectionID", client.GetID()),
		zap.String("remoteAddr", r.RemoteAddr),
	)
}
