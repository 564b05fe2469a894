package api

import (
	"log/slog"
	"net/http"
	"time"

	"go-chat-hub/internal/websocket"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub      *websocket.Hub
	upgrader *gws.Upgrader
	cfg      websocket.ClientConfig
	log      *slog.Logger
}

func NewWebSocketHandler(hub *websocket.Hub, upgrader *gws.Upgrader, cfg websocket.ClientConfig, log *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		upgrader: upgrader,
		cfg:      cfg,
		log:      log,
	}
}

// HandleWebSocket upgrades the request and serves the connection until it
// closes. The optional :username path segment is the initial display name.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the HTTP error response.
		h.log.Warn("WebSocket upgrade failed", "remote", c.ClientIP(), "origin", c.GetHeader("Origin"), "error", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, c.Param("username"), h.cfg, h.log)
	if err := client.Run(); err != nil {
		h.log.Warn("WebSocket session ended with error", "session_id", client.ID(), "error", err)
	}
}

type WebSocketInfoResponse struct {
	TotalConnections int                     `json:"total_connections"`
	HistorySize      int                     `json:"history_size"`
	ActiveUsers      []websocket.SessionInfo `json:"active_users"`
	ServerTime       string                  `json:"server_time"`
}

// GetStats reports the connected sessions and the history size.
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	users := h.hub.Sessions()
	c.JSON(http.StatusOK, WebSocketInfoResponse{
		TotalConnections: len(users),
		HistorySize:      h.hub.HistorySize(),
		ActiveUsers:      users,
		ServerTime:       time.Now().UTC().Format(time.RFC3339),
	})
}
