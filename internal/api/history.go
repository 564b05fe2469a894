package api

import (
	"net/http"
	"strconv"

	"go-chat-hub/internal/websocket"
	"go-chat-hub/pkg/chat"

	"github.com/gin-gonic/gin"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

type HistoryHandlers struct {
	hub *websocket.Hub
}

func NewHistoryHandlers(hub *websocket.Hub) *HistoryHandlers {
	return &HistoryHandlers{hub: hub}
}

// GetHistoryHandler returns the newest events as outbound frames, oldest
// first.
func (h *HistoryHandlers) GetHistoryHandler(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	c.JSON(http.StatusOK, chat.Frames(h.hub.History(limit)))
}

// parseLimit reads ?limit=N, defaulting to 50 and capping at 500.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, false
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, true
}
