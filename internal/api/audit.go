package api

import (
	"encoding/json"
	"net/http"

	"go-chat-hub/internal/audit"
	"go-chat-hub/pkg/chat"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type AuditHandlers struct {
	service *audit.AuditService
}

func NewAuditHandlers(service *audit.AuditService) *AuditHandlers {
	return &AuditHandlers{service: service}
}

type AuditLogResponse struct {
	ID          string         `json:"id"`
	Action      string         `json:"action"`
	SessionID   string         `json:"session_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   string         `json:"created_at"`
}

type AuditLogsResponse struct {
	Logs  []AuditLogResponse `json:"logs"`
	Total int64              `json:"total"`
	Limit int                `json:"limit"`
}

// GetAuditLogsHandler lists recent session records, newest first. It answers
// 404 when the audit log is disabled. ?session_id= narrows to one session.
func (h *AuditHandlers) GetAuditLogsHandler(c *gin.Context) {
	if h.service == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Audit log is disabled"})
		return
	}

	limit, ok := parseLimit(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	var sessionID *string
	if id := c.Query("session_id"); id != "" {
		sessionID = &id
	}

	records, total, err := h.service.GetAuditLogs(sessionID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve audit logs"})
		return
	}

	c.JSON(http.StatusOK, AuditLogsResponse{
		Logs:  lo.Map(records, func(r chat.SessionRecord, _ int) AuditLogResponse { return toAuditLogResponse(r) }),
		Total: total,
		Limit: limit,
	})
}

func toAuditLogResponse(r chat.SessionRecord) AuditLogResponse {
	metadata := map[string]any{}
	if r.Metadata != "" {
		if err := json.Unmarshal([]byte(r.Metadata), &metadata); err != nil {
			metadata = map[string]any{}
		}
	}

	return AuditLogResponse{
		ID:          r.ID,
		Action:      r.Action,
		SessionID:   r.SessionID,
		Name:        r.Name,
		Description: r.Description,
		Metadata:    metadata,
		CreatedAt:   r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
