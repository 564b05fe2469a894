package api

import (
	"log/slog"
	"net/http"

	"go-chat-hub/internal/audit"
	"go-chat-hub/internal/config"
	"go-chat-hub/internal/middleware"
	"go-chat-hub/internal/websocket"

	"github.com/gin-gonic/gin"
)

type Router struct {
	ws      *WebSocketHandler
	history *HistoryHandlers
	audit   *AuditHandlers
	limiter *middleware.IPRateLimiter
	log     *slog.Logger
}

// NewRouter wires the handlers. auditService may be nil when the audit log
// is disabled, and a zero API_RATE disables the REST rate limit.
func NewRouter(hub *websocket.Hub, auditService *audit.AuditService, cfg config.Config, log *slog.Logger) *Router {
	var limiter *middleware.IPRateLimiter
	if cfg.APIRate > 0 {
		limiter = middleware.NewIPRateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.APILimit(),
			BurstSize:         cfg.APIBurst,
			CleanupInterval:   middleware.StandardRateLimit.CleanupInterval,
		})
	}

	clientCfg := websocket.ClientConfig{
		OutboundBuffer: cfg.OutboundBuffer,
		MaxMessageSize: cfg.MaxMessageSize,
		MessageRate:    cfg.MessageLimit(),
		MessageBurst:   cfg.MessageBurst,
	}

	return &Router{
		ws:      NewWebSocketHandler(hub, websocket.NewUpgrader(cfg.AllowOrigin), clientCfg, log),
		history: NewHistoryHandlers(hub),
		audit:   NewAuditHandlers(auditService),
		limiter: limiter,
		log:     log,
	}
}

// Limiter returns the REST rate limiter, or nil when rate limiting is off.
func (r *Router) Limiter() *middleware.IPRateLimiter {
	return r.limiter
}

func (r *Router) RegisterRoutes(router *gin.Engine) {
	{
		unprotected := router.Group("/")
		unprotected.GET("/hc", HealthCheckHandler)
		unprotected.GET("/ws", r.ws.HandleWebSocket)
		unprotected.GET("/ws/:username", r.ws.HandleWebSocket)
	}

	{
		limited := router.Group("/api")
		if r.limiter != nil {
			limited.Use(middleware.RateLimitMiddleware(r.limiter, r.log))
		}
		limited.GET("/history", r.history.GetHistoryHandler)
		limited.GET("/stats", r.ws.GetStats)
		limited.GET("/audit", r.audit.GetAuditLogsHandler)
	}
}

func HealthCheckHandler(c *gin.Context) {
	c.String(http.StatusOK, "Running")
}
