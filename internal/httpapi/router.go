package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raydesk/chatdesk/internal/common"
	"github.com/raydesk/chatdesk/internal/config"
	"github.com/raydesk/chatdesk/internal/convo"
	"github.com/raydesk/chatdesk/internal/fanout"
	"github.com/raydesk/chatdesk/internal/httpapi/handlers"
	"github.com/raydesk/chatdesk/internal/httpapi/middleware"
	"github.com/raydesk/chatdesk/internal/relay"
	"github.com/raydesk/chatdesk/internal/store/redisstore"
	"github.com/raydesk/chatdesk/internal/trace"
)

func NewRouter(cfg config.Config, store convo.Store, hub *fanout.Hub, ring *trace.Ring, pub relay.Publisher, rds *redisstore.Store) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(cfg, store, hub, ring, pub, rds)

	r.GET("/ping", h.Ping)

	// webhook surface (upstream producers; HMAC, never JWT)
	r.POST("/webhooks/events", h.IngestEvents)
	r.POST("/webhooks/assist", h.IngestAssist)

	// agent surface
	agentGroup := r.Group("/")
	if cfg.AgentJWTSecret != "" {
		agentGroup.Use(middleware.AuthRequired(cfg.AgentJWTSecret))
	}
	agentGroup.GET("/conversations", h.ListConversations)
	agentGroup.GET("/conversations/:id", h.GetConversation)
	agentGroup.GET("/conversations/:id/stamp", h.GetConversationStamp)
	agentGroup.POST("/conversations/:id/claim", h.ClaimConversation)
	agentGroup.POST("/conversations/:id/pass", h.PassConversation)
	agentGroup.POST("/conversations/:id/end", h.EndConversation)
	agentGroup.POST("/conversations/:id/reject", h.RejectConversation)
	agentGroup.POST("/conversations/:id/restore", h.RestoreConversation)
	agentGroup.DELETE("/conversations/:id", h.DeleteConversation)
	agentGroup.POST("/conversations/:id/typing", h.Typing)
	agentGroup.GET("/stream", h.Stream)

	// operator tooling
	r.GET("/debug/trace", h.GetTrace)
	r.DELETE("/debug/trace", h.ClearTrace)
	r.POST("/debug/trace/session/start", h.StartTraceSession)
	r.POST("/debug/trace/session/stop", h.StopTraceSession)

	return r
}
