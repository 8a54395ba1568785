package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raydesk/chatdesk/internal/common"
)

// Operator tooling over the trace ring. Nothing here is authoritative.

func (h *Handler) GetTrace(c *gin.Context) {
	events := h.Ring.ReadAll()
	common.Ok(c, gin.H{"events": events, "count": len(events)})
}

func (h *Handler) ClearTrace(c *gin.Context) {
	h.Ring.Clear()
	common.Ok(c, gin.H{"cleared": true})
}

func (h *Handler) StartTraceSession(c *gin.Context) {
	h.Ring.StartSession()
	common.Ok(c, gin.H{"session": "started"})
}

func (h *Handler) StopTraceSession(c *gin.Context) {
	report, ok := h.Ring.StopSession()
	if !ok {
		common.Fail(c, http.StatusBadRequest, 10020, "no session running")
		return
	}
	common.Ok(c, report)
}

func (h *Handler) Ping(c *gin.Context) {
	common.Ok(c, gin.H{"pong": true, "subscribers": h.Hub.SubscriberCount()})
}
