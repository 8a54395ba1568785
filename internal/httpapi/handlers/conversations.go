package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raydesk/chatdesk/internal/common"
	"github.com/raydesk/chatdesk/internal/convo"
	"github.com/raydesk/chatdesk/internal/fanout"
)

// ListConversations returns queue summaries partitioned by status.
func (h *Handler) ListConversations(c *gin.Context) {
	sums, err := h.Store.ListConversations(c.Request.Context(), convo.Status(c.Query("status")))
	if err != nil && !errors.Is(err, convo.ErrDegraded) {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to list conversations")
		return
	}

	partitions := gin.H{
		"waiting":  []convo.Summary{},
		"assigned": []convo.Summary{},
		"rejected": []convo.Summary{},
	}
	for _, s := range sums {
		key := string(s.Status)
		if bucket, ok := partitions[key].([]convo.Summary); ok {
			partitions[key] = append(bucket, s)
		}
	}
	common.Ok(c, partitions)
}

// GetConversation never 404s: unseen ids read as an empty aggregate.
func (h *Handler) GetConversation(c *gin.Context) {
	conv, err := h.Store.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil && !errors.Is(err, convo.ErrDegraded) {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to load conversation")
		return
	}
	common.Ok(c, conv)
}

// GetConversationStamp serves the change stamp for cheap polling. The Redis
// cache answers when populated; otherwise the store of record does.
func (h *Handler) GetConversationStamp(c *gin.Context) {
	id := c.Param("id")

	stamp := h.Redis.Stamp(c.Request.Context(), id)
	if stamp.IsZero() {
		var err error
		stamp, err = h.Store.Stamp(c.Request.Context(), id)
		if err != nil && !errors.Is(err, convo.ErrDegraded) {
			common.Fail(c, http.StatusInternalServerError, 50003, "failed to read stamp")
			return
		}
	}
	common.Ok(c, gin.H{"conversation_id": id, "updated_at": stamp})
}

type transitionReq struct {
	AgentID string `json:"agent_id"`
	Reason  string `json:"reason"`
	Confirm bool   `json:"confirm"`
}

func (h *Handler) ClaimConversation(c *gin.Context)   { h.transition(c, convo.ActionClaim, true) }
func (h *Handler) PassConversation(c *gin.Context)    { h.transition(c, convo.ActionPass, false) }
func (h *Handler) EndConversation(c *gin.Context)     { h.transition(c, convo.ActionEnd, false) }
func (h *Handler) RejectConversation(c *gin.Context)  { h.transition(c, convo.ActionReject, false) }
func (h *Handler) RestoreConversation(c *gin.Context) { h.transition(c, convo.ActionRestore, false) }

func (h *Handler) DeleteConversation(c *gin.Context) {
	h.transition(c, convo.ActionDelete, false)
}

// transition runs a guarded status change. Unlike the webhook surface these
// errors surface to the caller: there is a human agent who can react.
func (h *Handler) transition(c *gin.Context, action convo.Action, requireAgent bool) {
	id := c.Param("id")

	var req transitionReq
	_ = c.ShouldBindJSON(&req) // empty body is fine for most actions

	if requireAgent && req.AgentID == "" {
		common.Fail(c, http.StatusBadRequest, 10010, "agent_id required")
		return
	}

	conv, err := h.Store.UpdateStatus(c.Request.Context(), id, convo.Transition{
		Action:  action,
		AgentID: req.AgentID,
		Reason:  req.Reason,
		Confirm: req.Confirm,
	})
	if err != nil && !errors.Is(err, convo.ErrDegraded) {
		switch {
		case errors.Is(err, convo.ErrNotFound):
			common.Fail(c, http.StatusNotFound, 40410, "conversation not found")
		case errors.Is(err, convo.ErrConfirmRequired):
			common.Fail(c, http.StatusBadRequest, 10011, "confirmation required: pass confirm=true to delete")
		case errors.Is(err, convo.ErrBadTransition):
			common.Fail(c, http.StatusBadRequest, 10012, err.Error())
		default:
			common.Fail(c, http.StatusInternalServerError, 50004, "transition failed")
		}
		return
	}

	if conv == nil {
		// delete completed
		h.Hub.Broadcast(fanout.Event{
			Type:           "status",
			ConversationID: id,
			Payload:        gin.H{"action": action, "deleted": true},
		})
		common.Ok(c, gin.H{"deleted": true})
		return
	}

	h.Hub.Broadcast(fanout.Event{
		Type:           "status",
		ConversationID: id,
		Payload: gin.H{
			"action":         action,
			"status":         conv.Status,
			"assigned_agent": conv.AssignedAgent,
		},
	})
	common.Ok(c, conv)
}

type typingReq struct {
	ActorType string `json:"actor_type" binding:"required"`
	ActorID   string `json:"actor_id" binding:"required"`
	Stop      bool   `json:"stop"`
}

// Typing records or clears an ephemeral typing indicator. Indicators also
// expire on their own, so a lost stop is self-healing.
func (h *Handler) Typing(c *gin.Context) {
	var req typingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	key := fanout.TypingKey{
		ConversationID: c.Param("id"),
		ActorType:      req.ActorType,
		ActorID:        req.ActorID,
	}
	if req.Stop {
		h.Hub.ClearTyping(key)
	} else {
		h.Hub.SetTyping(key)
	}
	common.Ok(c, gin.H{"typing": !req.Stop})
}
