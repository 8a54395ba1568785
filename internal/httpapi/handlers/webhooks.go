package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raydesk/chatdesk/internal/common"
	"github.com/raydesk/chatdesk/internal/convo"
	"github.com/raydesk/chatdesk/internal/fanout"
	"github.com/raydesk/chatdesk/internal/normalize"
	"github.com/raydesk/chatdesk/internal/relay"
	"github.com/raydesk/chatdesk/internal/signature"
	"github.com/raydesk/chatdesk/internal/trace"
)

// IngestEvents is the strict webhook: the payload must carry a conversation
// id somewhere in the fallback chain.
func (h *Handler) IngestEvents(c *gin.Context) {
	h.ingest(c, true)
}

// IngestAssist is the safe webhook: a missing conversation id gets a
// synthesized one, and nothing past JSON parsing hard-fails.
func (h *Handler) IngestAssist(c *gin.Context) {
	h.ingest(c, false)
}

// ackBody is the uniform acknowledgement returned by the webhook surface.
// Internal failures collapse into an empty-but-well-typed ack: the upstream
// sender has no useful retry strategy, and retries would duplicate side
// effects.
type ackBody struct {
	OK          bool            `json:"ok"`
	Messages    []convo.Message `json:"messages"`
	Suggestions []string        `json:"suggestions"`
	Counts      map[string]int  `json:"counts"`
}

func emptyAck() ackBody {
	return ackBody{
		OK:          true,
		Messages:    []convo.Message{},
		Suggestions: []string{},
		Counts:      map[string]int{"messages": 0, "suggestions": 0},
	}
}

func (h *Handler) ingest(c *gin.Context, strict bool) {
	traceID, _ := common.NewULID()
	route := c.FullPath()
	stages := []string{"received"}

	// the exact raw bytes are needed for signature verification; read once,
	// before any parsing
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.pushTrace(route, traceID, "received body_read_fail", gin.H{"error": err.Error()})
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unreadable body"})
		return
	}

	if h.Cfg.WebhookSecret != "" {
		if signature.Verify(raw, c.GetHeader(signature.Header), h.Cfg.WebhookSecret) {
			stages = append(stages, "signature_ok")
		} else if h.Cfg.StrictSignature {
			h.pushTrace(route, traceID, strings.Join(append(stages, "signature_reject"), " "), nil)
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid signature"})
			return
		} else {
			// permissive mode keeps partially-migrated senders flowing
			log.Printf("webhook signature mismatch route=%s trace=%s", route, traceID)
			stages = append(stages, "signature_warn")
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.pushTrace(route, traceID, strings.Join(append(stages, "json_fail"), " "), gin.H{"error": err.Error()})
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid json"})
		return
	}
	stages = append(stages, "parsed")

	conversationID := extractConversationID(payload)
	if conversationID == "" {
		if strict {
			h.pushTrace(route, traceID, strings.Join(append(stages, "missing_conversation_id"), " "), nil)
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "conversation id required"})
			return
		}
		id, _ := common.NewULID()
		conversationID = "anon-" + strings.ToLower(id)
	}

	msgs := normalize.Normalize(extractRawMessages(payload), conversationID)
	stages = append(stages, "normalized")

	ack := emptyAck()

	// store errors never cross the webhook boundary, but every one of them
	// ends up in the request's trace event
	var storeErrs []string

	if len(msgs) > 0 {
		_, err := h.Store.UpsertMessages(c.Request.Context(), conversationID, msgs)
		switch {
		case err == nil:
			stages = append(stages, "stored")
		case errors.Is(err, convo.ErrDegraded):
			// the fallback store took the write; data is there, backend is not
			log.Printf("webhook store degraded trace=%s conversation=%s err=%v", traceID, conversationID, err)
			stages = append(stages, "stored", "store_degraded")
			storeErrs = append(storeErrs, err.Error())
		default:
			log.Printf("webhook store upsert failed trace=%s conversation=%s err=%v", traceID, conversationID, err)
			stages = append(stages, "store_fail")
			storeErrs = append(storeErrs, err.Error())
		}
		ack.Messages = msgs
		ack.Counts["messages"] = len(msgs)
	} else {
		stages = append(stages, "stored")
	}

	suggestions := extractSuggestions(payload)
	if len(suggestions) > 0 {
		if _, err := h.Store.AddSuggestions(c.Request.Context(), conversationID, suggestions); err != nil {
			log.Printf("webhook store suggest failed trace=%s conversation=%s err=%v", traceID, conversationID, err)
			if errors.Is(err, convo.ErrDegraded) {
				stages = append(stages, "suggest_degraded")
			} else {
				stages = append(stages, "suggest_fail")
			}
			storeErrs = append(storeErrs, err.Error())
		}
		ack.Suggestions = suggestions
		ack.Counts["suggestions"] = len(suggestions)
		h.Hub.Broadcast(fanout.Event{
			Type:           "suggestion",
			ConversationID: conversationID,
			Payload:        gin.H{"suggestions": suggestions},
		})
	}

	for _, m := range msgs {
		h.Hub.Broadcast(fanout.Event{
			Type:           "message",
			ConversationID: conversationID,
			Payload:        m,
		})
		if m.Direction == convo.DirectionInbound && m.Sender == convo.SenderContact {
			// detached best-effort relay; the ack never waits on the engine
			if err := h.Relay.Publish(c.Request.Context(), relay.Event{
				TraceID:        traceID,
				ConversationID: conversationID,
				Message:        m,
				ReceivedAt:     time.Now(),
			}); err != nil {
				log.Printf("relay publish failed trace=%s conversation=%s err=%v", traceID, conversationID, err)
			}
		}
	}
	stages = append(stages, "broadcast", "ack")

	data := gin.H{
		"conversation_id": conversationID,
		"messages":        ack.Counts["messages"],
		"suggestions":     ack.Counts["suggestions"],
	}
	if len(storeErrs) > 0 {
		data["store_errors"] = storeErrs
	}
	h.pushTrace(route, traceID, strings.Join(stages, " "), data)

	c.JSON(http.StatusOK, ack)
}

func (h *Handler) pushTrace(route, traceID, note string, data gin.H) {
	h.Ring.Push(trace.Event{
		Route:   route,
		TraceID: traceID,
		Note:    note,
		Data:    data,
	})
}

// conversationIDAccessors is the ordered fallback chain across the payload
// shapes the upstream producers send.
var conversationIDAccessors = []func(map[string]any) string{
	func(p map[string]any) string { return nestedString(p, "conversation", "id") },
	func(p map[string]any) string { return topString(p, "conversationId") },
	func(p map[string]any) string { return nestedString(p, "contact", "id") },
	func(p map[string]any) string { return topString(p, "contactId") },
}

func extractConversationID(payload map[string]any) string {
	for _, get := range conversationIDAccessors {
		if id := get(payload); id != "" {
			return id
		}
	}
	return ""
}

// extractRawMessages accepts a "messages" array, a nested "message" object,
// or a flat single-message payload (detected by a top-level text field).
func extractRawMessages(payload map[string]any) []map[string]any {
	if arr, ok := payload["messages"].([]any); ok {
		out := make([]map[string]any, 0, len(arr))
		for _, item := range arr {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	if m, ok := payload["message"].(map[string]any); ok {
		return []map[string]any{m}
	}
	for _, field := range []string{"message", "messageText", "body", "content"} {
		if s, ok := payload[field].(string); ok && s != "" {
			return []map[string]any{payload}
		}
	}
	return nil
}

func extractSuggestions(payload map[string]any) []string {
	arr, ok := payload["suggestions"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func topString(p map[string]any, key string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}

func nestedString(p map[string]any, outer, inner string) string {
	if m, ok := p[outer].(map[string]any); ok {
		if s, ok := m[inner].(string); ok {
			return s
		}
	}
	return ""
}
