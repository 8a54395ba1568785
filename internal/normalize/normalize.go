// Package normalize converts provider-specific raw message records into the
// canonical convo.Message. Upstream producers disagree on field names and use
// numeric type codes, so extraction runs ordered accessor chains instead of
// per-caller branching. Normalize is total: malformed input degrades to an
// empty-text system record, never an error.
package normalize

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raydesk/chatdesk/internal/convo"
)

// Provider message type codes.
const (
	typeCodeLiveChat = 29 // inbound live-chat message
	typeCodeActivity = 25 // "customer joined" and similar meta events
	typeCodeCall     = 26 // call log entries, also meta
)

// textFields is the ordered accessor chain for the message body; first
// non-empty string wins.
var textFields = []string{"message", "messageText", "body", "content"}

// timeFields is the ordered accessor chain for the provider timestamp.
var timeFields = []string{"dateAdded", "timestamp", "createdAt"}

// Normalize maps each raw record to a canonical message for conversationID.
func Normalize(raws []map[string]any, conversationID string) []convo.Message {
	out := make([]convo.Message, 0, len(raws))
	for _, raw := range raws {
		out = append(out, normalizeOne(raw, conversationID))
	}
	return out
}

func normalizeOne(raw map[string]any, conversationID string) convo.Message {
	direction, resolved := resolveDirection(raw)

	m := convo.Message{
		ID:             stringField(raw, "id"),
		ConversationID: conversationID,
		Text:           resolveText(raw),
		Direction:      direction,
		Sender:         classifySender(raw, direction, resolved),
		Category:       classifyCategory(raw),
		CreatedAt:      resolveTimestamp(raw),
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if b, err := json.Marshal(raw); err == nil {
		m.Raw = b
	}
	return m
}

// resolveDirection prefers an explicit direction field, then falls back to
// the type code: live-chat traffic is inbound, everything else outbound.
// resolved=false means neither was usable.
func resolveDirection(raw map[string]any) (convo.Direction, bool) {
	switch strings.ToLower(stringField(raw, "direction")) {
	case "inbound":
		return convo.DirectionInbound, true
	case "outbound":
		return convo.DirectionOutbound, true
	}
	if code, ok := intField(raw, "type"); ok {
		if code == typeCodeLiveChat {
			return convo.DirectionInbound, true
		}
		return convo.DirectionOutbound, true
	}
	return convo.DirectionInbound, false
}

func resolveText(raw map[string]any) string {
	for _, field := range textFields {
		if s := stringField(raw, field); s != "" {
			return s
		}
	}
	return ""
}

// classifySender: inbound traffic is the contact. Outbound traffic with an
// operator id is a human agent; an explicit AI source marker, or no marker at
// all, means automated outbound. Unresolvable direction yields system.
func classifySender(raw map[string]any, direction convo.Direction, resolved bool) convo.Sender {
	if !resolved {
		return convo.SenderSystem
	}
	if direction == convo.DirectionInbound {
		return convo.SenderContact
	}
	if isAISource(raw) {
		return convo.SenderAIAgent
	}
	if stringField(raw, "userId") != "" || stringField(raw, "agentId") != "" {
		return convo.SenderHumanAgent
	}
	return convo.SenderAIAgent
}

func isAISource(raw map[string]any) bool {
	switch strings.ToLower(stringField(raw, "source")) {
	case "ai", "bot", "workflow":
		return true
	}
	return false
}

func classifyCategory(raw map[string]any) convo.Category {
	if code, ok := intField(raw, "type"); ok {
		switch code {
		case typeCodeActivity, typeCodeCall:
			return convo.CategoryInfo
		}
	}
	return convo.CategoryChat
}

// resolveTimestamp accepts RFC3339 strings or epoch milliseconds; anything
// else stamps the normalization clock.
func resolveTimestamp(raw map[string]any) time.Time {
	for _, field := range timeFields {
		v, ok := raw[field]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if parsed, err := time.Parse(time.RFC3339, t); err == nil {
				return parsed
			}
		case float64:
			if t > 0 {
				return time.UnixMilli(int64(t))
			}
		}
	}
	return time.Now()
}

func stringField(raw map[string]any, key string) string {
	if v, ok := raw[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func intField(raw map[string]any, key string) (int, bool) {
	switch v := raw[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
