package normalize

import (
	"testing"
	"time"

	"github.com/raydesk/chatdesk/internal/convo"
)

func TestNormalize_InboundIsContact(t *testing.T) {
	msgs := Normalize([]map[string]any{{
		"id":        "m1",
		"direction": "inbound",
		"message":   "Hi",
		"userId":    "op-1", // must be ignored for inbound
	}}, "c1")

	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	m := msgs[0]
	if m.Sender != convo.SenderContact {
		t.Fatalf("expected sender contact, got %s", m.Sender)
	}
	if m.Direction != convo.DirectionInbound {
		t.Fatalf("expected inbound, got %s", m.Direction)
	}
	if m.Text != "Hi" || m.ConversationID != "c1" || m.ID != "m1" {
		t.Fatalf("unexpected message: %+v", m)
	}
}

func TestNormalize_OutboundWithOperatorIsHuman(t *testing.T) {
	msgs := Normalize([]map[string]any{{
		"direction": "outbound",
		"body":      "On it",
		"userId":    "op-1",
	}}, "c1")
	if msgs[0].Sender != convo.SenderHumanAgent {
		t.Fatalf("expected human_agent, got %s", msgs[0].Sender)
	}
}

func TestNormalize_OutboundWithoutMarkerIsAI(t *testing.T) {
	msgs := Normalize([]map[string]any{{
		"direction": "outbound",
		"body":      "Automated reply",
	}}, "c1")
	if msgs[0].Sender != convo.SenderAIAgent {
		t.Fatalf("expected ai_agent, got %s", msgs[0].Sender)
	}
}

func TestNormalize_OutboundWithAISource(t *testing.T) {
	msgs := Normalize([]map[string]any{{
		"direction": "outbound",
		"body":      "Bot says hi",
		"source":    "workflow",
		"userId":    "op-1", // AI marker wins over operator id
	}}, "c1")
	if msgs[0].Sender != convo.SenderAIAgent {
		t.Fatalf("expected ai_agent, got %s", msgs[0].Sender)
	}
}

func TestNormalize_TextAccessorChain(t *testing.T) {
	cases := []struct {
		raw  map[string]any
		want string
	}{
		{map[string]any{"direction": "inbound", "message": "a", "body": "b"}, "a"},
		{map[string]any{"direction": "inbound", "messageText": "mt", "content": "c"}, "mt"},
		{map[string]any{"direction": "inbound", "body": "b", "content": "c"}, "b"},
		{map[string]any{"direction": "inbound", "content": "c"}, "c"},
		{map[string]any{"direction": "inbound", "message": "", "body": "b"}, "b"},
	}
	for i, tc := range cases {
		got := Normalize([]map[string]any{tc.raw}, "c1")[0].Text
		if got != tc.want {
			t.Fatalf("case %d: expected text %q, got %q", i, tc.want, got)
		}
	}
}

func TestNormalize_MissingAllTextFields(t *testing.T) {
	msgs := Normalize([]map[string]any{{
		"direction": "inbound",
	}}, "c1")
	if msgs[0].Text != "" {
		t.Fatalf("expected empty text, got %q", msgs[0].Text)
	}
}

func TestNormalize_DirectionFromTypeCode(t *testing.T) {
	inbound := Normalize([]map[string]any{{
		"type": float64(29), "message": "from customer",
	}}, "c1")[0]
	if inbound.Direction != convo.DirectionInbound || inbound.Sender != convo.SenderContact {
		t.Fatalf("live-chat type should be inbound contact, got %s/%s", inbound.Direction, inbound.Sender)
	}

	outbound := Normalize([]map[string]any{{
		"type": float64(1), "message": "reply",
	}}, "c1")[0]
	if outbound.Direction != convo.DirectionOutbound {
		t.Fatalf("non-live-chat type should be outbound, got %s", outbound.Direction)
	}
}

func TestNormalize_UnresolvableDirectionIsSystem(t *testing.T) {
	msgs := Normalize([]map[string]any{{"foo": "bar"}}, "c1")
	m := msgs[0]
	if m.Sender != convo.SenderSystem {
		t.Fatalf("expected system sender, got %s", m.Sender)
	}
	if m.Text != "" {
		t.Fatalf("expected empty text, got %q", m.Text)
	}
}

func TestNormalize_InfoCategory(t *testing.T) {
	info := Normalize([]map[string]any{{
		"type": float64(25), "message": "customer joined",
	}}, "c1")[0]
	if info.Category != convo.CategoryInfo {
		t.Fatalf("expected info category, got %s", info.Category)
	}

	chat := Normalize([]map[string]any{{
		"direction": "inbound", "message": "hello",
	}}, "c1")[0]
	if chat.Category != convo.CategoryChat {
		t.Fatalf("expected chat category, got %s", chat.Category)
	}
}

func TestNormalize_Timestamp(t *testing.T) {
	stamp := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	fromRFC := Normalize([]map[string]any{{
		"direction": "inbound", "dateAdded": stamp.Format(time.RFC3339),
	}}, "c1")[0]
	if !fromRFC.CreatedAt.Equal(stamp) {
		t.Fatalf("expected %v, got %v", stamp, fromRFC.CreatedAt)
	}

	fromMillis := Normalize([]map[string]any{{
		"direction": "inbound", "timestamp": float64(stamp.UnixMilli()),
	}}, "c1")[0]
	if !fromMillis.CreatedAt.Equal(stamp) {
		t.Fatalf("expected %v, got %v", stamp, fromMillis.CreatedAt)
	}

	before := time.Now()
	fallback := Normalize([]map[string]any{{
		"direction": "inbound", "dateAdded": "not a timestamp",
	}}, "c1")[0]
	if fallback.CreatedAt.Before(before) {
		t.Fatalf("expected normalization-time clock fallback")
	}
}

func TestNormalize_GeneratesMissingID(t *testing.T) {
	msgs := Normalize([]map[string]any{
		{"direction": "inbound", "message": "a"},
		{"direction": "inbound", "message": "b"},
	}, "c1")
	if msgs[0].ID == "" || msgs[1].ID == "" {
		t.Fatalf("expected generated ids")
	}
	if msgs[0].ID == msgs[1].ID {
		t.Fatalf("generated ids must be unique")
	}
}

func TestNormalize_RetainsRawPayload(t *testing.T) {
	msgs := Normalize([]map[string]any{{
		"direction": "inbound", "message": "Hi", "customField": "kept",
	}}, "c1")
	if len(msgs[0].Raw) == 0 {
		t.Fatalf("expected raw payload to be retained")
	}
}
