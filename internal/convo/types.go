package convo

import (
	"encoding/json"
	"time"
)

type Sender string

const (
	SenderContact    Sender = "contact"
	SenderHumanAgent Sender = "human_agent"
	SenderAIAgent    Sender = "ai_agent"
	SenderSystem     Sender = "system"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Category string

const (
	CategoryChat  Category = "chat"
	CategoryInfo  Category = "info"
	CategoryOther Category = "other"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusAssigned Status = "assigned"
	StatusRejected Status = "rejected"
)

// Message is the canonical message record every provider shape is normalized
// into. Raw keeps the original payload untouched so normalization can be
// revised later without data loss.
type Message struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	Text           string          `json:"text"`
	Sender         Sender          `json:"sender"`
	Direction      Direction       `json:"direction"`
	Category       Category        `json:"category"`
	CreatedAt      time.Time       `json:"created_at"`
	Raw            json.RawMessage `json:"-"`
}

// Conversation is the aggregate root owned by the store.
type Conversation struct {
	ID            string    `json:"id"`
	Messages      []Message `json:"messages"`
	Suggestions   []string  `json:"suggestions"`
	Status        Status    `json:"status"`
	AssignedAgent string    `json:"assigned_agent,omitempty"`
	RejectReason  string    `json:"reject_reason,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Summary is the queue-display projection of a conversation.
type Summary struct {
	ID              string    `json:"id"`
	Status          Status    `json:"status"`
	AssignedAgent   string    `json:"assigned_agent,omitempty"`
	MessageCount    int       `json:"message_count"`
	SuggestionCount int       `json:"suggestion_count"`
	LastMessage     string    `json:"last_message"`
	UpdatedAt       time.Time `json:"updated_at"`
}
