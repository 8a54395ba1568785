package convo

import "time"

// Durable-backend rows. Every message row carries the untouched provider
// payload next to the extracted fields.

type ConversationRecord struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ConversationID string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"conversation_id"`
	Status         string    `gorm:"type:varchar(16);index;not null" json:"status"`
	AssignedAgent  string    `gorm:"type:varchar(64)" json:"assigned_agent"`
	RejectReason   string    `gorm:"type:varchar(255)" json:"reject_reason"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (ConversationRecord) TableName() string { return "conversations" }

type MessageRecord struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ConversationID string    `gorm:"type:varchar(64);not null;index:uniq_conv_msg,unique,priority:1" json:"conversation_id"`
	MsgID          string    `gorm:"type:varchar(64);not null;index:uniq_conv_msg,unique,priority:2" json:"msg_id"`
	Text           string    `gorm:"type:text" json:"text"`
	Sender         string    `gorm:"type:varchar(16);not null" json:"sender"`
	Direction      string    `gorm:"type:varchar(16);not null" json:"direction"`
	Category       string    `gorm:"type:varchar(16);not null" json:"category"`
	Raw            string    `gorm:"type:text" json:"-"`
	SentAt         time.Time `json:"sent_at"`
	CreatedAt      time.Time `json:"created_at"`
}

func (MessageRecord) TableName() string { return "conversation_messages" }

type SuggestionRecord struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ConversationID string    `gorm:"type:varchar(64);not null;index" json:"conversation_id"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}

func (SuggestionRecord) TableName() string { return "conversation_suggestions" }
