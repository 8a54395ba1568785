package convo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// EnsureConversation creates the conversation row if absent and returns it.
// New conversations start in waiting.
func (r *Repo) EnsureConversation(ctx context.Context, conversationID string) (*ConversationRecord, error) {
	var rec ConversationRecord
	err := r.db.WithContext(ctx).
		Where(ConversationRecord{ConversationID: conversationID}).
		Attrs(ConversationRecord{Status: string(StatusWaiting)}).
		FirstOrCreate(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) GetConversation(ctx context.Context, conversationID string) (*ConversationRecord, error) {
	var rec ConversationRecord
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpsertMessage inserts the message or, when (conversation_id, msg_id) already
// exists, updates the content columns in place. The surrogate row id is never
// touched, so the original insertion position is preserved on redelivery.
func (r *Repo) UpsertMessage(ctx context.Context, m *MessageRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_id"}, {Name: "msg_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"text", "sender", "direction", "category", "raw", "sent_at",
		}),
	}).Create(m).Error
}

// ListMessagesAsc returns all messages in insertion order.
func (r *Repo) ListMessagesAsc(ctx context.Context, conversationID string) ([]MessageRecord, error) {
	var msgs []MessageRecord
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *Repo) AddSuggestion(ctx context.Context, s *SuggestionRecord) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repo) ListSuggestionsAsc(ctx context.Context, conversationID string) ([]SuggestionRecord, error) {
	var rows []SuggestionRecord
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repo) SaveConversation(ctx context.Context, rec *ConversationRecord) error {
	return r.db.WithContext(ctx).Model(&ConversationRecord{}).
		Where("conversation_id = ?", rec.ConversationID).
		Updates(map[string]any{
			"status":         rec.Status,
			"assigned_agent": rec.AssignedAgent,
			"reject_reason":  rec.RejectReason,
			"updated_at":     time.Now(),
		}).Error
}

// TouchConversation bumps updated_at after a message or suggestion mutation.
func (r *Repo) TouchConversation(ctx context.Context, conversationID string) error {
	return r.db.WithContext(ctx).Model(&ConversationRecord{}).
		Where("conversation_id = ?", conversationID).
		Update("updated_at", time.Now()).Error
}

// DeleteConversation removes the aggregate and its child rows.
func (r *Repo) DeleteConversation(ctx context.Context, conversationID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&MessageRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&SuggestionRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("conversation_id = ?", conversationID).Delete(&ConversationRecord{}).Error
	})
}

// ListConversations returns conversation rows, optionally filtered by status,
// most recently updated first.
func (r *Repo) ListConversations(ctx context.Context, status string) ([]ConversationRecord, error) {
	q := r.db.WithContext(ctx).Order("updated_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rows []ConversationRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountMessages and CountSuggestions back the queue summaries.
func (r *Repo) CountMessages(ctx context.Context, conversationID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&MessageRecord{}).
		Where("conversation_id = ?", conversationID).Count(&n).Error
	return n, err
}

func (r *Repo) CountSuggestions(ctx context.Context, conversationID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&SuggestionRecord{}).
		Where("conversation_id = ?", conversationID).Count(&n).Error
	return n, err
}

// LastMessageText returns the text of the newest message, or "" when none.
func (r *Repo) LastMessageText(ctx context.Context, conversationID string) (string, error) {
	var m MessageRecord
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id DESC").
		First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return m.Text, nil
}
