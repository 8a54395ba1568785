package convo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
)

// dbStore is the durable backend. Backend errors never propagate as failures:
// the affected call degrades to the in-process fallback store, the error is
// logged, and the result comes back tagged with ErrDegraded so request traces
// can record what happened. Domain errors (not found, bad transition) do
// propagate as-is.
type dbStore struct {
	repo   *Repo
	fb     *memStore
	notify ChangeNotifier
}

// degraded wraps a backend error so callers can both detect the degradation
// with errors.Is and read the original cause.
func degraded(cause error) error {
	return fmt.Errorf("%w: %v", ErrDegraded, cause)
}

func (s *dbStore) UpsertMessages(ctx context.Context, conversationID string, msgs []Message) (*Conversation, error) {
	if _, err := s.repo.EnsureConversation(ctx, conversationID); err != nil {
		return s.degradeUpsert(ctx, conversationID, msgs, err)
	}
	for _, m := range msgs {
		rec := toMessageRecord(conversationID, m)
		if err := s.repo.UpsertMessage(ctx, &rec); err != nil {
			return s.degradeUpsert(ctx, conversationID, msgs, err)
		}
	}
	if err := s.repo.TouchConversation(ctx, conversationID); err != nil {
		return s.degradeUpsert(ctx, conversationID, msgs, err)
	}
	conv, err := s.loadAggregate(ctx, conversationID)
	if err != nil {
		return s.degradeUpsert(ctx, conversationID, msgs, err)
	}
	notifyTouch(ctx, s.notify, conversationID, conv.UpdatedAt)
	return conv, nil
}

func (s *dbStore) degradeUpsert(ctx context.Context, conversationID string, msgs []Message, cause error) (*Conversation, error) {
	log.Printf("convo store degraded op=upsert conversation=%s err=%v", conversationID, cause)
	conv, err := s.fb.UpsertMessages(ctx, conversationID, msgs)
	if err != nil {
		return nil, err
	}
	return conv, degraded(cause)
}

func (s *dbStore) AddSuggestions(ctx context.Context, conversationID string, suggestions []string) (*Conversation, error) {
	if _, err := s.repo.EnsureConversation(ctx, conversationID); err != nil {
		return s.degradeSuggest(ctx, conversationID, suggestions, err)
	}
	for _, text := range suggestions {
		rec := SuggestionRecord{ConversationID: conversationID, Text: text}
		if err := s.repo.AddSuggestion(ctx, &rec); err != nil {
			return s.degradeSuggest(ctx, conversationID, suggestions, err)
		}
	}
	if err := s.repo.TouchConversation(ctx, conversationID); err != nil {
		return s.degradeSuggest(ctx, conversationID, suggestions, err)
	}
	conv, err := s.loadAggregate(ctx, conversationID)
	if err != nil {
		return s.degradeSuggest(ctx, conversationID, suggestions, err)
	}
	notifyTouch(ctx, s.notify, conversationID, conv.UpdatedAt)
	return conv, nil
}

func (s *dbStore) degradeSuggest(ctx context.Context, conversationID string, suggestions []string, cause error) (*Conversation, error) {
	log.Printf("convo store degraded op=suggest conversation=%s err=%v", conversationID, cause)
	conv, err := s.fb.AddSuggestions(ctx, conversationID, suggestions)
	if err != nil {
		return nil, err
	}
	return conv, degraded(cause)
}

func (s *dbStore) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	conv, err := s.loadAggregate(ctx, conversationID)
	if err == nil {
		return conv, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// unseen ids read as an empty aggregate, never not-found
		return emptyAggregate(conversationID), nil
	}
	log.Printf("convo store degraded op=get conversation=%s err=%v", conversationID, err)
	conv, ferr := s.fb.GetConversation(ctx, conversationID)
	if ferr != nil {
		return nil, ferr
	}
	return conv, degraded(err)
}

func (s *dbStore) UpdateStatus(ctx context.Context, conversationID string, t Transition) (*Conversation, error) {
	rec, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// the fallback may own this conversation after a degraded write;
			// routing there is normal, not a degradation
			if conv, ferr := s.fb.UpdateStatus(ctx, conversationID, t); ferr == nil || !errors.Is(ferr, ErrNotFound) {
				return conv, ferr
			}
			return nil, ErrNotFound
		}
		return s.degradeStatus(ctx, conversationID, t, err)
	}

	conv := Conversation{
		ID:            rec.ConversationID,
		Status:        Status(rec.Status),
		AssignedAgent: rec.AssignedAgent,
		RejectReason:  rec.RejectReason,
	}
	deleted, err := applyTransition(&conv, t)
	if err != nil {
		return nil, err
	}
	if deleted {
		if err := s.repo.DeleteConversation(ctx, conversationID); err != nil {
			return s.degradeStatus(ctx, conversationID, t, err)
		}
		notifyTouch(ctx, s.notify, conversationID, time.Now())
		return nil, nil
	}

	rec.Status = string(conv.Status)
	rec.AssignedAgent = conv.AssignedAgent
	rec.RejectReason = conv.RejectReason
	if err := s.repo.SaveConversation(ctx, rec); err != nil {
		return s.degradeStatus(ctx, conversationID, t, err)
	}

	out, err := s.loadAggregate(ctx, conversationID)
	if err != nil {
		log.Printf("convo store degraded op=status conversation=%s err=%v", conversationID, err)
		out, ferr := s.fb.GetConversation(ctx, conversationID)
		if ferr != nil {
			return nil, ferr
		}
		return out, degraded(err)
	}
	notifyTouch(ctx, s.notify, conversationID, out.UpdatedAt)
	return out, nil
}

func (s *dbStore) degradeStatus(ctx context.Context, conversationID string, t Transition, cause error) (*Conversation, error) {
	log.Printf("convo store degraded op=status conversation=%s err=%v", conversationID, cause)
	conv, err := s.fb.UpdateStatus(ctx, conversationID, t)
	if err != nil {
		return nil, err
	}
	return conv, degraded(cause)
}

func (s *dbStore) ListConversations(ctx context.Context, status Status) ([]Summary, error) {
	rows, err := s.repo.ListConversations(ctx, string(status))
	if err != nil {
		log.Printf("convo store degraded op=list err=%v", err)
		sums, ferr := s.fb.ListConversations(ctx, status)
		if ferr != nil {
			return nil, ferr
		}
		return sums, degraded(err)
	}
	out := make([]Summary, 0, len(rows))
	for _, rec := range rows {
		sum := Summary{
			ID:            rec.ConversationID,
			Status:        Status(rec.Status),
			AssignedAgent: rec.AssignedAgent,
			UpdatedAt:     rec.UpdatedAt,
		}
		if n, err := s.repo.CountMessages(ctx, rec.ConversationID); err == nil {
			sum.MessageCount = int(n)
		}
		if n, err := s.repo.CountSuggestions(ctx, rec.ConversationID); err == nil {
			sum.SuggestionCount = int(n)
		}
		if text, err := s.repo.LastMessageText(ctx, rec.ConversationID); err == nil {
			sum.LastMessage = text
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *dbStore) Stamp(ctx context.Context, conversationID string) (time.Time, error) {
	rec, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, nil
		}
		log.Printf("convo store degraded op=stamp conversation=%s err=%v", conversationID, err)
		at, ferr := s.fb.Stamp(ctx, conversationID)
		if ferr != nil {
			return time.Time{}, ferr
		}
		return at, degraded(err)
	}
	return rec.UpdatedAt, nil
}

func (s *dbStore) loadAggregate(ctx context.Context, conversationID string) (*Conversation, error) {
	rec, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	msgRows, err := s.repo.ListMessagesAsc(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	sugRows, err := s.repo.ListSuggestionsAsc(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	conv := &Conversation{
		ID:            rec.ConversationID,
		Status:        Status(rec.Status),
		AssignedAgent: rec.AssignedAgent,
		RejectReason:  rec.RejectReason,
		UpdatedAt:     rec.UpdatedAt,
		Messages:      make([]Message, 0, len(msgRows)),
		Suggestions:   make([]string, 0, len(sugRows)),
	}
	for _, m := range msgRows {
		conv.Messages = append(conv.Messages, fromMessageRecord(m))
	}
	for _, sg := range sugRows {
		conv.Suggestions = append(conv.Suggestions, sg.Text)
	}
	return conv, nil
}

func toMessageRecord(conversationID string, m Message) MessageRecord {
	return MessageRecord{
		ConversationID: conversationID,
		MsgID:          m.ID,
		Text:           m.Text,
		Sender:         string(m.Sender),
		Direction:      string(m.Direction),
		Category:       string(m.Category),
		Raw:            string(m.Raw),
		SentAt:         m.CreatedAt,
	}
}

func fromMessageRecord(rec MessageRecord) Message {
	return Message{
		ID:             rec.MsgID,
		ConversationID: rec.ConversationID,
		Text:           rec.Text,
		Sender:         Sender(rec.Sender),
		Direction:      Direction(rec.Direction),
		Category:       Category(rec.Category),
		CreatedAt:      rec.SentAt,
		Raw:            json.RawMessage(rec.Raw),
	}
}
