package convo

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memStore is the volatile fallback backend: a mutex-guarded map. All
// read-modify-write sequences run under the write lock, so concurrent
// deliveries for one conversation cannot drop each other's messages.
type memStore struct {
	mu     sync.RWMutex
	convs  map[string]*memConversation
	notify ChangeNotifier
}

type memConversation struct {
	conv  Conversation
	index map[string]int // message id -> position in conv.Messages
}

func newMemStore(notify ChangeNotifier) *memStore {
	return &memStore{
		convs:  make(map[string]*memConversation),
		notify: notify,
	}
}

func (s *memStore) getOrCreateLocked(id string) *memConversation {
	mc, ok := s.convs[id]
	if !ok {
		mc = &memConversation{
			conv: Conversation{
				ID:     id,
				Status: StatusWaiting,
			},
			index: make(map[string]int),
		}
		s.convs[id] = mc
	}
	return mc
}

// snapshot copies the aggregate so callers never alias store-owned slices.
// Slices come back non-nil so empty aggregates serialize as [] rather than
// null.
func (mc *memConversation) snapshot() *Conversation {
	c := mc.conv
	c.Messages = make([]Message, len(mc.conv.Messages))
	copy(c.Messages, mc.conv.Messages)
	c.Suggestions = make([]string, len(mc.conv.Suggestions))
	copy(c.Suggestions, mc.conv.Suggestions)
	return &c
}

func (s *memStore) UpsertMessages(ctx context.Context, conversationID string, msgs []Message) (*Conversation, error) {
	s.mu.Lock()
	mc := s.getOrCreateLocked(conversationID)
	for _, m := range msgs {
		m.ConversationID = conversationID
		if pos, ok := mc.index[m.ID]; ok {
			// redelivery: replace in place, keep original position
			mc.conv.Messages[pos] = m
			continue
		}
		mc.index[m.ID] = len(mc.conv.Messages)
		mc.conv.Messages = append(mc.conv.Messages, m)
	}
	mc.conv.UpdatedAt = time.Now()
	snap := mc.snapshot()
	s.mu.Unlock()

	notifyTouch(ctx, s.notify, conversationID, snap.UpdatedAt)
	return snap, nil
}

func (s *memStore) AddSuggestions(ctx context.Context, conversationID string, suggestions []string) (*Conversation, error) {
	s.mu.Lock()
	mc := s.getOrCreateLocked(conversationID)
	mc.conv.Suggestions = append(mc.conv.Suggestions, suggestions...)
	mc.conv.UpdatedAt = time.Now()
	snap := mc.snapshot()
	s.mu.Unlock()

	notifyTouch(ctx, s.notify, conversationID, snap.UpdatedAt)
	return snap, nil
}

func (s *memStore) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if mc, ok := s.convs[conversationID]; ok {
		return mc.snapshot(), nil
	}
	return emptyAggregate(conversationID), nil
}

func (s *memStore) UpdateStatus(ctx context.Context, conversationID string, t Transition) (*Conversation, error) {
	s.mu.Lock()
	mc, ok := s.convs[conversationID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	deleted, err := applyTransition(&mc.conv, t)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if deleted {
		delete(s.convs, conversationID)
		s.mu.Unlock()
		notifyTouch(ctx, s.notify, conversationID, time.Now())
		return nil, nil
	}
	mc.conv.UpdatedAt = time.Now()
	snap := mc.snapshot()
	s.mu.Unlock()

	notifyTouch(ctx, s.notify, conversationID, snap.UpdatedAt)
	return snap, nil
}

func (s *memStore) ListConversations(ctx context.Context, status Status) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.convs))
	for _, mc := range s.convs {
		if status != "" && mc.conv.Status != status {
			continue
		}
		sum := Summary{
			ID:              mc.conv.ID,
			Status:          mc.conv.Status,
			AssignedAgent:   mc.conv.AssignedAgent,
			MessageCount:    len(mc.conv.Messages),
			SuggestionCount: len(mc.conv.Suggestions),
			UpdatedAt:       mc.conv.UpdatedAt,
		}
		if n := len(mc.conv.Messages); n > 0 {
			sum.LastMessage = mc.conv.Messages[n-1].Text
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *memStore) Stamp(ctx context.Context, conversationID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if mc, ok := s.convs[conversationID]; ok {
		return mc.conv.UpdatedAt, nil
	}
	return time.Time{}, nil
}
