package convo

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
)

// ErrDegraded marks a result served by the volatile fallback after a backend
// error. The result itself is valid; callers that trace requests should
// record the degradation instead of treating it as a failure.
var ErrDegraded = errors.New("store degraded to volatile fallback")

// ChangeNotifier receives the new updatedAt stamp after every conversation
// mutation. Used to feed the change-stamp cache; failures are the notifier's
// problem, never the store's.
type ChangeNotifier interface {
	Touch(ctx context.Context, conversationID string, at time.Time)
}

// Store is the single state authority for conversations. Reads never fail
// with not-found: GetConversation returns an empty aggregate for unseen ids.
// Status transitions do fail with ErrNotFound, ErrBadTransition or
// ErrConfirmRequired. The durable implementation may return a usable result
// together with ErrDegraded when the backend errored and the volatile
// fallback served the call.
type Store interface {
	UpsertMessages(ctx context.Context, conversationID string, msgs []Message) (*Conversation, error)
	AddSuggestions(ctx context.Context, conversationID string, suggestions []string) (*Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (*Conversation, error)
	// UpdateStatus applies a guarded transition. On delete it returns
	// (nil, nil) once the aggregate is gone.
	UpdateStatus(ctx context.Context, conversationID string, t Transition) (*Conversation, error)
	// ListConversations returns queue summaries, newest first. Empty status
	// means all.
	ListConversations(ctx context.Context, status Status) ([]Summary, error)
	// Stamp returns the conversation's updatedAt, zero when unseen.
	Stamp(ctx context.Context, conversationID string) (time.Time, error)
}

// NewStore selects the backend once at construction: durable (GORM) when a DB
// handle is supplied, otherwise the volatile in-process map. The durable
// store keeps a volatile fallback inside and degrades to it per call on
// backend errors.
func NewStore(db *gorm.DB, notify ChangeNotifier) Store {
	mem := newMemStore(notify)
	if db == nil {
		log.Printf("convo store running volatile-only; state will not survive restarts")
		return mem
	}
	return &dbStore{repo: NewRepo(db), fb: mem, notify: notify}
}

func notifyTouch(ctx context.Context, n ChangeNotifier, id string, at time.Time) {
	if n != nil {
		n.Touch(ctx, id, at)
	}
}

// emptyAggregate is what unseen ids read as. Slices are non-nil so the JSON
// shape stays stable.
func emptyAggregate(conversationID string) *Conversation {
	return &Conversation{
		ID:          conversationID,
		Status:      StatusWaiting,
		Messages:    []Message{},
		Suggestions: []string{},
	}
}
