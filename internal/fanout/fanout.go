// Package fanout pushes state-change notifications to connected UI sessions.
// Broadcasts are cache hints only: a client that misses one re-derives state
// by re-fetching the conversation store.
package fanout

import (
	"sync"
	"time"
)

// Event is one notification pushed to every subscriber.
type Event struct {
	Type           string    `json:"type"` // message, suggestion, status, typing, typing_stopped
	ConversationID string    `json:"conversation_id,omitempty"`
	Payload        any       `json:"payload,omitempty"`
	At             time.Time `json:"at"`
}

// TypingKey identifies one ephemeral typing indicator.
type TypingKey struct {
	ConversationID string `json:"conversation_id"`
	ActorType      string `json:"actor_type"` // contact | agent
	ActorID        string `json:"actor_id"`
}

const subscriberBuffer = 32

// Hub maintains the set of open subscriber channels and the typing-indicator
// table. A slow or dead subscriber never stalls a broadcast: sends are
// non-blocking and overflowing events are dropped for that subscriber only.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]chan Event
	nextID uint64

	typing    map[TypingKey]time.Time
	typingTTL time.Duration

	stop chan struct{}
	done chan struct{}
}

func NewHub(typingTTL time.Duration) *Hub {
	if typingTTL <= 0 {
		typingTTL = 5 * time.Second
	}
	h := &Hub{
		subs:      make(map[uint64]chan Event),
		typing:    make(map[TypingKey]time.Time),
		typingTTL: typingTTL,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go h.sweepLoop()
	return h
}

// Subscribe registers a new session and returns its event channel plus an
// unsubscribe id.
func (h *Hub) Subscribe() (<-chan Event, uint64) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	h.mu.Unlock()
	return ch, id
}

func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
	h.mu.Unlock()
}

// Broadcast enqueues e on every open subscriber channel. Full channels drop
// the event for that subscriber.
func (h *Hub) Broadcast(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	h.mu.Lock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			// subscriber buffer full; it will re-fetch on reconnect
		}
	}
	h.mu.Unlock()
}

// SubscriberCount reports the number of connected sessions.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// SetTyping records a typing indicator and announces it. The indicator
// expires on its own after the TTL; clients that crash without sending a stop
// are swept automatically.
func (h *Hub) SetTyping(key TypingKey) {
	h.mu.Lock()
	h.typing[key] = time.Now()
	h.mu.Unlock()

	h.Broadcast(Event{Type: "typing", ConversationID: key.ConversationID, Payload: key})
}

// ClearTyping drops an indicator explicitly (client sent a stop).
func (h *Hub) ClearTyping(key TypingKey) {
	h.mu.Lock()
	_, ok := h.typing[key]
	delete(h.typing, key)
	h.mu.Unlock()

	if ok {
		h.Broadcast(Event{Type: "typing_stopped", ConversationID: key.ConversationID, Payload: key})
	}
}

// Typing lists the live indicators for a conversation.
func (h *Hub) Typing(conversationID string) []TypingKey {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]TypingKey, 0)
	for k := range h.typing {
		if k.ConversationID == conversationID {
			out = append(out, k)
		}
	}
	return out
}

func (h *Hub) sweepLoop() {
	defer close(h.done)
	ticker := time.NewTicker(h.typingTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case now := <-ticker.C:
			h.sweepTyping(now)
		}
	}
}

func (h *Hub) sweepTyping(now time.Time) {
	h.mu.Lock()
	expired := make([]TypingKey, 0)
	for k, at := range h.typing {
		if now.Sub(at) > h.typingTTL {
			delete(h.typing, k)
			expired = append(expired, k)
		}
	}
	h.mu.Unlock()

	for _, k := range expired {
		h.Broadcast(Event{Type: "typing_stopped", ConversationID: k.ConversationID, Payload: k})
	}
}

// Close stops the sweeper and closes all subscriber channels.
func (h *Hub) Close() {
	close(h.stop)
	<-h.done

	h.mu.Lock()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.mu.Unlock()
}
