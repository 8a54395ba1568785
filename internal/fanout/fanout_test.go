package fanout

import (
	"testing"
	"time"
)

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	h := NewHub(time.Second)
	defer h.Close()

	ch1, id1 := h.Subscribe()
	ch2, id2 := h.Subscribe()
	defer h.Unsubscribe(id1)
	defer h.Unsubscribe(id2)

	h.Broadcast(Event{Type: "message", ConversationID: "c1"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != "message" || ev.ConversationID != "c1" {
				t.Fatalf("subscriber %d got unexpected event: %+v", i, ev)
			}
			if ev.At.IsZero() {
				t.Fatalf("broadcast must stamp events")
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the event", i)
		}
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(time.Second)
	defer h.Close()

	_, slowID := h.Subscribe() // never drained
	defer h.Unsubscribe(slowID)
	fast, fastID := h.Subscribe()
	defer h.Unsubscribe(fastID)

	done := make(chan struct{})
	go func() {
		// overflow the slow subscriber's buffer by a wide margin
		for i := 0; i < subscriberBuffer*4; i++ {
			h.Broadcast(Event{Type: "message"})
			// keep the fast subscriber drained
			for len(fast) > 0 {
				<-fast
			}
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("broadcast blocked on a slow subscriber")
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := NewHub(time.Second)
	defer h.Close()

	ch, id := h.Subscribe()
	h.Unsubscribe(id)

	if _, open := <-ch; open {
		t.Fatalf("expected channel closed after unsubscribe")
	}
	if h.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", h.SubscriberCount())
	}
}

func TestHub_TypingSweepExpires(t *testing.T) {
	ttl := 50 * time.Millisecond
	h := NewHub(ttl)
	defer h.Close()

	ch, id := h.Subscribe()
	defer h.Unsubscribe(id)

	key := TypingKey{ConversationID: "c1", ActorType: "contact", ActorID: "v1"}
	h.SetTyping(key)

	if got := h.Typing("c1"); len(got) != 1 {
		t.Fatalf("expected 1 live indicator, got %d", len(got))
	}

	// first event is the typing announcement
	select {
	case ev := <-ch:
		if ev.Type != "typing" {
			t.Fatalf("expected typing event, got %s", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("typing event never arrived")
	}

	// the sweep must expire it and imply a stop, no explicit clear sent
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type == "typing_stopped" {
				if len(h.Typing("c1")) != 0 {
					t.Fatalf("indicator survived its own stop event")
				}
				return
			}
		case <-deadline:
			t.Fatalf("sweep never expired the indicator")
		}
	}
}

func TestHub_ClearTypingIsExplicitStop(t *testing.T) {
	h := NewHub(time.Minute) // sweep will not fire during the test
	defer h.Close()

	key := TypingKey{ConversationID: "c1", ActorType: "agent", ActorID: "a1"}
	h.SetTyping(key)
	h.ClearTyping(key)

	if got := h.Typing("c1"); len(got) != 0 {
		t.Fatalf("expected no indicators after clear, got %d", len(got))
	}

	// clearing an absent key must not announce anything
	ch, id := h.Subscribe()
	defer h.Unsubscribe(id)
	h.ClearTyping(key)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event for redundant clear: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
