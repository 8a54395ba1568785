// Package trace keeps a bounded, purely diagnostic record of ingestion flows.
// It is never consulted for correctness decisions.
package trace

import (
	"strings"
	"sync"
	"time"
)

// Event is one diagnostic entry, tagged with the trace id threaded through a
// single ingestion flow.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Route     string         `json:"route"`
	TraceID   string         `json:"trace_id"`
	Note      string         `json:"note"`
	Data      map[string]any `json:"data,omitempty"`
}

// Ring is a fixed-capacity circular buffer of Events. Push beyond capacity
// overwrites the oldest entry.
type Ring struct {
	mu           sync.Mutex
	buf          []Event
	next         int // slot the next push writes to
	full         bool
	sessionStart *time.Time
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 200
	}
	return &Ring{buf: make([]Event, capacity)}
}

// Push records e, stamping it if unstamped. O(1).
func (r *Ring) Push(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	r.mu.Lock()
	r.buf[r.next] = e
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
	r.mu.Unlock()
}

// ReadAll returns surviving events in chronological order, without holes.
func (r *Ring) ReadAll() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		return append([]Event(nil), r.buf[:r.next]...)
	}
	out := make([]Event, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}

func (r *Ring) Clear() {
	r.mu.Lock()
	r.buf = make([]Event, len(r.buf))
	r.next = 0
	r.full = false
	r.mu.Unlock()
}

// expectedFlow lists the note substrings a healthy ingestion pass emits, in
// order. The session report names the ones that never showed up.
var expectedFlow = []string{
	"received",
	"parsed",
	"normalized",
	"stored",
	"broadcast",
	"ack",
}

// StartSession marks the beginning of a diagnostic window.
func (r *Ring) StartSession() {
	now := time.Now()
	r.mu.Lock()
	r.sessionStart = &now
	r.mu.Unlock()
}

// SessionReport holds the outcome of a diagnostic window.
type SessionReport struct {
	StartedAt    time.Time `json:"started_at"`
	StoppedAt    time.Time `json:"stopped_at"`
	EventCount   int       `json:"event_count"`
	MissingSteps []string  `json:"missing_steps"`
}

// StopSession ends the window and reports which expected flow steps were
// never observed in notes recorded since StartSession. Returns false when no
// session was running.
func (r *Ring) StopSession() (SessionReport, bool) {
	r.mu.Lock()
	start := r.sessionStart
	r.sessionStart = nil
	r.mu.Unlock()
	if start == nil {
		return SessionReport{}, false
	}

	report := SessionReport{StartedAt: *start, StoppedAt: time.Now()}
	seen := make(map[string]bool, len(expectedFlow))
	for _, e := range r.ReadAll() {
		if e.Timestamp.Before(*start) {
			continue
		}
		report.EventCount++
		for _, step := range expectedFlow {
			if strings.Contains(e.Note, step) {
				seen[step] = true
			}
		}
	}
	report.MissingSteps = make([]string, 0)
	for _, step := range expectedFlow {
		if !seen[step] {
			report.MissingSteps = append(report.MissingSteps, step)
		}
	}
	return report, true
}
