// Package realtime delivers newly created chat messages to the recipient's
// open SSE streams. Delivery is best-effort: messages are durably stored
// before broadcast, and an offline recipient simply sees them on the next
// fetch.
package realtime

import (
	"log"
	"sync"
)

// Event is one named SSE frame.
type Event struct {
	Name string
	Data any
}

// Subscriber is a single open stream handle. A user with several tabs or
// devices holds several subscribers.
type Subscriber struct {
	userID string
	events chan Event
}

// Events is drained by the HTTP handler that owns the stream.
func (s *Subscriber) Events() <-chan Event {
	return s.events
}

// Hub maps a recipient's user ID to their open stream handles. All methods
// are safe for concurrent use.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscriber]struct{})}
}

// Register adds a new stream handle for userID.
func (h *Hub) Register(userID string) *Subscriber {
	sub := &Subscriber{
		userID: userID,
		events: make(chan Event, 16),
	}

	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subs[userID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Unregister removes the handle and closes its event channel. Safe to call
// more than once; cleanup runs exactly once per handle regardless of whether
// the client disconnect or a broadcast failure got there first.
func (h *Hub) Unregister(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(sub)
}

// drop must be called with h.mu held.
func (h *Hub) drop(sub *Subscriber) {
	set, ok := h.subs[sub.userID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.events)
	if len(set) == 0 {
		delete(h.subs, sub.userID)
	}
}

// Broadcast queues an event on every open handle of userID. A handle that
// cannot accept the event (its buffer is full, the client stopped reading)
// is dropped on its own; the recipient's other handles still get the event.
// Broadcasting to a user with no open handles is a silent no-op.
func (h *Hub) Broadcast(userID, name string, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[userID]
	if !ok {
		return
	}

	for sub := range set {
		select {
		case sub.events <- Event{Name: name, Data: data}:
		default:
			log.Printf("[realtime] dropping stalled stream for user %s", userID)
			h.drop(sub)
		}
	}
}

// Connections reports how many open handles userID currently has.
func (h *Hub) Connections(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}
