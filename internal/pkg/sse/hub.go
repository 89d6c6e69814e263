package sse

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event is one server-sent event
type Event struct {
	ID   uint64
	Name string
	Data any
	At   time.Time
}

// Hub fans payroll events out to connected streams
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	closed      bool
	seq         atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a stream for userID and returns its channel and cleanup
// function. The channel is closed by cleanup or by Close.
func (h *Hub) Subscribe(userID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 16)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[chan Event]struct{})
	}
	h.subscribers[userID][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subscribers[userID][ch]; !ok {
				return // already closed by Close
			}
			delete(h.subscribers[userID], ch)
			close(ch)
			if len(h.subscribers[userID]) == 0 {
				delete(h.subscribers, userID)
			}
		})
	}

	return ch, cleanup
}

// Close ends every open stream and refuses new ones. Streams waiting on their
// channel see it closed and return.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for userID, subs := range h.subscribers {
		for ch := range subs {
			close(ch)
		}
		delete(h.subscribers, userID)
	}
}

// Broadcast sends an event to every connected stream
func (h *Hub) Broadcast(name string, data any) {
	event := h.stamp(name, data)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, subs := range h.subscribers {
		for ch := range subs {
			send(ch, event)
		}
	}
}

func (h *Hub) stamp(name string, data any) Event {
	return Event{ID: h.seq.Add(1), Name: name, Data: data, At: time.Now().UTC()}
}

// send never blocks; a full buffer drops the event for that stream
func send(ch chan Event, event Event) {
	select {
	case ch <- event:
	default:
	}
}
