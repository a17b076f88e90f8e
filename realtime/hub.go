package realtime

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

const defaultSubscriberBuffer = 64

// Hub fans out board events to subscribers of the matching board topic.
// Delivery is at-most-once and best-effort: there is no persistence, no
// replay and no acknowledgment. Within one topic a subscriber observes
// events in publish order; a subscriber that cannot keep up loses events
// rather than blocking the publisher.
type Hub struct {
	buffer int

	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// Subscription is one connection's membership in a board topic.
type Subscription struct {
	boardID string
	ch      chan domain.Event
	hub     *Hub
	once    sync.Once
}

// Events returns the channel delivering this subscription's events. It is
// closed when the subscription is closed.
func (s *Subscription) Events() <-chan domain.Event { return s.ch }

// BoardID returns the topic this subscription belongs to.
func (s *Subscription) BoardID() string { return s.boardID }

// Close leaves the topic and releases the channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.ch)
	})
}

// NewHub creates a hub with the default per-subscriber buffer.
func NewHub() *Hub {
	return &Hub{buffer: defaultSubscriberBuffer, subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe joins the board's topic. A connection may hold any number of
// subscriptions across boards.
func (h *Hub) Subscribe(boardID string) *Subscription {
	sub := &Subscription{boardID: boardID, ch: make(chan domain.Event, h.buffer), hub: h}
	h.mu.Lock()
	set, ok := h.subs[boardID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[boardID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	if set, ok := h.subs[sub.boardID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.boardID)
		}
	}
	h.mu.Unlock()
}

// Publish delivers ev to every current subscriber of its board topic.
func (h *Hub) Publish(ev domain.Event) {
	h.mu.Lock()
	for sub := range h.subs[ev.BoardID] {
		select {
		case sub.ch <- ev:
		default:
			log.WithFields(log.Fields{"board": ev.BoardID, "event": ev.Type}).
				Warn("subscriber buffer full, dropping event")
		}
	}
	h.mu.Unlock()
}

// SubscriberCount reports current topic membership, used by tests and the
// health endpoint.
func (h *Hub) SubscriberCount(boardID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[boardID])
}
