package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wardwatch/platform/pkg/common/logger"
	"github.com/wardwatch/platform/pkg/common/models"
)

// Broadcaster fans a lifecycle or detection event out to observers. Delivery
// is best-effort and fire-and-forget relative to the caller: a failure is
// reported, never retried, and never rolls back persisted state.
type Broadcaster interface {
	Broadcast(ctx context.Context, event models.Event) error
}

type subscriber struct {
	ch        chan models.Event
	locations map[string]struct{}
}

// matches reports whether the subscriber should receive the event. Global
// events (no location) reach every observer regardless of location filters;
// location-scoped events reach subscribers with that location or with no
// filter at all.
func (s *subscriber) matches(event models.Event) bool {
	if event.Location == "" || len(s.locations) == 0 {
		return true
	}
	_, ok := s.locations[event.Location]
	return ok
}

// Hub is the in-process observer registry. Delivery to each subscriber is
// non-blocking: a subscriber that stops draining its channel loses events
// rather than stalling the caller.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int64]*subscriber
	nextID int64
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subs:   make(map[int64]*subscriber),
		buffer: buffer,
	}
}

// Subscription is one observer's view of the hub. Close must be called when
// the observer disconnects.
type Subscription struct {
	C <-chan models.Event

	id  int64
	hub *Hub
}

// Subscribe registers an observer. With no locations the observer receives
// every event; with locations it receives global events plus events scoped to
// one of its locations.
func (h *Hub) Subscribe(locations ...string) *Subscription {
	sub := &subscriber{
		ch:        make(chan models.Event, h.buffer),
		locations: make(map[string]struct{}, len(locations)),
	}
	for _, location := range locations {
		if location != "" {
			sub.locations[location] = struct{}{}
		}
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = sub
	h.mu.Unlock()

	return &Subscription{C: sub.ch, id: id, hub: h}
}

func (s *Subscription) Close() {
	s.hub.mu.Lock()
	sub, ok := s.hub.subs[s.id]
	if ok {
		delete(s.hub.subs, s.id)
		close(sub.ch)
	}
	s.hub.mu.Unlock()
}

// SubscriberCount reports the number of connected observers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast delivers the event to every matching observer. It completes or
// returns the context error; it never blocks on a slow observer.
func (h *Hub) Broadcast(ctx context.Context, event models.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			logger.Log.WithFields(map[string]interface{}{
				"event_type": event.Type,
				"event_id":   event.ID,
			}).Warn("subscriber buffer full, event dropped")
		}
	}
	return nil
}
