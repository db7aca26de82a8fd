package live

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/icancar/fleet-management-sub000/internal/logger"
)

const DefaultSubscriberBuffer = 32

// Bus routes events to the subscribers of a user channel.
type Bus interface {
	Publish(ctx context.Context, userID uuid.UUID, ev Event) error
	Subscribe(userID uuid.UUID) *Subscription
	Unsubscribe(sub *Subscription)
}

// Subscription is one open live connection watching a user channel.
type Subscription struct {
	ID     uuid.UUID
	UserID uuid.UUID

	events  chan Event
	dropped atomic.Int64
	once    sync.Once
}

// Events is closed when the subscription is removed from the hub.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Dropped is the number of events discarded because the buffer was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.events) })
}

// Hub is the in-process Bus. A user channel may have any number of
// subscribers; events for a channel without subscribers are dropped.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[*Subscription]struct{}
	buffer int
	closed bool
}

var _ Bus = (*Hub)(nil)

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{
		subs:   make(map[uuid.UUID]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

func (h *Hub) Subscribe(userID uuid.UUID) *Subscription {
	sub := &Subscription{
		ID:     uuid.New(),
		UserID: userID,
		events: make(chan Event, h.buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.close()
		return sub
	}
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}

	logger.Debug("Live subscriber added",
		zap.String("user_id", userID.String()),
		zap.String("subscription_id", sub.ID.String()),
		zap.Int("subscribers", len(h.subs[userID])),
	)
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[sub.UserID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.UserID)
		}
	}
	sub.close()
}

// Publish never blocks and never fails.
func (h *Hub) Publish(_ context.Context, userID uuid.UUID, ev Event) error {
	h.Deliver(userID, ev)
	return nil
}

// Deliver hands ev to every subscriber of userID and returns how many took it.
func (h *Hub) Deliver(userID uuid.UUID, ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subs[userID] {
		select {
		case sub.events <- ev:
			delivered++
		default:
			sub.dropped.Add(1)
			logger.Warn("Live subscriber buffer full, dropping event",
				zap.String("user_id", userID.String()),
				zap.String("subscription_id", sub.ID.String()),
				zap.String("type", string(ev.Type)),
			)
		}
	}
	return delivered
}

func (h *Hub) SubscriberCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Close ends every subscription. Later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, set := range h.subs {
		for sub := range set {
			sub.close()
		}
		delete(h.subs, userID)
	}
	h.closed = true
}
