// Package notify fans monitor alerts out to connected subscribers.
package notify

import (
	"log/slog"
	"sync"

	"github.com/movelabs/moveguard/internal/monitor"
)

const subscriberBuffer = 64

// Subscriber is a registered alert consumer. Events carries alerts until
// Done is closed by the hub.
type Subscriber struct {
	Events chan monitor.Alert
	Done   chan struct{}
}

// Hub broadcasts alerts to all subscribers. Slow subscribers have alerts
// dropped rather than stalling the publisher.
type Hub struct {
	log *slog.Logger

	mu          sync.RWMutex
	closed      bool
	subscribers map[*Subscriber]struct{}
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:         log,
		subscribers: make(map[*Subscriber]struct{}),
	}
}

func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		Events: make(chan monitor.Alert, subscriberBuffer),
		Done:   make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.Done)
		return sub
	}
	h.subscribers[sub] = struct{}{}
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub]; !ok {
		return
	}
	delete(h.subscribers, sub)
	close(sub.Done)
}

// Publish delivers the alert to every subscriber without blocking.
func (h *Hub) Publish(alert monitor.Alert) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers {
		select {
		case sub.Events <- alert:
		default:
			h.log.Warn("dropping alert for slow subscriber", "alert", alert.ID, "rule", alert.Rule)
		}
	}
}

// SubscriberCount reports the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close detaches all subscribers. Further subscriptions are returned
// already done.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subscribers {
		delete(h.subscribers, sub)
		close(sub.Done)
	}
}
