package service

import (
	"sync"

	"fakestore-offline/internal/model"

	log "github.com/sirupsen/logrus"
)

// Publisher delivers messages to UI subscribers.
type Publisher interface {
	Publish(msg model.HubMessage)
}

// EventHub fans hub messages out to every subscriber. A subscriber that
// falls behind loses messages instead of blocking the publisher.
type EventHub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan model.HubMessage
	nextID uint64
	buffer int
}

// NewEventHub creates a hub whose subscriber channels hold buffer messages.
func NewEventHub(buffer int) *EventHub {
	if buffer <= 0 {
		buffer = 16
	}
	return &EventHub{
		subs:   make(map[uint64]chan model.HubMessage),
		buffer: buffer,
	}
}

// Subscribe registers a subscriber. The returned cancel func closes the
// channel; calling it more than once is safe.
func (h *EventHub) Subscribe() (<-chan model.HubMessage, func()) {
	ch := make(chan model.HubMessage, h.buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish sends msg to every subscriber without blocking.
func (h *EventHub) Publish(msg model.HubMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- msg:
		default:
			log.WithFields(log.Fields{"component": "EventHub", "subscriber": id}).
				Warnf("subscriber is full, dropping %s message", msg.Type)
		}
	}
}

// Subscribers returns the number of active subscribers.
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

var _ Publisher = (*EventHub)(nil)

type nopPublisher struct{}

func (nopPublisher) Publish(model.HubMessage) {}
