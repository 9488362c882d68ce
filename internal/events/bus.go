// Package events provides the explicit in-process bus for cross-cutting
// events. Subsystems subscribe to documented topics instead of reaching
// into each other's state.
package events

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// TopicSessionEnded is published by the authentication slice when a shopper
// session terminates. Cart and wishlist state for that session must be
// discarded by subscribers.
const TopicSessionEnded = "session.ended"

type Event interface {
	Topic() string
}

// SessionEnded signals that the shopper session is gone.
type SessionEnded struct {
	SessionID string
}

func (SessionEnded) Topic() string { return TopicSessionEnded }

type Handler func(Event)

// Bus dispatches events synchronously, one handler at a time, preserving
// the single-threaded mutation model of the stores that subscribe.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string][]Handler)}
}

func (b *Bus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], h)
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := b.subs[e.Topic()]
	b.mu.RUnlock()

	log.WithField("topic", e.Topic()).Debug("event published")
	for _, h := range handlers {
		h(e)
	}
}
