package cart

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/kmaina-dev/storefront-core/internal/events"
	"github.com/kmaina-dev/storefront-core/internal/notify"
)

// Manager keeps one Store per shopper session and drops it when the
// session ends.
type Manager struct {
	mu       sync.Mutex
	stores   map[string]*Store
	notifier *notify.Bus
}

// NewManager wires the manager to the event bus so an authentication-slice
// logout clears the session's cart without the auth code touching cart
// state directly.
func NewManager(bus *events.Bus, notifier *notify.Bus) *Manager {
	m := &Manager{
		stores:   make(map[string]*Store),
		notifier: notifier,
	}
	if bus != nil {
		bus.Subscribe(events.TopicSessionEnded, func(e events.Event) {
			ended, ok := e.(events.SessionEnded)
			if !ok {
				return
			}
			m.Drop(ended.SessionID)
			log.WithField("session", ended.SessionID).Info("cart cleared on session end")
		})
	}
	return m
}

// Get returns the session's store, creating it on first use.
func (m *Manager) Get(sessionID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stores[sessionID]
	if !ok {
		s = NewStore(m.notifier)
		m.stores[sessionID] = s
	}
	return s
}

// Drop discards the session's store entirely.
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, sessionID)
}
