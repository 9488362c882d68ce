// Package wishlist holds the saved-for-later collection per shopper
// session. It is a collaborator of the cart, not part of the order flow.
package wishlist

import (
	"sync"

	"github.com/kmaina-dev/storefront-core/internal/cart"
	"github.com/kmaina-dev/storefront-core/internal/events"
	"github.com/kmaina-dev/storefront-core/internal/notify"
)

type Store struct {
	mu       sync.Mutex
	items    []cart.Product
	notifier *notify.Bus
}

func NewStore(notifier *notify.Bus) *Store {
	return &Store{notifier: notifier}
}

// Add appends the product unless it is already saved.
func (s *Store) Add(p cart.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.items {
		if it.ID == p.ID {
			return
		}
	}
	s.items = append(s.items, p)
	if s.notifier != nil {
		s.notifier.Publish(notify.ChannelToast, "Added to wishlist")
	}
}

func (s *Store) Remove(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.items {
		if it.ID == productID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			if s.notifier != nil {
				s.notifier.Publish(notify.ChannelToast, "Removed from wishlist")
			}
			return
		}
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

func (s *Store) Items() []cart.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]cart.Product, len(s.items))
	copy(out, s.items)
	return out
}

// Manager mirrors cart.Manager: one store per session, discarded on
// SessionEnded.
type Manager struct {
	mu       sync.Mutex
	stores   map[string]*Store
	notifier *notify.Bus
}

func NewManager(bus *events.Bus, notifier *notify.Bus) *Manager {
	m := &Manager{
		stores:   make(map[string]*Store),
		notifier: notifier,
	}
	if bus != nil {
		bus.Subscribe(events.TopicSessionEnded, func(e events.Event) {
			if ended, ok := e.(events.SessionEnded); ok {
				m.Drop(ended.SessionID)
			}
		})
	}
	return m
}

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

func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, sessionID)
}
