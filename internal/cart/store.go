package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/kmaina-dev/storefront-core/internal/notify"
)

// Store is the single authoritative cart for one shopper session. Mutations
// are serialized; readers only ever see full snapshots.
type Store struct {
	mu            sync.Mutex
	items         []Item
	totalQuantity int
	totalAmount   decimal.Decimal

	notifier *notify.Bus
}

func NewStore(notifier *notify.Bus) *Store {
	return &Store{notifier: notifier}
}

// AddItem inserts a new line with quantity 1, or bumps the existing line.
func (s *Store) AddItem(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalQuantity++
	s.totalAmount = s.totalAmount.Add(p.UnitPrice)

	if i := s.index(p.ID); i >= 0 {
		s.items[i].Quantity++
		s.items[i].LineTotal = s.items[i].LineTotal.Add(s.items[i].UnitPrice)
	} else {
		s.items = append(s.items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.UnitPrice,
			Quantity:  1,
			LineTotal: p.UnitPrice,
		})
	}

	if s.notifier != nil {
		s.notifier.Publish(notify.ChannelNotice, "Added to your cart")
	}
}

// RemoveOneUnit decrements the line by one unit; the last unit removes the
// line entirely. Unknown product IDs are a no-op.
func (s *Store) RemoveOneUnit(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(productID)
	if i < 0 {
		return
	}

	s.totalQuantity--
	s.totalAmount = s.totalAmount.Sub(s.items[i].UnitPrice)

	if s.items[i].Quantity == 1 {
		s.items = append(s.items[:i], s.items[i+1:]...)
		return
	}
	s.items[i].Quantity--
	s.items[i].LineTotal = s.items[i].LineTotal.Sub(s.items[i].UnitPrice)
}

// DeleteItem removes the whole line regardless of quantity. Unknown product
// IDs are a no-op.
func (s *Store) DeleteItem(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(productID)
	if i < 0 {
		return
	}

	s.totalQuantity -= s.items[i].Quantity
	s.totalAmount = s.totalAmount.Sub(s.items[i].LineTotal)
	s.items = append(s.items[:i], s.items[i+1:]...)
}

// Clear empties the cart and zeroes the aggregates.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.totalQuantity = 0
	s.totalAmount = decimal.Zero
}

// Snapshot returns a deep copy; callers can never mutate store state
// through it.
func (s *Store) Snapshot() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]Item, len(s.items))
	copy(items, s.items)
	return Cart{
		Items:         items,
		TotalQuantity: s.totalQuantity,
		TotalAmount:   s.totalAmount,
	}
}

// index must be called with the lock held.
func (s *Store) index(productID string) int {
	for i := range s.items {
		if s.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}
