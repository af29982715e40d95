// Package cart owns the shopping cart: the single in-memory source of truth
// for line items, mirrored to a kv.Store on every change.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/restoran/internal/kv"
	"github.com/xenking/restoran/internal/notify"
)

// LineItem is one distinct menu item in the cart. Price is the price seen
// when the item was first added and is not authoritative.
type LineItem struct {
	ID       string
	Name     string
	Image    string
	Price    decimal.Decimal
	Quantity int
}

// Subtotal returns Price × Quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Product is the add-to-cart input.
type Product struct {
	ID    string
	Name  string
	Image string
	Price decimal.Decimal
}

// Manager holds the cart. All mutations go through update, which applies
// the change to the latest state and persists the result before releasing
// the lock, so concurrent calls never work on a stale copy and store writes
// land in commit order.
type Manager struct {
	store    kv.Store
	notifier notify.Notifier
	lg       *zap.Logger

	mu    sync.Mutex
	items []LineItem
}

// NewManager creates a Manager and rehydrates it from store. This is the
// only read of the persisted cart during the manager's lifetime. A corrupt
// record is discarded and the cart starts empty.
func NewManager(ctx context.Context, store kv.Store, notifier notify.Notifier, lg *zap.Logger) *Manager {
	m := &Manager{
		store:    store,
		notifier: notifier,
		lg:       lg,
	}
	m.items = m.load(ctx)
	return m
}

func (m *Manager) load(ctx context.Context) []LineItem {
	data, err := m.store.Get(ctx, kv.KeyCart)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			m.lg.Warn("Failed to read cart", zap.Error(err))
		}
		return nil
	}

	items, err := decodeItems(data)
	if err != nil {
		m.lg.Warn("Discarding malformed cart record", zap.Error(err))
		if err := m.store.Remove(ctx, kv.KeyCart); err != nil {
			m.lg.Warn("Failed to remove malformed cart record", zap.Error(err))
		}
		return nil
	}
	return items
}

// update applies fn to the current items. fn reports whether it changed
// anything; unchanged carts are not rewritten.
func (m *Manager) update(ctx context.Context, fn func(items []LineItem) ([]LineItem, bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, changed := fn(m.items)
	if !changed {
		return
	}
	m.items = next

	if err := m.store.Set(ctx, kv.KeyCart, encodeItems(next)); err != nil {
		// In-memory state stays authoritative for this process.
		m.lg.Error("Failed to persist cart", zap.Error(err))
	}
}

// AddItem adds one unit of p. An existing line with the same id gets its
// quantity incremented and keeps its original name, image and price.
func (m *Manager) AddItem(ctx context.Context, p Product) {
	m.update(ctx, func(items []LineItem) ([]LineItem, bool) {
		next := make([]LineItem, len(items), len(items)+1)
		copy(next, items)

		if i := indexOf(next, p.ID); i >= 0 {
			next[i].Quantity++
		} else {
			next = append(next, LineItem{
				ID:       p.ID,
				Name:     p.Name,
				Image:    p.Image,
				Price:    p.Price,
				Quantity: 1,
			})
		}
		return next, true
	})
	m.notifier.Notify(notify.Success, fmt.Sprintf("%s added to cart", p.Name))
}

// RemoveItem deletes the line with the given id, if any.
func (m *Manager) RemoveItem(ctx context.Context, id string) {
	var removed *LineItem
	m.update(ctx, func(items []LineItem) ([]LineItem, bool) {
		i := indexOf(items, id)
		if i < 0 {
			return items, false
		}
		li := items[i]
		removed = &li

		next := make([]LineItem, 0, len(items)-1)
		next = append(next, items[:i]...)
		next = append(next, items[i+1:]...)
		return next, true
	})
	if removed != nil {
		m.notifier.Notify(notify.Info, fmt.Sprintf("%s removed from cart", removed.Name))
	}
}

// UpdateQuantity sets the quantity of the line with the given id. A
// quantity below 1 removes the line. Unknown ids are ignored.
func (m *Manager) UpdateQuantity(ctx context.Context, id string, quantity int) {
	if quantity < 1 {
		m.RemoveItem(ctx, id)
		return
	}
	m.update(ctx, func(items []LineItem) ([]LineItem, bool) {
		i := indexOf(items, id)
		if i < 0 || items[i].Quantity == quantity {
			return items, false
		}
		next := make([]LineItem, len(items))
		copy(next, items)
		next[i].Quantity = quantity
		return next, true
	})
}

// ClearCart removes every line.
func (m *Manager) ClearCart(ctx context.Context) {
	m.update(ctx, func([]LineItem) ([]LineItem, bool) {
		return []LineItem{}, true
	})
	m.notifier.Notify(notify.Info, "Cart cleared")
}

// Deduct removes the given lines, typically a snapshot that was just
// ordered. Each matching line loses the snapshot quantity and is dropped
// at zero, so units added after the snapshot stay in the cart.
func (m *Manager) Deduct(ctx context.Context, lines []LineItem) {
	m.update(ctx, func(items []LineItem) ([]LineItem, bool) {
		changed := false
		next := make([]LineItem, 0, len(items))
		for _, li := range items {
			for _, done := range lines {
				if done.ID == li.ID {
					li.Quantity -= done.Quantity
					changed = true
				}
			}
			if li.Quantity > 0 {
				next = append(next, li)
			}
		}
		return next, changed
	})
}

// Items returns a copy of the lines in insertion order.
func (m *Manager) Items() []LineItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]LineItem, len(m.items))
	copy(out, m.items)
	return out
}

// Find returns the line with the given id.
func (m *Manager) Find(id string) (LineItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := indexOf(m.items, id); i >= 0 {
		return m.items[i], true
	}
	return LineItem{}, false
}

// Count returns the total number of units in the cart.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, li := range m.items {
		n += li.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (m *Manager) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items) == 0
}

// TotalPrice returns Σ(price × quantity) using the cached line prices.
func (m *Manager) TotalPrice() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Total(m.items)
}

// Total returns Σ(price × quantity) over items.
func Total(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, li := range items {
		sum = sum.Add(li.Subtotal())
	}
	return sum
}

func indexOf(items []LineItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
