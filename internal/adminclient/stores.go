package adminclient

import (
	"sync"

	"github.com/quinisports/quinisports/internal/businesses"
	"github.com/quinisports/quinisports/internal/prizes"
	"github.com/quinisports/quinisports/internal/products"
	"github.com/quinisports/quinisports/internal/sports"
	"github.com/quinisports/quinisports/internal/subscriptions"
	"github.com/quinisports/quinisports/internal/users"
)

// Collection mirrors the last fetched list of one entity. A fetch replaces
// the items wholesale; a successful mutation patches them in place. Failed
// requests only record the error.
type Collection[T any, K comparable] struct {
	mu     sync.RWMutex
	key    func(T) K
	items  []T
	err    error
	loaded bool
}

// NewCollection builds an empty collection keyed by key.
func NewCollection[T any, K comparable](key func(T) K) *Collection[T, K] {
	return &Collection[T, K]{key: key}
}

// SetData replaces the items and clears the last error.
func (c *Collection[T, K]) SetData(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]T(nil), items...)
	c.err = nil
	c.loaded = true
}

// SetError records a failed request without touching the items.
func (c *Collection[T, K]) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Data returns a copy of the items.
func (c *Collection[T, K]) Data() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]T(nil), c.items...)
}

// Err returns the error of the last failed request, if any.
func (c *Collection[T, K]) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Loaded reports whether a fetch has filled the collection.
func (c *Collection[T, K]) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Find returns the item with key k.
func (c *Collection[T, K]) Find(k K) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.items {
		if c.key(it) == k {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Upsert replaces the item with the same key or appends it.
func (c *Collection[T, K]) Upsert(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := c.key(item)
	for i, it := range c.items {
		if c.key(it) == k {
			c.items[i] = item
			return
		}
	}
	c.items = append(c.items, item)
}

// Remove drops the item with key k.
func (c *Collection[T, K]) Remove(k K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, it := range c.items {
		if c.key(it) == k {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Reset empties the collection.
func (c *Collection[T, K]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.err = nil
	c.loaded = false
}

// Stores holds one collection per admin entity for a signed-in client.
type Stores struct {
	Employees     *Collection[users.User, string]
	Admins        *Collection[users.User, string]
	Businesses    *Collection[businesses.Business, int64]
	Products      *Collection[products.Product, int64]
	ProductTypes  *Collection[products.ProductType, int64]
	Prizes        *Collection[prizes.Prize, int64]
	Sports        *Collection[sports.Sport, int64]
	Tournaments   *Collection[sports.Tournament, int64]
	Subscriptions *Collection[subscriptions.Subscription, int64]
}

// NewStores builds empty stores.
func NewStores() *Stores {
	return &Stores{
		Employees:     NewCollection(func(u users.User) string { return u.ID }),
		Admins:        NewCollection(func(u users.User) string { return u.ID }),
		Businesses:    NewCollection(func(b businesses.Business) int64 { return b.ID }),
		Products:      NewCollection(func(p products.Product) int64 { return p.ID }),
		ProductTypes:  NewCollection(func(t products.ProductType) int64 { return t.ID }),
		Prizes:        NewCollection(func(p prizes.Prize) int64 { return p.ID }),
		Sports:        NewCollection(func(s sports.Sport) int64 { return s.ID }),
		Tournaments:   NewCollection(func(t sports.Tournament) int64 { return t.ID }),
		Subscriptions: NewCollection(func(s subscriptions.Subscription) int64 { return s.ID }),
	}
}

// Reset empties every collection.
func (s *Stores) Reset() {
	s.Employees.Reset()
	s.Admins.Reset()
	s.Businesses.Reset()
	s.Products.Reset()
	s.ProductTypes.Reset()
	s.Prizes.Reset()
	s.Sports.Reset()
	s.Tournaments.Reset()
	s.Subscriptions.Reset()
}
