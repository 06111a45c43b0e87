package store

import (
	"sync"

	"github.com/example/zinco/internal/logger"
	"github.com/example/zinco/internal/models"
	"github.com/example/zinco/internal/storage"
)

// CartStore is the device's cart. Lines are unique by product id and
// totals are recomputed on every read.
type CartStore struct {
	mu      sync.RWMutex
	storage storage.Storage
	items   []models.CartItem
}

// NewCartStore loads the cart from s, dropping any line that violates
// the positive-quantity invariant.
func NewCartStore(s storage.Storage, log *logger.Logger) (*CartStore, error) {
	loaded, err := loadJSON(s, CartKey, []models.CartItem{}, log)
	if err != nil {
		return nil, err
	}

	items := make([]models.CartItem, 0, len(loaded))
	for _, item := range loaded {
		if item.Quantity > 0 && item.Product.ID != "" {
			items = append(items, item)
		}
	}
	return &CartStore{storage: s, items: items}, nil
}

// Items returns a copy of the cart lines in insertion order.
func (c *CartStore) Items() []models.CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Quantity returns the quantity of productID, zero when absent.
func (c *CartStore) Quantity(productID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i := c.indexOf(productID); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

// Add appends product or increments its existing line. A quantity below
// one adds a single unit. Stock limits are not enforced here.
func (c *CartStore) Add(product models.Product, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.clone()
	if i := c.indexOf(product.ID); i >= 0 {
		next[i].Quantity += quantity
	} else {
		next = append(next, models.CartItem{Product: product, Quantity: quantity})
	}
	return c.commit(next)
}

// Remove deletes the line of productID. Absent products are ignored.
func (c *CartStore) Remove(productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(productID)
	if i < 0 {
		return nil
	}

	next := c.clone()
	next = append(next[:i], next[i+1:]...)
	return c.commit(next)
}

// SetQuantity overwrites the quantity of an existing line. A quantity of
// zero or less removes the line; absent products are ignored.
func (c *CartStore) SetQuantity(productID string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(productID)
	if i < 0 {
		return nil
	}

	next := c.clone()
	if quantity <= 0 {
		next = append(next[:i], next[i+1:]...)
	} else {
		next[i].Quantity = quantity
	}
	return c.commit(next)
}

// Clear empties the cart.
func (c *CartStore) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.commit([]models.CartItem{})
}

// TotalItems returns the sum of quantities.
func (c *CartStore) TotalItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

// TotalPrice returns the sum of unit price times quantity.
func (c *CartStore) TotalPrice() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total float64
	for _, item := range c.items {
		total += item.LineTotal()
	}
	return total
}

func (c *CartStore) indexOf(productID string) int {
	for i, item := range c.items {
		if item.Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c *CartStore) clone() []models.CartItem {
	out := make([]models.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *CartStore) commit(next []models.CartItem) error {
	if err := saveJSON(c.storage, CartKey, next); err != nil {
		return err
	}
	c.items = next
	return nil
}
