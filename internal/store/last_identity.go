package store

import (
	"sync"

	"github.com/example/zinco/internal/logger"
	"github.com/example/zinco/internal/models"
	"github.com/example/zinco/internal/storage"
)

// LastIdentityCache remembers who last logged in on this device. Its
// lifecycle is independent of the session: logout leaves it in place.
type LastIdentityCache struct {
	mu      sync.RWMutex
	storage storage.Storage
	current *models.LastIdentity
}

// NewLastIdentityCache loads the cache from s.
func NewLastIdentityCache(s storage.Storage, log *logger.Logger) (*LastIdentityCache, error) {
	current, err := loadJSON[*models.LastIdentity](s, LastIdentityKey, nil, log)
	if err != nil {
		return nil, err
	}
	if current != nil && current.Phone == "" {
		current = nil
	}
	return &LastIdentityCache{storage: s, current: current}, nil
}

// Get returns the cached record, or nil.
func (c *LastIdentityCache) Get() *models.LastIdentity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil {
		return nil
	}
	v := *c.current
	return &v
}

// Set overwrites the cached record.
func (c *LastIdentityCache) Set(v models.LastIdentity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := saveJSON(c.storage, LastIdentityKey, v); err != nil {
		return err
	}
	c.current = &v
	return nil
}

// Clear forgets the cached record ("use a different account").
func (c *LastIdentityCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.storage.Remove(LastIdentityKey); err != nil {
		return err
	}
	c.current = nil
	return nil
}
