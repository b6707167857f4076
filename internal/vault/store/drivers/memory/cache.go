// Package memory implements the vault stores in process memory. The remote
// store can be told to fail or stall, which is how the coordinator's
// degraded paths are exercised in tests and in local development.
package memory

import (
	"context"
	"sync"

	"github.com/aussiebroadwan/domainvault/internal/vault/store"
)

// Cache is an in-memory store.LocalCache.
type Cache struct {
	mu   sync.RWMutex
	data map[string]string
	fail error
}

var _ store.LocalCache = (*Cache)(nil)

func NewCache() *Cache {
	return &Cache{data: make(map[string]string)}
}

// FailWith makes every call return err until it is called with nil.
func (c *Cache) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = err
}

func (c *Cache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.fail != nil {
		return "", false, c.fail
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *Cache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.data[key] = value
	return nil
}

func (c *Cache) Ping(context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fail
}

func (c *Cache) Close() error { return nil }
