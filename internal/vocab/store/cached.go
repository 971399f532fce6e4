package store

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/review-vocab/internal/vocab/index"
)

// CachedStore memoizes loaded indexes and collapses concurrent loads of the
// same name into one backend call. Indexes are immutable once built, so a
// cached value stays valid until the same name is saved again.
type CachedStore struct {
	backend Store
	group   singleflight.Group
	mu      sync.RWMutex
	cache   map[string]*index.Index
	logger  *slog.Logger
}

func NewCachedStore(backend Store) *CachedStore {
	return &CachedStore{
		backend: backend,
		cache:   make(map[string]*index.Index),
		logger:  slog.Default().With("component", "index-cache"),
	}
}

func (c *CachedStore) Save(ctx context.Context, name string, ix *index.Index) error {
	c.mu.Lock()
	delete(c.cache, name)
	c.mu.Unlock()
	if err := c.backend.Save(ctx, name, ix); err != nil {
		return err
	}
	c.mu.Lock()
	c.cache[name] = ix
	c.mu.Unlock()
	return nil
}

func (c *CachedStore) Load(ctx context.Context, name string) (*index.Index, error) {
	c.mu.RLock()
	ix, ok := c.cache[name]
	c.mu.RUnlock()
	if ok {
		c.logger.Debug("cache hit", "name", name)
		return ix, nil
	}

	v, err, shared := c.group.Do(name, func() (interface{}, error) {
		ix, err := c.backend.Load(ctx, name)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[name] = ix
		c.mu.Unlock()
		return ix, nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("cache miss", "name", name, "shared", shared)
	return v.(*index.Index), nil
}
