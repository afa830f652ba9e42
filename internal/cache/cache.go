// Package cache keeps read results until a mutation of their entity
// invalidates them.
package cache

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Entity names a kind of cached read.
type Entity string

const (
	Maintenances Entity = "maintenances"
	Requests     Entity = "requests"
	Categories   Entity = "categories"
	StatusTypes  Entity = "status-types"
	Dashboard    Entity = "dashboard"
)

// dependents lists the entities whose cached reads embed another entity.
var dependents = map[Entity][]Entity{
	Maintenances: {Dashboard},
	Requests:     {Dashboard},
	Categories:   {Requests},
	StatusTypes:  {Requests, Dashboard},
}

// Key identifies one cached read. ID is a record id, a search string, or empty
// for a full list.
type Key struct {
	Entity Entity
	ID     string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Entity, k.ID)
}

type entry struct {
	gen   uint64
	value any
}

// QueryCache is an LRU of read results. It is safe for concurrent use.
type QueryCache struct {
	mu     sync.Mutex
	items  *lru.Cache[Key, entry]
	gens   map[Entity]uint64
	logger *zap.Logger
}

// New creates a cache holding up to size entries.
func New(size int, logger *zap.Logger) (*QueryCache, error) {
	if size <= 0 {
		size = 1
	}
	items, err := lru.New[Key, entry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryCache{
		items:  items,
		gens:   make(map[Entity]uint64),
		logger: logger,
	}, nil
}

// Get returns the cached value for key.
func (c *QueryCache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items.Get(key)
	if !ok || e.gen != c.gens[key.Entity] {
		return nil, false
	}
	return e.value, true
}

// Set stores value for key.
func (c *QueryCache) Set(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Add(key, entry{gen: c.gens[key.Entity], value: value})
}

// setAt stores value only if the entity was not invalidated since gen was read.
func (c *QueryCache) setAt(key Key, value any, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key.Entity] != gen {
		return
	}
	c.items.Add(key, entry{gen: gen, value: value})
}

func (c *QueryCache) generation(entity Entity) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[entity]
}

// Invalidate drops every cached read of entity and of the entities that embed it.
func (c *QueryCache) Invalidate(entity Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stale := make(map[Entity]bool)
	pending := []Entity{entity}
	for len(pending) > 0 {
		e := pending[0]
		pending = pending[1:]
		if stale[e] {
			continue
		}
		stale[e] = true
		c.gens[e]++
		pending = append(pending, dependents[e]...)
	}

	for _, key := range c.items.Keys() {
		if stale[key.Entity] {
			c.items.Remove(key)
		}
	}
	c.logger.Debug("query cache invalidated", zap.String("entity", string(entity)), zap.Int("entities", len(stale)))
}

// Len returns the number of stored entries.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Len()
}

// Fetch returns the cached value for key, or calls load and caches its result.
// A load that races with an invalidation of its entity is returned but not cached.
func Fetch[T any](ctx context.Context, c *QueryCache, key Key, load func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}
	if v, ok := c.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}

	gen := c.generation(key.Entity)
	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	c.setAt(key, value, gen)
	return value, nil
}
