// Package cache memoizes loaded tables by source identity.
//
// The cache is an explicit object owned by the presentation host. A key
// names a dataset and one version of its source; a changed source produces
// a new key, and Invalidate drops every version of a source on demand.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/gmv-dashboard/backend/internal/metrics"
	"github.com/gmv-dashboard/backend/internal/table"
)

// Key identifies one loaded table. Source is the invalidation unit; Location
// additionally names a sheet or table inside it.
type Key struct {
	Dataset  string
	Source   string
	Location string
	Identity string
}

func (k Key) String() string {
	return k.Dataset + "|" + k.Identity
}

// Remote is an optional shared tier consulted after the local map. Remote
// failures never fail a load.
type Remote interface {
	GetTable(ctx context.Context, key Key) (*table.Table, bool, error)
	SetTable(ctx context.Context, key Key, t *table.Table) error
	InvalidateSource(ctx context.Context, source string) error
}

type entry struct {
	key      Key
	table    *table.Table
	storedAt time.Time
}

type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Remote  bool  `json:"remote"`
}

type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
	remote  Remote
	logger  *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

type Option func(*Cache)

func WithRemote(r Remote) Option {
	return func(c *Cache) { c.remote = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a cached table without loading.
func (c *Cache) Get(key Key) (*table.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return nil, false
	}
	return e.table, true
}

// GetOrLoad returns the table cached under key, loading it at most once
// across concurrent callers. A table is published only after load returns,
// so readers never see a partially built table. Load errors are not cached.
func (c *Cache) GetOrLoad(ctx context.Context, key Key, load func() (*table.Table, error)) (*table.Table, error) {
	if t, ok := c.Get(key); ok {
		c.hits.Add(1)
		metrics.CacheHits.WithLabelValues("local").Inc()
		return t, nil
	}

	v, err, shared := c.group.Do(key.String(), func() (interface{}, error) {
		if t, ok := c.Get(key); ok {
			return t, nil
		}
		c.misses.Add(1)
		metrics.CacheMisses.WithLabelValues("local").Inc()

		if t, ok := c.fromRemote(ctx, key); ok {
			c.store(key, t)
			return t, nil
		}

		t, err := load()
		if err != nil {
			return nil, err
		}
		c.store(key, t)
		c.toRemote(ctx, key, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		c.logger.Debug("Concurrent load shared", zap.String("key", key.String()))
	}
	return v.(*table.Table), nil
}

func (c *Cache) fromRemote(ctx context.Context, key Key) (*table.Table, bool) {
	if c.remote == nil {
		return nil, false
	}

	t, ok, err := c.remote.GetTable(ctx, key)
	if err != nil {
		c.logger.Warn("Remote cache read failed", zap.String("key", key.String()), zap.Error(err))
		return nil, false
	}
	if !ok {
		metrics.CacheMisses.WithLabelValues("remote").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("remote").Inc()
	return t, true
}

func (c *Cache) toRemote(ctx context.Context, key Key, t *table.Table) {
	if c.remote == nil {
		return
	}
	if err := c.remote.SetTable(ctx, key, t); err != nil {
		c.logger.Warn("Remote cache write failed", zap.String("key", key.String()), zap.Error(err))
	}
}

// store publishes t and drops older versions of the same dataset location.
func (c *Cache) store(key Key, t *table.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if e.key.Dataset == key.Dataset && e.key.Source == key.Source &&
			e.key.Location == key.Location && e.key != key {
			delete(c.entries, k)
		}
	}
	c.entries[key.String()] = entry{key: key, table: t, storedAt: time.Now()}
	metrics.CacheEntries.Set(float64(len(c.entries)))
}

// Invalidate drops every table loaded from source and returns how many
// local entries went.
func (c *Cache) Invalidate(ctx context.Context, source string) int {
	c.mu.Lock()
	dropped := 0
	for k, e := range c.entries {
		if e.key.Source == source {
			delete(c.entries, k)
			dropped++
		}
	}
	metrics.CacheEntries.Set(float64(len(c.entries)))
	c.mu.Unlock()

	metrics.CacheInvalidations.Add(float64(dropped))

	if c.remote != nil {
		if err := c.remote.InvalidateSource(ctx, source); err != nil {
			c.logger.Warn("Remote cache invalidation failed", zap.String("source", source), zap.Error(err))
		}
	}

	c.logger.Info("Cache invalidated", zap.String("source", source), zap.Int("entries", dropped))
	return dropped
}

// Purge drops every local entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
	metrics.CacheEntries.Set(0)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sources lists the distinct sources currently cached.
func (c *Cache) Sources() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, e := range c.entries {
		if !seen[e.key.Source] {
			seen[e.key.Source] = true
			out = append(out, e.key.Source)
		}
	}
	return out
}

func (c *Cache) Stats() Stats {
	return Stats{
		Entries: c.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Remote:  c.remote != nil,
	}
}
