package cachestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const DefaultSweepInterval = time.Minute

type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// Cache is a TTL cache. Expired entries are never returned by Get; Start runs
// the loop that reclaims their memory.
type Cache struct {
	items    *gocache.Cache
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func New(sweepInterval time.Duration) *Cache {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &Cache{
		items:    gocache.New(gocache.NoExpiration, 0),
		interval: sweepInterval,
	}
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("cache key is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.items.Set(key, stored, ttl)
	return nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, found := c.items.Get(key)
	if !found {
		return nil, false, nil
	}
	value, ok := obj.([]byte)
	if !ok {
		return nil, false, fmt.Errorf("cache entry %s has unexpected type %T", key, obj)
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (c *Cache) Len() int {
	return c.items.ItemCount()
}

// Sweep removes expired entries now.
func (c *Cache) Sweep() {
	c.items.DeleteExpired()
}

// Start launches the eviction loop. Calling Start on a running cache is a
// no-op.
func (c *Cache) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return
	}

	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.loop(c.stop, c.done)
}

// Stop ends the eviction loop and waits for it to exit.
func (c *Cache) Stop() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (c *Cache) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}
