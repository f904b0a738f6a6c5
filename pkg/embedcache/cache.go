// Package embedcache deduplicates embedding requests by normalized text and
// spaces outbound embedding calls by a minimum interval.
//
// One Cache is created per process and handed to every component that
// embeds text. It is shared across workspaces since an embedding depends
// only on its text.
package embedcache

import (
	"container/list"
	"context"
	"log"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTTL         = 30 * time.Minute
	DefaultMaxEntries  = 500
	DefaultMinInterval = time.Second
)

type Config struct {
	TTL         time.Duration
	MaxEntries  int
	MinInterval time.Duration
	// Verbose logs hits, stores and throttle waits.
	Verbose bool
}

type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithSleeper replaces the context-aware sleep used by Throttle.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Cache) { c.sleep = sleep }
}

type entry struct {
	vector     []float32
	insertedAt time.Time
	elem       *list.Element
}

type Cache struct {
	config Config

	mu      sync.Mutex
	entries map[string]*entry
	order   *list.List // keys, oldest insertion at the front

	limiterMu     sync.Mutex
	lastRequestAt time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(config Config, opts ...Option) *Cache {
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultMaxEntries
	}
	if config.MinInterval <= 0 {
		config.MinInterval = DefaultMinInterval
	}

	c := &Cache{
		config:  config,
		entries: make(map[string]*entry),
		order:   list.New(),
		now:     time.Now,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Normalize is the cache key for text.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Lookup returns a copy of the vector stored for text if it is younger than
// the TTL.
// Expired entries are evicted on read.
func (c *Cache) Lookup(text string) ([]float32, bool) {
	key := Normalize(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.insertedAt) >= c.config.TTL {
		c.remove(key, e)
		return nil, false
	}

	if c.config.Verbose {
		log.Printf("embedding cache hit: %q", preview(key))
	}
	return append([]float32(nil), e.vector...), true
}

// Store caches vector under text. When a new key would push the cache past
// MaxEntries, the oldest inserted entry is evicted first. Re-storing an
// existing key refreshes it in place without changing its eviction order.
func (c *Cache) Store(text string, vector []float32) {
	key := Normalize(text)
	stored := append([]float32(nil), vector...)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.vector = stored
		e.insertedAt = c.now()
		return
	}

	if len(c.entries) >= c.config.MaxEntries {
		if front := c.order.Front(); front != nil {
			oldest := front.Value.(string)
			c.remove(oldest, c.entries[oldest])
		}
	}

	c.entries[key] = &entry{
		vector:     stored,
		insertedAt: c.now(),
		elem:       c.order.PushBack(key),
	}

	if c.config.Verbose {
		log.Printf("embedding cached, total cached: %d", len(c.entries))
	}
}

// Throttle blocks until at least MinInterval has passed since the previous
// call returned, then records the current time. It returns early only if
// ctx is done.
func (c *Cache) Throttle(ctx context.Context) error {
	c.limiterMu.Lock()
	defer c.limiterMu.Unlock()

	if !c.lastRequestAt.IsZero() {
		elapsed := c.now().Sub(c.lastRequestAt)
		if elapsed < c.config.MinInterval {
			wait := c.config.MinInterval - elapsed
			if c.config.Verbose {
				log.Printf("rate limit: waiting %v before next embedding call", wait)
			}
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	c.lastRequestAt = c.now()
	return nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.order.Init()
}

func (c *Cache) remove(key string, e *entry) {
	if e != nil {
		c.order.Remove(e.elem)
	}
	delete(c.entries, key)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func preview(s string) string {
	if len(s) > 30 {
		return s[:30] + "..."
	}
	return s
}
