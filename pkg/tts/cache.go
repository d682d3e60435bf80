package tts

import (
	"context"
	"sync"
)

// Cache memoizes synthesized audio by exact text. The processing phrase is
// spoken before every turn; caching it saves a round trip per turn.
type Cache struct {
	provider Provider
	max      int

	mu    sync.Mutex
	items map[string]*AudioResult
	order []string
	hits  int
}

// NewCache wraps p, keeping at most max entries (oldest evicted first).
func NewCache(p Provider, max int) *Cache {
	if max <= 0 {
		max = 32
	}
	return &Cache{
		provider: p,
		max:      max,
		items:    make(map[string]*AudioResult),
	}
}

// Synthesize returns a cached result or synthesizes and stores it.
func (c *Cache) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	c.mu.Lock()
	if r, ok := c.items[text]; ok {
		c.hits++
		c.mu.Unlock()
		return r, nil
	}
	c.mu.Unlock()

	r, err := c.provider.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[text]; !ok {
		if len(c.order) >= c.max {
			delete(c.items, c.order[0])
			c.order = c.order[1:]
		}
		c.items[text] = r
		c.order = append(c.order, text)
	}
	return r, nil
}

// Len returns the number of cached phrases.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Hits returns the number of cache hits.
func (c *Cache) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

// Health delegates to the wrapped provider.
func (c *Cache) Health(ctx context.Context) error {
	return c.provider.Health(ctx)
}

// Close closes the wrapped provider.
func (c *Cache) Close() error {
	return c.provider.Close()
}

var _ Provider = (*Cache)(nil)
