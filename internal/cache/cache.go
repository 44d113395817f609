package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Limiter counts requests per client in fixed time windows.
type Limiter interface {
	Allow(client string) Decision
	Stats() LimiterStats
	Clear()
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

type LimiterStats struct {
	Allowed    int64     `json:"allowed"`
	Rejected   int64     `json:"rejected"`
	Windows    int       `json:"windows"`
	LastAccess time.Time `json:"last_access"`
}

// WindowCounter is a fixed-window Limiter backed by go-cache. Counters
// expire on their own once their window has passed.
type WindowCounter struct {
	cache  *cache.Cache
	mu     sync.Mutex
	stats  LimiterStats
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewWindowCounter allows limit requests per client per window. A
// non-positive limit disables limiting.
func NewWindowCounter(limit int, window time.Duration) *WindowCounter {
	if window <= 0 {
		window = time.Minute
	}
	return &WindowCounter{
		cache:  cache.New(window, window*2),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (c *WindowCounter) Allow(client string) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.stats.LastAccess = now
	start := now.Truncate(c.window)
	reset := start.Add(c.window)

	if c.limit <= 0 {
		c.stats.Allowed++
		return Decision{Allowed: true, Reset: reset}
	}

	key := windowKey(client, start)
	count := 1
	if err := c.cache.Add(key, 1, c.window); err != nil {
		n, err := c.cache.IncrementInt(key, 1)
		if err != nil {
			// The counter expired between Add and IncrementInt.
			c.cache.Set(key, 1, c.window)
			n = 1
		}
		count = n
	}

	d := Decision{
		Allowed:   count <= c.limit,
		Limit:     c.limit,
		Remaining: c.limit - count,
		Reset:     reset,
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if d.Allowed {
		c.stats.Allowed++
	} else {
		c.stats.Rejected++
	}
	return d
}

func (c *WindowCounter) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Flush()
	c.stats = LimiterStats{}
}

func (c *WindowCounter) Stats() LimiterStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Windows = c.cache.ItemCount()
	return c.stats
}

func windowKey(client string, start time.Time) string {
	return fmt.Sprintf("rate:%s:%d", client, start.Unix())
}
