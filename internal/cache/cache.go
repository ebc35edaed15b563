package cache

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/angeloszaimis/advisor-gateway/internal/chat"
)

const (
	DefaultCapacity = 500
	DefaultTTL      = time.Hour
)

// Entry is a cached upstream answer.
type Entry struct {
	Response   chat.Response
	InsertedAt time.Time
	Query      string
}

type Option func(*ResponseCache)

func WithClock(now func() time.Time) Option {
	return func(c *ResponseCache) {
		if now != nil {
			c.now = now
		}
	}
}

// ResponseCache is a bounded TTL store keyed by query fingerprint. Eviction
// removes the oldest write: reads use Peek and never refresh an entry's
// position, so the underlying list stays in insertion order.
type ResponseCache struct {
	mutex    sync.Mutex
	entries  *simplelru.LRU[string, Entry]
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// New creates a cache. Non-positive capacity or TTL fall back to the defaults.
func New(capacity int, ttl time.Duration, opts ...Option) *ResponseCache {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	// NewLRU only fails for a non-positive size, which is ruled out above.
	entries, _ := simplelru.NewLRU[string, Entry](capacity, nil)

	c := &ResponseCache{
		entries:  entries,
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Normalize trims and case-folds a query before fingerprinting.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Fingerprint is the stable cache key for a query.
func Fingerprint(query string) string {
	return strconv.FormatUint(xxhash.Sum64String(Normalize(query)), 16)
}

// Get returns the entry for query unless it is absent or older than the TTL.
// Expired entries are deleted on the way out.
func (c *ResponseCache) Get(query string) (Entry, bool) {
	key := Fingerprint(query)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries.Peek(key)
	if !ok {
		return Entry{}, false
	}

	if c.now().Sub(entry.InsertedAt) > c.ttl {
		c.entries.Remove(key)
		return Entry{}, false
	}

	entry.Response = entry.Response.Clone()
	return entry, true
}

// Set stores response under query's fingerprint, evicting the oldest write
// when the cache is full. Rewriting a key refreshes its insertion time.
func (c *ResponseCache) Set(query string, response chat.Response) {
	key := Fingerprint(query)
	entry := Entry{
		Response: response.Clone(),
		Query:    query,
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry.InsertedAt = c.now()
	c.entries.Add(key, entry)
}

func (c *ResponseCache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.entries.Len()
}

func (c *ResponseCache) Capacity() int {
	return c.capacity
}

func (c *ResponseCache) TTL() time.Duration {
	return c.ttl
}
