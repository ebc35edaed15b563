package backlog

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultCapacity = 1000

// Item is a query that was answered in degraded mode and should be replayed
// once the upstream recovers.
type Item struct {
	ID         string    `json:"id"`
	Query      string    `json:"query"`
	SessionID  string    `json:"session_id,omitempty"`
	Actor      string    `json:"actor"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type Option func(*Backlog)

func WithClock(now func() time.Time) Option {
	return func(b *Backlog) {
		if now != nil {
			b.now = now
		}
	}
}

// Backlog is a bounded FIFO that drops its oldest item on overflow.
// It is lossy and best-effort; nothing in this package consumes it.
type Backlog struct {
	mutex    sync.Mutex
	items    []Item // ring buffer
	head     int
	size     int
	dropped  uint64
	capacity int
	now      func() time.Time
}

func New(capacity int, opts ...Option) *Backlog {
	if capacity < 1 {
		capacity = DefaultCapacity
	}

	b := &Backlog{
		items:    make([]Item, capacity),
		capacity: capacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Enqueue records query for actor and returns the stored item.
func (b *Backlog) Enqueue(query, actor string) Item {
	return b.EnqueueItem(Item{Query: query, Actor: actor})
}

// EnqueueItem appends item, filling in its ID and timestamp when unset.
func (b *Backlog) EnqueueItem(item Item) Item {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = b.now()
	}

	if b.size == b.capacity {
		// Overwrite the oldest slot.
		b.items[b.head] = item
		b.head = (b.head + 1) % b.capacity
		b.dropped++
		return item
	}

	b.items[(b.head+b.size)%b.capacity] = item
	b.size++
	return item
}

func (b *Backlog) Size() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.size
}

func (b *Backlog) Capacity() int {
	return b.capacity
}

// Dropped is the number of items discarded because the backlog was full.
func (b *Backlog) Dropped() uint64 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.dropped
}

// Peek returns up to n items, oldest first, without removing them.
// A non-positive n returns every item.
func (b *Backlog) Peek(n int) []Item {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.copyOldest(n)
}

// Drain removes and returns up to n items, oldest first.
// A non-positive n drains the whole backlog.
func (b *Backlog) Drain(n int) []Item {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	out := b.copyOldest(n)
	for i := range out {
		b.items[(b.head+i)%b.capacity] = Item{}
	}
	b.head = (b.head + len(out)) % b.capacity
	b.size -= len(out)

	return out
}

func (b *Backlog) copyOldest(n int) []Item {
	if n <= 0 || n > b.size {
		n = b.size
	}

	out := make([]Item, n)
	for i := 0; i < n; i++ {
		out[i] = b.items[(b.head+i)%b.capacity]
	}

	return out
}
