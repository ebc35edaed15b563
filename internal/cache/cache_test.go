package cache_test

import (
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/advisor-gateway/internal/cache"
	"github.com/angeloszaimis/advisor-gateway/internal/chat"
)

func answer(text string) chat.Response {
	return chat.Response{Answer: chat.String(text)}
}

var _ = Describe("ResponseCache", func() {
	var (
		c   *cache.ResponseCache
		now time.Time
	)

	clock := func() time.Time { return now }

	BeforeEach(func() {
		now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		c = cache.New(3, time.Hour, cache.WithClock(clock))
	})

	Describe("New", func() {
		It("should fall back to defaults for invalid settings", func() {
			c = cache.New(0, 0)
			Expect(c.Capacity()).To(Equal(cache.DefaultCapacity))
			Expect(c.TTL()).To(Equal(cache.DefaultTTL))
			Expect(c.Len()).To(BeZero())
		})
	})

	Describe("Fingerprint", func() {
		It("should ignore case and surrounding whitespace", func() {
			Expect(cache.Fingerprint("  What is GST on Gold? ")).To(Equal(cache.Fingerprint("what is gst on gold?")))
		})

		It("should differ for different questions", func() {
			Expect(cache.Fingerprint("80C limit")).NotTo(Equal(cache.Fingerprint("80D limit")))
		})
	})

	Describe("Get and Set", func() {
		It("should return a value set immediately before", func() {
			c.Set("What is 80C?", answer("Up to Rs 1.5 lakh"))

			entry, ok := c.Get("What is 80C?")
			Expect(ok).To(BeTrue())
			Expect(*entry.Response.Answer).To(Equal("Up to Rs 1.5 lakh"))
			Expect(entry.InsertedAt).To(Equal(now))
			Expect(entry.Query).To(Equal("What is 80C?"))
		})

		It("should match normalized queries", func() {
			c.Set("What is 80C?", answer("Up to Rs 1.5 lakh"))

			_, ok := c.Get("  WHAT IS 80c?")
			Expect(ok).To(BeTrue())
		})

		It("should miss for unknown queries", func() {
			_, ok := c.Get("unknown")
			Expect(ok).To(BeFalse())
		})

		It("should serve entries exactly at the TTL", func() {
			c.Set("q", answer("a"))
			now = now.Add(time.Hour)

			_, ok := c.Get("q")
			Expect(ok).To(BeTrue())
		})

		It("should purge entries older than the TTL on read", func() {
			c.Set("q", answer("a"))
			now = now.Add(time.Hour + time.Second)

			_, ok := c.Get("q")
			Expect(ok).To(BeFalse())
			Expect(c.Len()).To(BeZero())
		})

		It("should refresh the insertion time when a key is rewritten", func() {
			c.Set("q", answer("old"))
			now = now.Add(50 * time.Minute)
			c.Set("q", answer("new"))
			now = now.Add(50 * time.Minute)

			entry, ok := c.Get("q")
			Expect(ok).To(BeTrue())
			Expect(*entry.Response.Answer).To(Equal("new"))
			Expect(c.Len()).To(Equal(1))
		})

		It("should not share mutable state with callers", func() {
			resp := answer("a")
			c.Set("q", resp)
			*resp.Answer = "mutated"

			entry, _ := c.Get("q")
			Expect(*entry.Response.Answer).To(Equal("a"))
		})
	})

	Describe("Eviction", func() {
		It("should evict the oldest write, not the least recently read", func() {
			c.Set("first", answer("1"))
			now = now.Add(time.Second)
			c.Set("second", answer("2"))
			now = now.Add(time.Second)
			c.Set("third", answer("3"))

			// Reading "first" must not protect it.
			_, ok := c.Get("first")
			Expect(ok).To(BeTrue())

			now = now.Add(time.Second)
			c.Set("fourth", answer("4"))

			Expect(c.Len()).To(Equal(3))
			_, ok = c.Get("first")
			Expect(ok).To(BeFalse())
			_, ok = c.Get("second")
			Expect(ok).To(BeTrue())
		})

		It("should evict exactly one entry when the 501st key arrives", func() {
			c = cache.New(500, time.Hour, cache.WithClock(clock))
			for i := 1; i <= 500; i++ {
				c.Set(fmt.Sprintf("question %d", i), answer("a"))
				now = now.Add(time.Millisecond)
			}
			Expect(c.Len()).To(Equal(500))

			c.Set("question 501", answer("a"))

			Expect(c.Len()).To(Equal(500))
			_, ok := c.Get("question 1")
			Expect(ok).To(BeFalse())
			for _, q := range []string{"question 2", "question 250", "question 501"} {
				_, ok := c.Get(q)
				Expect(ok).To(BeTrue(), q)
			}
		})
	})

	Describe("Concurrent access", func() {
		It("should never exceed capacity", func() {
			c = cache.New(10, time.Hour)

			var wg sync.WaitGroup
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					c.Set(fmt.Sprintf("q%d", i), answer("a"))
					c.Get(fmt.Sprintf("q%d", i-1))
				}(i)
			}
			wg.Wait()

			Expect(c.Len()).To(Equal(10))
		})
	})
})
