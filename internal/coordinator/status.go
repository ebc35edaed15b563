package coordinator

import (
	"time"

	"github.com/angeloszaimis/advisor-gateway/internal/circuitbreaker"
)

type CacheStatus struct {
	Size     int           `json:"size"`
	Capacity int           `json:"capacity"`
	TTL      time.Duration `json:"ttl"`
}

type BacklogStatus struct {
	Size     int    `json:"size"`
	Capacity int    `json:"capacity"`
	Dropped  uint64 `json:"dropped"`
}

// Status is the operator view of the resiliency layer.
type Status struct {
	Circuit circuitbreaker.Snapshot `json:"circuit"`
	Cache   CacheStatus             `json:"cache"`
	Backlog BacklogStatus           `json:"backlog"`
}

func (c *Coordinator) Status() Status {
	return Status{
		Circuit: c.breaker.Snapshot(),
		Cache: CacheStatus{
			Size:     c.cache.Len(),
			Capacity: c.cache.Capacity(),
			TTL:      c.cache.TTL(),
		},
		Backlog: BacklogStatus{
			Size:     c.backlog.Size(),
			Capacity: c.backlog.Capacity(),
			Dropped:  c.backlog.Dropped(),
		},
	}
}
