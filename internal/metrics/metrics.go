package metrics

import (
	"slices"
	"sync"
	"time"
)

const maxSamples = 1000

type Metrics struct {
	mutex              sync.RWMutex
	chats              int64
	calls              map[string]int64
	failures           map[string]int64
	responseTimes      map[string][]time.Duration
	statusCodes        map[string]map[int]int64
	healthStatus       map[string]bool
	fallbacks          map[string]int64
	breakerState       string
	breakerTransitions int64
	startTime          time.Time
}

type Snapshot struct {
	TotalChats         int64                      `json:"total_chats"`
	Uptime             time.Duration              `json:"uptime"`
	Strategy           string                     `json:"strategy"`
	Upstream           map[string]EndpointMetrics `json:"upstream"`
	Fallbacks          map[string]int64           `json:"fallbacks"`
	BreakerState       string                     `json:"breaker_state"`
	BreakerTransitions int64                      `json:"breaker_transitions"`
}

type EndpointMetrics struct {
	Calls       int64         `json:"calls"`
	Failures    int64         `json:"failures"`
	Healthy     bool          `json:"healthy"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
	StatusCodes map[int]int64 `json:"status_codes"`
}

func (m *Metrics) IncrementChats() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.chats++
}

// RecordUpstream keeps the last maxSamples durations per endpoint.
func (m *Metrics) RecordUpstream(endpoint string, duration time.Duration, statusCode int, succeeded bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.calls[endpoint]++
	if !succeeded {
		m.failures[endpoint]++
	}

	m.responseTimes[endpoint] = append(m.responseTimes[endpoint], duration)
	if len(m.responseTimes[endpoint]) > maxSamples {
		m.responseTimes[endpoint] = m.responseTimes[endpoint][1:]
	}

	if m.statusCodes[endpoint] == nil {
		m.statusCodes[endpoint] = make(map[int]int64)
	}
	m.statusCodes[endpoint][statusCode]++
}

func (m *Metrics) RecordFallback(tier string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.fallbacks[tier]++
}

func (m *Metrics) RecordBreakerTransition(to string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.breakerState = to
	m.breakerTransitions++
}

func (m *Metrics) UpdateHealthStatus(endpoint string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthStatus[endpoint] = healthy
}

func (m *Metrics) Snapshot(strategy string) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		TotalChats:         m.chats,
		Uptime:             time.Since(m.startTime),
		Strategy:           strategy,
		Upstream:           make(map[string]EndpointMetrics),
		Fallbacks:          make(map[string]int64, len(m.fallbacks)),
		BreakerState:       m.breakerState,
		BreakerTransitions: m.breakerTransitions,
	}

	for tier, n := range m.fallbacks {
		snap.Fallbacks[tier] = n
	}

	endpoints := make(map[string]struct{})
	for e := range m.calls {
		endpoints[e] = struct{}{}
	}
	for e := range m.healthStatus {
		endpoints[e] = struct{}{}
	}

	for e := range endpoints {
		em := EndpointMetrics{
			Calls:       m.calls[e],
			Failures:    m.failures[e],
			Healthy:     m.healthStatus[e],
			StatusCodes: make(map[int]int64, len(m.statusCodes[e])),
		}
		for code, n := range m.statusCodes[e] {
			em.StatusCodes[code] = n
		}

		if durations := m.responseTimes[e]; len(durations) > 0 {
			sorted := slices.Clone(durations)
			slices.Sort(sorted)

			em.AvgResponse = average(sorted)
			em.P50Response = percentile(sorted, 0.50)
			em.P95Response = percentile(sorted, 0.95)
			em.P99Response = percentile(sorted, 0.99)
		}

		snap.Upstream[e] = em
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		calls:         make(map[string]int64),
		failures:      make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		healthStatus:  make(map[string]bool),
		fallbacks:     make(map[string]int64),
		breakerState:  "CLOSED",
		startTime:     time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
