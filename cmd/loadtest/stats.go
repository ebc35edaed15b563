package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"
)

type stats struct {
	mu          sync.Mutex
	tiers       map[string][]time.Duration
	statusCodes map[int]int
	all         []time.Duration
	errors      int
}

func newStats() *stats {
	return &stats{
		tiers:       make(map[string][]time.Duration),
		statusCodes: make(map[int]int),
	}
}

func (s *stats) record(tier string, code int, dur time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.all = append(s.all, dur)
	if code != 0 {
		s.statusCodes[code]++
	}
	if err != nil {
		s.errors++
		return
	}
	s.tiers[tier] = append(s.tiers[tier], dur)
}

type latency struct {
	Samples int     `json:"samples"`
	Avg     float64 `json:"avg_ms"`
	P50     float64 `json:"p50_ms"`
	P90     float64 `json:"p90_ms"`
	P95     float64 `json:"p95_ms"`
	P99     float64 `json:"p99_ms"`
	Max     float64 `json:"max_ms"`
}

type summary struct {
	Target      string             `json:"target"`
	Concurrency int                `json:"concurrency"`
	Total       int                `json:"total_sent"`
	Errors      int                `json:"errors"`
	DurationMS  int64              `json:"duration_ms"`
	Throughput  float64            `json:"throughput_rps"`
	StatusCodes map[int]int        `json:"status_codes"`
	Overall     latency            `json:"overall"`
	Tiers       map[string]latency `json:"tiers"`
}

func (s *stats) summarize(elapsed time.Duration) summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := summary{
		Total:       len(s.all),
		Errors:      s.errors,
		DurationMS:  elapsed.Milliseconds(),
		StatusCodes: make(map[int]int, len(s.statusCodes)),
		Overall:     latencyOf(s.all),
		Tiers:       make(map[string]latency, len(s.tiers)),
	}
	if elapsed > 0 {
		out.Throughput = float64(out.Total) / elapsed.Seconds()
	}
	for code, n := range s.statusCodes {
		out.StatusCodes[code] = n
	}
	for tier, durs := range s.tiers {
		out.Tiers[tier] = latencyOf(durs)
	}
	return out
}

func latencyOf(durs []time.Duration) latency {
	if len(durs) == 0 {
		return latency{}
	}

	sorted := slices.Clone(durs)
	slices.Sort(sorted)

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	return latency{
		Samples: len(sorted),
		Avg:     ms(sum / time.Duration(len(sorted))),
		P50:     ms(percentile(sorted, 0.50)),
		P90:     ms(percentile(sorted, 0.90)),
		P95:     ms(percentile(sorted, 0.95)),
		P99:     ms(percentile(sorted, 0.99)),
		Max:     ms(sorted[len(sorted)-1]),
	}
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(float64(len(sorted)-1) * p)
	return sorted[max(0, min(idx, len(sorted)-1))]
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func (s summary) print(w io.Writer) {
	fmt.Fprintln(w, "--- Load Test Summary ---")
	fmt.Fprintf(w, "Target: %s  Concurrency: %d\n", s.Target, s.Concurrency)
	fmt.Fprintf(w, "Total sent: %d  Errors: %d\n", s.Total, s.Errors)
	fmt.Fprintf(w, "Duration: %dms  Throughput: %.2f req/s\n", s.DurationMS, s.Throughput)

	fmt.Fprintln(w, "\nStatus codes:")
	codes := make([]int, 0, len(s.StatusCodes))
	for code := range s.StatusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d -> %d\n", code, s.StatusCodes[code])
	}

	fmt.Fprintln(w, "\nServing tiers:")
	tiers := make([]string, 0, len(s.Tiers))
	for tier := range s.Tiers {
		tiers = append(tiers, tier)
	}
	slices.Sort(tiers)
	for _, tier := range tiers {
		l := s.Tiers[tier]
		fmt.Fprintf(w, "  %-8s samples=%d avg=%.1fms p50=%.1fms p95=%.1fms p99=%.1fms\n",
			tier, l.Samples, l.Avg, l.P50, l.P95, l.P99)
	}

	fmt.Fprintln(w, "\nOverall latencies:")
	fmt.Fprintf(w, "  samples=%d avg=%.1fms p50=%.1fms p90=%.1fms p95=%.1fms p99=%.1fms max=%.1fms\n",
		s.Overall.Samples, s.Overall.Avg, s.Overall.P50, s.Overall.P90, s.Overall.P95, s.Overall.P99, s.Overall.Max)
}

func (s summary) writeJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
