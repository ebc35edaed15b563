// Loadtest sends concurrent chat questions to the gateway and reports
// throughput, latency percentiles and which tier served each answer.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080/chat -concurrency 10 -requests 1000
//	go run ./cmd/loadtest -concurrency 50 -requests 5000 -sessions 20 -out summary.json
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var questions = []string{
	"What is the GST rate on gold jewellery?",
	"How do I file ITR-1 online?",
	"Is the new tax regime better for a salaried employee?",
	"When is the advance tax deadline?",
	"Can I claim HRA and a home loan together?",
	"How is TDS on fixed deposits calculated?",
}

type reply struct {
	Fallback *string `json:"fallback"`
	Error    string  `json:"error"`
}

func main() {
	var (
		url         = flag.String("url", "http://localhost:8080/chat", "Gateway chat URL")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		sessions    = flag.Int("sessions", 10, "Number of distinct session IDs to spread requests over")
		timeout     = flag.Duration("timeout", 15*time.Second, "Per-request timeout")
		outJSON     = flag.String("out", "", "Write JSON summary to this file (optional)")
		verbose     = flag.Bool("v", false, "Verbose per-request logging to stdout")
	)
	flag.Parse()

	client := &http.Client{Timeout: *timeout}

	sessionIDs := make([]string, max(*sessions, 1))
	for i := range sessionIDs {
		sessionIDs[i] = uuid.NewString()
	}

	stats := newStats()

	var g errgroup.Group
	g.SetLimit(*concurrency)

	testStart := time.Now()
	for idx := 0; idx < *requests; idx++ {
		g.Go(func() error {
			sessionID := sessionIDs[idx%len(sessionIDs)]
			question := questions[idx%len(questions)]

			start := time.Now()
			tier, code, err := send(client, *url, question, sessionID)
			dur := time.Since(start)

			stats.record(tier, code, dur, err)
			if *verbose {
				fmt.Printf("idx=%d session=%s tier=%s status=%d dur=%v err=%v\n",
					idx, sessionID[:8], tier, code, dur, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := stats.summarize(time.Since(testStart))
	summary.Target = *url
	summary.Concurrency = *concurrency

	summary.print(os.Stdout)
	fmt.Printf("\nGOMAXPROCS=%d  NumGoroutine=%d\n", runtime.GOMAXPROCS(0), runtime.NumGoroutine())

	if *outJSON != "" {
		if err := summary.writeJSON(*outJSON); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write json summary: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if summary.Errors > 0 {
		os.Exit(2)
	}
}

// send posts one question and classifies the reply by serving tier.
func send(client *http.Client, url, message, sessionID string) (string, int, error) {
	body, _ := json.Marshal(map[string]string{"message": message, "session_id": sessionID})

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, err
	}
	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var r reply
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", resp.StatusCode, err
	}
	return classify(r), resp.StatusCode, nil
}

func classify(r reply) string {
	switch {
	case r.Fallback != nil:
		return *r.Fallback
	case r.Error != "":
		return "degraded"
	default:
		return "live"
	}
}
