// cbtest drives a running gateway through a circuit trip and recovery by
// forcing failures on a mockbackend instance, reporting which tier served
// each request.
//
// Usage:
//
//	go run ./cmd/cbtest -gateway http://localhost:8080 -backend http://localhost:5001
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

type chatReply struct {
	Answer            *string `json:"answer"`
	Fallback          *string `json:"fallback"`
	CircuitState      string  `json:"circuit_state"`
	Error             string  `json:"error"`
	RetryAfterSeconds *int    `json:"retry_after_seconds"`
}

type status struct {
	Circuit struct {
		State               string `json:"state"`
		ConsecutiveFailures int    `json:"consecutive_failures"`
		Threshold           int    `json:"threshold"`
		CoolDown            int64  `json:"cool_down"`
		TripCount           int64  `json:"trip_count"`
	} `json:"circuit"`
	Backlog struct {
		Size    int    `json:"size"`
		Dropped uint64 `json:"dropped"`
	} `json:"backlog"`
}

type tester struct {
	client     *http.Client
	gatewayURL string
	backendURL string
	sessionID  string
}

func main() {
	var (
		gatewayURL = flag.String("gateway", "http://localhost:8080", "Gateway URL")
		backendURL = flag.String("backend", "http://localhost:5001", "mockbackend URL used to force failures")
		requests   = flag.Int("requests", 10, "Requests per phase")
		skipWait   = flag.Bool("skip-recovery", false, "Skip waiting for the cool-down and recovery phase")
	)
	flag.Parse()

	t := &tester{
		client:     &http.Client{Timeout: 15 * time.Second},
		gatewayURL: *gatewayURL,
		backendURL: *backendURL,
		sessionID:  uuid.NewString(),
	}

	fmt.Println(colorCyan + "╔════════════════════════════════════════════════════════════════╗" + colorReset)
	fmt.Println(colorCyan + "║         CIRCUIT BREAKER & FALLBACK TEST                        ║" + colorReset)
	fmt.Println(colorCyan + "╚════════════════════════════════════════════════════════════════╝" + colorReset)
	fmt.Println()

	st, err := t.status()
	if err != nil {
		fmt.Printf(colorRed+"Cannot reach gateway: %v\n"+colorReset, err)
		os.Exit(1)
	}
	fmt.Printf("Circuit: %s, threshold %d, cool-down %s\n\n",
		st.Circuit.State, st.Circuit.Threshold, time.Duration(st.Circuit.CoolDown))

	questions := []string{
		"What is the GST rate on gold jewellery?",
		"How do I file ITR-1 before the deadline?",
		"Should I pick the old or new tax regime?",
	}

	fmt.Println(colorBlue + "━━━ PHASE 1: Normal Operation ━━━" + colorReset)
	fmt.Println("Warming the cache with live answers...")
	tiers := t.sendPhase(questions, *requests)
	printTiers(tiers)

	fmt.Println(colorBlue + "━━━ PHASE 2: Upstream Failure ━━━" + colorReset)
	if err := t.forceFailure(true); err != nil {
		fmt.Printf(colorRed+"Cannot force failure on backend: %v\n"+colorReset, err)
		os.Exit(1)
	}
	defer func() { _ = t.forceFailure(false) }()

	fmt.Printf("Backend failing; sending %d requests to trip the circuit...\n", st.Circuit.Threshold)
	tiers = t.sendPhase(questions, st.Circuit.Threshold)
	printTiers(tiers)

	st, err = t.status()
	if err == nil {
		color := colorGreen
		if st.Circuit.State != "OPEN" {
			color = colorRed
		}
		fmt.Printf(color+"Circuit after trip: %s (trips %d)\n\n"+colorReset, st.Circuit.State, st.Circuit.TripCount)
	}

	fmt.Println(colorBlue + "━━━ PHASE 3: Fallback Tiers ━━━" + colorReset)
	fmt.Println("Cached questions, a keyword match and an unknown question while OPEN...")
	tiers = t.sendPhase(append(questions, "Tell me about lunar mining royalties"), len(questions)+1)
	printTiers(tiers)

	if *skipWait {
		return
	}

	fmt.Println(colorBlue + "━━━ PHASE 4: Recovery ━━━" + colorReset)
	if err := t.forceFailure(false); err != nil {
		fmt.Printf(colorRed+"Cannot restore backend: %v\n"+colorReset, err)
		os.Exit(1)
	}

	wait := time.Duration(st.Circuit.CoolDown) + time.Second
	fmt.Printf("Backend restored; waiting %s for the cool-down...\n", wait)
	time.Sleep(wait)

	tiers = t.sendPhase(questions, *requests)
	printTiers(tiers)

	st, err = t.status()
	if err != nil {
		fmt.Printf(colorRed+"Cannot read status: %v\n"+colorReset, err)
		os.Exit(1)
	}

	if st.Circuit.State == "CLOSED" {
		fmt.Println(colorGreen + "✓ Circuit closed again after a successful probe" + colorReset)
	} else {
		fmt.Printf(colorRed+"✗ Circuit still %s\n"+colorReset, st.Circuit.State)
		os.Exit(1)
	}
	fmt.Printf("Backlog: %d queued, %d dropped\n", st.Backlog.Size, st.Backlog.Dropped)
}

func (t *tester) sendPhase(questions []string, n int) map[string]int {
	tiers := make(map[string]int)

	for i := 0; i < n; i++ {
		q := questions[i%len(questions)]
		reply, err := t.ask(q)
		if err != nil {
			fmt.Printf(colorRed+"  Request %d: ERROR - %v\n"+colorReset, i+1, err)
			tiers["error"]++
			continue
		}

		tier := "live"
		if reply.Fallback != nil {
			tier = *reply.Fallback
		} else if reply.Error != "" {
			tier = "degraded"
		}
		tiers[tier]++

		color := colorGreen
		if tier != "live" {
			color = colorYellow
		}
		fmt.Printf(color+"  Request %d: tier=%-8s circuit=%-9s %q\n"+colorReset,
			i+1, tier, reply.CircuitState, q)
	}

	return tiers
}

func (t *tester) ask(message string) (chatReply, error) {
	body, _ := json.Marshal(map[string]string{"message": message, "session_id": t.sessionID})

	req, err := http.NewRequest(http.MethodPost, t.gatewayURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return chatReply{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "cbtest")

	resp, err := t.client.Do(req)
	if err != nil {
		return chatReply{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return chatReply{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	var reply chatReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return chatReply{}, err
	}
	return reply, nil
}

func (t *tester) status() (status, error) {
	var st status

	resp, err := t.client.Get(t.gatewayURL + "/status")
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()

	err = json.NewDecoder(resp.Body).Decode(&st)
	return st, err
}

func (t *tester) forceFailure(on bool) error {
	resp, err := t.client.Post(fmt.Sprintf("%s/admin/fail?on=%t", t.backendURL, on), "", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func printTiers(tiers map[string]int) {
	fmt.Print("  Tiers:")
	for _, tier := range []string{"live", "cache", "static", "degraded", "error"} {
		if n := tiers[tier]; n > 0 {
			fmt.Printf(" %s=%d", tier, n)
		}
	}
	fmt.Println()
	fmt.Println()
}
