package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/advisor-gateway/internal/chat"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// ErrTimeout marks a call that exceeded the client's deadline.
var ErrTimeout = errors.New("upstream call timed out")

// Client calls the inference backend's POST /chat endpoint on a pooled
// replica. The timeout is enforced here; the caller sees a timeout as an
// ordinary failed Outcome.
type Client struct {
	pool    *Pool
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewClient(pool *Pool, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		pool:    pool,
		http:    &http.Client{},
		timeout: timeout,
		logger:  logger,
	}
}

// Ask sends one query upstream. It never returns an error directly: every
// failure mode is reported in the returned Outcome. Cancelling ctx does not
// abort the call; it runs until it completes or the client timeout fires.
func (c *Client) Ask(ctx context.Context, query chat.Query) chat.Outcome {
	endpoint, err := c.pool.Reserve(query.SessionID)
	if err != nil {
		return chat.Outcome{Err: err}
	}
	defer endpoint.DecrementConn()

	start := time.Now()
	outcome := c.do(ctx, endpoint, query)
	outcome.Duration = time.Since(start)
	outcome.Endpoint = endpoint.String()

	if outcome.Err == nil {
		endpoint.RecordResponse(outcome.Duration)
	}

	c.logger.Debug("Upstream call completed",
		slog.String("endpoint", outcome.Endpoint),
		slog.Int("status", outcome.StatusCode),
		slog.Duration("duration", outcome.Duration),
		slog.Bool("succeeded", outcome.Succeeded()))

	return outcome
}

// do detaches the call from the caller's cancellation: a client that gives
// up early says nothing about the upstream, so only the client timeout can
// end the call.
func (c *Client) do(ctx context.Context, endpoint *Endpoint, query chat.Query) chat.Outcome {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	body, err := json.Marshal(query)
	if err != nil {
		return chat.Outcome{Err: fmt.Errorf("encode query: %w", err)}
	}

	chatURL := endpoint.URL().JoinPath("chat")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, chatURL.String(), bytes.NewReader(body))
	if err != nil {
		return chat.Outcome{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return chat.Outcome{Err: fmt.Errorf("%w after %s", ErrTimeout, c.timeout)}
		}
		return chat.Outcome{Err: fmt.Errorf("call %s: %w", endpoint, err)}
	}
	defer res.Body.Close()

	outcome := chat.Outcome{StatusCode: res.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome.Err = fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
		} else {
			outcome.Err = fmt.Errorf("read response: %w", err)
		}
		return outcome
	}

	var payload chatPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		// A 5xx with a non-JSON body is still just a 5xx.
		if res.StatusCode < http.StatusInternalServerError {
			outcome.Err = fmt.Errorf("decode response: %w", err)
		}
		return outcome
	}
	outcome.Response = payload.response()

	return outcome
}

// chatPayload is the backend's /chat body. Gateway-owned fields such as
// fallback or confidence are never taken from upstream.
type chatPayload struct {
	Answer    *string           `json:"answer"`
	Sources   []json.RawMessage `json:"sources"`
	LatencyMS *float64          `json:"latency_ms"`
	SessionID string            `json:"session_id"`
	Error     string            `json:"error"`
}

func (p chatPayload) response() chat.Response {
	return chat.Response{
		Answer:    p.Answer,
		Sources:   p.Sources,
		LatencyMS: p.LatencyMS,
		SessionID: p.SessionID,
		Error:     p.Error,
	}
}
