// Package chat holds the request, response and outcome values exchanged
// between the HTTP layer, the fallback coordinator and the upstream client.
package chat

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Tier names the fallback source that produced a degraded answer.
type Tier string

const (
	TierCache  Tier = "cache"
	TierStatic Tier = "static"
)

// Query is a single inbound chat question.
type Query struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// Resource is an external reference offered when no answer is available.
type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Response is the payload returned to the caller for every tier. Fields that
// only belong to one tier are omitted elsewhere; Answer and Fallback are
// always present and may be null.
type Response struct {
	Answer    *string           `json:"answer"`
	Sources   []json.RawMessage `json:"sources"`
	LatencyMS *float64          `json:"latency_ms,omitempty"`
	SessionID string            `json:"session_id,omitempty"`

	Fallback     *Tier      `json:"fallback"`
	Confidence   *float64   `json:"confidence,omitempty"`
	Category     string     `json:"category,omitempty"`
	CachedAt     *time.Time `json:"cached_at,omitempty"`
	Disclaimer   string     `json:"disclaimer,omitempty"`
	CircuitState string     `json:"circuit_state,omitempty"`

	Error             string     `json:"error,omitempty"`
	Message           string     `json:"message,omitempty"`
	Resources         []Resource `json:"resources,omitempty"`
	RetryAfterSeconds *int       `json:"retry_after_seconds,omitempty"`
}

// Clone returns a copy that shares no mutable state with r.
func (r Response) Clone() Response {
	out := r
	if r.Answer != nil {
		a := *r.Answer
		out.Answer = &a
	}
	if r.Sources != nil {
		out.Sources = make([]json.RawMessage, len(r.Sources))
		for i, s := range r.Sources {
			out.Sources[i] = append(json.RawMessage(nil), s...)
		}
	}
	if r.LatencyMS != nil {
		l := *r.LatencyMS
		out.LatencyMS = &l
	}
	if r.Fallback != nil {
		f := *r.Fallback
		out.Fallback = &f
	}
	if r.Confidence != nil {
		c := *r.Confidence
		out.Confidence = &c
	}
	if r.CachedAt != nil {
		t := *r.CachedAt
		out.CachedAt = &t
	}
	if r.Resources != nil {
		out.Resources = append([]Resource(nil), r.Resources...)
	}
	if r.RetryAfterSeconds != nil {
		s := *r.RetryAfterSeconds
		out.RetryAfterSeconds = &s
	}
	return out
}

// Outcome is the result of one upstream call attempt.
type Outcome struct {
	Response   Response
	StatusCode int
	Err        error
	Duration   time.Duration
	Endpoint   string
}

// Succeeded reports whether the call counts as healthy: no transport error,
// a 2xx status and no error field in the payload.
func (o Outcome) Succeeded() bool {
	if o.Err != nil {
		return false
	}
	if o.StatusCode < http.StatusOK || o.StatusCode >= http.StatusMultipleChoices {
		return false
	}
	return strings.TrimSpace(o.Response.Error) == ""
}

// String is a pointer helper for optional payload fields.
func String(s string) *string { return &s }

func Float(f float64) *float64 { return &f }

func Int(i int) *int { return &i }

func TierPtr(t Tier) *Tier { return &t }
