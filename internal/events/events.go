// Package events publishes search audit events to the event bus.
package events

import (
	"context"
	"time"
)

// Event types.
const (
	TypeSearchPerformed = "search.performed"
	TypeSearchDegraded  = "search.degraded"
)

// Event is one search audit record.
type Event struct {
	// Type is the event type.
	Type string `json:"type"`

	// Timestamp is when the event was created (unix seconds).
	Timestamp int64 `json:"timestamp"`

	// Fingerprint identifies the query without exposing its text.
	Fingerprint string `json:"fingerprint"`

	// Mode is the search mode used.
	Mode string `json:"mode"`

	// ProjectCount is the size of the dispatched scope.
	ProjectCount int `json:"project_count"`

	// TotalCount is the (capped) reported match total.
	TotalCount int `json:"total_count"`

	// FromCache is true when the page came out of the cache.
	FromCache bool `json:"from_cache"`

	// DurationMs is the wall time of the whole search call.
	DurationMs int64 `json:"duration_ms"`

	// Error carries the degradation message for degraded searches.
	Error string `json:"error,omitempty"`
}

// Publisher emits search audit events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Stamp fills the timestamp if unset and returns the event.
func Stamp(event Event) Event {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	return event
}
