// Package analytics records search and index-build events. Events are counted
// in-process for the stats endpoint and, when Kafka is enabled, published to
// the configured topics.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventCacheHit   EventType = "cache_hit"
	EventZeroResult EventType = "zero_result"
	EventIndexBuild EventType = "index_build"
)

type SearchEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	Terms      []string  `json:"terms"`
	Candidates int       `json:"candidates"`
	Returned   int       `json:"returned"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Generation string    `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

// IndexEvent describes one completed build.
type IndexEvent struct {
	Type       EventType `json:"type"`
	Generation string    `json:"generation"`
	Backend    string    `json:"backend"`
	Documents  int       `json:"documents"`
	Skipped    int       `json:"skipped"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
