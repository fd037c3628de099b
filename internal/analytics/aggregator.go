package analytics

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// maxLatencySamples bounds the latency window used for percentiles.
	maxLatencySamples = 10000

	// DefaultTopQueries is how many queries Stats lists per ranking.
	DefaultTopQueries = 10
)

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	CacheHits         int64        `json:"cache_hits"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	Builds            int64        `json:"builds"`
	LastGeneration    string       `json:"last_generation,omitempty"`
	LastBuildAt       *time.Time   `json:"last_build_at,omitempty"`
	LastBuildMs       int64        `json:"last_build_duration_ms,omitempty"`
	IndexedDocuments  int          `json:"indexed_documents"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      int64        `json:"p50_latency_ms"`
	P95LatencyMs      int64        `json:"p95_latency_ms"`
	P99LatencyMs      int64        `json:"p99_latency_ms"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
	UptimeSeconds     float64      `json:"uptime_seconds"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps running totals of search and build events.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     atomic.Int64
	cacheHits         atomic.Int64
	zeroResults       atomic.Int64
	builds            atomic.Int64
	latencies         []int64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	lastBuild         IndexEvent
	startTime         time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
	}
}

// RecordSearch counts one search. Queries are keyed by their normalized terms
// when available so "Kucing!" and "kucing" count together.
func (a *Aggregator) RecordSearch(event SearchEvent) {
	a.totalSearches.Add(1)
	if event.CacheHit {
		a.cacheHits.Add(1)
	}
	if event.Returned == 0 {
		a.zeroResults.Add(1)
	}

	key := event.Query
	if len(event.Terms) > 0 {
		key = strings.Join(event.Terms, " ")
	}
	a.mu.Lock()
	if len(a.latencies) >= maxLatencySamples {
		a.latencies = a.latencies[1:]
	}
	a.latencies = append(a.latencies, event.LatencyMs)
	a.queryCounts[key]++
	if event.Returned == 0 {
		a.zeroResultQueries[key]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) RecordIndex(event IndexEvent) {
	a.builds.Add(1)
	a.mu.Lock()
	a.lastBuild = event
	a.mu.Unlock()
}

// Stats is StatsTop with DefaultTopQueries.
func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(DefaultTopQueries)
}

// StatsTop snapshots the totals, listing at most n top and zero-result
// queries.
func (a *Aggregator) StatsTop(n int) AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:    a.totalSearches.Load(),
		CacheHits:        a.cacheHits.Load(),
		ZeroResultCount:  a.zeroResults.Load(),
		Builds:           a.builds.Load(),
		LastGeneration:   a.lastBuild.Generation,
		IndexedDocuments: a.lastBuild.Documents,
		LastBuildMs:      a.lastBuild.DurationMs,
	}
	if !a.lastBuild.Timestamp.IsZero() {
		at := a.lastBuild.Timestamp
		stats.LastBuildAt = &at
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, n)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, n)
	uptime := time.Since(a.startTime)
	stats.UptimeSeconds = uptime.Seconds()
	if uptime > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / uptime.Minutes()
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n most frequent queries, ties broken alphabetically.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
