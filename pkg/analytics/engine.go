// Package analytics computes statistics, trends, top-N aggregations, error
// pattern clusters, anomaly scores, and heatmaps over stored entries. All
// scoring is frequency-based heuristics, not statistical modeling.
package analytics

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/loglens/loglens/pkg/domain"
)

// EntrySource is the read surface analytics needs from the store.
type EntrySource interface {
	Snapshot() []*domain.LogEntry
}

// Engine answers analytics queries against an entry source.
type Engine struct {
	source EntrySource
	logger *zap.Logger
}

// New creates an analytics engine reading from the given source.
func New(source EntrySource, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{source: source, logger: logger.Named("analytics")}
}

// Statistics is a one-pass summary of the current entry set.
type Statistics struct {
	Total       int                  `json:"total"`
	ByLevel     map[domain.Level]int `json:"by_level"`
	Oldest      time.Time            `json:"oldest"`
	Newest      time.Time            `json:"newest"`
	ErrorRate   float64              `json:"error_rate"`
	WarningRate float64              `json:"warning_rate"`
	HealthScore float64              `json:"health_score"`
}

// Health score penalty weights, biased toward Critical and Error counts.
const (
	healthCriticalWeight = 1.0
	healthErrorWeight    = 0.6
	healthWarningWeight  = 0.2
)

// Statistics computes per-level counts, time extent, rates, and the
// composite health score.
func (e *Engine) Statistics() Statistics {
	entries := e.source.Snapshot()
	stats := Statistics{
		ByLevel:     make(map[domain.Level]int),
		HealthScore: 100,
	}
	stats.Total = len(entries)
	if stats.Total == 0 {
		return stats
	}

	stats.Oldest, stats.Newest = entries[0].Timestamp, entries[0].Timestamp
	for _, entry := range entries {
		stats.ByLevel[entry.Level]++
		if entry.Timestamp.Before(stats.Oldest) {
			stats.Oldest = entry.Timestamp
		}
		if entry.Timestamp.After(stats.Newest) {
			stats.Newest = entry.Timestamp
		}
	}

	total := float64(stats.Total)
	criticalRate := float64(stats.ByLevel[domain.LevelCritical]) / total
	stats.ErrorRate = float64(stats.ByLevel[domain.LevelError]+stats.ByLevel[domain.LevelCritical]) / total
	stats.WarningRate = float64(stats.ByLevel[domain.LevelWarning]) / total

	penalty := 100 * (healthCriticalWeight*criticalRate +
		healthErrorWeight*float64(stats.ByLevel[domain.LevelError])/total +
		healthWarningWeight*stats.WarningRate)
	stats.HealthScore = clamp(100-penalty, 0, 100)
	return stats
}

// TrendPoint is one fixed-width time bucket. Buckets with zero entries are
// still emitted so charts have no gaps.
type TrendPoint struct {
	Start   time.Time            `json:"start"`
	Count   int                  `json:"count"`
	ByLevel map[domain.Level]int `json:"by_level"`
}

// maxTrendPoints bounds one Trend result. A single entry with a garbage
// decades-off timestamp must not translate into millions of empty buckets;
// the bucket is widened instead.
const maxTrendPoints = 5000

// Trend buckets entries into fixed-width windows spanning the full
// [oldest, newest] range.
func (e *Engine) Trend(bucket time.Duration) []TrendPoint {
	entries := e.source.Snapshot()
	if len(entries) == 0 {
		return nil
	}
	if bucket <= 0 {
		bucket = time.Hour
	}

	oldest, newest := entries[0].Timestamp, entries[0].Timestamp
	for _, entry := range entries {
		if entry.Timestamp.Before(oldest) {
			oldest = entry.Timestamp
		}
		if entry.Timestamp.After(newest) {
			newest = entry.Timestamp
		}
	}

	if span := newest.Sub(oldest); span/bucket >= maxTrendPoints {
		bucket = span / (maxTrendPoints - 1)
	}
	start := oldest.Truncate(bucket)
	n := int(newest.Sub(start)/bucket) + 1
	points := make([]TrendPoint, n)
	for i := range points {
		points[i] = TrendPoint{
			Start:   start.Add(time.Duration(i) * bucket),
			ByLevel: make(map[domain.Level]int),
		}
	}
	for _, entry := range entries {
		i := int(entry.Timestamp.Sub(start) / bucket)
		if i < 0 || i >= n {
			continue
		}
		points[i].Count++
		points[i].ByLevel[entry.Level]++
	}
	return points
}

// TopGroup is one group of a top-N aggregation.
type TopGroup struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// TopMessages groups entries by normalized message signature, descending by
// count.
func (e *Engine) TopMessages(n int) []TopGroup {
	return topBy(e.source.Snapshot(), n, func(entry *domain.LogEntry) string {
		return NormalizeMessage(entry.Message)
	})
}

// TopErrors is TopMessages restricted to Error and Critical entries.
func (e *Engine) TopErrors(n int) []TopGroup {
	var errs []*domain.LogEntry
	for _, entry := range e.source.Snapshot() {
		if entry.Level >= domain.LevelError {
			errs = append(errs, entry)
		}
	}
	return topBy(errs, n, func(entry *domain.LogEntry) string {
		return NormalizeMessage(entry.Message)
	})
}

// TopSources groups entries by source, descending by count.
func (e *Engine) TopSources(n int) []TopGroup {
	return topBy(e.source.Snapshot(), n, func(entry *domain.LogEntry) string {
		return entry.Source
	})
}

func topBy(entries []*domain.LogEntry, n int, key func(*domain.LogEntry) string) []TopGroup {
	counts := make(map[string]int)
	for _, entry := range entries {
		counts[key(entry)]++
	}
	groups := make([]TopGroup, 0, len(counts))
	for k, c := range counts {
		groups = append(groups, TopGroup{Key: k, Count: c})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Key < groups[j].Key
	})
	if n > 0 && len(groups) > n {
		groups = groups[:n]
	}
	return groups
}

// HourlyHeatmap counts entries per hour-of-day across all dates.
func (e *Engine) HourlyHeatmap() [24]int {
	var heatmap [24]int
	for _, entry := range e.source.Snapshot() {
		heatmap[entry.Timestamp.Hour()]++
	}
	return heatmap
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
