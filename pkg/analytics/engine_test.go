package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/loglens/loglens/pkg/domain"
)

type sliceSource []*domain.LogEntry

func (s sliceSource) Snapshot() []*domain.LogEntry { return s }

func mk(level domain.Level, source, msg string, ts time.Time) *domain.LogEntry {
	return &domain.LogEntry{Timestamp: ts, Level: level, Source: source, Message: msg}
}

func TestStatisticsEmptySet(t *testing.T) {
	e := New(sliceSource{}, zap.NewNop())
	stats := e.Statistics()
	assert.Zero(t, stats.Total)
	assert.Equal(t, 100.0, stats.HealthScore)
}

func TestStatisticsCountsAndHealth(t *testing.T) {
	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	var entries []*domain.LogEntry
	for i := 0; i < 8; i++ {
		entries = append(entries, mk(domain.LevelInfo, "api", "ok", base.Add(time.Duration(i)*time.Minute)))
	}
	entries = append(entries, mk(domain.LevelError, "api", "boom", base.Add(time.Hour)))
	entries = append(entries, mk(domain.LevelWarning, "api", "slow", base.Add(-time.Hour)))

	stats := New(sliceSource(entries), zap.NewNop()).Statistics()
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 8, stats.ByLevel[domain.LevelInfo])
	assert.Equal(t, base.Add(-time.Hour), stats.Oldest)
	assert.Equal(t, base.Add(time.Hour), stats.Newest)
	assert.InDelta(t, 0.1, stats.ErrorRate, 1e-9)
	assert.InDelta(t, 0.1, stats.WarningRate, 1e-9)
	// penalty = 100*(0.6*0.1 + 0.2*0.1) = 8
	assert.InDelta(t, 92.0, stats.HealthScore, 1e-9)
}

func TestHealthScoreClampsAtZero(t *testing.T) {
	var entries []*domain.LogEntry
	for i := 0; i < 10; i++ {
		entries = append(entries, mk(domain.LevelCritical, "api", "down", time.Now()))
	}
	stats := New(sliceSource(entries), zap.NewNop()).Statistics()
	assert.Equal(t, 0.0, stats.HealthScore)
}

func TestTrendEmitsGapFreeBuckets(t *testing.T) {
	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	entries := []*domain.LogEntry{
		mk(domain.LevelInfo, "api", "a", base),
		mk(domain.LevelError, "api", "b", base.Add(5*time.Minute)),
		// nothing between 11:00 and 13:00
		mk(domain.LevelInfo, "api", "c", base.Add(3*time.Hour)),
	}

	points := New(sliceSource(entries), zap.NewNop()).Trend(time.Hour)
	require.Len(t, points, 4)
	assert.Equal(t, base, points[0].Start)
	assert.Equal(t, 2, points[0].Count)
	assert.Equal(t, 1, points[0].ByLevel[domain.LevelError])
	assert.Equal(t, 0, points[1].Count, "empty buckets are still emitted")
	assert.Equal(t, 0, points[2].Count)
	assert.Equal(t, 1, points[3].Count)
}

func TestTrendEmptySet(t *testing.T) {
	assert.Nil(t, New(sliceSource{}, zap.NewNop()).Trend(time.Hour))
}

func TestTrendWidensBucketOnExtremeSpans(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	entries := []*domain.LogEntry{
		// A mis-parsed timestamp decades in the past.
		mk(domain.LevelInfo, "api", "ancient", now.AddDate(-100, 0, 0)),
		mk(domain.LevelInfo, "api", "current", now),
	}

	points := New(sliceSource(entries), zap.NewNop()).Trend(time.Second)
	require.NotEmpty(t, points)
	assert.LessOrEqual(t, len(points), maxTrendPoints+1, "bucket count stays bounded")

	total := 0
	for _, p := range points {
		total += p.Count
	}
	assert.Equal(t, 2, total, "no entry falls outside the widened buckets")
	assert.Equal(t, 1, points[0].Count)
	assert.Equal(t, 1, points[len(points)-1].Count)
}

func TestTopMessagesGroupsByNormalizedSignature(t *testing.T) {
	base := time.Now()
	entries := []*domain.LogEntry{
		mk(domain.LevelInfo, "api", "request 17 took 250 ms", base),
		mk(domain.LevelInfo, "api", "request 94 took 12 ms", base),
		mk(domain.LevelInfo, "api", "request 3 took 991 ms", base),
		mk(domain.LevelInfo, "api", "cache warmed", base),
	}

	top := New(sliceSource(entries), zap.NewNop()).TopMessages(10)
	require.NotEmpty(t, top)
	assert.Equal(t, "request <n> took <n> ms", top[0].Key)
	assert.Equal(t, 3, top[0].Count)
}

func TestTopErrorsIgnoresLowerLevels(t *testing.T) {
	base := time.Now()
	entries := []*domain.LogEntry{
		mk(domain.LevelInfo, "api", "db write failed", base),
		mk(domain.LevelError, "api", "db write failed", base),
		mk(domain.LevelCritical, "api", "db write failed", base),
	}
	top := New(sliceSource(entries), zap.NewNop()).TopErrors(10)
	require.Len(t, top, 1)
	assert.Equal(t, 2, top[0].Count, "Info entries do not count as errors")
}

func TestTopSourcesOrderedByCountThenKey(t *testing.T) {
	base := time.Now()
	entries := []*domain.LogEntry{
		mk(domain.LevelInfo, "worker", "x", base),
		mk(domain.LevelInfo, "api", "x", base),
		mk(domain.LevelInfo, "api", "x", base),
		mk(domain.LevelInfo, "ui", "x", base),
	}
	top := New(sliceSource(entries), zap.NewNop()).TopSources(2)
	require.Len(t, top, 2)
	assert.Equal(t, TopGroup{Key: "api", Count: 2}, top[0])
	assert.Equal(t, TopGroup{Key: "ui", Count: 1}, top[1], "ties break alphabetically")
}

func TestHourlyHeatmap(t *testing.T) {
	entries := []*domain.LogEntry{
		mk(domain.LevelInfo, "api", "x", time.Date(2026, 8, 27, 9, 15, 0, 0, time.UTC)),
		mk(domain.LevelInfo, "api", "x", time.Date(2026, 8, 28, 9, 45, 0, 0, time.UTC)),
		mk(domain.LevelInfo, "api", "x", time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC)),
	}
	heatmap := New(sliceSource(entries), zap.NewNop()).HourlyHeatmap()
	assert.Equal(t, 2, heatmap[9], "same hour across different days accumulates")
	assert.Equal(t, 1, heatmap[23])
	assert.Equal(t, 0, heatmap[0])
}

func TestNormalizeMessage(t *testing.T) {
	tests := []struct{ in, want string }{
		{"started at 2026-08-28T10:00:00Z", "started at <ts>"},
		{"user 42 logged in", "user <n> logged in"},
		{"session 550e8400-e29b-41d4-a716-446655440000 expired", "session <guid> expired"},
		{"wrote /var/log/app/current.log", "wrote <path>"},
		{"plain message", "plain message"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeMessage(tt.in), tt.in)
	}
}

func TestErrorPatternsClustersAndHints(t *testing.T) {
	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	var entries []*domain.LogEntry
	for i := 0; i < 3; i++ {
		e := mk(domain.LevelError, "api", fmt.Sprintf("object reference not set, id %d", i), base.Add(time.Duration(i)*time.Minute))
		e.ExceptionType = "NullReferenceException"
		entries = append(entries, e)
	}
	// Below the occurrence floor, must not be reported.
	entries = append(entries, mk(domain.LevelError, "api", "disk quota exceeded on volume alpha", base))

	clusters := New(sliceSource(entries), zap.NewNop()).ErrorPatterns(0)
	require.Len(t, clusters, 1)
	c := clusters[0]
	assert.Equal(t, "NullReferenceException", c.Signature)
	assert.Equal(t, 3, c.Count)
	assert.Equal(t, base, c.FirstSeen)
	assert.Equal(t, base.Add(2*time.Minute), c.LastSeen)
	assert.Equal(t, 0.5, c.Confidence)
	assert.Contains(t, c.RootCause, "null reference")
	assert.Len(t, c.Samples, 3)
}

func TestErrorPatternsTokenSignatureFallback(t *testing.T) {
	base := time.Now()
	var entries []*domain.LogEntry
	for i := 0; i < 4; i++ {
		entries = append(entries, mk(domain.LevelCritical, "db", fmt.Sprintf("connection refused by host %d", i), base))
	}
	clusters := New(sliceSource(entries), zap.NewNop()).ErrorPatterns(3)
	require.Len(t, clusters, 1)
	assert.Equal(t, "connection refused host", clusters[0].Signature)
	assert.Contains(t, clusters[0].RootCause, "Connection failures")
}

func TestClusterConfidenceSteps(t *testing.T) {
	assert.Equal(t, 0.3, clusterConfidence(2))
	assert.Equal(t, 0.5, clusterConfidence(3))
	assert.Equal(t, 0.5, clusterConfidence(9))
	assert.Equal(t, 0.7, clusterConfidence(10))
	assert.Equal(t, 0.7, clusterConfidence(49))
	assert.Equal(t, 0.9, clusterConfidence(50))
}

func TestAnomalyScoringFlagsTheRareEntry(t *testing.T) {
	base := time.Now()
	var entries []*domain.LogEntry
	for i := 0; i < 200; i++ {
		entries = append(entries, mk(domain.LevelInfo, "api", "heartbeat ok", base))
	}
	rare := mk(domain.LevelCritical, "billing", "ledger checksum mismatch detected", base)
	entries = append(entries, rare)

	scored := ScoreAnomalies(entries)
	require.Len(t, scored, 201)

	var rareScore float64
	for _, s := range scored {
		if s.Entry == rare {
			rareScore = s.Score
			assert.True(t, s.Anomalous)
		} else {
			assert.False(t, s.Anomalous)
			assert.Equal(t, 0.0, s.Score)
		}
	}
	assert.InDelta(t, 1.0, rareScore, 1e-9, "rare level, source, and pattern all contribute")
}

func TestAnomaliesFiltersToFlagged(t *testing.T) {
	base := time.Now()
	var entries []*domain.LogEntry
	for i := 0; i < 150; i++ {
		entries = append(entries, mk(domain.LevelInfo, "api", "tick", base))
	}
	entries = append(entries, mk(domain.LevelCritical, "gpu", "thermal shutdown imminent", base))

	anomalies := New(sliceSource(entries), zap.NewNop()).Anomalies()
	require.Len(t, anomalies, 1)
	assert.Equal(t, "thermal shutdown imminent", anomalies[0].Entry.Message)
}

func TestAnomalyScoresEmptyContext(t *testing.T) {
	assert.Nil(t, ScoreAnomalies(nil))
}
