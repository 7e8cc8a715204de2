// Package compare produces a fuzzy diff between two entry sets using
// weighted field similarity. Complexity is O(|left|*|right|); callers pass
// bounded snapshots, not full corpora.
package compare

import (
	"time"

	"go.uber.org/zap"

	"github.com/loglens/loglens/pkg/domain"
)

// DefaultThreshold is the minimum weighted similarity for a pair to match.
const DefaultThreshold = 0.8

// identicalCutoff classifies a matched pair as identical rather than similar.
const identicalCutoff = 0.99

// Similarity weights per field.
const (
	weightLevel     = 0.20
	weightSource    = 0.15
	weightMessage   = 0.45
	weightTimestamp = 0.10
	weightException = 0.10
)

// Comparer computes fuzzy diffs between entry sets.
type Comparer struct {
	logger *zap.Logger
}

// New creates a Comparer.
func New(logger *zap.Logger) *Comparer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Comparer{logger: logger.Named("compare")}
}

// Compare matches every left entry against the best unconsumed right entry
// scoring above threshold (<=0 means DefaultThreshold). A claimed right
// entry cannot match a second left entry.
func (c *Comparer) Compare(left, right []*domain.LogEntry, threshold float64) *domain.ComparisonResult {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	result := &domain.ComparisonResult{}
	claimed := make([]bool, len(right))

	for _, l := range left {
		bestIdx, bestScore := -1, 0.0
		for i, r := range right {
			if claimed[i] {
				continue
			}
			if score := Similarity(l, r); score > bestScore {
				bestIdx, bestScore = i, score
			}
		}
		if bestIdx >= 0 && bestScore >= threshold {
			claimed[bestIdx] = true
			pair := domain.EntryPair{Left: l, Right: right[bestIdx], Similarity: bestScore}
			if bestScore >= identicalCutoff {
				result.Identical = append(result.Identical, pair)
			} else {
				result.Similar = append(result.Similar, pair)
			}
		} else {
			result.LeftOnly = append(result.LeftOnly, l)
		}
	}
	for i, r := range right {
		if !claimed[i] {
			result.RightOnly = append(result.RightOnly, r)
		}
	}

	result.Stats = buildStats(len(left), len(right), result)
	c.logger.Debug("comparison finished",
		zap.Int("left", len(left)),
		zap.Int("right", len(right)),
		zap.Float64("overall_similarity", result.Stats.OverallSimilarity))
	return result
}

// Similarity is the weighted per-field similarity of two entries, in [0,1].
func Similarity(l, r *domain.LogEntry) float64 {
	score := 0.0
	if l.Level == r.Level {
		score += weightLevel
	}
	score += weightSource * stringSimilarity(l.Source, r.Source)
	score += weightMessage * stringSimilarity(l.Message, r.Message)
	score += weightTimestamp * timestampProximity(l.Timestamp, r.Timestamp)
	score += weightException * exceptionSimilarity(l, r)
	return score
}

// timestampProximity gives full credit under a minute apart, decaying
// linearly to zero beyond 24 hours.
func timestampProximity(a, b time.Time) float64 {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	if diff < time.Minute {
		return 1
	}
	if diff >= 24*time.Hour {
		return 0
	}
	return 1 - float64(diff-time.Minute)/float64(24*time.Hour-time.Minute)
}

// exceptionSimilarity gives full credit when both entries lack exceptions.
func exceptionSimilarity(l, r *domain.LogEntry) float64 {
	if !l.HasException() && !r.HasException() {
		return 1
	}
	if l.HasException() != r.HasException() {
		return 0
	}
	return stringSimilarity(
		l.ExceptionType+": "+l.ExceptionMessage,
		r.ExceptionType+": "+r.ExceptionMessage,
	)
}

func buildStats(leftN, rightN int, r *domain.ComparisonResult) domain.ComparisonStats {
	maxN := leftN
	if rightN > maxN {
		maxN = rightN
	}
	overall := 0.0
	if maxN > 0 {
		overall = 100 * (float64(len(r.Identical)) + 0.7*float64(len(r.Similar))) / float64(maxN)
	}
	return domain.ComparisonStats{
		LeftCount:         leftN,
		RightCount:        rightN,
		IdenticalCount:    len(r.Identical),
		SimilarCount:      len(r.Similar),
		LeftOnlyCount:     len(r.LeftOnly),
		RightOnlyCount:    len(r.RightOnly),
		OverallSimilarity: overall,
	}
}
