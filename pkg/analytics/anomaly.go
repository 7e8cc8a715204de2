package analytics

import "github.com/loglens/loglens/pkg/domain"

// Rarity weights and frequency cutoffs for the anomaly heuristic. This is a
// deliberately simple rarity score, not a statistical model.
const (
	anomalyLevelWeight   = 0.3
	anomalyLevelCutoff   = 0.05
	anomalySourceWeight  = 0.2
	anomalySourceCutoff  = 0.02
	anomalyPatternWeight = 0.5
	anomalyPatternCutoff = 0.01

	// AnomalyFlagThreshold marks an entry anomalous when exceeded.
	AnomalyFlagThreshold = 0.7
)

// ScoredEntry is an entry with its anomaly score relative to its context.
type ScoredEntry struct {
	Entry     *domain.LogEntry `json:"entry"`
	Score     float64          `json:"score"`
	Anomalous bool             `json:"anomalous"`
}

// AnomalyScores scores every entry in the context set against the set's own
// level, source, and pattern frequencies.
func (e *Engine) AnomalyScores() []ScoredEntry {
	return ScoreAnomalies(e.source.Snapshot())
}

// ScoreAnomalies scores each entry against the frequencies of the given
// context set.
func ScoreAnomalies(context []*domain.LogEntry) []ScoredEntry {
	total := float64(len(context))
	if total == 0 {
		return nil
	}

	levelCounts := make(map[domain.Level]int)
	sourceCounts := make(map[string]int)
	patternCounts := make(map[string]int)
	for _, entry := range context {
		levelCounts[entry.Level]++
		sourceCounts[entry.Source]++
		patternCounts[NormalizeMessage(entry.Message)]++
	}

	out := make([]ScoredEntry, 0, len(context))
	for _, entry := range context {
		score := 0.0
		if float64(levelCounts[entry.Level])/total < anomalyLevelCutoff {
			score += anomalyLevelWeight
		}
		if float64(sourceCounts[entry.Source])/total < anomalySourceCutoff {
			score += anomalySourceWeight
		}
		if float64(patternCounts[NormalizeMessage(entry.Message)])/total < anomalyPatternCutoff {
			score += anomalyPatternWeight
		}
		out = append(out, ScoredEntry{
			Entry:     entry,
			Score:     score,
			Anomalous: score > AnomalyFlagThreshold,
		})
	}
	return out
}

// Anomalies returns only the entries flagged anomalous.
func (e *Engine) Anomalies() []ScoredEntry {
	var out []ScoredEntry
	for _, scored := range e.AnomalyScores() {
		if scored.Anomalous {
			out = append(out, scored)
		}
	}
	return out
}
