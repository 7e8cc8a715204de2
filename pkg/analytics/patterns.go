package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/loglens/loglens/pkg/domain"
)

const maxClusterSamples = 3

// PatternCluster is a group of Error/Critical entries sharing a pattern
// signature, reported with root-cause heuristics.
type PatternCluster struct {
	Signature  string             `json:"signature"`
	Count      int                `json:"count"`
	FirstSeen  time.Time          `json:"first_seen"`
	LastSeen   time.Time          `json:"last_seen"`
	Samples    []*domain.LogEntry `json:"samples"`
	RootCause  string             `json:"root_cause"`
	Confidence float64            `json:"confidence"`
}

// ErrorPatterns clusters Error and Critical entries by extracted signature:
// the exception type when present, otherwise the first three meaningful
// tokens of the normalized message. Only clusters reaching minOccurrences
// are reported.
func (e *Engine) ErrorPatterns(minOccurrences int) []PatternCluster {
	if minOccurrences <= 0 {
		minOccurrences = 3
	}

	groups := make(map[string][]*domain.LogEntry)
	for _, entry := range e.source.Snapshot() {
		if entry.Level < domain.LevelError {
			continue
		}
		sig := patternSignature(entry)
		if sig == "" {
			continue
		}
		groups[sig] = append(groups[sig], entry)
	}

	var clusters []PatternCluster
	for sig, members := range groups {
		if len(members) < minOccurrences {
			continue
		}
		cluster := PatternCluster{
			Signature:  sig,
			Count:      len(members),
			FirstSeen:  members[0].Timestamp,
			LastSeen:   members[0].Timestamp,
			RootCause:  rootCauseHint(sig, members),
			Confidence: clusterConfidence(len(members)),
		}
		for _, m := range members {
			if m.Timestamp.Before(cluster.FirstSeen) {
				cluster.FirstSeen = m.Timestamp
			}
			if m.Timestamp.After(cluster.LastSeen) {
				cluster.LastSeen = m.Timestamp
			}
		}
		n := len(members)
		if n > maxClusterSamples {
			n = maxClusterSamples
		}
		cluster.Samples = members[:n]
		clusters = append(clusters, cluster)
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Count != clusters[j].Count {
			return clusters[i].Count > clusters[j].Count
		}
		return clusters[i].Signature < clusters[j].Signature
	})
	return clusters
}

// patternSignature extracts the grouping key for an error entry.
func patternSignature(entry *domain.LogEntry) string {
	if entry.ExceptionType != "" {
		return entry.ExceptionType
	}
	tokens := meaningfulTokens(entry.Message, 3)
	return strings.Join(tokens, " ")
}

// clusterConfidence steps at cluster sizes 3, 10, and 50.
func clusterConfidence(size int) float64 {
	switch {
	case size < 3:
		return 0.3
	case size < 10:
		return 0.5
	case size < 50:
		return 0.7
	default:
		return 0.9
	}
}

// rootCauseHint maps well-known failure keywords to canned explanations.
func rootCauseHint(signature string, members []*domain.LogEntry) string {
	text := strings.ToLower(signature)
	for _, m := range members {
		text += " " + strings.ToLower(m.Message)
		if len(text) > 4096 {
			break
		}
	}

	switch {
	case strings.Contains(text, "null"):
		return "Likely a null reference: an object was used before being initialized or after being disposed."
	case strings.Contains(text, "connection"):
		return "Connection failures: check network reachability and that the remote service is up and accepting connections."
	case strings.Contains(text, "timeout") || strings.Contains(text, "timed out"):
		return "Operations are timing out: the dependency may be overloaded or the configured timeout too aggressive."
	case strings.Contains(text, "permission") || strings.Contains(text, "access denied") || strings.Contains(text, "unauthorized"):
		return "Permission problems: the process lacks the rights it needs for a file, directory, or remote resource."
	case strings.Contains(text, "memory") || strings.Contains(text, "out of memory"):
		return "Memory pressure: the process is allocating more than is available; look for leaks or unbounded buffers."
	default:
		return "Recurring error pattern; inspect the sample entries for a common trigger."
	}
}
