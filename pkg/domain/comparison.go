package domain

// EntryPair is one matched left/right pair with its similarity score.
type EntryPair struct {
	Left       *LogEntry `json:"left"`
	Right      *LogEntry `json:"right"`
	Similarity float64   `json:"similarity"`
}

// ComparisonStats aggregates a comparison run.
type ComparisonStats struct {
	LeftCount         int     `json:"left_count"`
	RightCount        int     `json:"right_count"`
	IdenticalCount    int     `json:"identical_count"`
	SimilarCount      int     `json:"similar_count"`
	LeftOnlyCount     int     `json:"left_only_count"`
	RightOnlyCount    int     `json:"right_only_count"`
	OverallSimilarity float64 `json:"overall_similarity"` // percent
}

// ComparisonResult is the fuzzy diff between two entry sets.
type ComparisonResult struct {
	Identical []EntryPair     `json:"identical"`
	Similar   []EntryPair     `json:"similar"`
	LeftOnly  []*LogEntry     `json:"left_only"`
	RightOnly []*LogEntry     `json:"right_only"`
	Stats     ComparisonStats `json:"stats"`
}
