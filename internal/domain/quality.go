package domain

// ChunkResult is the quality assessment of one validated chunk of records.
type ChunkResult struct {
	ChunkNumber int
	RecordCount int

	RangeScore        float64 // 0-100, expected/critical range compliance
	TimestampScore    float64 // 0-100, realism, gaps, ordering
	DuplicateScore    float64 // 0-100, near-duplicates within the time window
	CompletenessScore float64 // 0-100, non-null coverage of required fields

	Anomalies int
	Warnings  []string

	// OutOfRange references records outside the expected range, keyed by
	// canonical parameter id, values are source line numbers.
	OutOfRange map[string][]int
}

// Score is the unweighted mean of the four sub-scores.
func (c ChunkResult) Score() float64 {
	return (c.RangeScore + c.TimestampScore + c.DuplicateScore + c.CompletenessScore) / 4
}

// QualitySummary is the fleet-wide quality state accumulated over all chunks
// of one import session.
type QualitySummary struct {
	Score            float64 // record-count-weighted moving average of chunk scores
	Grade            string  // A+ .. F
	Completeness     float64
	RecordsProcessed int
	RecordsPassed    int
	RecordsFailed    int
	Anomalies        int
	ChunksScored     int
	WarningCount     int
	Warnings         []string // most recent warnings, capped
}

// QualityGrade converts a 0-100 quality score to a letter grade.
func QualityGrade(score float64) string {
	switch {
	case score >= 95:
		return "A+"
	case score >= 90:
		return "A"
	case score >= 85:
		return "B+"
	case score >= 80:
		return "B"
	case score >= 75:
		return "C+"
	case score >= 70:
		return "C"
	case score >= 65:
		return "D+"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}
