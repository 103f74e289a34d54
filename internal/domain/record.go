package domain

import "time"

// TimestampLayout is the canonical text form of record timestamps, both in
// log lines and in the store.
const TimestampLayout = "2006-01-02 15:04:05"

// StatisticKind identifies which statistic of a sampled reading a record
// carries. Every parameter quadruple in a log line expands into one record
// per kind.
type StatisticKind string

const (
	StatAvg StatisticKind = "avg"
	StatMin StatisticKind = "min"
	StatMax StatisticKind = "max"
)

// QualityTier is the per-record quality assessment assigned at parse time.
type QualityTier string

const (
	QualityExcellent QualityTier = "excellent"
	QualityGood      QualityTier = "good"
	QualityFair      QualityTier = "fair"
	QualityPoor      QualityTier = "poor"
)

// ParsedLine is the raw extraction from one matching log line: the combined
// count/max/min/avg quadruple before expansion into per-statistic records.
// Transient, consumed immediately by the cleaner.
type ParsedLine struct {
	Timestamp   time.Time
	Serial      string // machine serial number, empty when the line carries none
	RawName     string // parameter spelling as it appeared in the line
	ParameterID string // canonical id the raw name mapped to
	Count       int
	Max         float64
	Min         float64
	Avg         float64
	LineNumber  int
}

// Record is the persisted unit: one statistic of one parameter reading.
// Records are append-only; the (Timestamp, Serial, ParameterID, Statistic)
// tuple is deduplicated by the cleaner and watched by the validator, but the
// store does not enforce it as a constraint.
type Record struct {
	Timestamp   time.Time
	Serial      string
	ParameterID string
	Statistic   StatisticKind
	Value       float64
	Count       int
	Unit        string
	Description string
	Quality     QualityTier
	LineNumber  int
}

// Key returns the logical uniqueness key of the record.
func (r Record) Key() RecordKey {
	return RecordKey{
		Timestamp:   r.Timestamp.Unix(),
		Serial:      r.Serial,
		ParameterID: r.ParameterID,
		Statistic:   r.Statistic,
	}
}

// RecordKey is the comparable form of a record's uniqueness tuple.
type RecordKey struct {
	Timestamp   int64
	Serial      string
	ParameterID string
	Statistic   StatisticKind
}

// RecordSet is the output of one file parse: the cleaned records plus the
// counters accumulated while producing them.
type RecordSet struct {
	Records []Record
	Stats   ImportStats
}
