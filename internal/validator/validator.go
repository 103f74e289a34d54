package validator

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gobioeng/halog-ingest/internal/domain"
	"github.com/gobioeng/halog-ingest/internal/registry"
	"github.com/rs/zerolog/log"
)

// Config holds the validation windows and limits.
type Config struct {
	DuplicateWindow time.Duration // pairs closer than this are duplicate candidates
	MaxTimestampGap time.Duration // larger gaps between consecutive readings are flagged
	MinTimestamp    time.Time     // earliest realistic timestamp
	MaxTimestamp    time.Time     // latest realistic timestamp
	WarningLimit    int           // retained warnings across the session
}

// DefaultConfig returns the stock validation settings.
func DefaultConfig() Config {
	return Config{
		DuplicateWindow: 30 * time.Second,
		MaxTimestampGap: 24 * time.Hour,
		MinTimestamp:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxTimestamp:    time.Date(2030, 12, 31, 23, 59, 59, 0, time.UTC),
		WarningLimit:    100,
	}
}

// Validator scores chunks of cleaned records on four quality dimensions and
// folds the results into a running fleet-wide quality state. The state lives
// for one import session; Reset starts the next one.
type Validator struct {
	cfg      Config
	registry *registry.Registry

	mu               sync.Mutex
	recordsProcessed int
	anomalies        int
	chunksScored     int
	fleetScore       float64 // record-count-weighted moving average
	completeness     float64 // same weighting
	warnings         []string
}

// New creates a validator backed by the given registry.
func New(reg *registry.Registry, cfg Config) *Validator {
	if cfg.WarningLimit <= 0 {
		cfg.WarningLimit = DefaultConfig().WarningLimit
	}
	return &Validator{cfg: cfg, registry: reg}
}

// ValidateChunk scores one chunk. It does not touch the fleet state; pass
// the result to Fold for that.
func (v *Validator) ValidateChunk(records []domain.Record, chunkNumber int) domain.ChunkResult {
	result := domain.ChunkResult{
		ChunkNumber: chunkNumber,
		RecordCount: len(records),
		OutOfRange:  make(map[string][]int),
	}

	if len(records) == 0 {
		result.RangeScore = 100
		result.TimestampScore = 100
		result.DuplicateScore = 100
		result.CompletenessScore = 100
		return result
	}

	v.scoreRanges(records, &result)
	v.scoreTimestamps(records, &result)
	v.scoreDuplicates(records, &result)
	v.scoreCompleteness(records, &result)

	log.Debug().
		Int("chunk", chunkNumber).
		Int("records", len(records)).
		Float64("score", result.Score()).
		Int("anomalies", result.Anomalies).
		Msg("Chunk validated")

	return result
}

// scoreRanges checks expected/critical range compliance per parameter.
// Per-parameter scores are averaged unweighted into the sub-score. Only avg
// records are considered: min/max rows restate the same reading.
func (v *Validator) scoreRanges(records []domain.Record, result *domain.ChunkResult) {
	type paramStats struct {
		total       int
		outExpected int
		outCritical int
		lines       []int
	}
	perParam := make(map[string]*paramStats)

	for _, rec := range records {
		if rec.Statistic != domain.StatAvg {
			continue
		}
		def, ok := v.registry.Lookup(rec.ParameterID)
		if !ok || def.ExpectedRange.Width() <= 0 {
			continue
		}

		ps := perParam[rec.ParameterID]
		if ps == nil {
			ps = &paramStats{}
			perParam[rec.ParameterID] = ps
		}
		ps.total++
		if !def.ExpectedRange.Contains(rec.Value) {
			ps.outExpected++
			ps.lines = append(ps.lines, rec.LineNumber)
		}
		if !def.CriticalRange.Contains(rec.Value) {
			ps.outCritical++
		}
	}

	if len(perParam) == 0 {
		result.RangeScore = 100
		return
	}

	var sum float64
	for id, ps := range perParam {
		score := float64(ps.total-ps.outExpected) / float64(ps.total) * 100
		if ps.outCritical > 0 {
			penalty := float64(ps.outCritical) / float64(ps.total) * 50
			score -= penalty
			if score < 0 {
				score = 0
			}
		}
		sum += score

		result.Anomalies += ps.outExpected
		if ps.outExpected > 0 {
			def, _ := v.registry.Lookup(id)
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"%s: %d/%d values outside expected range [%g-%g]%s",
				def.Description, ps.outExpected, ps.total,
				def.ExpectedRange.Min, def.ExpectedRange.Max, def.Unit))
			result.OutOfRange[id] = ps.lines
		}
		if ps.outCritical > 0 {
			def, _ := v.registry.Lookup(id)
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"%s: %d values outside critical range [%g-%g]%s",
				def.Description, ps.outCritical,
				def.CriticalRange.Min, def.CriticalRange.Max, def.Unit))
		}
	}
	result.RangeScore = sum / float64(len(perParam))
}

// scoreTimestamps flags unrealistic timestamps, large gaps between
// consecutive sorted readings, and out-of-sequence pairs in arrival order.
func (v *Validator) scoreTimestamps(records []domain.Record, result *domain.ChunkResult) {
	unrealistic := 0
	outOfSequence := 0

	timestamps := make([]time.Time, 0, len(records))
	for i, rec := range records {
		if rec.Timestamp.Before(v.cfg.MinTimestamp) || rec.Timestamp.After(v.cfg.MaxTimestamp) {
			unrealistic++
		}
		if i > 0 && rec.Timestamp.Before(records[i-1].Timestamp) {
			outOfSequence++
		}
		timestamps = append(timestamps, rec.Timestamp)
	}

	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

	largeGaps := 0
	for i := 1; i < len(timestamps); i++ {
		if timestamps[i].Sub(timestamps[i-1]) > v.cfg.MaxTimestampGap {
			largeGaps++
		}
	}

	if unrealistic > 0 {
		result.Anomalies += unrealistic
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d unrealistic timestamps found", unrealistic))
	}
	if largeGaps > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d large time gaps detected (>%s)", largeGaps, v.cfg.MaxTimestampGap))
	}
	if outOfSequence > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d timestamps out of sequence", outOfSequence))
	}

	deductions := float64(unrealistic*10 + largeGaps*5 + outOfSequence*1)
	score := 100 - deductions/float64(len(records))*100
	if score < 0 {
		score = 0
	}
	result.TimestampScore = score
}

// scoreDuplicates groups readings by (serial, parameter), sorts by time and
// flags consecutive pairs inside the duplicate window. One avg record stands
// for each reading. Score decays 2 points per percentage point of duplicate
// rate.
func (v *Validator) scoreDuplicates(records []domain.Record, result *domain.ChunkResult) {
	type groupKey struct {
		serial    string
		parameter string
	}
	groups := make(map[groupKey][]time.Time)

	considered := 0
	for _, rec := range records {
		if rec.Statistic != domain.StatAvg {
			continue
		}
		considered++
		key := groupKey{serial: rec.Serial, parameter: rec.ParameterID}
		groups[key] = append(groups[key], rec.Timestamp)
	}

	duplicates := 0
	for _, times := range groups {
		if len(times) < 2 {
			continue
		}
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
		for i := 1; i < len(times); i++ {
			if times[i].Sub(times[i-1]) <= v.cfg.DuplicateWindow {
				duplicates++
			}
		}
	}

	if duplicates == 0 || considered == 0 {
		result.DuplicateScore = 100
		return
	}

	result.Anomalies += duplicates
	result.Warnings = append(result.Warnings, fmt.Sprintf(
		"%d potential duplicate entries found within %s", duplicates, v.cfg.DuplicateWindow))

	rate := float64(duplicates) / float64(considered) * 100
	score := 100 - rate*2
	if score < 0 {
		score = 0
	}
	result.DuplicateScore = score
}

// scoreCompleteness measures the non-null fraction across the tracked
// fields. Timestamp, parameter and value are the critical ones; a missing
// serial or unit degrades the score without being critical.
func (v *Validator) scoreCompleteness(records []domain.Record, result *domain.ChunkResult) {
	const fieldsPerRecord = 7 // timestamp, serial, parameter, statistic, value, count, unit

	missing := 0
	missingCritical := 0
	for _, rec := range records {
		if rec.Timestamp.IsZero() {
			missing++
			missingCritical++
		}
		if rec.ParameterID == "" {
			missing++
			missingCritical++
		}
		if rec.Serial == "" {
			missing++
		}
		if rec.Unit == "" {
			missing++
		}
		if rec.Count == 0 {
			missing++
		}
	}

	totalCells := len(records) * fieldsPerRecord
	pct := float64(missing) / float64(totalCells) * 100
	score := 100 - pct
	if score < 0 {
		score = 0
	}
	result.CompletenessScore = score

	if pct > 10 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("high missing data percentage: %.1f%%", pct))
	}
	if missingCritical > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d missing values in critical fields", missingCritical))
	}
}

// Fold merges a chunk result into the fleet state. The fleet score is a
// record-count-weighted moving average, so large chunks pull it
// proportionally harder than small ones.
func (v *Validator) Fold(result domain.ChunkResult) {
	v.mu.Lock()
	defer v.mu.Unlock()

	prev := v.recordsProcessed
	v.recordsProcessed += result.RecordCount
	v.anomalies += result.Anomalies
	v.chunksScored++

	if v.recordsProcessed > 0 {
		total := float64(v.recordsProcessed)
		v.fleetScore = (v.fleetScore*float64(prev) + result.Score()*float64(result.RecordCount)) / total
		v.completeness = (v.completeness*float64(prev) + result.CompletenessScore*float64(result.RecordCount)) / total
	}

	v.warnings = append(v.warnings, result.Warnings...)
	if len(v.warnings) > v.cfg.WarningLimit {
		v.warnings = v.warnings[len(v.warnings)-v.cfg.WarningLimit:]
	}
}

// Summary returns the current fleet quality summary.
func (v *Validator) Summary() domain.QualitySummary {
	v.mu.Lock()
	defer v.mu.Unlock()

	passed := v.recordsProcessed - v.anomalies
	if passed < 0 {
		passed = 0
	}

	recent := v.warnings
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}

	return domain.QualitySummary{
		Score:            v.fleetScore,
		Grade:            domain.QualityGrade(v.fleetScore),
		Completeness:     v.completeness,
		RecordsProcessed: v.recordsProcessed,
		RecordsPassed:    passed,
		RecordsFailed:    v.anomalies,
		Anomalies:        v.anomalies,
		ChunksScored:     v.chunksScored,
		WarningCount:     len(v.warnings),
		Warnings:         append([]string{}, recent...),
	}
}

// Reset clears the fleet state for a new import session.
func (v *Validator) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.recordsProcessed = 0
	v.anomalies = 0
	v.chunksScored = 0
	v.fleetScore = 0
	v.completeness = 0
	v.warnings = nil
}
