package validator

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/gobioeng/halog-ingest/internal/domain"
	"github.com/gobioeng/halog-ingest/internal/registry"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	reg, err := registry.Build(registry.BuiltinDefinitions())
	if err != nil {
		t.Fatalf("registry.Build() error = %v", err)
	}
	return New(reg, DefaultConfig())
}

// makeRecords builds n in-range magnetron flow avg readings spaced spacing
// apart, starting at a fixed realistic time.
func makeRecords(n int, spacing time.Duration) []domain.Record {
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	records := make([]domain.Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, domain.Record{
			Timestamp:   base.Add(time.Duration(i) * spacing),
			Serial:      "1234",
			ParameterID: "magnetronFlow",
			Statistic:   domain.StatAvg,
			Value:       12.0,
			Count:       100,
			Unit:        "L/min",
			LineNumber:  i + 1,
		})
	}
	return records
}

func TestValidateChunkCleanData(t *testing.T) {
	v := newTestValidator(t)

	result := v.ValidateChunk(makeRecords(50, 5*time.Minute), 1)

	if result.RangeScore != 100 {
		t.Errorf("RangeScore = %v, want 100", result.RangeScore)
	}
	if result.TimestampScore != 100 {
		t.Errorf("TimestampScore = %v, want 100", result.TimestampScore)
	}
	if result.DuplicateScore != 100 {
		t.Errorf("DuplicateScore = %v, want 100", result.DuplicateScore)
	}
	if result.Anomalies != 0 {
		t.Errorf("Anomalies = %d, want 0", result.Anomalies)
	}
	if result.Score() != 100 {
		t.Errorf("Score() = %v, want 100", result.Score())
	}
}

func TestValidateChunkEmpty(t *testing.T) {
	v := newTestValidator(t)

	result := v.ValidateChunk(nil, 1)
	if result.Score() != 100 {
		t.Errorf("Score() = %v, want 100 for an empty chunk", result.Score())
	}
}

func TestScoreRangesDegrades(t *testing.T) {
	v := newTestValidator(t)

	// magnetronFlow expected [8, 18], critical [6, 20].
	records := makeRecords(10, 5*time.Minute)
	records[0].Value = 19.0 // outside expected, inside critical
	records[1].Value = 25.0 // outside both

	result := v.ValidateChunk(records, 1)

	// 8/10 in expected range, 1/10 outside critical: 80 - 5 = 75.
	if math.Abs(result.RangeScore-75) > 0.01 {
		t.Errorf("RangeScore = %v, want 75", result.RangeScore)
	}
	if result.Anomalies < 2 {
		t.Errorf("Anomalies = %d, want at least 2", result.Anomalies)
	}
	if len(result.OutOfRange["magnetronFlow"]) != 2 {
		t.Errorf("OutOfRange lines = %v, want 2 entries", result.OutOfRange["magnetronFlow"])
	}
	if len(result.Warnings) == 0 {
		t.Error("no warnings for out-of-range values")
	}
}

func TestScoreRangesMonotone(t *testing.T) {
	v := newTestValidator(t)

	// More out-of-range values must never raise the range score.
	prev := 101.0
	for bad := 0; bad <= 10; bad++ {
		records := makeRecords(10, 5*time.Minute)
		for i := 0; i < bad; i++ {
			records[i].Value = 25.0
		}
		score := v.ValidateChunk(records, 1).RangeScore
		if score > prev {
			t.Fatalf("RangeScore increased from %v to %v at %d bad values", prev, score, bad)
		}
		prev = score
	}
	if prev != 0 {
		t.Errorf("all-bad chunk RangeScore = %v, want 0", prev)
	}
}

func TestScoreRangesIgnoresMinMaxRows(t *testing.T) {
	v := newTestValidator(t)

	// A min row restating the low end of a reading must not be scored as an
	// out-of-range anomaly.
	records := makeRecords(5, 5*time.Minute)
	records = append(records, domain.Record{
		Timestamp:   records[4].Timestamp,
		Serial:      "1234",
		ParameterID: "magnetronFlow",
		Statistic:   domain.StatMin,
		Value:       5.0,
		Count:       100,
		Unit:        "L/min",
	})

	result := v.ValidateChunk(records, 1)
	if result.RangeScore != 100 {
		t.Errorf("RangeScore = %v, want 100 (min/max rows not range-scored)", result.RangeScore)
	}
}

func TestScoreTimestamps(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name      string
		mutate    func([]domain.Record)
		wantBelow float64
		wantWarn  bool
	}{
		{
			name:      "Unrealistic timestamp",
			mutate:    func(r []domain.Record) { r[0].Timestamp = time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC) },
			wantBelow: 100,
			wantWarn:  true,
		},
		{
			name: "Large gap",
			mutate: func(r []domain.Record) {
				for i := 5; i < len(r); i++ {
					r[i].Timestamp = r[i].Timestamp.Add(48 * time.Hour)
				}
			},
			wantBelow: 100,
			wantWarn:  true,
		},
		{
			name: "Out of sequence",
			mutate: func(r []domain.Record) {
				r[3].Timestamp, r[4].Timestamp = r[4].Timestamp, r[3].Timestamp
			},
			wantBelow: 100,
			wantWarn:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := makeRecords(10, 5*time.Minute)
			tt.mutate(records)

			result := v.ValidateChunk(records, 1)
			if result.TimestampScore >= tt.wantBelow {
				t.Errorf("TimestampScore = %v, want below %v", result.TimestampScore, tt.wantBelow)
			}
			if tt.wantWarn && len(result.Warnings) == 0 {
				t.Error("expected a warning")
			}
		})
	}
}

func TestScoreDuplicatesWindow(t *testing.T) {
	v := newTestValidator(t)

	// Readings 10 seconds apart fall inside the 30 second window.
	tight := v.ValidateChunk(makeRecords(10, 10*time.Second), 1)
	if tight.DuplicateScore >= 100 {
		t.Errorf("DuplicateScore = %v for 10s spacing, want below 100", tight.DuplicateScore)
	}

	// Five minutes apart is normal sampling, not duplication.
	spaced := v.ValidateChunk(makeRecords(10, 5*time.Minute), 2)
	if spaced.DuplicateScore != 100 {
		t.Errorf("DuplicateScore = %v for 5m spacing, want 100", spaced.DuplicateScore)
	}
}

func TestScoreDuplicatesSeparateSerials(t *testing.T) {
	v := newTestValidator(t)

	// Same timestamps on different machines are not duplicates.
	records := makeRecords(5, 10*time.Second)
	for i := range records {
		records[i].Serial = fmt.Sprintf("%d", i)
	}

	result := v.ValidateChunk(records, 1)
	if result.DuplicateScore != 100 {
		t.Errorf("DuplicateScore = %v, want 100 across distinct serials", result.DuplicateScore)
	}
}

func TestScoreCompleteness(t *testing.T) {
	v := newTestValidator(t)

	records := makeRecords(10, 5*time.Minute)
	records[0].Serial = ""
	records[1].Unit = ""
	records[2].Count = 0

	result := v.ValidateChunk(records, 1)

	// 3 missing cells out of 70.
	want := 100 - 3.0/70.0*100
	if math.Abs(result.CompletenessScore-want) > 0.01 {
		t.Errorf("CompletenessScore = %v, want %v", result.CompletenessScore, want)
	}
}

func TestQualityGrades(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "A+"}, {95, "A+"}, {94.9, "A"}, {90, "A"},
		{87, "B+"}, {82, "B"}, {77, "C+"}, {72, "C"},
		{67, "D+"}, {62, "D"}, {50, "F"}, {0, "F"},
	}

	for _, tt := range tests {
		if got := domain.QualityGrade(tt.score); got != tt.want {
			t.Errorf("QualityGrade(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestFoldWeightsByRecordCount(t *testing.T) {
	v := newTestValidator(t)

	// A perfect 90-record chunk followed by a poor 10-record chunk: the
	// fleet score is pulled down by one tenth of the gap, not half.
	good := v.ValidateChunk(makeRecords(90, 5*time.Minute), 1)
	v.Fold(good)

	bad := makeRecords(10, 5*time.Minute)
	for i := range bad {
		bad[i].Value = 25.0
	}
	badResult := v.ValidateChunk(bad, 2)
	v.Fold(badResult)

	summary := v.Summary()
	want := (good.Score()*90 + badResult.Score()*10) / 100
	if math.Abs(summary.Score-want) > 0.01 {
		t.Errorf("fleet score = %v, want weighted %v", summary.Score, want)
	}
	if summary.RecordsProcessed != 100 {
		t.Errorf("RecordsProcessed = %d, want 100", summary.RecordsProcessed)
	}
	if summary.ChunksScored != 2 {
		t.Errorf("ChunksScored = %d, want 2", summary.ChunksScored)
	}
	if summary.RecordsPassed+summary.RecordsFailed != summary.RecordsProcessed {
		t.Errorf("passed %d + failed %d != processed %d",
			summary.RecordsPassed, summary.RecordsFailed, summary.RecordsProcessed)
	}
}

func TestReset(t *testing.T) {
	v := newTestValidator(t)

	v.Fold(v.ValidateChunk(makeRecords(50, 5*time.Minute), 1))
	v.Reset()

	summary := v.Summary()
	if summary.RecordsProcessed != 0 || summary.ChunksScored != 0 || summary.Score != 0 {
		t.Errorf("Summary() after Reset = %+v, want zero state", summary)
	}
}
