package parser

import (
	"sort"

	"github.com/gobioeng/halog-ingest/internal/domain"
	"github.com/gobioeng/halog-ingest/internal/registry"
)

// statOrder fixes the within-timestamp ordering of expanded records.
var statOrder = map[domain.StatisticKind]int{
	domain.StatAvg: 0,
	domain.StatMin: 1,
	domain.StatMax: 2,
}

// Cleaner expands combined quadruples into per-statistic records, drops rows
// that slipped through without a valid timestamp, collapses exact duplicates
// and sorts the result by timestamp.
type Cleaner struct {
	registry *registry.Registry
}

// NewCleaner creates a cleaner backed by the given registry.
func NewCleaner(reg *registry.Registry) *Cleaner {
	return &Cleaner{registry: reg}
}

// Clean turns parsed lines into persistable records. Each quadruple expands
// into three records (avg, min, max) sharing the line's timestamp, serial,
// parameter and count. Exact duplicates on the uniqueness key collapse to
// one; near-duplicates within a time window are the validator's concern, not
// the cleaner's.
func (c *Cleaner) Clean(lines []domain.ParsedLine) []domain.Record {
	if len(lines) == 0 {
		return nil
	}

	records := make([]domain.Record, 0, len(lines)*3)
	seen := make(map[domain.RecordKey]struct{}, len(lines)*3)

	for _, pl := range lines {
		// Second safety net behind the parser's timestamp extraction.
		if pl.Timestamp.IsZero() {
			continue
		}

		def, ok := c.registry.Lookup(pl.ParameterID)
		if !ok {
			continue
		}

		for _, expansion := range []struct {
			kind  domain.StatisticKind
			value float64
		}{
			{domain.StatAvg, pl.Avg},
			{domain.StatMin, pl.Min},
			{domain.StatMax, pl.Max},
		} {
			rec := domain.Record{
				Timestamp:   pl.Timestamp,
				Serial:      pl.Serial,
				ParameterID: pl.ParameterID,
				Statistic:   expansion.kind,
				Value:       expansion.value,
				Count:       pl.Count,
				Unit:        def.Unit,
				Description: def.Description,
				Quality:     assessQuality(expansion.value, pl.Count, def.ExpectedRange),
				LineNumber:  pl.LineNumber,
			}

			key := rec.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			records = append(records, rec)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.Before(records[j].Timestamp)
		}
		return statOrder[records[i].Statistic] < statOrder[records[j].Statistic]
	})

	return records
}

// assessQuality grades a single value by range compliance and sample count.
func assessQuality(value float64, count int, expected domain.Range) domain.QualityTier {
	if expected.Width() > 0 {
		if !expected.Contains(value) {
			return domain.QualityPoor
		}
		switch {
		case count > 100:
			return domain.QualityExcellent
		case count > 50:
			return domain.QualityGood
		default:
			return domain.QualityFair
		}
	}
	if count > 50 {
		return domain.QualityGood
	}
	return domain.QualityFair
}
