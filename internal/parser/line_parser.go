package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gobioeng/halog-ingest/internal/domain"
	"github.com/gobioeng/halog-ingest/internal/registry"
)

// plausibilityTolerance widens the expected range when sanity-checking a
// quadruple: values this far outside the band are treated as corrupt
// readings rather than out-of-range ones.
const plausibilityTolerance = 2.0

var (
	// Primary timestamp: 2024-01-15 10:30:00
	reDatetime = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s+(\d{2}:\d{2}:\d{2})`)
	// Alternate timestamp: 1/15/2024 10:30:00, normalized to the primary form
	reDatetimeAlt = regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})\s+(\d{1,2}:\d{2}:\d{2})`)

	// Serial / machine identifier markers, located independently of the rest
	// of the line.
	reSerial  = regexp.MustCompile(`(?i)(?:SN|S/N|Serial)[#:\s]*(\d+)`)
	reMachine = regexp.MustCompile(`(?i)Machine[#:\s]*(\d+)`)

	// Parameter quadruple: <name> count=<int>, max=<float>, min=<float>, avg=<float>
	reQuadruple = regexp.MustCompile(
		`(?i)([a-zA-Z][a-zA-Z0-9_\s]*[a-zA-Z0-9])` +
			`[:\s]*count\s*=\s*(\d+)[,\s]*` +
			`max\s*=\s*([\d.\-]+)[,\s]*` +
			`min\s*=\s*([\d.\-]+)[,\s]*` +
			`avg\s*=\s*([\d.\-]+)`)
)

// Outcome classifies what ParseLine did with a line. Only OutcomeRecord
// produces output; the other outcomes drive the per-line counters.
type Outcome int

const (
	OutcomeRecord Outcome = iota
	OutcomeNoCandidate      // pre-filter rejected the line
	OutcomeNoTimestamp      // no parseable timestamp
	OutcomeNoQuadruple      // no parameter reading on the line
	OutcomeBadNumber        // malformed numeric field, whole line skipped
	OutcomeImplausible      // numbers parsed but failed the sanity check
	OutcomeUnknownParameter // parameter name outside the curated set
)

// LineParser extracts timestamped parameter readings from free-form log
// lines using precompiled patterns. Canonicalization goes through the
// parameter registry; unrecognized names are filtered, not errors.
type LineParser struct {
	registry *registry.Registry
}

// NewLineParser creates a line parser backed by the given registry.
func NewLineParser(reg *registry.Registry) *LineParser {
	return &LineParser{registry: reg}
}

// ParseLine parses a single log line. It returns zero or more parsed
// readings (in practice at most one per line) and an outcome for stats
// accounting. A malformed numeric field skips the whole line.
func (p *LineParser) ParseLine(line string, lineNumber int) ([]domain.ParsedLine, Outcome) {
	if len(line) < 10 {
		return nil, OutcomeNoCandidate
	}

	// Cheap pre-filter before any regex work: candidate lines must carry
	// both the count and avg markers. Non-candidates dominate large files.
	lower := strings.ToLower(line)
	if !strings.Contains(lower, "count") || !strings.Contains(lower, "avg") {
		return nil, OutcomeNoCandidate
	}

	ts, ok := extractTimestamp(line)
	if !ok {
		return nil, OutcomeNoTimestamp
	}

	serial := extractSerial(line)

	matches := reQuadruple.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return nil, OutcomeNoQuadruple
	}

	var (
		parsed      []domain.ParsedLine
		unknownSeen bool
		badValue    bool
	)

	for _, m := range matches {
		rawName := strings.TrimSpace(m[1])

		count, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, OutcomeBadNumber
		}
		maxVal, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return nil, OutcomeBadNumber
		}
		minVal, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			return nil, OutcomeBadNumber
		}
		avgVal, err := strconv.ParseFloat(m[5], 64)
		if err != nil {
			return nil, OutcomeBadNumber
		}

		id, known := p.registry.Canonicalize(rawName)
		if !known {
			unknownSeen = true
			continue
		}

		def, _ := p.registry.Lookup(id)
		if !plausible(minVal, avgVal, maxVal, def.ExpectedRange) {
			badValue = true
			continue
		}

		parsed = append(parsed, domain.ParsedLine{
			Timestamp:   ts,
			Serial:      serial,
			RawName:     rawName,
			ParameterID: id,
			Count:       count,
			Max:         maxVal,
			Min:         minVal,
			Avg:         avgVal,
			LineNumber:  lineNumber,
		})
	}

	switch {
	case len(parsed) > 0:
		return parsed, OutcomeRecord
	case badValue:
		return nil, OutcomeImplausible
	case unknownSeen:
		return nil, OutcomeUnknownParameter
	default:
		return nil, OutcomeNoQuadruple
	}
}

// extractTimestamp locates the first timestamp on the line, accepting
// YYYY-MM-DD HH:MM:SS or MM/DD/YYYY HH:MM:SS (normalized to the former).
func extractTimestamp(line string) (time.Time, bool) {
	if m := reDatetime.FindStringSubmatch(line); m != nil {
		ts, err := time.Parse(domain.TimestampLayout, m[1]+" "+m[2])
		if err == nil {
			return ts, true
		}
		return time.Time{}, false
	}

	if m := reDatetimeAlt.FindStringSubmatch(line); m != nil {
		ts, err := time.Parse("1/2/2006 15:04:05", m[1]+" "+m[2])
		if err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// extractSerial locates an optional serial or machine identifier. A missing
// identifier is not fatal; the empty string means unknown.
func extractSerial(line string) string {
	if m := reSerial.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	if m := reMachine.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

// plausible sanity-checks a quadruple: the statistics must be internally
// ordered, and stay within a widened band around the expected range. Values
// far outside that band indicate a corrupted reading, not an anomaly worth
// scoring.
func plausible(minVal, avgVal, maxVal float64, expected domain.Range) bool {
	if minVal > avgVal || avgVal > maxVal {
		return false
	}
	if expected.Width() <= 0 {
		return true
	}
	slack := expected.Width() * plausibilityTolerance
	lo := expected.Min - slack
	hi := expected.Max + slack
	return minVal >= lo && minVal <= hi && maxVal >= lo && maxVal <= hi
}
