package registry

import (
	"fmt"
	"os"

	"github.com/gobioeng/halog-ingest/internal/domain"
	"gopkg.in/yaml.v3"
)

// OverlayEntry is one parameter entry in the overlay file. Entries for known
// ids amend the builtin definition; entries with new ids add site-specific
// parameters.
type OverlayEntry struct {
	Aliases       []string   `yaml:"aliases"`
	Unit          string     `yaml:"unit"`
	Description   string     `yaml:"description"`
	ExpectedRange []float64  `yaml:"expected_range"` // [min, max]
	CriticalRange []float64  `yaml:"critical_range"` // [min, max]
	Category      string     `yaml:"category"`
}

// Overlay maps canonical parameter ids to site-local amendments.
type Overlay struct {
	Parameters map[string]OverlayEntry `yaml:"parameters"`
}

// LoadOverlay reads a parameter overlay file.
func LoadOverlay(path string) (*Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter overlay: %w", err)
	}

	var o Overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("failed to parse parameter overlay: %w", err)
	}
	if o.Parameters == nil {
		o.Parameters = make(map[string]OverlayEntry)
	}
	return &o, nil
}

// Apply merges the overlay into a definition list, returning the amended
// copy. The input slice is not modified.
func (o *Overlay) Apply(defs []domain.ParameterDefinition) ([]domain.ParameterDefinition, error) {
	merged := make([]domain.ParameterDefinition, len(defs))
	copy(merged, defs)

	byID := make(map[string]int, len(merged))
	for i, def := range merged {
		byID[def.ID] = i
	}

	for id, entry := range o.Parameters {
		if idx, ok := byID[id]; ok {
			def := merged[idx]
			def.Aliases = append(append([]string{}, def.Aliases...), entry.Aliases...)
			if entry.Unit != "" {
				def.Unit = entry.Unit
			}
			if entry.Description != "" {
				def.Description = entry.Description
			}
			if r, err := rangeFromPair(entry.ExpectedRange); err != nil {
				return nil, fmt.Errorf("parameter %q: expected_range: %w", id, err)
			} else if r != nil {
				def.ExpectedRange = *r
			}
			if r, err := rangeFromPair(entry.CriticalRange); err != nil {
				return nil, fmt.Errorf("parameter %q: critical_range: %w", id, err)
			} else if r != nil {
				def.CriticalRange = *r
			}
			merged[idx] = def
			continue
		}

		// New site-specific parameter: both ranges are required for scoring.
		expected, err := rangeFromPair(entry.ExpectedRange)
		if err != nil || expected == nil {
			return nil, fmt.Errorf("new parameter %q needs a valid expected_range", id)
		}
		critical, err := rangeFromPair(entry.CriticalRange)
		if err != nil || critical == nil {
			return nil, fmt.Errorf("new parameter %q needs a valid critical_range", id)
		}
		merged = append(merged, domain.ParameterDefinition{
			ID:            id,
			Aliases:       entry.Aliases,
			Unit:          entry.Unit,
			Description:   entry.Description,
			ExpectedRange: *expected,
			CriticalRange: *critical,
			Category:      domain.ParameterCategory(entry.Category),
		})
	}

	return merged, nil
}

func rangeFromPair(pair []float64) (*domain.Range, error) {
	if len(pair) == 0 {
		return nil, nil
	}
	if len(pair) != 2 {
		return nil, fmt.Errorf("want [min, max], got %d values", len(pair))
	}
	if pair[0] > pair[1] {
		return nil, fmt.Errorf("min %v exceeds max %v", pair[0], pair[1])
	}
	return &domain.Range{Min: pair[0], Max: pair[1]}, nil
}
