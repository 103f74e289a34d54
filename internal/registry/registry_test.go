package registry

import (
	"testing"

	"github.com/gobioeng/halog-ingest/internal/domain"
)

func TestCanonicalize(t *testing.T) {
	reg, err := Build(BuiltinDefinitions())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	tests := []struct {
		name   string
		raw    string
		wantID string
		wantOK bool
	}{
		{
			name:   "Canonical id maps to itself",
			raw:    "magnetronFlow",
			wantID: "magnetronFlow",
			wantOK: true,
		},
		{
			name:   "Cooling namespace prefix stripped",
			raw:    "CoolingmagnetronFlowLowStatistics",
			wantID: "magnetronFlow",
			wantOK: true,
		},
		{
			name:   "Pump pressure statistics variant",
			raw:    "CoolingpumpHighStatistics",
			wantID: "pumpPressure",
			wantOK: true,
		},
		{
			name:   "City water flow variant",
			raw:    "CoolingcityWaterFlowLowStatistics",
			wantID: "cityWaterFlow",
			wantOK: true,
		},
		{
			name:   "Case insensitive",
			raw:    "MAGNETRONFLOW",
			wantID: "magnetronFlow",
			wantOK: true,
		},
		{
			name:   "Spaces and separators ignored",
			raw:    "magnetron Flow",
			wantID: "magnetronFlow",
			wantOK: true,
		},
		{
			name:   "Underscores and colons ignored",
			raw:    "magnetron_flow:",
			wantID: "magnetronFlow",
			wantOK: true,
		},
		{
			name:   "Remote temperature sensor alias",
			raw:    "FanremoteTempStatistics",
			wantID: "tempRoom",
			wantOK: true,
		},
		{
			name:   "Unknown parameter filtered",
			raw:    "beamCurrent",
			wantID: "",
			wantOK: false,
		},
		{
			name:   "Empty name filtered",
			raw:    "",
			wantID: "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, gotOK := reg.Canonicalize(tt.raw)
			if gotID != tt.wantID || gotOK != tt.wantOK {
				t.Errorf("Canonicalize(%q) = (%q, %v), want (%q, %v)",
					tt.raw, gotID, gotOK, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	reg, err := Build(BuiltinDefinitions())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// Canonicalizing a canonical id must return the same id, for every
	// registered parameter.
	for _, def := range reg.Definitions() {
		id, ok := reg.Canonicalize(def.ID)
		if !ok || id != def.ID {
			t.Errorf("Canonicalize(%q) = (%q, %v), want identity", def.ID, id, ok)
		}
	}
}

func TestCanonicalizeCached(t *testing.T) {
	reg, err := Build(BuiltinDefinitions())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// Repeated lookups of the same raw spelling must agree, hit or miss.
	for _, raw := range []string{"CoolingpumpHighStatistics", "noSuchParameter"} {
		first, firstOK := reg.Canonicalize(raw)
		second, secondOK := reg.Canonicalize(raw)
		if first != second || firstOK != secondOK {
			t.Errorf("Canonicalize(%q) unstable: (%q, %v) then (%q, %v)",
				raw, first, firstOK, second, secondOK)
		}
	}
}

func TestBuildRejectsAliasCollision(t *testing.T) {
	defs := []domain.ParameterDefinition{
		{ID: "first", Aliases: []string{"sharedName"}},
		{ID: "second", Aliases: []string{"shared_name"}},
	}

	if _, err := Build(defs); err == nil {
		t.Error("Build() accepted colliding aliases, want error")
	}
}

func TestBuildRejectsDuplicateID(t *testing.T) {
	defs := []domain.ParameterDefinition{
		{ID: "pumpPressure"},
		{ID: "pumpPressure"},
	}

	if _, err := Build(defs); err == nil {
		t.Error("Build() accepted duplicate id, want error")
	}
}

func TestBuiltinDefinitionsComplete(t *testing.T) {
	reg, err := Build(BuiltinDefinitions())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if reg.Len() != 16 {
		t.Errorf("builtin registry has %d parameters, want 16", reg.Len())
	}

	for _, def := range reg.Definitions() {
		if def.Unit == "" {
			t.Errorf("parameter %q has no unit", def.ID)
		}
		if def.ExpectedRange.Width() <= 0 {
			t.Errorf("parameter %q has no expected range", def.ID)
		}
		if def.CriticalRange.Min > def.ExpectedRange.Min || def.CriticalRange.Max < def.ExpectedRange.Max {
			t.Errorf("parameter %q critical range does not contain expected range", def.ID)
		}
	}
}
