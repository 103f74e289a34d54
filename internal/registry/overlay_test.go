package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOverlayApply(t *testing.T) {
	overlayYAML := `
parameters:
  magnetronFlow:
    aliases: ["siteLocalMagFlow"]
    expected_range: [9, 17]
  gunVacuum:
    aliases: ["GunVacuumStatistics"]
    unit: "Torr"
    description: "Gun Vacuum"
    expected_range: [0, 1]
    critical_range: [0, 2]
    category: "water"
`
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	if err := os.WriteFile(path, []byte(overlayYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	overlay, err := LoadOverlay(path)
	if err != nil {
		t.Fatalf("LoadOverlay() error = %v", err)
	}

	defs, err := overlay.Apply(BuiltinDefinitions())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	reg, err := Build(defs)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// Amended builtin: extra alias and narrowed range.
	if id, ok := reg.Canonicalize("siteLocalMagFlow"); !ok || id != "magnetronFlow" {
		t.Errorf("Canonicalize(siteLocalMagFlow) = (%q, %v), want magnetronFlow", id, ok)
	}
	def, _ := reg.Lookup("magnetronFlow")
	if def.ExpectedRange.Min != 9 || def.ExpectedRange.Max != 17 {
		t.Errorf("magnetronFlow range = %+v, want [9, 17]", def.ExpectedRange)
	}

	// New site-specific parameter.
	if id, ok := reg.Canonicalize("GunVacuumStatistics"); !ok || id != "gunVacuum" {
		t.Errorf("Canonicalize(GunVacuumStatistics) = (%q, %v), want gunVacuum", id, ok)
	}
}

func TestOverlayRejectsIncompleteNewParameter(t *testing.T) {
	overlayYAML := `
parameters:
  mysteryParam:
    aliases: ["mystery"]
`
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	if err := os.WriteFile(path, []byte(overlayYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	overlay, err := LoadOverlay(path)
	if err != nil {
		t.Fatalf("LoadOverlay() error = %v", err)
	}

	if _, err := overlay.Apply(BuiltinDefinitions()); err == nil {
		t.Error("Apply() accepted a new parameter without ranges, want error")
	}
}

func TestOverlayRejectsBadRange(t *testing.T) {
	overlayYAML := `
parameters:
  magnetronFlow:
    expected_range: [20, 10]
`
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	if err := os.WriteFile(path, []byte(overlayYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	overlay, err := LoadOverlay(path)
	if err != nil {
		t.Fatalf("LoadOverlay() error = %v", err)
	}

	if _, err := overlay.Apply(BuiltinDefinitions()); err == nil {
		t.Error("Apply() accepted min > max, want error")
	}
}
