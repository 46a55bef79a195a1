package user

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinPresetsLoad(t *testing.T) {
	lib, err := BuiltinPresets()
	if err != nil {
		t.Fatalf("BuiltinPresets() error: %v", err)
	}
	for _, name := range []string{"road-warrior", "focused-ic", "curious-analyst", "social-connector", "baseline"} {
		if _, ok := lib.Get(name); !ok {
			t.Errorf("expected builtin preset %q to be present", name)
		}
	}
}

func TestBuiltinPresetsWithinBounds(t *testing.T) {
	lib, err := BuiltinPresets()
	if err != nil {
		t.Fatalf("BuiltinPresets() error: %v", err)
	}
	for name, profile := range lib {
		if err := profile.Validate(); err != nil {
			t.Errorf("preset %q invalid: %v", name, err)
		}
	}
}

func TestLoadPresetFileOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := []byte(`
presets:
  - name: baseline
    profile:
      travel_frequency: 0.9
      curiosity_level: 0.9
      schedule_adherence: 0.9
      social_level: 0.9
  - name: custom-one
    profile:
      travel_frequency: 0.5
      curiosity_level: 0.5
      schedule_adherence: 0.5
      social_level: 0.5
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	lib, err := LoadPresetFile(path)
	if err != nil {
		t.Fatalf("LoadPresetFile() error: %v", err)
	}

	baseline, ok := lib.Get("baseline")
	if !ok || baseline.TravelFrequency != 0.9 {
		t.Errorf("expected overridden baseline preset, got %v ok=%v", baseline, ok)
	}
	if _, ok := lib.Get("custom-one"); !ok {
		t.Error("expected custom-one preset to be present")
	}
	if _, ok := lib.Get("road-warrior"); !ok {
		t.Error("expected unrelated builtin preset road-warrior to survive merge")
	}
}

func TestLoadPresetFileEmptyPathReturnsBuiltins(t *testing.T) {
	lib, err := LoadPresetFile("")
	if err != nil {
		t.Fatalf("LoadPresetFile(\"\") error: %v", err)
	}
	if _, ok := lib.Get("baseline"); !ok {
		t.Error("expected builtin presets when no file given")
	}
}

func TestLoadPresetFileRejectsOutOfBoundsProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	content := []byte(`
presets:
  - name: broken
    profile:
      travel_frequency: 1.5
      curiosity_level: 0.5
      schedule_adherence: 0.5
      social_level: 0.5
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := LoadPresetFile(path); err == nil {
		t.Error("expected error loading out-of-bounds preset")
	}
}
