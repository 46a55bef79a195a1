package user

import (
	_ "embed"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

//go:embed presets.yaml
var builtinPresetsYAML []byte

// Preset is a named, reusable BehaviorProfile archetype. Downstream
// consumers building training sets often want reproducible archetypes
// ("road-warrior", "focused-ic") rather than a uniform random profile
// per user.
type Preset struct {
	Name    string          `yaml:"name"`
	Profile BehaviorProfile `yaml:"profile"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// PresetLibrary is a name-indexed set of presets.
type PresetLibrary map[string]BehaviorProfile

// BuiltinPresets returns the library bundled into the binary.
func BuiltinPresets() (PresetLibrary, error) {
	return parsePresetYAML(builtinPresetsYAML)
}

// LoadPresetFile reads a user-supplied preset file (passed via
// --behavior-preset-file) and merges it over the builtin library: a
// preset name in the file overrides the builtin preset of the same
// name.
func LoadPresetFile(path string) (PresetLibrary, error) {
	lib, err := BuiltinPresets()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return lib, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("user: reading preset file %s: %w", path, err)
	}
	overrides, err := parsePresetYAML(raw)
	if err != nil {
		return nil, fmt.Errorf("user: parsing preset file %s: %w", path, err)
	}
	for name, profile := range overrides {
		lib[name] = profile
	}
	return lib, nil
}

func parsePresetYAML(raw []byte) (PresetLibrary, error) {
	var pf presetFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("user: invalid preset YAML: %w", err)
	}
	lib := make(PresetLibrary, len(pf.Presets))
	for _, p := range pf.Presets {
		if err := p.Profile.Validate(); err != nil {
			return nil, fmt.Errorf("user: preset %q: %w", p.Name, err)
		}
		lib[p.Name] = p.Profile
	}
	return lib, nil
}

// Get looks up a preset by name.
func (l PresetLibrary) Get(name string) (BehaviorProfile, bool) {
	p, ok := l[name]
	return p, ok
}
