// Package config loads and validates the generator's run configuration:
// layered from defaults, an optional JSON config file, environment
// variables, and CLI flags, via viper (spec §6).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level run configuration. Every CLI flag in spec §6
// has an equivalent key here; unspecified keys take the documented
// defaults.
type Config struct {
	UserCount     int `mapstructure:"user_count"`
	LocationCount int `mapstructure:"location_count"`
	Days          int `mapstructure:"days"`
	Seed          int64 `mapstructure:"seed"`

	MinBuildingsPerLocation int `mapstructure:"min_buildings_per_location"`
	MaxBuildingsPerLocation int `mapstructure:"max_buildings_per_location"`
	MinRoomsPerBuilding     int `mapstructure:"min_rooms_per_building"`
	MaxRoomsPerBuilding     int `mapstructure:"max_rooms_per_building"`

	CuriousUserPercentage    float64 `mapstructure:"curious_user_percentage"`
	ClonedBadgePercentage    float64 `mapstructure:"cloned_badge_percentage"`
	PrimaryBuildingAffinity  float64 `mapstructure:"primary_building_affinity"`
	SameLocationTravel       float64 `mapstructure:"same_location_travel"`
	DifferentLocationTravel  float64 `mapstructure:"different_location_travel"`

	OutputFormat       string `mapstructure:"output_format"`
	UserProfilesOutput string `mapstructure:"user_profiles_output"`
	EventsOutput       string `mapstructure:"events_output"`

	IncludeFailureReason bool `mapstructure:"include_failure_reason"`
	IncludeEventType     bool `mapstructure:"include_event_type"`
	IncludeMetadata      bool `mapstructure:"include_metadata"`
	IncludeAllFields     bool `mapstructure:"include_all_fields"`

	BehaviorPresetFile string `mapstructure:"behavior_preset_file"`

	Shards       int  `mapstructure:"shards"`
	GlobalOrder  bool `mapstructure:"global_order"`

	NightShift NightShiftConfig `mapstructure:"night_shift"`

	Verbose bool `mapstructure:"verbose"`
	Debug   bool `mapstructure:"debug"`
	DryRun  bool `mapstructure:"dry_run"`
}

// NightShiftConfig gates whether any user may be flagged as night-shift
// at all, resolving spec.md's open question on a minimum population
// floor for that behaviour to make statistical sense.
type NightShiftConfig struct {
	MinUserCountFloor int `mapstructure:"min_user_count_floor"`
}

// setDefaults registers the defaults spec §6 documents.
func setDefaults(v *viper.Viper) {
	v.SetDefault("user_count", 10000)
	v.SetDefault("location_count", 5)
	v.SetDefault("days", 1)
	v.SetDefault("seed", int64(0))

	v.SetDefault("min_buildings_per_location", 4)
	v.SetDefault("max_buildings_per_location", 6)
	v.SetDefault("min_rooms_per_building", 10)
	v.SetDefault("max_rooms_per_building", 50)

	v.SetDefault("curious_user_percentage", 0.05)
	v.SetDefault("cloned_badge_percentage", 0.001)
	v.SetDefault("primary_building_affinity", 0.7)
	v.SetDefault("same_location_travel", 0.29)
	v.SetDefault("different_location_travel", 0.01)

	v.SetDefault("output_format", "json")
	v.SetDefault("user_profiles_output", "")
	v.SetDefault("events_output", "events.jsonl")

	v.SetDefault("include_failure_reason", false)
	v.SetDefault("include_event_type", false)
	v.SetDefault("include_metadata", false)
	v.SetDefault("include_all_fields", false)

	v.SetDefault("behavior_preset_file", "")

	v.SetDefault("shards", 1)
	v.SetDefault("global_order", true)

	v.SetDefault("night_shift.min_user_count_floor", 500)

	v.SetDefault("verbose", false)
	v.SetDefault("debug", false)
	v.SetDefault("dry_run", false)
}

func bindEnvVars(v *viper.Viper) {
	v.SetEnvPrefix("BADGESIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from an optional JSON file layered under
// defaults and BADGESIM_-prefixed environment overrides, then runs Go
// and policy validation. A non-nil *viper.Viper (v) lets callers
// (cmd/root.go) pre-bind CLI flags before Load reads the file, so flags
// take precedence over the file without Load needing to know about
// cobra at all; a nil v gets a fresh viper instance.
func Load(configPath string, v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := CheckPolicy(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ValidationError wraps the set of configuration violations found
// during Validate, per spec §7's "configuration invalid" fatal class.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: validation failed:\n  %s", strings.Join(e.Violations, "\n  "))
}

// Validate checks the numeric invariants spec §7 lists: location_count
// and days must be positive (user_count may be 0, which yields an empty
// run), percentages must fall in [0,1], and the three travel-affinity
// weights must sum to 1.0 within ±0.01.
func (c *Config) Validate() error {
	var errs []string

	if c.UserCount < 0 {
		errs = append(errs, fmt.Sprintf("user_count must be >= 0, got %d", c.UserCount))
	}
	if c.LocationCount <= 0 {
		errs = append(errs, fmt.Sprintf("location_count must be > 0, got %d", c.LocationCount))
	}
	if c.Days <= 0 {
		errs = append(errs, fmt.Sprintf("days must be > 0, got %d", c.Days))
	}

	for name, pct := range map[string]float64{
		"curious_user_percentage":   c.CuriousUserPercentage,
		"cloned_badge_percentage":   c.ClonedBadgePercentage,
	} {
		if pct < 0 || pct > 1 {
			errs = append(errs, fmt.Sprintf("%s must be in [0,1], got %v", name, pct))
		}
	}

	affinitySum := c.PrimaryBuildingAffinity + c.SameLocationTravel + c.DifferentLocationTravel
	if affinitySum < 0.99 || affinitySum > 1.01 {
		errs = append(errs, fmt.Sprintf("primary_building_affinity + same_location_travel + different_location_travel must sum to 1.0 +/- 0.01, got %v", affinitySum))
	}
	for name, w := range map[string]float64{
		"primary_building_affinity": c.PrimaryBuildingAffinity,
		"same_location_travel":      c.SameLocationTravel,
		"different_location_travel": c.DifferentLocationTravel,
	} {
		if w < 0 || w > 1 {
			errs = append(errs, fmt.Sprintf("%s must be in [0,1], got %v", name, w))
		}
	}

	switch c.OutputFormat {
	case "json", "csv":
	default:
		errs = append(errs, fmt.Sprintf("output_format must be \"json\" or \"csv\", got %q", c.OutputFormat))
	}

	if c.MinBuildingsPerLocation <= 0 || c.MinBuildingsPerLocation > c.MaxBuildingsPerLocation {
		errs = append(errs, fmt.Sprintf("min_buildings_per_location (%d) must be > 0 and <= max_buildings_per_location (%d)", c.MinBuildingsPerLocation, c.MaxBuildingsPerLocation))
	}
	if c.MinRoomsPerBuilding <= 0 || c.MinRoomsPerBuilding > c.MaxRoomsPerBuilding {
		errs = append(errs, fmt.Sprintf("min_rooms_per_building (%d) must be > 0 and <= max_rooms_per_building (%d)", c.MinRoomsPerBuilding, c.MaxRoomsPerBuilding))
	}
	if c.Shards <= 0 {
		errs = append(errs, fmt.Sprintf("shards must be > 0, got %d", c.Shards))
	}

	if len(errs) > 0 {
		return &ValidationError{Violations: errs}
	}
	return nil
}
