package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/krukkeniels/badgesim/internal/config"
	"github.com/krukkeniels/badgesim/internal/logging"
	"github.com/krukkeniels/badgesim/internal/orchestrator"
	"github.com/krukkeniels/badgesim/internal/sink"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Flag values, bound into viper by runGenerate (via bindFlags) so CLI
// flags take precedence over the config file (spec §6).
var (
	cfgFile string

	userCount     int
	locationCount int
	days          int
	seed          int64

	curiousUserPercentage   float64
	clonedBadgePercentage   float64
	primaryBuildingAffinity float64
	sameLocationTravel      float64
	differentLocationTravel float64

	outputFormat       string
	userProfilesOutput string
	eventsOutput       string

	includeFailureReason bool
	includeEventType     bool
	includeMetadata      bool
	includeAllFields     bool

	behaviorPresetFile string

	shards      int
	globalOrder bool

	verbose         bool
	debug           bool
	dryRun          bool
	printConfigFlag bool
)

// SetVersionInfo is called from main to inject build-time version info.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	buildDate = d
	rootCmd.Version = v
	rootCmd.SetVersionTemplate(fmt.Sprintf("badgesim version {{.Version}} (commit: %s, built: %s)\n", c, d))
}

var rootCmd = &cobra.Command{
	Use:   "badgesim",
	Short: "Synthetic badge-access event generator",
	Long: `badgesim produces a synthetic stream of corporate badge-access
events, and the user-profile answer key that explains them, for
training and evaluating anomaly-detection systems. It simulates a
population of users moving through a location/building/room hierarchy
across one or more days, with configurable anomaly injection (curious
probing, cloned badges, impossible travel) and forward-only timestamp
jitter.`,
	Version:      version,
	RunE:         runGenerate,
	SilenceUsage: true,
}

func init() {
	registerFlags(rootCmd)
	rootCmd.SetVersionTemplate(fmt.Sprintf("badgesim version {{.Version}} (commit: %s, built: %s)\n", commit, buildDate))
}

// registerFlags declares the full spec §6 flag surface plus the
// supplemented ones (--behavior-preset-file, --shards, --global-order)
// against cmd's flag set, resetting every package-level flag variable
// to its flag default. Factored out of init() so tests can build a fresh
// *cobra.Command per case without cross-test flag state leaking.
func registerFlags(cmd *cobra.Command) {
	f := cmd.Flags()

	f.StringVar(&cfgFile, "config", "", "JSON configuration file")

	f.IntVar(&userCount, "user-count", 0, "number of users to simulate (default 10000)")
	f.IntVar(&locationCount, "location-count", 0, "number of geographic locations (default 5)")
	f.IntVar(&days, "days", 0, "number of simulated days (default 1)")
	f.Int64Var(&seed, "seed", 0, "master RNG seed (default 0; every value, 0 included, is a fixed seed, never entropy)")

	f.Float64Var(&curiousUserPercentage, "curious-user-percentage", 0, "fraction of users exhibiting curious-probe behaviour (default 0.05)")
	f.Float64Var(&clonedBadgePercentage, "cloned-badge-percentage", 0, "fraction of users with a cloned badge (default 0.001)")
	f.Float64Var(&primaryBuildingAffinity, "primary-building-affinity", 0, "probability a meeting is scheduled in the user's primary building (default 0.7)")
	f.Float64Var(&sameLocationTravel, "same-location-travel", 0, "probability a meeting is scheduled at a different building, same location (default 0.29)")
	f.Float64Var(&differentLocationTravel, "different-location-travel", 0, "probability a meeting is scheduled at a different location (default 0.01)")

	f.StringVar(&outputFormat, "output-format", "", "event stream format: json or csv (default json)")
	f.StringVar(&userProfilesOutput, "user-profiles-output", "", "path to write the user-profile answer key (default: not written)")
	f.StringVar(&eventsOutput, "events-output", "", "path to write the event stream (default events.jsonl)")

	f.BoolVar(&includeFailureReason, "include-failure-reason", false, "include failure_reason in event output")
	f.BoolVar(&includeEventType, "include-event-type", false, "include event_type in event output")
	f.BoolVar(&includeMetadata, "include-metadata", false, "include metadata in event output")
	f.BoolVar(&includeAllFields, "include-all-fields", false, "include every optional event field")

	f.StringVar(&behaviorPresetFile, "behavior-preset-file", "", "YAML file of named behavior-profile presets")

	f.IntVar(&shards, "shards", 0, "number of concurrent user shards per day (default 1)")
	f.BoolVar(&globalOrder, "global-order", true, "merge-sort each day's events into strict global timestamp order")

	f.BoolVarP(&verbose, "verbose", "v", false, "enable info-level logging")
	f.BoolVar(&debug, "debug", false, "enable debug-level logging with source locations")
	f.BoolVar(&dryRun, "dry-run", false, "run the full simulation but skip writing sink output")
	f.BoolVar(&printConfigFlag, "print-config", false, "print the fully resolved configuration as JSON and exit")
}

// bindFlags binds every changed CLI flag into v, so Load's layering
// (defaults < file < env < flags) gives flags the final word without
// config needing to know about cobra.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	bind := func(key, flag string) {
		if flags.Changed(flag) {
			_ = v.BindPFlag(key, flags.Lookup(flag))
		}
	}

	bind("user_count", "user-count")
	bind("location_count", "location-count")
	bind("days", "days")
	bind("seed", "seed")
	bind("curious_user_percentage", "curious-user-percentage")
	bind("cloned_badge_percentage", "cloned-badge-percentage")
	bind("primary_building_affinity", "primary-building-affinity")
	bind("same_location_travel", "same-location-travel")
	bind("different_location_travel", "different-location-travel")
	bind("output_format", "output-format")
	bind("user_profiles_output", "user-profiles-output")
	bind("events_output", "events-output")
	bind("include_failure_reason", "include-failure-reason")
	bind("include_event_type", "include-event-type")
	bind("include_metadata", "include-metadata")
	bind("include_all_fields", "include-all-fields")
	bind("behavior_preset_file", "behavior-preset-file")
	bind("shards", "shards")
	bind("global_order", "global-order")
	bind("verbose", "verbose")
	bind("debug", "debug")
	bind("dry_run", "dry-run")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	logging.Setup(verbose, debug)

	v := viper.New()
	bindFlags(v, cmd.Flags())

	cfg, err := config.Load(cfgFile, v)
	if err != nil {
		return err
	}

	if printConfigFlag {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("print-config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	sinks, err := buildSinks(cfg)
	if err != nil {
		return err
	}
	defer closeSinks(sinks)

	record, err := orchestrator.Run(cfg, sinks, time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), record.Summary())
	return nil
}

// buildSinks opens the configured output destinations. --dry-run skips
// both, since orchestrator.Run accepts a zero-value Sinks and still
// computes statistics.
func buildSinks(cfg *config.Config) (orchestrator.Sinks, error) {
	if dryRun {
		return orchestrator.Sinks{}, nil
	}

	var sinks orchestrator.Sinks

	format := sink.FormatJSON
	if cfg.OutputFormat == "csv" {
		format = sink.FormatCSV
	}
	fields := sink.Fields{
		EventType:     cfg.IncludeEventType,
		FailureReason: cfg.IncludeFailureReason,
		Metadata:      cfg.IncludeMetadata,
	}
	events, err := sink.NewEventSink(cfg.EventsOutput, format, fields, cfg.IncludeAllFields)
	if err != nil {
		return orchestrator.Sinks{}, err
	}
	sinks.Events = events

	if cfg.UserProfilesOutput != "" {
		profiles, err := sink.NewProfileSink(cfg.UserProfilesOutput)
		if err != nil {
			events.Close()
			return orchestrator.Sinks{}, err
		}
		sinks.Profiles = profiles
	}

	return sinks, nil
}

func closeSinks(sinks orchestrator.Sinks) {
	if sinks.Events != nil {
		sinks.Events.Close()
	}
	if sinks.Profiles != nil {
		sinks.Profiles.Close()
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
