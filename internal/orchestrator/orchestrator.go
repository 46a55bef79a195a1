// Package orchestrator drives the day loop: construct the facility and
// population, then for each simulated day build every user's schedule,
// expand it to events, jitter, classify into statistics, and emit to
// the configured sinks (spec §4.8). It is the only package that wires
// every other component together.
package orchestrator

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/krukkeniels/badgesim/internal/buildinfo"
	"github.com/krukkeniels/badgesim/internal/config"
	"github.com/krukkeniels/badgesim/internal/eventgen"
	"github.com/krukkeniels/badgesim/internal/facility"
	"github.com/krukkeniels/badgesim/internal/ids"
	"github.com/krukkeniels/badgesim/internal/schedule"
	"github.com/krukkeniels/badgesim/internal/simrand"
	"github.com/krukkeniels/badgesim/internal/sink"
	"github.com/krukkeniels/badgesim/internal/stats"
	"github.com/krukkeniels/badgesim/internal/timeutil"
	"github.com/krukkeniels/badgesim/internal/user"
	"github.com/krukkeniels/badgesim/internal/variance"
)

// Sinks bundles the two output destinations a run writes to. Either may
// be nil (dry-run, or no profile output requested), in which case the
// orchestrator skips writing to it.
type Sinks struct {
	Events   *sink.EventSink
	Profiles *sink.ProfileSink
}

// Run executes one full simulation: facility/population construction,
// the day loop, and statistics finalisation. start is the wall-clock
// time the caller observed before calling Run, used only for the
// duration recorded in the statistics (spec §4.7) and as the anchor
// calendar day — determinism of the generated event stream never
// depends on wall-clock time beyond that anchor.
func Run(cfg *config.Config, sinks Sinks, start time.Time) (*stats.Record, error) {
	masterRNG := simrand.New(cfg.Seed)

	// Presets are opt-in: with no --behavior-preset-file, regular users
	// keep drawing a uniform random BehaviorProfile (buildinfo's
	// default). Naming a file switches regular (non-curious,
	// non-night-shift) users over to reproducible archetypes, builtin
	// presets included.
	var presets user.PresetLibrary
	if cfg.BehaviorPresetFile != "" {
		loaded, err := user.LoadPresetFile(cfg.BehaviorPresetFile)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: %w", err)
		}
		presets = loaded
	}

	reg, err := buildinfo.BuildFacility(cfg, masterRNG)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	users, err := buildinfo.BuildUsers(cfg, reg, masterRNG, presets)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	buildingCount, roomCount := countInfrastructure(reg)
	record := stats.NewRecord(
		len(reg.Locations()), buildingCount, roomCount, len(users),
		countFlag(users, func(u *user.User) bool { return u.IsCurious }),
		countFlag(users, func(u *user.User) bool { return u.HasClonedBadge }),
		countFlag(users, func(u *user.User) bool { return u.IsNightShift }),
	)
	record.Start(start)

	if sinks.Profiles != nil {
		for _, u := range users {
			if err := sinks.Profiles.Write(u); err != nil {
				return nil, fmt.Errorf("orchestrator: writing user profile: %w", err)
			}
		}
	}

	affinities := schedule.Affinities{
		PrimaryBuilding:   cfg.PrimaryBuildingAffinity,
		SameLocation:      cfg.SameLocationTravel,
		DifferentLocation: cfg.DifferentLocationTravel,
	}
	businessHours := timeutil.DefaultBusinessHours

	shardCount := cfg.Shards
	if shardCount < 1 {
		shardCount = 1
	}
	shards := partitionUsers(users, shardCount)

	for day := 1; day <= cfg.Days; day++ {
		dayAnchor := timeutil.StartOfDay(start).AddDate(0, 0, day-1)

		for _, u := range users {
			u.Daily.Reset()
		}

		events, err := runDay(reg, shards, affinities, businessHours, cfg.Seed, day, dayAnchor, record)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: day %d: %w", day, err)
		}

		if cfg.GlobalOrder {
			sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
		}
		if sinks.Events != nil {
			for _, ev := range events {
				if err := sinks.Events.Write(ev); err != nil {
					return nil, fmt.Errorf("orchestrator: writing event: %w", err)
				}
			}
		}

		record.EndDay()
	}

	record.Finish(time.Now())
	return record, nil
}

// runDay builds and expands one simulated day's events across every
// shard, concurrently when len(shards)>1, then concatenates per-shard
// output in shard order (callers needing strict global order sort
// afterward; within a shard, each user's events are in increasing
// timestamp order after variance.Apply, and users follow one another).
func runDay(
	reg *facility.Registry,
	shards [][]*user.User,
	affinities schedule.Affinities,
	businessHours timeutil.BusinessHours,
	masterSeed int64,
	day int,
	dayAnchor time.Time,
	record *stats.Record,
) ([]eventgen.Event, error) {
	results := make([][]eventgen.Event, len(shards))

	var g errgroup.Group
	for shardIndex, shardUsers := range shards {
		shardIndex, shardUsers := shardIndex, shardUsers
		g.Go(func() error {
			shardSeed := simrand.DeriveShardSeed(masterSeed, shardIndex)
			daySeed := simrand.DeriveDaySeed(shardSeed, day)
			rng := simrand.New(daySeed)

			builder := schedule.NewBuilder(reg, rng, businessHours, affinities)
			generator := eventgen.NewGenerator(reg, rng, businessHours)

			var out []eventgen.Event
			for _, u := range shardUsers {
				activities, err := builder.Build(u, dayAnchor)
				if err != nil {
					slog.Warn("orchestrator: schedule generation failed, using minimal schedule", "user", u.ID.String(), "error", err)
					activities = schedule.Minimal(u, dayAnchor)
				}

				var userEvents []eventgen.Event
				for _, activity := range activities {
					evs, err := generator.Expand(u, activity)
					if err != nil {
						continue
					}
					userEvents = append(userEvents, evs...)
				}

				userEvents = variance.Apply(rng, userEvents)
				classify(record, userEvents)
				out = append(out, userEvents...)
			}
			results[shardIndex] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []eventgen.Event
	for _, shardEvents := range results {
		all = append(all, shardEvents...)
	}
	return all, nil
}

// classify routes each already-variance-applied event to its Record
// method: every event increments the regular Success/Failure total
// first, then any matching anomaly counter (night shift, badge-reader
// failure, curious, impossible traveler) increments alongside it — the
// anomaly flags are orthogonal to the totals, never a substitute for
// them (spec §8 Scenario E).
func classify(record *stats.Record, events []eventgen.Event) {
	for _, ev := range events {
		if ev.Success {
			record.RecordSuccess()
		} else {
			record.RecordFailure(ev.EventType)
		}

		if isNightShiftEvent(ev) {
			record.RecordNightShiftEvent()
		}

		// The injector marks exactly one event per impossible-traveler
		// pair with travel_time_violation, authorized or not.
		if v, _ := ev.Metadata["travel_time_violation"].(bool); v {
			record.RecordImpossibleTravelerPair()
		}

		if ev.FailureReason != nil {
			switch *ev.FailureReason {
			case ids.ReasonBadgeReaderError:
				record.RecordBadgeReaderFailure()
			case ids.ReasonCuriousUser:
				record.RecordCuriousEvent()
			}
		}
	}
}

func isNightShiftEvent(ev eventgen.Event) bool {
	v, ok := ev.Metadata["is_night_shift_event"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func countFlag(users []*user.User, pred func(*user.User) bool) int {
	n := 0
	for _, u := range users {
		if pred(u) {
			n++
		}
	}
	return n
}

func countInfrastructure(reg *facility.Registry) (buildings, rooms int) {
	for _, loc := range reg.Locations() {
		buildings += len(loc.BuildingIDs)
		for _, bldID := range loc.BuildingIDs {
			bld, err := reg.Building(bldID)
			if err != nil {
				continue
			}
			rooms += len(bld.RoomIDs)
		}
	}
	return buildings, rooms
}

// partitionUsers splits users into shardCount contiguous, roughly equal
// slices, preserving the population's deterministic order within each
// shard (spec §4.8 step 4b "in deterministic order").
func partitionUsers(users []*user.User, shardCount int) [][]*user.User {
	shards := make([][]*user.User, shardCount)
	if shardCount <= 1 {
		shards[0] = users
		return shards
	}
	base := len(users) / shardCount
	remainder := len(users) % shardCount
	idx := 0
	for i := 0; i < shardCount; i++ {
		size := base
		if i < remainder {
			size++
		}
		shards[i] = users[idx : idx+size]
		idx += size
	}
	return shards
}
