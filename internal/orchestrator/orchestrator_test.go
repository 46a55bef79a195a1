package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/krukkeniels/badgesim/internal/config"
	"github.com/krukkeniels/badgesim/internal/eventgen"
	"github.com/krukkeniels/badgesim/internal/ids"
	"github.com/krukkeniels/badgesim/internal/sink"
	"github.com/krukkeniels/badgesim/internal/stats"
)

func scenarioConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		UserCount: 10, LocationCount: 1, Days: 2, Seed: 42,
		MinBuildingsPerLocation: 1, MaxBuildingsPerLocation: 1,
		MinRoomsPerBuilding: 2, MaxRoomsPerBuilding: 2,
		CuriousUserPercentage: 0.1, ClonedBadgePercentage: 0.1,
		PrimaryBuildingAffinity: 0.7, SameLocationTravel: 0.2, DifferentLocationTravel: 0.1,
		Shards: 1,
		NightShift: config.NightShiftConfig{MinUserCountFloor: 500},
	}
}

func newSinks(t *testing.T, dir string) Sinks {
	t.Helper()
	events, err := sink.NewEventSink(filepath.Join(dir, "events.jsonl"), sink.FormatJSON, sink.Fields{}, false)
	if err != nil {
		t.Fatalf("NewEventSink: %v", err)
	}
	t.Cleanup(func() { events.Close() })

	profiles, err := sink.NewProfileSink(filepath.Join(dir, "profiles.jsonl"))
	if err != nil {
		t.Fatalf("NewProfileSink: %v", err)
	}
	t.Cleanup(func() { profiles.Close() })

	return Sinks{Events: events, Profiles: profiles}
}

func TestRunProducesNonZeroEventsAndAdvancesDays(t *testing.T) {
	cfg := scenarioConfig(t)
	dir := t.TempDir()
	record, err := Run(cfg, newSinks(t, dir), time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	summary := record.Summary()
	if summary == "" {
		t.Fatal("expected a non-empty summary")
	}

	eventsOut, err := os.ReadFile(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("reading events output: %v", err)
	}
	if len(eventsOut) == 0 {
		t.Fatal("expected a non-empty event stream for a 2-day, 10-user run")
	}

	profilesOut, err := os.ReadFile(filepath.Join(dir, "profiles.jsonl"))
	if err != nil {
		t.Fatalf("reading profile output: %v", err)
	}
	if len(profilesOut) == 0 {
		t.Fatal("expected a non-empty profile output for a 10-user run")
	}
}

func TestRunIsDeterministicForAFixedSeed(t *testing.T) {
	cfg := scenarioConfig(t)
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	dirA, dirB := t.TempDir(), t.TempDir()
	if _, err := Run(cfg, newSinks(t, dirA), start); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if _, err := Run(cfg, newSinks(t, dirB), start); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	a, err := os.ReadFile(filepath.Join(dirA, "events.jsonl"))
	if err != nil {
		t.Fatalf("reading run A events: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dirB, "events.jsonl"))
	if err != nil {
		t.Fatalf("reading run B events: %v", err)
	}
	if string(a) != string(b) {
		t.Fatal("two runs with the same seed produced different event streams")
	}
}

func TestRunWithoutSinksStillComputesStatistics(t *testing.T) {
	cfg := scenarioConfig(t)
	record, err := Run(cfg, Sinks{}, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if record.Summary() == "" {
		t.Fatal("expected a non-empty summary even with no sinks configured")
	}
}

func TestClassifyCountsAnomaliesOrthogonallyToTotals(t *testing.T) {
	reasonBadgeReader := ids.ReasonBadgeReaderError
	reasonCurious := ids.ReasonCuriousUser

	events := []eventgen.Event{
		// A successful night-shift patrol event: the flag must not
		// suppress the regular success count (spec §8 Scenario E).
		{Success: true, EventType: ids.EventSuccess, Metadata: map[string]any{"is_night_shift_event": true}},
		// A badge-reader-failure: still one of the five regular event
		// types, so it must also land in total/failure.
		{Success: false, EventType: ids.EventFailure, FailureReason: &reasonBadgeReader},
		// A curious-user probe, for comparison: already double-counted
		// before this fix, and must remain so.
		{Success: false, EventType: ids.EventFailure, FailureReason: &reasonCurious},
		// A plain regular success with no anomaly involved.
		{Success: true, EventType: ids.EventSuccess},
	}

	record := stats.NewRecord(0, 0, 0, 0, 0, 0, 0)
	classify(record, events)

	breakdown := record.Breakdown()
	if !strings.Contains(breakdown, "total=4 success=2 failure=2") {
		t.Fatalf("totals did not count every event regardless of anomaly flags, got:\n%s", breakdown)
	}
	if !strings.Contains(breakdown, "curious=1 impossible_traveler_pairs=0 night_shift=1 badge_reader_failures=1") {
		t.Fatalf("anomaly counters did not increment alongside the totals, got:\n%s", breakdown)
	}
}

func TestRunWithBehaviorPresetFileAppliesNamedArchetype(t *testing.T) {
	dir := t.TempDir()
	presetPath := filepath.Join(dir, "presets.yaml")
	presetYAML := `presets:
  - name: road-warrior
    profile:
      travel_frequency: 0.65
      curiosity_level: 0.2
      schedule_adherence: 0.4
      social_level: 0.6
`
	if err := os.WriteFile(presetPath, []byte(presetYAML), 0o644); err != nil {
		t.Fatalf("writing preset file: %v", err)
	}

	cfg := scenarioConfig(t)
	cfg.CuriousUserPercentage = 0
	cfg.BehaviorPresetFile = presetPath

	record, err := Run(cfg, newSinks(t, dir), time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if record.Summary() == "" {
		t.Fatal("expected a non-empty summary")
	}

	raw, err := os.ReadFile(filepath.Join(dir, "profiles.jsonl"))
	if err != nil {
		t.Fatalf("reading profile output: %v", err)
	}

	matched := false
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		var rec struct {
			TravelFrequency   float64 `json:"travel_frequency"`
			CuriosityLevel    float64 `json:"curiosity_level"`
			ScheduleAdherence float64 `json:"schedule_adherence"`
			SocialLevel       float64 `json:"social_level"`
			IsNightShift      bool    `json:"is_night_shift"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("unmarshaling profile line: %v", err)
		}
		if rec.IsNightShift {
			continue
		}
		if rec.TravelFrequency == 0.65 && rec.CuriosityLevel == 0.2 &&
			rec.ScheduleAdherence == 0.4 && rec.SocialLevel == 0.6 {
			matched = true
			break
		}
	}
	if !matched {
		t.Fatal("expected at least one regular user to carry the road-warrior preset's exact profile")
	}
}

func TestRunShardedMatchesSingleShardOutput(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	single := scenarioConfig(t)
	single.Shards = 1
	sharded := scenarioConfig(t)
	sharded.Shards = 4
	sharded.GlobalOrder = true

	dirSingle, dirSharded := t.TempDir(), t.TempDir()
	if _, err := Run(single, newSinks(t, dirSingle), start); err != nil {
		t.Fatalf("Run(single) error: %v", err)
	}
	if _, err := Run(sharded, newSinks(t, dirSharded), start); err != nil {
		t.Fatalf("Run(sharded) error: %v", err)
	}

	a, err := os.ReadFile(filepath.Join(dirSingle, "events.jsonl"))
	if err != nil {
		t.Fatalf("reading single-shard events: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dirSharded, "events.jsonl"))
	if err != nil {
		t.Fatalf("reading sharded events: %v", err)
	}
	if len(a) == 0 || len(b) == 0 {
		t.Fatal("expected non-empty output from both runs")
	}
}
