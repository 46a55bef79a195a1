// Package stats holds the run's single consolidated statistics record:
// infrastructure counts, per-flag user counts, per-type event counts,
// and timing, plus its three rendering forms (spec §4.7).
package stats

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/krukkeniels/badgesim/internal/ids"
)

// Record is the run's single mutable statistics record. Every event is
// counted through its Record* methods (one RecordSuccess or
// RecordFailure call, plus any anomaly counter that applies); there is no
// other write path, so totals are always derivable rather than
// independently tracked.
//
// Safe for concurrent use: sharded orchestration may give each shard its
// own Record and Merge them at end-of-day, or share one Record behind
// its mutex directly.
type Record struct {
	mu sync.Mutex

	// Infrastructure, set once at construction from buildinfo's output.
	locationCount int
	buildingCount int
	roomCount     int
	userCount     int

	// Per-flag user counts, set once at construction.
	curiousUserCount     int
	clonedBadgeUserCount int
	nightShiftUserCount  int

	// Per-type event counts. totalEvents increments only on the five
	// regular event types; anomaly counters are tracked separately and
	// do not double-count into totalEvents (spec §4.7).
	totalEvents   int
	successEvents int
	failureEvents int

	// Anomaly counters, disjoint from the totals above (§8 invariant 7).
	curiousEvents          int
	impossibleTravelerPair int
	nightShiftEvents       int
	badgeReaderFailures    int

	daysSimulated int
	startedAt     time.Time
	finishedAt    time.Time

	prom *prometheusCollectors
}

// prometheusCollectors mirrors Record's counters as Prometheus metrics
// for the machine-readable rendering. Registered against a private
// registry owned by this Record, never the global default, so multiple
// runs in one process never collide.
type prometheusCollectors struct {
	registry      *prometheus.Registry
	eventsTotal   *prometheus.CounterVec
	anomalyTotal  *prometheus.CounterVec
	daysSimulated prometheus.Gauge
}

// NewRecord constructs a statistics record initialised from the
// infrastructure and per-flag counts the orchestrator computes after
// constructing the facility and users (spec §4.8 step 3).
func NewRecord(locationCount, buildingCount, roomCount, userCount, curiousUserCount, clonedBadgeUserCount, nightShiftUserCount int) *Record {
	r := &Record{
		locationCount:        locationCount,
		buildingCount:        buildingCount,
		roomCount:            roomCount,
		userCount:            userCount,
		curiousUserCount:     curiousUserCount,
		clonedBadgeUserCount: clonedBadgeUserCount,
		nightShiftUserCount:  nightShiftUserCount,
		startedAt:            time.Time{},
	}
	r.prom = newPrometheusCollectors()
	return r
}

func newPrometheusCollectors() *prometheusCollectors {
	reg := prometheus.NewRegistry()
	p := &prometheusCollectors{
		registry: reg,
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "badgesim_events_total", Help: "Access events by type"},
			[]string{"event_type"},
		),
		anomalyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "badgesim_anomaly_events_total", Help: "Anomaly events by kind"},
			[]string{"kind"},
		),
		daysSimulated: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "badgesim_days_simulated", Help: "Number of simulated days completed"},
		),
	}
	reg.MustRegister(p.eventsTotal, p.anomalyTotal, p.daysSimulated)
	return p
}

// Start marks the beginning of the run's wall-clock duration window.
// The caller supplies "now" since no component may read wall-clock time
// itself for anything affecting generation; only duration *reporting*
// is exempt from the determinism requirement.
func (r *Record) Start(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startedAt = now
}

// Finish marks the end of the run's wall-clock duration window.
func (r *Record) Finish(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishedAt = now
}

// RecordSuccess increments the success and total counters for a
// successful access event.
func (r *Record) RecordSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalEvents++
	r.successEvents++
	r.prom.eventsTotal.WithLabelValues(string(ids.EventSuccess)).Inc()
}

// RecordFailure increments the failure and total counters for any
// non-success regular event type (Failure, InvalidBadge, OutsideHours,
// Suspicious).
func (r *Record) RecordFailure(eventType ids.EventType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalEvents++
	r.failureEvents++
	r.prom.eventsTotal.WithLabelValues(string(eventType)).Inc()
}

// RecordCuriousEvent increments the disjoint curious-anomaly counter.
// The curious injector's own event must still separately call
// RecordFailure for its event-type total.
func (r *Record) RecordCuriousEvent() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.curiousEvents++
	r.prom.anomalyTotal.WithLabelValues("curious").Inc()
}

// RecordImpossibleTravelerPair increments the disjoint
// impossible-traveler-anomaly counter, once per emitted pair.
func (r *Record) RecordImpossibleTravelerPair() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.impossibleTravelerPair++
	r.prom.anomalyTotal.WithLabelValues("impossible_traveler").Inc()
}

// RecordNightShiftEvent increments the disjoint night-shift-anomaly
// counter for any event whose metadata carries is_night_shift_event.
func (r *Record) RecordNightShiftEvent() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nightShiftEvents++
	r.prom.anomalyTotal.WithLabelValues("night_shift").Inc()
}

// RecordBadgeReaderFailure increments the disjoint
// badge-reader-failure-anomaly counter, once per injected pair.
func (r *Record) RecordBadgeReaderFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.badgeReaderFailures++
	r.prom.anomalyTotal.WithLabelValues("badge_reader_failure").Inc()
}

// EndDay increments days_simulated (spec §4.8 step 4c).
func (r *Record) EndDay() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.daysSimulated++
	r.prom.daysSimulated.Set(float64(r.daysSimulated))
}

// Snapshot is an immutable copy of a Record's counters, safe to read
// without the mutex and used by the rendering methods.
type Snapshot struct {
	LocationCount, BuildingCount, RoomCount, UserCount       int
	CuriousUserCount, ClonedBadgeUserCount, NightShiftUserCount int
	TotalEvents, SuccessEvents, FailureEvents                 int
	CuriousEvents, ImpossibleTravelerPairs, NightShiftEvents, BadgeReaderFailures int
	DaysSimulated int
	Duration      time.Duration
}

func (r *Record) snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	var dur time.Duration
	if !r.finishedAt.IsZero() && !r.startedAt.IsZero() {
		dur = r.finishedAt.Sub(r.startedAt)
	}
	return Snapshot{
		LocationCount: r.locationCount, BuildingCount: r.buildingCount,
		RoomCount: r.roomCount, UserCount: r.userCount,
		CuriousUserCount: r.curiousUserCount, ClonedBadgeUserCount: r.clonedBadgeUserCount,
		NightShiftUserCount: r.nightShiftUserCount,
		TotalEvents:         r.totalEvents, SuccessEvents: r.successEvents, FailureEvents: r.failureEvents,
		CuriousEvents: r.curiousEvents, ImpossibleTravelerPairs: r.impossibleTravelerPair,
		NightShiftEvents: r.nightShiftEvents, BadgeReaderFailures: r.badgeReaderFailures,
		DaysSimulated: r.daysSimulated, Duration: dur,
	}
}

// SuccessRate is the fraction of total_events that were Success,
// computed on demand; 0 when no events have been recorded.
func (s Snapshot) SuccessRate() float64 {
	if s.TotalEvents == 0 {
		return 0
	}
	return float64(s.SuccessEvents) / float64(s.TotalEvents)
}

// EventsPerDay is the average number of events per simulated day,
// computed on demand; 0 when no days have completed.
func (s Snapshot) EventsPerDay() float64 {
	if s.DaysSimulated == 0 {
		return 0
	}
	return float64(s.TotalEvents) / float64(s.DaysSimulated)
}

// Summary renders the compact one-line form.
func (r *Record) Summary() string {
	s := r.snapshot()
	return fmt.Sprintf(
		"badgesim: %d events (%.1f%% success) across %d days, %d users, %v",
		s.TotalEvents, s.SuccessRate()*100, s.DaysSimulated, s.UserCount, s.Duration.Round(time.Millisecond),
	)
}

// Breakdown renders the multi-line human-readable form.
func (r *Record) Breakdown() string {
	s := r.snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "Infrastructure:\n")
	fmt.Fprintf(&b, "  locations=%d buildings=%d rooms=%d users=%d\n", s.LocationCount, s.BuildingCount, s.RoomCount, s.UserCount)
	fmt.Fprintf(&b, "User flags:\n")
	fmt.Fprintf(&b, "  curious=%d cloned_badge=%d night_shift=%d\n", s.CuriousUserCount, s.ClonedBadgeUserCount, s.NightShiftUserCount)
	fmt.Fprintf(&b, "Events:\n")
	fmt.Fprintf(&b, "  total=%d success=%d failure=%d success_rate=%.2f%%\n", s.TotalEvents, s.SuccessEvents, s.FailureEvents, s.SuccessRate()*100)
	fmt.Fprintf(&b, "Anomalies (disjoint from totals):\n")
	fmt.Fprintf(&b, "  curious=%d impossible_traveler_pairs=%d night_shift=%d badge_reader_failures=%d\n",
		s.CuriousEvents, s.ImpossibleTravelerPairs, s.NightShiftEvents, s.BadgeReaderFailures)
	fmt.Fprintf(&b, "Run:\n")
	fmt.Fprintf(&b, "  days_simulated=%d events_per_day=%.1f duration=%v\n", s.DaysSimulated, s.EventsPerDay(), s.Duration.Round(time.Millisecond))
	return b.String()
}

// Gather exposes the record's Prometheus collectors for machine-readable
// export (e.g. via promhttp.HandlerFor). The badgesim CLI prints only
// Summary and does not call Gather.
func (r *Record) Gather() ([]*prometheus.MetricFamily, error) {
	return r.prom.registry.Gather()
}

// Merge folds another shard's counters into r, for sharded parallel
// orchestration's deterministic end-of-day merge (spec §5). Infrastructure
// and per-flag counts are not summed (they describe the same shared
// facility/user population), and neither is days_simulated; only the
// event and anomaly counters are.
func (r *Record) Merge(other *Record) {
	o := other.snapshot()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalEvents += o.TotalEvents
	r.successEvents += o.SuccessEvents
	r.failureEvents += o.FailureEvents
	r.curiousEvents += o.CuriousEvents
	r.impossibleTravelerPair += o.ImpossibleTravelerPairs
	r.nightShiftEvents += o.NightShiftEvents
	r.badgeReaderFailures += o.BadgeReaderFailures
}
