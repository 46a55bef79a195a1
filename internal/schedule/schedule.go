// Package schedule builds the per-user, per-day activity list: the
// behaviour engine (spec §4.4). It decides what a user does across a
// simulated day, selects rooms for each activity with location affinity,
// resolves travel-time conflicts, and tracks the single cross-location
// transition a user may make in a day.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/krukkeniels/badgesim/internal/facility"
	"github.com/krukkeniels/badgesim/internal/ids"
	"github.com/krukkeniels/badgesim/internal/simrand"
	"github.com/krukkeniels/badgesim/internal/timeutil"
	"github.com/krukkeniels/badgesim/internal/user"
)

// Activity is one scheduled, not-yet-expanded unit of a user's day.
type Activity struct {
	Type         ids.ActivityType
	TargetRoomID ids.ID
	StartTime    time.Time
	Duration     time.Duration
}

// EndTime is StartTime+Duration.
func (a Activity) EndTime() time.Time { return a.StartTime.Add(a.Duration) }

// Affinities are the configured probabilities that steer meeting-room
// case selection (spec §4.4 "three cases selected by per-activity
// random draw against configured affinities").
type Affinities struct {
	PrimaryBuilding   float64
	SameLocation      float64
	DifferentLocation float64
}

// schedulingBuffer is the fixed buffer added after required travel time
// when resolving conflicts.
const schedulingBuffer = 5 * time.Minute

// crossLocationTravelTime is the minimum time the conflict resolver
// requires before placing an activity at a different location than the
// previous one, independent of the geo-distance-based bucket used by the
// impossible-traveler injector (which operates on already-produced
// events, not schedule conflicts).
const crossLocationTravelTime = 4 * time.Hour

// intraLocationBuildingTravelMin, intraLocationBuildingTravelMax bound
// the travel time assumed between two buildings at the same location.
const (
	intraLocationBuildingTravelMin = 15 * time.Minute
	intraLocationBuildingTravelMax = 30 * time.Minute
)

// Builder constructs daily schedules. It is not safe for concurrent use;
// shard workers each get their own Builder over their own simrand.Source.
type Builder struct {
	registry      *facility.Registry
	rng           *simrand.Source
	businessHours timeutil.BusinessHours
	affinities    Affinities
}

// NewBuilder constructs a Builder.
func NewBuilder(registry *facility.Registry, rng *simrand.Source, bh timeutil.BusinessHours, aff Affinities) *Builder {
	return &Builder{registry: registry, rng: rng, businessHours: bh, affinities: aff}
}

// Build produces the ordered, conflict-resolved activity list for one
// user on one simulated day, resetting the user's daily cross-location
// state first.
func (b *Builder) Build(u *user.User, day time.Time) ([]Activity, error) {
	u.Daily.Reset()

	var raw []Activity
	var err error
	if u.IsNightShift {
		raw, err = b.buildNightShift(u, day)
	} else {
		raw, err = b.buildRegular(u, day)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(raw, func(i, j int) bool { return raw[i].StartTime.Before(raw[j].StartTime) })
	return b.resolveConflicts(u, raw)
}

// Minimal returns the degraded, two-activity schedule used when full
// schedule generation fails (SPEC_FULL.md error-handling table): a bare
// Arrival and Departure at the user's primary workspace.
func Minimal(u *user.User, day time.Time) []Activity {
	arrival := timeutil.AtClock(day, 9*time.Hour)
	departure := timeutil.AtClock(day, 17*time.Hour)
	return []Activity{
		{Type: ids.ActivityArrival, TargetRoomID: u.PrimaryWorkspaceID, StartTime: arrival, Duration: 15 * time.Minute},
		{Type: ids.ActivityDeparture, TargetRoomID: u.PrimaryWorkspaceID, StartTime: departure, Duration: 10 * time.Minute},
	}
}

// --- Regular schedule ---------------------------------------------------

func (b *Builder) buildRegular(u *user.User, day time.Time) ([]Activity, error) {
	var schedule []Activity

	arrival := b.arrivalTime(day, u.Behavior)
	schedule = append(schedule, Activity{Type: ids.ActivityArrival, TargetRoomID: u.PrimaryWorkspaceID, StartTime: arrival, Duration: 15 * time.Minute})

	bathroomCount := 2 + b.rng.Intn(3) // 2-4
	for i := 0; i < bathroomCount; i++ {
		t := b.bathroomTime(day, u.Behavior)
		room, ok := b.selectBathroomRoom(u)
		if !ok {
			room = u.PrimaryWorkspaceID
		}
		dur := time.Duration(3+b.rng.Intn(6)) * time.Minute // 3-8
		schedule = append(schedule, Activity{Type: ids.ActivityBathroom, TargetRoomID: room, StartTime: t, Duration: dur})
	}

	lunch := b.lunchTime(day, u.Behavior)
	lunchRoom, ok := b.selectLunchRoom(u)
	if !ok {
		lunchRoom = u.PrimaryWorkspaceID
	}
	lunchDur := time.Duration(30+b.rng.Intn(61)) * time.Minute // 30-90
	schedule = append(schedule, Activity{Type: ids.ActivityLunch, TargetRoomID: lunchRoom, StartTime: lunch, Duration: lunchDur})

	meetingCount := b.meetingCount(u.Behavior)
	for i := 0; i < meetingCount; i++ {
		t := b.meetingTime(day, u.Behavior)
		room, err := b.selectMeetingRoom(u)
		if err != nil {
			continue
		}
		dur := time.Duration(30+b.rng.Intn(91)) * time.Minute // 30-120
		schedule = append(schedule, Activity{Type: ids.ActivityMeeting, TargetRoomID: room, StartTime: t, Duration: dur})
	}

	if u.Behavior.IsSocial() {
		collabCount := b.rng.Intn(4) // 0-3
		for i := 0; i < collabCount; i++ {
			t := b.collaborationTime(day)
			room, ok := b.selectCollaborationRoom(u)
			if !ok {
				continue
			}
			dur := time.Duration(15+b.rng.Intn(31)) * time.Minute // 15-45
			schedule = append(schedule, Activity{Type: ids.ActivityCollaboration, TargetRoomID: room, StartTime: t, Duration: dur})
		}
	}

	if u.IsCurious {
		probeCount := 1 + b.rng.Intn(3) // 1-3
		for i := 0; i < probeCount; i++ {
			room, ok := b.selectUnauthorizedRoom(u)
			if !ok {
				continue
			}
			t := b.curiousTime(day, u.Behavior)
			dur := time.Duration(5+b.rng.Intn(11)) * time.Minute // 5-15
			schedule = append(schedule, Activity{Type: ids.ActivityUnauthorizedProbe, TargetRoomID: room, StartTime: t, Duration: dur})
		}
	}

	departure := b.departureTime(day, u.Behavior, arrival)
	schedule = append(schedule, Activity{Type: ids.ActivityDeparture, TargetRoomID: u.PrimaryWorkspaceID, StartTime: departure, Duration: 10 * time.Minute})

	return schedule, nil
}

func (b *Builder) arrivalTime(day time.Time, behavior user.BehaviorProfile) time.Time {
	var hour int
	if behavior.IsScheduleFocused() {
		hour = 8
	} else {
		hour = 7 + b.rng.Intn(3) // 7-9
	}
	var maxMinutes int
	if behavior.ScheduleAdherence > 0.8 {
		maxMinutes = 31 // 0-30
	} else {
		maxMinutes = 61 // 0-60
	}
	minute := b.rng.Intn(maxMinutes)
	return normalizeClock(day, hour, minute)
}

func (b *Builder) bathroomTime(day time.Time, behavior user.BehaviorProfile) time.Time {
	if behavior.IsScheduleFocused() && b.rng.Bool(0.7) {
		hour := 10
		if b.rng.Bool(0.5) {
			hour = 15
		}
		return normalizeClock(day, hour, b.rng.Intn(60))
	}
	hour := 8 + b.rng.Intn(10) // 8-17
	return normalizeClock(day, hour, b.rng.Intn(60))
}

func (b *Builder) lunchTime(day time.Time, behavior user.BehaviorProfile) time.Time {
	var hour int
	if behavior.IsSocial() {
		hour = 12 + b.rng.Intn(2) // 12-13
	} else {
		hour = 11 + b.rng.Intn(2) // 11-12
	}
	return normalizeClock(day, hour, b.rng.Intn(60))
}

func (b *Builder) meetingCount(behavior user.BehaviorProfile) int {
	base := 1.5
	if behavior.IsSocial() {
		base = 3.0
	}
	variation := -1.0 + b.rng.Float64()*3.0 // [-1, 2)
	total := base + variation
	if total < 0 {
		total = 0
	}
	n := int(total)
	if n > 5 {
		n = 5
	}
	return n
}

func (b *Builder) meetingTime(day time.Time, behavior user.BehaviorProfile) time.Time {
	var hour int
	if behavior.IsScheduleFocused() {
		preferred := []int{9, 10, 14, 15, 16}
		hour = preferred[b.rng.Intn(len(preferred))]
	} else {
		for {
			hour = 9 + b.rng.Intn(8) // 9-16
			if hour != 12 {
				break
			}
		}
	}
	minute := 0
	if behavior.IsScheduleFocused() {
		if !b.rng.Bool(0.7) {
			minute = 30
		}
	} else {
		minute = b.rng.Intn(60)
	}
	return normalizeClock(day, hour, minute)
}

func (b *Builder) collaborationTime(day time.Time) time.Time {
	hour := 10 + b.rng.Intn(6) // 10-15
	return normalizeClock(day, hour, b.rng.Intn(60))
}

func (b *Builder) curiousTime(day time.Time, behavior user.BehaviorProfile) time.Time {
	var preferred []int
	if behavior.CuriosityLevel > 0.7 {
		preferred = []int{8, 9, 10, 11, 13, 14, 15, 16, 17}
	} else {
		preferred = []int{8, 12, 13, 17}
	}
	hour := preferred[b.rng.Intn(len(preferred))]
	return normalizeClock(day, hour, b.rng.Intn(60))
}

func (b *Builder) departureTime(day time.Time, behavior user.BehaviorProfile, arrival time.Time) time.Time {
	minWorkHours := 7.5
	if behavior.IsScheduleFocused() {
		minWorkHours = 8.0
	}
	earliest := arrival.Add(time.Duration(minWorkHours * float64(time.Hour)))

	var variationHours float64
	if behavior.IsScheduleFocused() {
		variationHours = -0.5 + b.rng.Float64()*1.5 // [-0.5, 1.0)
	} else {
		variationHours = -1.0 + b.rng.Float64()*3.0 // [-1.0, 2.0)
	}
	departure := earliest.Add(time.Duration(variationHours * 60 * float64(time.Minute)))

	maxDeparture := timeutil.AtClock(day, 20*time.Hour)
	if departure.After(maxDeparture) {
		return maxDeparture
	}
	return departure
}

func normalizeClock(day time.Time, hour, minute int) time.Time {
	if minute > 59 {
		minute = 59
	}
	return timeutil.AtClock(day, time.Duration(hour)*time.Hour+time.Duration(minute)*time.Minute)
}

// --- Room selection -------------------------------------------------

func (b *Builder) selectBathroomRoom(u *user.User) (ids.ID, bool) {
	return b.selectRoomWithAffinity(u, ids.RoomBathroom)
}

func (b *Builder) selectLunchRoom(u *user.User) (ids.ID, bool) {
	return b.selectRoomWithAffinity(u, ids.RoomCafeteria)
}

func (b *Builder) selectCollaborationRoom(u *user.User) (ids.ID, bool) {
	if room, ok := b.selectRoomWithAffinity(u, ids.RoomMeetingRoom); ok {
		return room, true
	}
	return b.authorizedRoomInBuilding(u, u.PrimaryBuildingID)
}

// selectRoomWithAffinity implements "prefer the primary building; fall
// back to other accessible buildings in the primary location" (spec
// §4.4) for a given room type.
func (b *Builder) selectRoomWithAffinity(u *user.User, rt ids.RoomType) (ids.ID, bool) {
	if rooms, err := b.registry.RoomsByType(u.PrimaryBuildingID, rt); err == nil {
		if room, ok := b.pickAuthorized(u, rooms); ok {
			return room, true
		}
	}

	others, err := b.registry.OtherBuildingsInLocation(u.PrimaryLocationID, u.PrimaryBuildingID)
	if err != nil {
		return ids.ID{}, false
	}
	b.rng.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })
	for _, bld := range others {
		rooms, err := b.registry.RoomsByType(bld.ID, rt)
		if err != nil {
			continue
		}
		if room, ok := b.pickAuthorized(u, rooms); ok {
			return room, true
		}
	}
	return ids.ID{}, false
}

func (b *Builder) authorizedRoomInBuilding(u *user.User, buildingID ids.ID) (ids.ID, bool) {
	bld, err := b.registry.Building(buildingID)
	if err != nil {
		return ids.ID{}, false
	}
	var candidates []facility.Room
	for _, rid := range bld.RoomIDs {
		room, err := b.registry.Room(rid)
		if err != nil {
			continue
		}
		candidates = append(candidates, room)
	}
	return b.pickAuthorized(u, candidates)
}

func (b *Builder) pickAuthorized(u *user.User, rooms []facility.Room) (ids.ID, bool) {
	var authorized []ids.ID
	for _, room := range rooms {
		if u.Permissions.CanAccessRoom(room.ID, room.BuildingID, u.PrimaryLocationID) {
			authorized = append(authorized, room.ID)
		}
	}
	if len(authorized) == 0 {
		return ids.ID{}, false
	}
	return authorized[b.rng.Intn(len(authorized))], true
}

// meetingCase is the three-way room-selection outcome for a meeting
// (spec §4.4).
type meetingCase int

const (
	meetingPrimaryBuilding meetingCase = iota
	meetingSameLocationOtherBuilding
	meetingDifferentLocation
)

func (b *Builder) selectMeetingRoom(u *user.User) (ids.ID, error) {
	weights := []float64{b.affinities.PrimaryBuilding, b.affinities.SameLocation, b.affinities.DifferentLocation}
	choice := meetingCase(b.rng.WeightedChoice(weights))

	switch choice {
	case meetingDifferentLocation:
		if room, ok := b.meetingRoomDifferentLocation(u); ok {
			return room, nil
		}
		fallthrough
	case meetingSameLocationOtherBuilding:
		if room, ok := b.meetingRoomSameLocation(u); ok {
			return room, nil
		}
		fallthrough
	default:
		if room, ok := b.authorizedRoomInBuilding(u, u.PrimaryBuildingID); ok {
			return room, nil
		}
	}
	return ids.ID{}, fmt.Errorf("schedule: no authorized meeting room found for user %s", u.ID)
}

func (b *Builder) meetingRoomSameLocation(u *user.User) (ids.ID, bool) {
	others, err := b.registry.OtherBuildingsInLocation(u.PrimaryLocationID, u.PrimaryBuildingID)
	if err != nil || len(others) == 0 {
		return ids.ID{}, false
	}
	// Gate: intra-location building travel is always feasible within the
	// conflict resolver's buffer, so no additional check is needed here;
	// feasibility against the *previous* activity is enforced later by
	// resolveConflicts.
	b.rng.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })
	for _, bld := range others {
		if room, ok := b.authorizedRoomInBuilding(u, bld.ID); ok {
			return room, true
		}
	}
	return ids.ID{}, false
}

func (b *Builder) meetingRoomDifferentLocation(u *user.User) (ids.ID, bool) {
	others := b.registry.OtherLocations(u.PrimaryLocationID)
	if len(others) == 0 {
		return ids.ID{}, false
	}
	b.rng.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })
	for _, loc := range others {
		for _, bldID := range shuffledIDs(b.rng, loc.BuildingIDs) {
			if room, ok := b.authorizedRoomInBuilding(u, bldID); ok {
				return room, true
			}
		}
	}
	return ids.ID{}, false
}

func shuffledIDs(rng *simrand.Source, in []ids.ID) []ids.ID {
	out := make([]ids.ID, len(in))
	copy(out, in)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// selectUnauthorizedRoom targets a room the user cannot access, within
// their primary location, preferring higher-security rooms (spec §4.4
// "Curious activities").
func (b *Builder) selectUnauthorizedRoom(u *user.User) (ids.ID, bool) {
	rooms, err := b.registry.RoomsInLocation(u.PrimaryLocationID)
	if err != nil {
		return ids.ID{}, false
	}
	var unauthorized []facility.Room
	for _, room := range rooms {
		if !u.Permissions.CanAccessRoom(room.ID, room.BuildingID, u.PrimaryLocationID) {
			unauthorized = append(unauthorized, room)
		}
	}
	if len(unauthorized) == 0 {
		return ids.ID{}, false
	}
	sort.SliceStable(unauthorized, func(i, j int) bool {
		return unauthorized[i].SecurityLevel > unauthorized[j].SecurityLevel
	})
	// Bias toward the higher-security front of the list without always
	// picking the single highest, by drawing from the top half.
	top := (len(unauthorized) + 1) / 2
	return unauthorized[b.rng.Intn(top)].ID, true
}

// --- Conflict resolution ---------------------------------------------

func (b *Builder) resolveConflicts(u *user.User, schedule []Activity) ([]Activity, error) {
	var resolved []Activity

	for _, activity := range schedule {
		if len(resolved) > 0 {
			prev := resolved[len(resolved)-1]
			adjusted, skip, err := b.resolveTravelConflict(prev, activity)
			if err != nil {
				return nil, err
			}
			if skip {
				continue
			}
			activity = adjusted
		}

		activity.TargetRoomID = b.applyLocationPersistence(u, activity)

		if len(resolved) > 0 {
			prev := resolved[len(resolved)-1]
			if activity.StartTime.Before(prev.EndTime()) || activity.StartTime.Equal(prev.EndTime()) {
				activity.StartTime = prev.EndTime().Add(schedulingBuffer)
			}
		}

		resolved = append(resolved, activity)
	}

	return resolved, nil
}

func (b *Builder) resolveTravelConflict(prev, activity Activity) (Activity, bool, error) {
	prevBuilding, err := b.registry.BuildingOf(prev.TargetRoomID)
	if err != nil {
		return activity, false, fmt.Errorf("schedule: %w", err)
	}
	curBuilding, err := b.registry.BuildingOf(activity.TargetRoomID)
	if err != nil {
		return activity, false, fmt.Errorf("schedule: %w", err)
	}

	required := b.minimumTravelTime(prevBuilding.ID, curBuilding.ID, prevBuilding.LocationID, curBuilding.LocationID)
	available := activity.StartTime.Sub(prev.EndTime())

	if available >= required {
		return activity, false, nil
	}

	requiredStart := prev.EndTime().Add(required).Add(schedulingBuffer)
	if isReasonableTime(activity.Type, requiredStart) {
		activity.StartTime = requiredStart
		return activity, false, nil
	}

	// Fallback: retarget to the previous activity's own room, keeping the
	// original time, rather than dropping the activity outright. That
	// room is known-authorized (it was the prior activity's target), so
	// no fresh permission check is needed.
	activity.TargetRoomID = prev.TargetRoomID
	return activity, false, nil
}

func (b *Builder) minimumTravelTime(prevBuildingID, curBuildingID, prevLocationID, curLocationID ids.ID) time.Duration {
	if prevBuildingID.Equal(curBuildingID) {
		return 0
	}
	if prevLocationID.Equal(curLocationID) {
		span := intraLocationBuildingTravelMax - intraLocationBuildingTravelMin
		return intraLocationBuildingTravelMin + time.Duration(b.rng.Float64()*float64(span))
	}
	return crossLocationTravelTime
}

func isReasonableTime(t ids.ActivityType, at time.Time) bool {
	hour := at.UTC().Hour()
	switch t {
	case ids.ActivityArrival:
		return hour >= 6 && hour <= 11
	case ids.ActivityDeparture:
		return hour >= 14 && hour <= 21
	case ids.ActivityNightPatrol:
		return true
	default:
		return hour >= 7 && hour <= 20
	}
}

// applyLocationPersistence retargets an activity's room to the user's
// persisted cross-location destination once one has been established
// this day, and records the first such transition (spec §4.4
// "Cross-location persistence").
func (b *Builder) applyLocationPersistence(u *user.User, activity Activity) ids.ID {
	bld, err := b.registry.BuildingOf(activity.TargetRoomID)
	if err != nil {
		return activity.TargetRoomID
	}
	loc, err := b.registry.LocationOf(bld.ID)
	if err != nil {
		return activity.TargetRoomID
	}

	if !loc.ID.Equal(u.PrimaryLocationID) {
		u.Daily.RecordTransition(loc.ID)
		return activity.TargetRoomID
	}

	if u.Daily.TransitionUsed && !u.Daily.CurrentLocationID.Equal(u.PrimaryLocationID) {
		// Constrained to the destination location: retarget within it.
		if room, ok := b.authorizedRoomInBuilding(u, bld.ID); ok && loc.ID.Equal(u.Daily.CurrentLocationID) {
			return room
		}
		if room, ok := b.anyAuthorizedRoomInLocation(u, u.Daily.CurrentLocationID); ok {
			return room
		}
	}
	return activity.TargetRoomID
}

func (b *Builder) anyAuthorizedRoomInLocation(u *user.User, locationID ids.ID) (ids.ID, bool) {
	rooms, err := b.registry.RoomsInLocation(locationID)
	if err != nil {
		return ids.ID{}, false
	}
	return b.pickAuthorized(u, rooms)
}

// --- Night-shift schedule ---------------------------------------------

func (b *Builder) buildNightShift(u *user.User, day time.Time) ([]Activity, error) {
	nightBuilding := u.AssignedNightBuildingID
	if nightBuilding.IsZero() {
		nightBuilding = u.PrimaryBuildingID
	}

	accessible := b.accessibleRoomsForNightShift(u, nightBuilding)
	if len(accessible) == 0 {
		return nil, fmt.Errorf("schedule: no accessible rooms for night-shift user %s in building %s", u.ID, nightBuilding)
	}

	var sched []Activity

	// Early morning continuation: late-night patrol (00:00-02:00).
	for i, room := range firstN(accessible, 2) {
		start := timeutil.AtClock(day, time.Duration(i)*time.Hour)
		sched = append(sched, Activity{Type: ids.ActivityNightPatrol, TargetRoomID: room, StartTime: start, Duration: 45 * time.Minute})
	}

	// Early morning patrol (02:00-04:00).
	patrolStart := timeutil.AtClock(day, 2*time.Hour)
	for i, room := range firstN(accessible, 3) {
		start := patrolStart.Add(time.Duration(i*40) * time.Minute)
		sched = append(sched, Activity{Type: ids.ActivityNightPatrol, TargetRoomID: room, StartTime: start, Duration: 30 * time.Minute})
	}

	// Break (04:30).
	breakRoom, ok := b.selectBreakRoomForNightShift(u, nightBuilding)
	if !ok {
		breakRoom = accessible[0]
	}
	sched = append(sched, Activity{Type: ids.ActivityBathroom, TargetRoomID: breakRoom, StartTime: timeutil.AtClock(day, 4*time.Hour+30*time.Minute), Duration: 15 * time.Minute})

	// Final patrol round (05:00-07:00).
	finalStart := timeutil.AtClock(day, 5*time.Hour)
	for i, room := range firstN(accessible, 2) {
		start := finalStart.Add(time.Duration(i) * time.Hour)
		sched = append(sched, Activity{Type: ids.ActivityNightPatrol, TargetRoomID: room, StartTime: start, Duration: 45 * time.Minute})
	}

	// Morning departure (08:00).
	sched = append(sched, Activity{Type: ids.ActivityDeparture, TargetRoomID: accessible[0], StartTime: timeutil.AtClock(day, 8*time.Hour), Duration: 10 * time.Minute})

	// Evening arrival (17:00).
	sched = append(sched, Activity{Type: ids.ActivityArrival, TargetRoomID: accessible[0], StartTime: timeutil.AtClock(day, 17*time.Hour), Duration: 10 * time.Minute})

	// Evening patrol setup (18:00-20:00).
	eveningStart := timeutil.AtClock(day, 18*time.Hour)
	for i, room := range firstN(accessible, 3) {
		start := eveningStart.Add(time.Duration(i*40) * time.Minute)
		sched = append(sched, Activity{Type: ids.ActivityNightPatrol, TargetRoomID: room, StartTime: start, Duration: 30 * time.Minute})
	}

	// Evening break (20:30).
	sched = append(sched, Activity{Type: ids.ActivityBathroom, TargetRoomID: breakRoom, StartTime: timeutil.AtClock(day, 20*time.Hour+30*time.Minute), Duration: 20 * time.Minute})

	// Late evening patrol (21:00-23:30).
	lateStart := timeutil.AtClock(day, 21*time.Hour)
	for i, room := range firstN(accessible, 4) {
		start := lateStart.Add(time.Duration(i*35) * time.Minute)
		sched = append(sched, Activity{Type: ids.ActivityNightPatrol, TargetRoomID: room, StartTime: start, Duration: 25 * time.Minute})
	}

	return sched, nil
}

func (b *Builder) accessibleRoomsForNightShift(u *user.User, buildingID ids.ID) []ids.ID {
	bld, err := b.registry.Building(buildingID)
	if err != nil {
		return nil
	}
	var out []ids.ID
	for _, rid := range bld.RoomIDs {
		room, err := b.registry.Room(rid)
		if err != nil {
			continue
		}
		if u.Permissions.CanAccessRoom(room.ID, buildingID, u.PrimaryLocationID) {
			out = append(out, room.ID)
		}
	}
	b.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func (b *Builder) selectBreakRoomForNightShift(u *user.User, buildingID ids.ID) (ids.ID, bool) {
	if rooms, err := b.registry.RoomsByType(buildingID, ids.RoomBathroom); err == nil {
		if room, ok := b.pickAuthorized(u, rooms); ok {
			return room, true
		}
	}
	if rooms, err := b.registry.RoomsByType(buildingID, ids.RoomCafeteria); err == nil {
		if room, ok := b.pickAuthorized(u, rooms); ok {
			return room, true
		}
	}
	return b.authorizedRoomInBuilding(u, buildingID)
}

func firstN(roomIDs []ids.ID, n int) []ids.ID {
	if len(roomIDs) <= n {
		return roomIDs
	}
	return roomIDs[:n]
}
