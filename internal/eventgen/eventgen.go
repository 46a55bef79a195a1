// Package eventgen expands each scheduled activity into one or more
// access events: the access-flow walk, authorization/business-hours/
// system-failure evaluation, event typing, and the three anomaly
// injectors (spec §4.5).
package eventgen

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/krukkeniels/badgesim/internal/facility"
	"github.com/krukkeniels/badgesim/internal/geo"
	"github.com/krukkeniels/badgesim/internal/ids"
	"github.com/krukkeniels/badgesim/internal/schedule"
	"github.com/krukkeniels/badgesim/internal/simrand"
	"github.com/krukkeniels/badgesim/internal/timeutil"
	"github.com/krukkeniels/badgesim/internal/user"
)

// attemptSpacing is the fixed gap between steps of an access flow
// (lobby -> corridor -> target), spec §4.5.
const attemptSpacing = 30 * time.Second

// systemFailureProbability is the per-attempt chance an otherwise-valid
// attempt is denied with SystemFailure.
const systemFailureProbability = 0.001

// suspiciousProbability is the chance a failed attempt at a
// high-security room is instead recorded as Suspicious.
const suspiciousProbability = 0.01

// badgeReaderFailureProbability is the per-authorized-attempt chance of
// the badge-reader-failure injector firing.
const badgeReaderFailureProbability = 0.001

// curiousEventProbability is the per-activity chance, for curious
// users, of the curious-event injector firing.
const curiousEventProbability = 0.15

// impossibleTravelerProbability is the per-activity chance, for
// cloned-badge users, of the impossible-traveler injector firing.
const impossibleTravelerProbability = 0.02

// Event is the recorded outcome of a single access attempt (spec §3).
type Event struct {
	Timestamp     time.Time
	UserID        ids.ID
	RoomID        ids.ID
	BuildingID    ids.ID
	LocationID    ids.ID
	Success       bool
	EventType     ids.EventType
	FailureReason *ids.FailureReason
	Metadata      map[string]any
}

func (e *Event) setMeta(key string, val any) {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = val
}

// Generator expands activities into events for a single shard/day
// worker. Not safe for concurrent use.
type Generator struct {
	registry      *facility.Registry
	rng           *simrand.Source
	businessHours timeutil.BusinessHours
}

// NewGenerator constructs a Generator.
func NewGenerator(registry *facility.Registry, rng *simrand.Source, bh timeutil.BusinessHours) *Generator {
	return &Generator{registry: registry, rng: rng, businessHours: bh}
}

// Expand produces every event arising from one scheduled activity:
// the access-flow events plus whichever anomaly injectors fire.
func (g *Generator) Expand(u *user.User, activity schedule.Activity) ([]Event, error) {
	flowEvents, err := g.expandAccessFlow(u, activity)
	if err != nil {
		slog.Warn("eventgen: access-flow expansion failed, emitting minimal event", "user", u.ID.String(), "room", activity.TargetRoomID.String(), "error", err)
		return []Event{g.minimalEvent(u, activity)}, nil
	}

	var out []Event
	out = append(out, flowEvents...)

	if badgeEvents, ok := g.maybeInjectBadgeReaderFailure(u, flowEvents); ok {
		// Replace the final (target) event with the failure/retry pair.
		out = out[:len(out)-1]
		out = append(out, badgeEvents...)
	}

	if u.IsCurious {
		if ev, ok := g.maybeInjectCuriousEvent(u, activity); ok {
			out = append(out, ev)
		}
	}

	if u.HasClonedBadge {
		if pair, ok := g.maybeInjectImpossibleTraveler(u, activity); ok {
			out = append(out, pair...)
		}
	}

	return out, nil
}

// minimalEvent is the degraded fallback used when full expansion fails
// (SPEC_FULL.md error-handling table): a single best-effort event at the
// activity's target room and start time.
func (g *Generator) minimalEvent(u *user.User, activity schedule.Activity) Event {
	bld, _ := g.registry.BuildingOf(activity.TargetRoomID)
	loc, _ := g.registry.LocationOf(bld.ID)
	return Event{
		Timestamp:  activity.StartTime,
		UserID:     u.ID,
		RoomID:     activity.TargetRoomID,
		BuildingID: bld.ID,
		LocationID: loc.ID,
		Success:    true,
		EventType:  ids.EventSuccess,
	}
}

// --- Access-flow expansion ---------------------------------------------

// expandAccessFlow computes the ordered sequence of rooms the user must
// traverse to reach the activity's target (lobby -> corridor -> target)
// and emits one attempt-derived event per step, 30s apart.
func (g *Generator) expandAccessFlow(u *user.User, activity schedule.Activity) ([]Event, error) {
	flow, err := g.accessFlow(activity.TargetRoomID)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(flow))
	t := activity.StartTime
	for _, roomID := range flow {
		ev, err := g.processAttempt(u, roomID, t, activity.Type)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
		t = t.Add(attemptSpacing)
	}
	return events, nil
}

// accessFlow returns the room sequence for reaching target: the target
// room's building's Lobby (if one exists and isn't the target itself),
// a Corridor in the same building (if one exists), then the target.
// Buildings with neither are a direct flow of just the target.
func (g *Generator) accessFlow(target ids.ID) ([]ids.ID, error) {
	bld, err := g.registry.BuildingOf(target)
	if err != nil {
		return nil, fmt.Errorf("eventgen: %w", err)
	}

	var flow []ids.ID
	if lobbies, err := g.registry.RoomsByType(bld.ID, ids.RoomLobby); err == nil {
		for _, l := range lobbies {
			if !l.ID.Equal(target) {
				flow = append(flow, l.ID)
				break
			}
		}
	}
	if corridors, err := g.registry.RoomsByType(bld.ID, ids.RoomCorridor); err == nil {
		for _, c := range corridors {
			if !c.ID.Equal(target) {
				flow = append(flow, c.ID)
				break
			}
		}
	}
	flow = append(flow, target)
	return flow, nil
}

// processAttempt evaluates authorization, business hours, and the
// system-failure injection for a single access attempt and produces its
// Event (spec §4.5).
func (g *Generator) processAttempt(u *user.User, roomID ids.ID, t time.Time, activityType ids.ActivityType) (Event, error) {
	room, err := g.registry.Room(roomID)
	if err != nil {
		return Event{}, fmt.Errorf("eventgen: %w", err)
	}
	bld, err := g.registry.Building(room.BuildingID)
	if err != nil {
		return Event{}, fmt.Errorf("eventgen: %w", err)
	}
	loc, err := g.registry.Location(bld.LocationID)
	if err != nil {
		return Event{}, fmt.Errorf("eventgen: %w", err)
	}

	ev := Event{Timestamp: t, UserID: u.ID, RoomID: room.ID, BuildingID: bld.ID, LocationID: loc.ID}

	authorized := u.Permissions.CanAccessRoom(room.ID, bld.ID, loc.ID)
	outsideHours := room.RoomType.RequiresBusinessHours() && !g.businessHours.IsBusinessHours(t)
	systemFailure := authorized && !outsideHours && g.rng.Bool(systemFailureProbability)

	success := authorized && !outsideHours && !systemFailure

	switch {
	case success:
		ev.Success = true
		ev.EventType = ids.EventSuccess
	case outsideHours:
		ev.Success = false
		ev.EventType = ids.EventOutsideHours
		ev.FailureReason = reasonPtr(ids.ReasonOutsideHours)
	case systemFailure:
		ev.Success = false
		ev.EventType = ids.EventFailure
		ev.FailureReason = reasonPtr(ids.ReasonSystemFailure)
	case !authorized && room.SecurityLevel.IsHighSecurity() && g.rng.Bool(suspiciousProbability):
		ev.Success = false
		ev.EventType = ids.EventSuspicious
		ev.FailureReason = reasonPtr(ids.ReasonUnauthorized)
	default:
		ev.Success = false
		ev.EventType = ids.EventFailure
		ev.FailureReason = reasonPtr(ids.ReasonUnauthorized)
	}

	if u.IsNightShift && !g.businessHours.IsBusinessHours(t) {
		ev.setMeta("is_night_shift_event", true)
	}

	return ev, nil
}

func reasonPtr(r ids.FailureReason) *ids.FailureReason { return &r }

// --- Anomaly injectors --------------------------------------------------

// maybeInjectBadgeReaderFailure replaces an otherwise-successful final
// attempt with a Failure/BadgeReaderError followed by a Success retry
// 5-30s later (spec §4.5 anomaly 1). Only applies when the flow's last
// event would otherwise have succeeded.
func (g *Generator) maybeInjectBadgeReaderFailure(u *user.User, flow []Event) ([]Event, bool) {
	if len(flow) == 0 {
		return nil, false
	}
	last := flow[len(flow)-1]
	if !last.Success {
		return nil, false
	}
	if !g.rng.Bool(badgeReaderFailureProbability) {
		return nil, false
	}

	failure := last
	failure.Success = false
	failure.EventType = ids.EventFailure
	failure.FailureReason = reasonPtr(ids.ReasonBadgeReaderError)
	failure.Metadata = nil

	retryDelay := time.Duration(5+g.rng.Intn(26)) * time.Second // 5-30s
	retry := last
	retry.Timestamp = last.Timestamp.Add(retryDelay)
	retry.Metadata = nil
	retry.setMeta("retry_attempt_number", 1)

	return []Event{failure, retry}, true
}

// maybeInjectCuriousEvent emits a single Failure/CuriousUser event
// targeting an unauthorized room in the user's primary location, 1-30
// minutes after the activity start (spec §4.5 anomaly 2).
func (g *Generator) maybeInjectCuriousEvent(u *user.User, activity schedule.Activity) (Event, bool) {
	if !g.rng.Bool(curiousEventProbability) {
		return Event{}, false
	}

	rooms, err := g.registry.RoomsInLocation(u.PrimaryLocationID)
	if err != nil {
		return Event{}, false
	}
	var unauthorized []facility.Room
	for _, room := range rooms {
		if !u.Permissions.CanAccessRoom(room.ID, room.BuildingID, u.PrimaryLocationID) {
			unauthorized = append(unauthorized, room)
		}
	}
	if len(unauthorized) == 0 {
		return Event{}, false
	}
	room := unauthorized[g.rng.Intn(len(unauthorized))]
	bld, err := g.registry.Building(room.BuildingID)
	if err != nil {
		return Event{}, false
	}

	delay := time.Duration(1+g.rng.Intn(30)) * time.Minute // 1-30 min
	ev := Event{
		Timestamp:     activity.StartTime.Add(delay),
		UserID:        u.ID,
		RoomID:        room.ID,
		BuildingID:    bld.ID,
		LocationID:    u.PrimaryLocationID,
		Success:       false,
		EventType:     ids.EventFailure,
		FailureReason: reasonPtr(ids.ReasonCuriousUser),
	}
	ev.setMeta("is_curious_attempt", true)
	return ev, true
}

// maybeInjectImpossibleTraveler emits a primary Success event plus a
// second event at a different location 1-180 minutes later whose gap is
// insufficient for the haversine-derived minimum travel time (spec §4.5
// anomaly 3).
func (g *Generator) maybeInjectImpossibleTraveler(u *user.User, activity schedule.Activity) ([]Event, bool) {
	if !g.rng.Bool(impossibleTravelerProbability) {
		return nil, false
	}

	primaryRoom, bld, loc, ok := g.anyAuthorizedRoom(u, u.PrimaryLocationID)
	if !ok {
		return nil, false
	}
	primary := Event{
		Timestamp: activity.StartTime, UserID: u.ID,
		RoomID: primaryRoom, BuildingID: bld.ID, LocationID: loc.ID,
		Success: true, EventType: ids.EventSuccess,
	}

	remoteRoom, remoteBld, remoteLoc, ok := g.anyRoomInOtherLocation(u, loc.ID)
	if !ok {
		return nil, false
	}

	distanceKM := geo.DistanceKM(geoPoint(loc.Coordinates), geoPoint(remoteLoc.Coordinates))
	gapMinutes := 1 + g.rng.Intn(180) // 1-180 min
	gap := time.Duration(gapMinutes) * time.Minute
	requiredHours := geo.MinTravelHours(geoPoint(loc.Coordinates), geoPoint(remoteLoc.Coordinates))
	required := time.Duration(requiredHours * float64(time.Hour))

	if gap >= required {
		// The draw landed on a gap that is physically feasible; this is
		// not a genuine impossible-traveler scenario, so skip injecting.
		return nil, false
	}

	authorized := u.Permissions.CanAccessRoom(remoteRoom, remoteBld.ID, remoteLoc.ID)
	second := Event{
		Timestamp:  activity.StartTime.Add(gap),
		UserID:     u.ID,
		RoomID:     remoteRoom,
		BuildingID: remoteBld.ID,
		LocationID: remoteLoc.ID,
		Success:    authorized,
	}
	if authorized {
		second.EventType = ids.EventSuccess
	} else {
		second.EventType = ids.EventFailure
		second.FailureReason = reasonPtr(ids.ReasonImpossibleTraveler)
	}
	second.setMeta("travel_time_violation", true)
	second.setMeta("geographic_distance_km", distanceKM)

	return []Event{primary, second}, true
}

func (g *Generator) anyAuthorizedRoom(u *user.User, locationID ids.ID) (ids.ID, facility.Building, facility.Location, bool) {
	rooms, err := g.registry.RoomsInLocation(locationID)
	if err != nil {
		return ids.ID{}, facility.Building{}, facility.Location{}, false
	}
	var authorized []facility.Room
	for _, room := range rooms {
		if u.Permissions.CanAccessRoom(room.ID, room.BuildingID, locationID) {
			authorized = append(authorized, room)
		}
	}
	if len(authorized) == 0 {
		return ids.ID{}, facility.Building{}, facility.Location{}, false
	}
	room := authorized[g.rng.Intn(len(authorized))]
	bld, err := g.registry.Building(room.BuildingID)
	if err != nil {
		return ids.ID{}, facility.Building{}, facility.Location{}, false
	}
	loc, err := g.registry.Location(bld.LocationID)
	if err != nil {
		return ids.ID{}, facility.Building{}, facility.Location{}, false
	}
	return room.ID, bld, loc, true
}

func (g *Generator) anyRoomInOtherLocation(u *user.User, excludeLocationID ids.ID) (ids.ID, facility.Building, facility.Location, bool) {
	others := g.registry.OtherLocations(excludeLocationID)
	if len(others) == 0 {
		return ids.ID{}, facility.Building{}, facility.Location{}, false
	}
	loc := others[g.rng.Intn(len(others))]
	rooms, err := g.registry.RoomsInLocation(loc.ID)
	if err != nil || len(rooms) == 0 {
		return ids.ID{}, facility.Building{}, facility.Location{}, false
	}
	room := rooms[g.rng.Intn(len(rooms))]
	bld, err := g.registry.Building(room.BuildingID)
	if err != nil {
		return ids.ID{}, facility.Building{}, facility.Location{}, false
	}
	return room.ID, bld, loc, true
}

func geoPoint(c facility.Coordinates) geo.Point {
	return geo.Point{Lat: c.Lat, Lon: c.Lon}
}
