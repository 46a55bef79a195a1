package schedule

import (
	"testing"
	"time"

	"github.com/krukkeniels/badgesim/internal/facility"
	"github.com/krukkeniels/badgesim/internal/ids"
	"github.com/krukkeniels/badgesim/internal/permission"
	"github.com/krukkeniels/badgesim/internal/simrand"
	"github.com/krukkeniels/badgesim/internal/timeutil"
	"github.com/krukkeniels/badgesim/internal/user"
)

func minimalFixture() (*facility.Registry, *user.User) {
	reg := facility.NewRegistry()

	loc := facility.Location{ID: ids.New(ids.KindLocation), Name: "HQ", Coordinates: facility.Coordinates{Lat: 37.77, Lon: -122.41}}
	reg.AddLocation(loc)

	bld := facility.Building{ID: ids.New(ids.KindBuilding), Name: "Tower A", LocationID: loc.ID}
	reg.AddBuilding(bld)

	workspace := facility.Room{ID: ids.New(ids.KindRoom), Name: "Desks", BuildingID: bld.ID, RoomType: ids.RoomWorkspace, SecurityLevel: ids.SecurityLow}
	bathroom := facility.Room{ID: ids.New(ids.KindRoom), Name: "Restroom", BuildingID: bld.ID, RoomType: ids.RoomBathroom, SecurityLevel: ids.SecurityLow}
	reg.AddRoom(workspace)
	reg.AddRoom(bathroom)

	perms := permission.NewSet()
	perms.GrantBuilding(bld.ID)

	u := &user.User{
		ID:                 ids.New(ids.KindUser),
		PrimaryLocationID:  loc.ID,
		PrimaryBuildingID:  bld.ID,
		PrimaryWorkspaceID: workspace.ID,
		Permissions:        perms,
		Behavior:           user.BehaviorProfile{TravelFrequency: 0.1, CuriosityLevel: 0.1, ScheduleAdherence: 0.9, SocialLevel: 0.1},
	}
	return reg, u
}

func TestBuildRegularScheduleSortedAndNonEmpty(t *testing.T) {
	reg, u := minimalFixture()
	rng := simrand.New(42)
	b := NewBuilder(reg, rng, timeutil.DefaultBusinessHours, Affinities{PrimaryBuilding: 1, SameLocation: 0, DifferentLocation: 0})
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	activities, err := b.Build(u, day)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(activities) < 2 {
		t.Fatalf("expected at least an Arrival and Departure, got %d activities", len(activities))
	}
	for i := 1; i < len(activities); i++ {
		if activities[i].StartTime.Before(activities[i-1].StartTime) {
			t.Fatalf("schedule not sorted at index %d: %v before %v", i, activities[i].StartTime, activities[i-1].StartTime)
		}
	}

	first, last := activities[0], activities[len(activities)-1]
	if first.Type != ids.ActivityArrival {
		t.Errorf("first activity = %v, want Arrival", first.Type)
	}
	if last.Type != ids.ActivityDeparture {
		t.Errorf("last activity = %v, want Departure", last.Type)
	}
}

func TestBuildDeterministicGivenSameSeed(t *testing.T) {
	reg, u1 := minimalFixture()
	_, u2 := minimalFixture()
	u2.ID = u1.ID
	u2.PrimaryLocationID = u1.PrimaryLocationID
	u2.PrimaryBuildingID = u1.PrimaryBuildingID
	u2.PrimaryWorkspaceID = u1.PrimaryWorkspaceID
	u2.Permissions = u1.Permissions

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	aff := Affinities{PrimaryBuilding: 1, SameLocation: 0, DifferentLocation: 0}

	b1 := NewBuilder(reg, simrand.New(7), timeutil.DefaultBusinessHours, aff)
	sched1, err := b1.Build(u1, day)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	b2 := NewBuilder(reg, simrand.New(7), timeutil.DefaultBusinessHours, aff)
	sched2, err := b2.Build(u2, day)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if len(sched1) != len(sched2) {
		t.Fatalf("schedule lengths differ: %d vs %d", len(sched1), len(sched2))
	}
	for i := range sched1 {
		if !sched1[i].StartTime.Equal(sched2[i].StartTime) || sched1[i].Type != sched2[i].Type {
			t.Fatalf("schedules diverged at index %d: %+v vs %+v", i, sched1[i], sched2[i])
		}
	}
}

func TestMinimalSchedule(t *testing.T) {
	_, u := minimalFixture()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	sched := Minimal(u, day)
	if len(sched) != 2 {
		t.Fatalf("Minimal() returned %d activities, want 2", len(sched))
	}
	if sched[0].Type != ids.ActivityArrival || sched[1].Type != ids.ActivityDeparture {
		t.Errorf("Minimal() = %+v, want [Arrival, Departure]", sched)
	}
}

func TestCrossLocationPersistenceSingleTransitionPerDay(t *testing.T) {
	reg, u := minimalFixture()

	secondLoc := facility.Location{ID: ids.New(ids.KindLocation), Name: "Branch", Coordinates: facility.Coordinates{Lat: 40.7, Lon: -74.0}}
	reg.AddLocation(secondLoc)
	secondBld := facility.Building{ID: ids.New(ids.KindBuilding), Name: "Branch Tower", LocationID: secondLoc.ID}
	reg.AddBuilding(secondBld)
	secondRoom := facility.Room{ID: ids.New(ids.KindRoom), Name: "Branch Desks", BuildingID: secondBld.ID, RoomType: ids.RoomWorkspace, SecurityLevel: ids.SecurityLow}
	reg.AddRoom(secondRoom)
	u.Permissions.GrantBuilding(secondBld.ID)

	rng := simrand.New(1)
	b := NewBuilder(reg, rng, timeutil.DefaultBusinessHours, Affinities{PrimaryBuilding: 0, SameLocation: 0, DifferentLocation: 1})

	u.Daily.Reset()
	u.Daily.RecordTransition(secondLoc.ID)
	u.Daily.RecordTransition(ids.New(ids.KindLocation)) // second call must be a no-op

	if !u.Daily.CurrentLocationID.Equal(secondLoc.ID) {
		t.Errorf("expected persisted location to remain %v, got %v", secondLoc.ID, u.Daily.CurrentLocationID)
	}
	_ = b
}
