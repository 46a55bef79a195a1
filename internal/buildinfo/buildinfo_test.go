package buildinfo

import (
	"testing"

	"github.com/krukkeniels/badgesim/internal/config"
	"github.com/krukkeniels/badgesim/internal/facility"
	"github.com/krukkeniels/badgesim/internal/ids"
	"github.com/krukkeniels/badgesim/internal/simrand"
	"github.com/krukkeniels/badgesim/internal/user"
)

func testConfig() *config.Config {
	return &config.Config{
		UserCount: 20, LocationCount: 2,
		MinBuildingsPerLocation: 1, MaxBuildingsPerLocation: 2,
		MinRoomsPerBuilding: 5, MaxRoomsPerBuilding: 8,
		CuriousUserPercentage: 0.2, ClonedBadgePercentage: 0.1,
		NightShift: config.NightShiftConfig{MinUserCountFloor: 500},
	}
}

func TestBuildFacilityProducesRequestedLocationCount(t *testing.T) {
	cfg := testConfig()
	reg, err := BuildFacility(cfg, simrand.New(1))
	if err != nil {
		t.Fatalf("BuildFacility() error: %v", err)
	}
	if len(reg.Locations()) != cfg.LocationCount {
		t.Fatalf("got %d locations, want %d", len(reg.Locations()), cfg.LocationCount)
	}
	for _, loc := range reg.Locations() {
		if len(loc.BuildingIDs) < cfg.MinBuildingsPerLocation || len(loc.BuildingIDs) > cfg.MaxBuildingsPerLocation {
			t.Fatalf("location %s has %d buildings, outside [%d,%d]", loc.ID, len(loc.BuildingIDs), cfg.MinBuildingsPerLocation, cfg.MaxBuildingsPerLocation)
		}
		for _, bldID := range loc.BuildingIDs {
			bld, err := reg.Building(bldID)
			if err != nil {
				t.Fatalf("Building(%s): %v", bldID, err)
			}
			if len(bld.RoomIDs) < cfg.MinRoomsPerBuilding || len(bld.RoomIDs) > cfg.MaxRoomsPerBuilding {
				t.Fatalf("building %s has %d rooms, outside [%d,%d]", bld.ID, len(bld.RoomIDs), cfg.MinRoomsPerBuilding, cfg.MaxRoomsPerBuilding)
			}
		}
	}
}

func TestBuildFacilityEveryBuildingStartsWithWorkspaceThenBathroom(t *testing.T) {
	cfg := testConfig()
	reg, err := BuildFacility(cfg, simrand.New(2))
	if err != nil {
		t.Fatalf("BuildFacility() error: %v", err)
	}
	for _, loc := range reg.Locations() {
		for _, bldID := range loc.BuildingIDs {
			bld, _ := reg.Building(bldID)
			first, _ := reg.Room(bld.RoomIDs[0])
			second, _ := reg.Room(bld.RoomIDs[1])
			if first.RoomType != ids.RoomWorkspace {
				t.Errorf("building %s: room 0 = %s, want Workspace", bld.ID, first.RoomType)
			}
			if second.RoomType != ids.RoomBathroom {
				t.Errorf("building %s: room 1 = %s, want Bathroom", bld.ID, second.RoomType)
			}
		}
	}
}

func TestBuildFacilityRejectsZeroLocations(t *testing.T) {
	cfg := testConfig()
	cfg.LocationCount = 0
	if _, err := BuildFacility(cfg, simrand.New(1)); err == nil {
		t.Error("expected ErrMissingHierarchy for location_count=0")
	}
}

func TestBuildUsersAssignsEveryUserAPrimaryWorkspace(t *testing.T) {
	cfg := testConfig()
	rng := simrand.New(3)
	reg, err := BuildFacility(cfg, rng)
	if err != nil {
		t.Fatalf("BuildFacility() error: %v", err)
	}
	users, err := BuildUsers(cfg, reg, rng, nil)
	if err != nil {
		t.Fatalf("BuildUsers() error: %v", err)
	}
	if len(users) != cfg.UserCount {
		t.Fatalf("got %d users, want %d", len(users), cfg.UserCount)
	}
	for _, u := range users {
		if u.PrimaryWorkspaceID.IsZero() {
			t.Fatalf("user %s has no primary workspace", u.ID)
		}
		if !u.Permissions.CanAccessRoom(u.PrimaryWorkspaceID, u.PrimaryBuildingID, u.PrimaryLocationID) {
			t.Fatalf("user %s cannot access own primary workspace", u.ID)
		}
	}
}

func TestBuildUsersZeroUserCountProducesEmptyPopulation(t *testing.T) {
	cfg := testConfig()
	cfg.UserCount = 0
	rng := simrand.New(4)
	reg, err := BuildFacility(cfg, rng)
	if err != nil {
		t.Fatalf("BuildFacility() error: %v", err)
	}
	users, err := BuildUsers(cfg, reg, rng, nil)
	if err != nil {
		t.Fatalf("BuildUsers() error: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("got %d users, want 0", len(users))
	}
}

func TestBuildUsersRejectsMissingWorkspaces(t *testing.T) {
	cfg := testConfig()
	empty := facility.NewRegistry()
	if _, err := BuildUsers(cfg, empty, simrand.New(5), nil); err != ErrNoWorkspaceRooms {
		t.Fatalf("got error %v, want ErrNoWorkspaceRooms", err)
	}
}

func TestBuildUsersWithPresetsDrawsBehaviorFromLibrary(t *testing.T) {
	cfg := testConfig()
	cfg.UserCount = 20
	cfg.CuriousUserPercentage = 0
	rng := simrand.New(8)
	reg, err := BuildFacility(cfg, rng)
	if err != nil {
		t.Fatalf("BuildFacility() error: %v", err)
	}
	presets := user.PresetLibrary{
		"road-warrior": {TravelFrequency: 0.9, CuriosityLevel: 0.1, ScheduleAdherence: 0.4, SocialLevel: 0.9},
	}
	users, err := BuildUsers(cfg, reg, rng, presets)
	if err != nil {
		t.Fatalf("BuildUsers() error: %v", err)
	}
	for _, u := range users {
		if u.IsNightShift || u.IsCurious {
			continue
		}
		if u.Behavior != presets["road-warrior"] {
			t.Fatalf("user %s has behavior %+v, want the sole preset %+v", u.ID, u.Behavior, presets["road-warrior"])
		}
	}
}

func TestBuildUsersBelowNightShiftFloorHasNoNightShiftUsers(t *testing.T) {
	cfg := testConfig()
	cfg.UserCount = 20
	cfg.NightShift.MinUserCountFloor = 500
	rng := simrand.New(6)
	reg, err := BuildFacility(cfg, rng)
	if err != nil {
		t.Fatalf("BuildFacility() error: %v", err)
	}
	users, err := BuildUsers(cfg, reg, rng, nil)
	if err != nil {
		t.Fatalf("BuildUsers() error: %v", err)
	}
	for _, u := range users {
		if u.IsNightShift {
			t.Fatalf("user %s is night-shift below the configured floor", u.ID)
		}
	}
}

func TestBuildUsersAtOrAboveNightShiftFloorHasNightShiftUsers(t *testing.T) {
	cfg := testConfig()
	cfg.UserCount = 500
	cfg.NightShift.MinUserCountFloor = 500
	rng := simrand.New(7)
	reg, err := BuildFacility(cfg, rng)
	if err != nil {
		t.Fatalf("BuildFacility() error: %v", err)
	}
	users, err := BuildUsers(cfg, reg, rng, nil)
	if err != nil {
		t.Fatalf("BuildUsers() error: %v", err)
	}
	found := false
	for _, u := range users {
		if u.IsNightShift {
			found = true
			if u.AssignedNightBuildingID.IsZero() {
				t.Fatalf("night-shift user %s missing assigned_night_building", u.ID)
			}
		}
	}
	if !found {
		t.Fatal("expected at least one night-shift user at or above the floor")
	}
}
