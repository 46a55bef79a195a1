package buildinfo

import (
	"fmt"
	"sort"

	"github.com/krukkeniels/badgesim/internal/config"
	"github.com/krukkeniels/badgesim/internal/facility"
	"github.com/krukkeniels/badgesim/internal/ids"
	"github.com/krukkeniels/badgesim/internal/permission"
	"github.com/krukkeniels/badgesim/internal/simrand"
	"github.com/krukkeniels/badgesim/internal/user"
)

// curiousProfile and nightShiftProfile are fixed behaviour archetypes;
// every other regular user gets a varied profile drawn per-user by
// regularBehaviorProfile.
var curiousProfile = user.BehaviorProfile{TravelFrequency: 0.15, CuriosityLevel: 0.7, ScheduleAdherence: 0.6, SocialLevel: 0.6}
var nightShiftProfile = user.BehaviorProfile{TravelFrequency: 0.05, CuriosityLevel: 0.1, ScheduleAdherence: 0.9, SocialLevel: 0.2}

// workspaceAssignment pairs a workspace room with its containers.
type workspaceAssignment struct {
	LocationID ids.ID
	BuildingID ids.ID
	RoomID     ids.ID
}

// BuildUsers generates the population: night-shift staff (1-3 per
// building when the population clears cfg.NightShift.MinUserCountFloor),
// then regular users assigned round-robin across every workspace room,
// each with permissions, curious/cloned-badge flags, and a behaviour
// profile. When presets is non-empty, regular (non-curious) users draw
// their Behavior from it instead of regularBehaviorProfile's uniform
// random draw, picking a preset name with rng.Intn from the sorted name
// list so the assignment stays a deterministic function of the seed.
func BuildUsers(cfg *config.Config, reg *facility.Registry, rng *simrand.Source, presets user.PresetLibrary) ([]*user.User, error) {
	if cfg.UserCount == 0 {
		return nil, nil
	}

	workspaces := collectWorkspaces(reg)
	if len(workspaces) == 0 {
		return nil, ErrNoWorkspaceRooms
	}

	var users []*user.User
	if cfg.UserCount >= cfg.NightShift.MinUserCountFloor {
		nsUsers, err := buildNightShiftUsers(reg, rng)
		if err != nil {
			return nil, err
		}
		users = append(users, nsUsers...)
	}

	curiousCount := int(float64(cfg.UserCount) * cfg.CuriousUserPercentage)
	clonedCount := int(float64(cfg.UserCount) * cfg.ClonedBadgePercentage)

	regularCount := cfg.UserCount - len(users)
	if regularCount < 0 {
		regularCount = 0
	}
	assignments := distributeWorkspaces(workspaces, regularCount, rng)
	presetNames := sortedPresetNames(presets)

	for i := 0; i < regularCount; i++ {
		a := assignments[i]
		u := &user.User{
			ID:                 ids.New(ids.KindUser),
			PrimaryLocationID:  a.LocationID,
			PrimaryBuildingID:  a.BuildingID,
			PrimaryWorkspaceID: a.RoomID,
			Permissions:        permission.NewSet(),
		}
		grantRegularPermissions(u.Permissions, a, reg, rng)

		if i < curiousCount {
			u.IsCurious = true
			u.Behavior = curiousProfile
		} else if len(presetNames) > 0 {
			name := presetNames[rng.Intn(len(presetNames))]
			u.Behavior = presets[name]
		} else {
			u.Behavior = regularBehaviorProfile(rng)
		}
		if i < clonedCount {
			u.HasClonedBadge = true
		}

		users = append(users, u)
	}

	rng.Shuffle(len(users), func(i, j int) { users[i], users[j] = users[j], users[i] })

	for _, u := range users {
		bld, err := reg.BuildingOf(u.PrimaryWorkspaceID)
		if err != nil {
			return nil, fmt.Errorf("buildinfo: %w", err)
		}
		if err := u.Validate(bld.ID, bld.LocationID); err != nil {
			return nil, fmt.Errorf("buildinfo: %w", err)
		}
	}

	return users, nil
}

// collectWorkspaces gathers every workspace room in the registry,
// alongside its containing building and location.
func collectWorkspaces(reg *facility.Registry) []workspaceAssignment {
	var out []workspaceAssignment
	for _, loc := range reg.Locations() {
		for _, bldID := range loc.BuildingIDs {
			bld, err := reg.Building(bldID)
			if err != nil {
				continue
			}
			rooms, err := reg.RoomsByType(bld.ID, ids.RoomWorkspace)
			if err != nil {
				continue
			}
			for _, r := range rooms {
				out = append(out, workspaceAssignment{LocationID: loc.ID, BuildingID: bld.ID, RoomID: r.ID})
			}
		}
	}
	return out
}

// distributeWorkspaces assigns count users to workspaces round-robin
// (hot-desking, when there are more users than workspaces), then
// shuffles assignment order.
func distributeWorkspaces(workspaces []workspaceAssignment, count int, rng *simrand.Source) []workspaceAssignment {
	out := make([]workspaceAssignment, count)
	for i := 0; i < count; i++ {
		out[i] = workspaces[i%len(workspaces)]
	}
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// sortedPresetNames returns presets' keys in a fixed order so that
// picking among them with rng.Intn stays a deterministic function of
// the seed rather than of Go's randomized map iteration.
func sortedPresetNames(presets user.PresetLibrary) []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// regularBehaviorProfile draws a varied, non-curious profile per user.
func regularBehaviorProfile(rng *simrand.Source) user.BehaviorProfile {
	return user.BehaviorProfile{
		TravelFrequency:   0.05 + rng.Float64()*0.20,
		CuriosityLevel:    rng.Float64() * 0.3,
		ScheduleAdherence: 0.6 + rng.Float64()*0.35,
		SocialLevel:       0.2 + rng.Float64()*0.7,
	}
}

// grantRegularPermissions mirrors a realistic corporate access policy:
// always the primary workspace; common-area rooms in the primary
// building; probabilistic access to other buildings at the same
// location and to other locations entirely; and a small, independent
// chance at each of the three high-security room types, granted across
// every location (spec §4.2's bulk accessors feed straight off these
// grants).
func grantRegularPermissions(perms *permission.Set, a workspaceAssignment, reg *facility.Registry, rng *simrand.Source) {
	perms.GrantRoom(a.RoomID)

	if bld, err := reg.Building(a.BuildingID); err == nil {
		grantCommonAreas(perms, bld, reg, rng, 0.8)
	}

	if others, err := reg.OtherBuildingsInLocation(a.LocationID, a.BuildingID); err == nil {
		for _, bld := range others {
			if rng.Bool(0.3) {
				grantCommonAreas(perms, bld, reg, rng, 0.5)
			}
		}
	}

	for _, loc := range reg.OtherLocations(a.LocationID) {
		if !rng.Bool(0.1) {
			continue
		}
		for _, bldID := range loc.BuildingIDs {
			bld, err := reg.Building(bldID)
			if err != nil {
				continue
			}
			grantRoomsOfTypes(perms, bld, reg, ids.RoomLobby, ids.RoomBathroom, ids.RoomCafeteria)
		}
	}

	grantHighSecurity(perms, reg, rng)
}

// grantCommonAreas always grants Lobby/Bathroom/Cafeteria in bld, and
// grants its MeetingRooms with the given probability.
func grantCommonAreas(perms *permission.Set, bld facility.Building, reg *facility.Registry, rng *simrand.Source, meetingRoomChance float64) {
	grantRoomsOfTypes(perms, bld, reg, ids.RoomLobby, ids.RoomBathroom, ids.RoomCafeteria)
	if rooms, err := reg.RoomsByType(bld.ID, ids.RoomMeetingRoom); err == nil {
		for _, room := range rooms {
			if rng.Bool(meetingRoomChance) {
				perms.GrantRoom(room.ID)
			}
		}
	}
}

func grantRoomsOfTypes(perms *permission.Set, bld facility.Building, reg *facility.Registry, types ...ids.RoomType) {
	for _, rt := range types {
		rooms, err := reg.RoomsByType(bld.ID, rt)
		if err != nil {
			continue
		}
		for _, room := range rooms {
			perms.GrantRoom(room.ID)
		}
	}
}

// grantHighSecurity grants a small, independent chance of access to
// every room of a given high-security type, across the whole facility:
// 5% server room, 2% executive office, 3% laboratory.
func grantHighSecurity(perms *permission.Set, reg *facility.Registry, rng *simrand.Source) {
	type grant struct {
		rt      ids.RoomType
		chance  float64
	}
	for _, g := range []grant{
		{ids.RoomServerRoom, 0.05},
		{ids.RoomExecutiveOffice, 0.02},
		{ids.RoomLaboratory, 0.03},
	} {
		if !rng.Bool(g.chance) {
			continue
		}
		for _, loc := range reg.Locations() {
			for _, bldID := range loc.BuildingIDs {
				bld, err := reg.Building(bldID)
				if err != nil {
					continue
				}
				grantRoomsOfTypes(perms, bld, reg, g.rt)
			}
		}
	}
}

// buildNightShiftUsers creates 1-3 night-shift users per building, each
// with their workspace plus building-wide access for patrol duties, and
// assigned_night_building equal to their own primary building.
func buildNightShiftUsers(reg *facility.Registry, rng *simrand.Source) ([]*user.User, error) {
	var out []*user.User
	for _, loc := range reg.Locations() {
		for _, bldID := range loc.BuildingIDs {
			bld, err := reg.Building(bldID)
			if err != nil {
				continue
			}
			workspaces, err := reg.RoomsByType(bld.ID, ids.RoomWorkspace)
			if err != nil || len(workspaces) == 0 {
				continue
			}
			workspaceID := workspaces[0].ID

			count := 1 + rng.Intn(3)
			for i := 0; i < count; i++ {
				perms := permission.NewSet()
				perms.GrantRoom(workspaceID)
				perms.GrantBuilding(bld.ID)

				out = append(out, &user.User{
					ID:                      ids.New(ids.KindUser),
					PrimaryLocationID:       loc.ID,
					PrimaryBuildingID:       bld.ID,
					PrimaryWorkspaceID:      workspaceID,
					Permissions:             perms,
					IsNightShift:            true,
					AssignedNightBuildingID: bld.ID,
					Behavior:                nightShiftProfile,
				})
			}
		}
	}
	return out, nil
}
