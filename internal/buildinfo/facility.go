// Package buildinfo constructs the facility/user/permission model the
// generation core treats as external input (spec §4.1 "construction is
// considered external; the core only reads"). It is the one place in the
// module that creates ids.ID values and wires them into
// internal/facility, internal/user, and internal/permission.
package buildinfo

import (
	"fmt"

	"github.com/krukkeniels/badgesim/internal/config"
	"github.com/krukkeniels/badgesim/internal/facility"
	"github.com/krukkeniels/badgesim/internal/ids"
	"github.com/krukkeniels/badgesim/internal/simrand"
)

// roomPriority is the fixed room-type assignment for the first rooms in
// every building: a building always has a Workspace first and a
// Bathroom second (this makes spec.md Scenario A's "one workspace and
// one bathroom" the literal result of min_rooms=max_rooms=2), then a
// Lobby, Cafeteria, Corridor, and MeetingRoom as room budget allows.
var roomPriority = []ids.RoomType{
	ids.RoomWorkspace,
	ids.RoomBathroom,
	ids.RoomLobby,
	ids.RoomCafeteria,
	ids.RoomCorridor,
	ids.RoomMeetingRoom,
}

// extraRoomTypes and extraRoomWeights govern room types beyond
// roomPriority: mostly more workspaces and meeting rooms, with a small
// allocation of high-security room types so the permission and
// curious-probe logic always has something to work with in a
// large-enough building.
var extraRoomTypes = []ids.RoomType{
	ids.RoomWorkspace, ids.RoomMeetingRoom, ids.RoomBathroom, ids.RoomCafeteria,
	ids.RoomLobby, ids.RoomCorridor, ids.RoomServerRoom, ids.RoomExecutiveOffice, ids.RoomLaboratory,
}
var extraRoomWeights = []float64{55, 20, 5, 3, 2, 5, 4, 2, 4}

// BuildFacility generates the location/building/room hierarchy from
// cfg's counts. Coordinates are drawn uniformly over the full lat/lon
// range; the generator places no geographic realism requirement on
// them beyond spec §3's bounds.
func BuildFacility(cfg *config.Config, rng *simrand.Source) (*facility.Registry, error) {
	if cfg.LocationCount <= 0 {
		return nil, ErrMissingHierarchy
	}

	reg := facility.NewRegistry()

	for i := 0; i < cfg.LocationCount; i++ {
		loc := facility.Location{
			ID:   ids.New(ids.KindLocation),
			Name: fmt.Sprintf("Location-%d", i+1),
			Coordinates: facility.Coordinates{
				Lat: -90 + rng.Float64()*180,
				Lon: -180 + rng.Float64()*360,
			},
		}
		reg.AddLocation(loc)

		buildingSpan := cfg.MaxBuildingsPerLocation - cfg.MinBuildingsPerLocation + 1
		buildingCount := cfg.MinBuildingsPerLocation + rng.Intn(buildingSpan)

		for j := 0; j < buildingCount; j++ {
			bld := facility.Building{
				ID:         ids.New(ids.KindBuilding),
				Name:       fmt.Sprintf("%s-Building-%d", loc.Name, j+1),
				LocationID: loc.ID,
			}
			reg.AddBuilding(bld)
			buildRooms(reg, bld, cfg, rng)
		}
	}

	return reg, nil
}

func buildRooms(reg *facility.Registry, bld facility.Building, cfg *config.Config, rng *simrand.Source) {
	roomSpan := cfg.MaxRoomsPerBuilding - cfg.MinRoomsPerBuilding + 1
	roomCount := cfg.MinRoomsPerBuilding + rng.Intn(roomSpan)

	for k := 0; k < roomCount; k++ {
		rt := roomTypeForIndex(k, rng)
		room := facility.Room{
			ID:            ids.New(ids.KindRoom),
			Name:          fmt.Sprintf("%s-Room-%d", bld.Name, k+1),
			BuildingID:    bld.ID,
			RoomType:      rt,
			SecurityLevel: securityLevelFor(rt),
		}
		reg.AddRoom(room)
	}
}

func roomTypeForIndex(k int, rng *simrand.Source) ids.RoomType {
	if k < len(roomPriority) {
		return roomPriority[k]
	}
	return extraRoomTypes[rng.WeightedChoice(extraRoomWeights)]
}

func securityLevelFor(rt ids.RoomType) ids.SecurityLevel {
	switch rt {
	case ids.RoomServerRoom:
		return ids.SecurityCritical
	case ids.RoomExecutiveOffice, ids.RoomLaboratory:
		return ids.SecurityHigh
	case ids.RoomMeetingRoom:
		return ids.SecurityMedium
	default:
		return ids.SecurityLow
	}
}
