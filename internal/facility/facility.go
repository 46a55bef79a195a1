// Package facility models the three-level location/building/room hierarchy
// and provides the read-only registry the generation core consults for
// coordinate lookups, containment queries, and room-type filters (spec
// §3, §4.1). Construction is an external concern (internal/buildinfo); this
// package only reads.
package facility

import (
	"fmt"

	"github.com/krukkeniels/badgesim/internal/ids"
)

// Coordinates is a WGS-84-style lat/lon pair in degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Room is a single badge-controlled room.
type Room struct {
	ID            ids.ID
	Name          string
	BuildingID    ids.ID
	RoomType      ids.RoomType
	SecurityLevel ids.SecurityLevel
}

// Building is an ordered collection of rooms at one location.
type Building struct {
	ID         ids.ID
	Name       string
	LocationID ids.ID
	RoomIDs    []ids.ID
}

// Location is a geographic site containing an ordered set of buildings.
type Location struct {
	ID          ids.ID
	Name        string
	Coordinates Coordinates
	BuildingIDs []ids.ID
}

// MissingEntityError reports a lookup against an id never inserted into
// the registry.
type MissingEntityError struct {
	Kind ids.Kind
	ID   ids.ID
}

func (e *MissingEntityError) Error() string {
	return fmt.Sprintf("facility: missing %s entity %s", e.Kind, e.ID)
}

// Registry is the in-memory, read-only facility hierarchy.
type Registry struct {
	locations map[ids.ID]Location
	buildings map[ids.ID]Building
	rooms     map[ids.ID]Room

	// locationOrder preserves location insertion order (buildings and
	// rooms keep theirs in BuildingIDs/RoomIDs) so enumeration is
	// deterministic across runs given identical inputs.
	locationOrder []ids.ID
}

// NewRegistry builds an empty registry. Use the Add* methods (typically
// called once, by internal/buildinfo, during facility construction) to
// populate it before handing it to the generation core.
func NewRegistry() *Registry {
	return &Registry{
		locations: make(map[ids.ID]Location),
		buildings: make(map[ids.ID]Building),
		rooms:     make(map[ids.ID]Room),
	}
}

// AddLocation inserts a location. Coordinates must already be validated by
// the caller (lat in [-90,90], lon in [-180,180] — see buildinfo).
func (r *Registry) AddLocation(loc Location) {
	if _, exists := r.locations[loc.ID]; !exists {
		r.locationOrder = append(r.locationOrder, loc.ID)
	}
	r.locations[loc.ID] = loc
}

// AddBuilding inserts a building and links it to its location's BuildingIDs.
func (r *Registry) AddBuilding(b Building) {
	r.buildings[b.ID] = b
	loc, ok := r.locations[b.LocationID]
	if !ok {
		return
	}
	for _, id := range loc.BuildingIDs {
		if id.Equal(b.ID) {
			return
		}
	}
	loc.BuildingIDs = append(loc.BuildingIDs, b.ID)
	r.locations[b.LocationID] = loc
}

// AddRoom inserts a room and links it to its building's RoomIDs.
func (r *Registry) AddRoom(room Room) {
	r.rooms[room.ID] = room
	b, ok := r.buildings[room.BuildingID]
	if !ok {
		return
	}
	for _, id := range b.RoomIDs {
		if id.Equal(room.ID) {
			return
		}
	}
	b.RoomIDs = append(b.RoomIDs, room.ID)
	r.buildings[room.BuildingID] = b
}

// Locations returns all locations in insertion order.
func (r *Registry) Locations() []Location {
	out := make([]Location, 0, len(r.locationOrder))
	for _, id := range r.locationOrder {
		out = append(out, r.locations[id])
	}
	return out
}

// Location looks up a location by id.
func (r *Registry) Location(id ids.ID) (Location, error) {
	loc, ok := r.locations[id]
	if !ok {
		return Location{}, &MissingEntityError{Kind: ids.KindLocation, ID: id}
	}
	return loc, nil
}

// Building looks up a building by id.
func (r *Registry) Building(id ids.ID) (Building, error) {
	b, ok := r.buildings[id]
	if !ok {
		return Building{}, &MissingEntityError{Kind: ids.KindBuilding, ID: id}
	}
	return b, nil
}

// Room looks up a room by id.
func (r *Registry) Room(id ids.ID) (Room, error) {
	room, ok := r.rooms[id]
	if !ok {
		return Room{}, &MissingEntityError{Kind: ids.KindRoom, ID: id}
	}
	return room, nil
}

// BuildingOf returns the building containing the given room.
func (r *Registry) BuildingOf(roomID ids.ID) (Building, error) {
	room, err := r.Room(roomID)
	if err != nil {
		return Building{}, err
	}
	return r.Building(room.BuildingID)
}

// LocationOf returns the location containing the given building.
func (r *Registry) LocationOf(buildingID ids.ID) (Location, error) {
	b, err := r.Building(buildingID)
	if err != nil {
		return Location{}, err
	}
	return r.Location(b.LocationID)
}

// RoomsByType returns the rooms of the given type within a building, in
// the building's own room order.
func (r *Registry) RoomsByType(buildingID ids.ID, rt ids.RoomType) ([]Room, error) {
	b, err := r.Building(buildingID)
	if err != nil {
		return nil, err
	}
	var out []Room
	for _, rid := range b.RoomIDs {
		room := r.rooms[rid]
		if room.RoomType == rt {
			out = append(out, room)
		}
	}
	return out, nil
}

// RoomsInLocation returns every room across every building at a location,
// in building then room order.
func (r *Registry) RoomsInLocation(locationID ids.ID) ([]Room, error) {
	loc, err := r.Location(locationID)
	if err != nil {
		return nil, err
	}
	var out []Room
	for _, bid := range loc.BuildingIDs {
		b := r.buildings[bid]
		for _, rid := range b.RoomIDs {
			out = append(out, r.rooms[rid])
		}
	}
	return out, nil
}

// OtherBuildingsInLocation returns the buildings at a location other than
// the given one, in location order.
func (r *Registry) OtherBuildingsInLocation(locationID, excludeBuildingID ids.ID) ([]Building, error) {
	loc, err := r.Location(locationID)
	if err != nil {
		return nil, err
	}
	var out []Building
	for _, bid := range loc.BuildingIDs {
		if bid.Equal(excludeBuildingID) {
			continue
		}
		out = append(out, r.buildings[bid])
	}
	return out, nil
}

// OtherLocations returns all locations other than the given one, in
// insertion order.
func (r *Registry) OtherLocations(excludeLocationID ids.ID) []Location {
	var out []Location
	for _, id := range r.locationOrder {
		if id.Equal(excludeLocationID) {
			continue
		}
		out = append(out, r.locations[id])
	}
	return out
}
