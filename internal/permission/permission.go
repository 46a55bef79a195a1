// Package permission models per-user access grants at the room,
// building, and location level and answers the three access predicates
// the behaviour engine and event generator consult on every attempt
// (spec §3, §4.1). Grant sets are built once by internal/buildinfo and
// read many times during generation; lookups are a linear scan over a
// small per-user slice, which the spec's invariants call for in place
// of a general-purpose graph.
package permission

import "github.com/krukkeniels/badgesim/internal/ids"

// Grant is a single access entitlement at one of the three hierarchy
// levels. Exactly one of RoomID, BuildingID, LocationID is set,
// matching which level the grant applies at.
type Grant struct {
	RoomID     ids.ID
	BuildingID ids.ID
	LocationID ids.ID
}

func roomGrant(id ids.ID) Grant     { return Grant{RoomID: id} }
func buildingGrant(id ids.ID) Grant { return Grant{BuildingID: id} }
func locationGrant(id ids.ID) Grant { return Grant{LocationID: id} }

// Set is one user's access grants across all three levels.
type Set struct {
	grants []Grant
}

// NewSet constructs an empty permission set.
func NewSet() *Set {
	return &Set{}
}

// GrantRoom adds room-level access, deduplicating against any existing
// identical grant.
func (s *Set) GrantRoom(id ids.ID) {
	s.addUnique(roomGrant(id))
}

// GrantBuilding adds building-level access (every room in the building).
func (s *Set) GrantBuilding(id ids.ID) {
	s.addUnique(buildingGrant(id))
}

// GrantLocation adds location-level access (every building, every room,
// at the location).
func (s *Set) GrantLocation(id ids.ID) {
	s.addUnique(locationGrant(id))
}

func (s *Set) addUnique(g Grant) {
	for _, existing := range s.grants {
		if existing == g {
			return
		}
	}
	s.grants = append(s.grants, g)
}

// RevokeRoom removes a room-level grant, if present. Building- and
// location-level grants that happen to cover the same room are
// unaffected; revocation only removes the exact grant it names.
func (s *Set) RevokeRoom(id ids.ID) {
	s.remove(roomGrant(id))
}

// RevokeBuilding removes a building-level grant, if present.
func (s *Set) RevokeBuilding(id ids.ID) {
	s.remove(buildingGrant(id))
}

// RevokeLocation removes a location-level grant, if present.
func (s *Set) RevokeLocation(id ids.ID) {
	s.remove(locationGrant(id))
}

func (s *Set) remove(g Grant) {
	for i, existing := range s.grants {
		if existing == g {
			s.grants = append(s.grants[:i], s.grants[i+1:]...)
			return
		}
	}
}

// CanAccessRoom reports whether the set grants access to roomID, either
// directly, via the containing building, or via the containing
// location. buildingID and locationID are the room's known containers
// (looked up once by the caller from the facility registry, avoiding a
// dependency cycle between permission and facility).
func (s *Set) CanAccessRoom(roomID, buildingID, locationID ids.ID) bool {
	for _, g := range s.grants {
		if !g.RoomID.IsZero() && g.RoomID.Equal(roomID) {
			return true
		}
		if !g.BuildingID.IsZero() && g.BuildingID.Equal(buildingID) {
			return true
		}
		if !g.LocationID.IsZero() && g.LocationID.Equal(locationID) {
			return true
		}
	}
	return false
}

// CanAccessBuilding reports whether the set grants building-wide or
// location-wide access to buildingID's container, ignoring any
// room-specific grants that happen to fall within it.
func (s *Set) CanAccessBuilding(buildingID, locationID ids.ID) bool {
	for _, g := range s.grants {
		if !g.BuildingID.IsZero() && g.BuildingID.Equal(buildingID) {
			return true
		}
		if !g.LocationID.IsZero() && g.LocationID.Equal(locationID) {
			return true
		}
	}
	return false
}

// CanAccessLocation reports whether the set grants location-wide access.
func (s *Set) CanAccessLocation(locationID ids.ID) bool {
	for _, g := range s.grants {
		if !g.LocationID.IsZero() && g.LocationID.Equal(locationID) {
			return true
		}
	}
	return false
}

// Rooms returns the room-level grant IDs, in grant order.
func (s *Set) Rooms() []ids.ID {
	return s.idsOf(func(g Grant) (ids.ID, bool) {
		if !g.RoomID.IsZero() {
			return g.RoomID, true
		}
		return ids.ID{}, false
	})
}

// Buildings returns the building-level grant IDs, in grant order.
func (s *Set) Buildings() []ids.ID {
	return s.idsOf(func(g Grant) (ids.ID, bool) {
		if !g.BuildingID.IsZero() {
			return g.BuildingID, true
		}
		return ids.ID{}, false
	})
}

// Locations returns the location-level grant IDs, in grant order.
func (s *Set) Locations() []ids.ID {
	return s.idsOf(func(g Grant) (ids.ID, bool) {
		if !g.LocationID.IsZero() {
			return g.LocationID, true
		}
		return ids.ID{}, false
	})
}

func (s *Set) idsOf(extract func(Grant) (ids.ID, bool)) []ids.ID {
	var out []ids.ID
	for _, g := range s.grants {
		if id, ok := extract(g); ok {
			out = append(out, id)
		}
	}
	return out
}

// Len returns the number of grants currently held, across all levels.
func (s *Set) Len() int { return len(s.grants) }
