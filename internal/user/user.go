// Package user models the population: primary assignments, behaviour
// profile, anomaly-eligibility flags, and the mutable per-day state the
// behaviour engine tracks while building a schedule (spec §3, §4.4's
// cross-location persistence).
package user

import (
	"fmt"

	"github.com/krukkeniels/badgesim/internal/ids"
	"github.com/krukkeniels/badgesim/internal/permission"
)

// BehaviorProfile is the four scalar traits, each in [0,1], that steer a
// user's schedule shape.
type BehaviorProfile struct {
	TravelFrequency   float64 `yaml:"travel_frequency"`
	CuriosityLevel    float64 `yaml:"curiosity_level"`
	ScheduleAdherence float64 `yaml:"schedule_adherence"`
	SocialLevel       float64 `yaml:"social_level"`
}

// IsCurious reports the derived predicate curiosity_level>0.5.
func (p BehaviorProfile) IsCurious() bool { return p.CuriosityLevel > 0.5 }

// IsSocial reports the derived predicate social_level>0.7.
func (p BehaviorProfile) IsSocial() bool { return p.SocialLevel > 0.7 }

// IsScheduleFocused reports the derived predicate schedule_adherence>0.8.
func (p BehaviorProfile) IsScheduleFocused() bool { return p.ScheduleAdherence > 0.8 }

// TravelsFrequently reports the derived predicate travel_frequency>0.15.
func (p BehaviorProfile) TravelsFrequently() bool { return p.TravelFrequency > 0.15 }

// Validate checks the [0,1] bound on all four scalars.
func (p BehaviorProfile) Validate() error {
	for name, v := range map[string]float64{
		"travel_frequency":   p.TravelFrequency,
		"curiosity_level":    p.CuriosityLevel,
		"schedule_adherence": p.ScheduleAdherence,
		"social_level":       p.SocialLevel,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("user: behavior profile field %s out of [0,1]: %v", name, v)
		}
	}
	return nil
}

// DailyState is the mutable, per-simulated-day tracking the behaviour
// engine resets at the start of every day. It exists separately from the
// immutable User fields so orchestrator's day loop can reset it in place
// without reconstructing the user.
type DailyState struct {
	// CurrentLocationID is the location the user is presently persisted
	// to. Zero until the user performs their first cross-location
	// transition of the day, at which point every subsequent activity is
	// constrained to it (spec §4.4 cross-location persistence).
	CurrentLocationID ids.ID
	// TransitionUsed records whether the single-transition-per-day
	// budget has already been spent.
	TransitionUsed bool
}

// Reset clears the daily state back to "at primary location, no
// transition used yet". Called once per user at the start of each
// simulated day.
func (d *DailyState) Reset() {
	d.CurrentLocationID = ids.ID{}
	d.TransitionUsed = false
}

// RecordTransition marks the single daily cross-location transition as
// spent and persists the destination. Subsequent calls are a no-op
// (spec: "any later scheduling that would imply a second transition is
// treated as a no-op and resolved by falling back to the same
// destination").
func (d *DailyState) RecordTransition(locationID ids.ID) {
	if d.TransitionUsed {
		return
	}
	d.CurrentLocationID = locationID
	d.TransitionUsed = true
}

// EffectiveLocation returns the location an activity should be targeted
// at: the persisted destination if a transition has occurred this day,
// otherwise the fallback (normally the user's primary location).
func (d *DailyState) EffectiveLocation(fallback ids.ID) ids.ID {
	if d.TransitionUsed {
		return d.CurrentLocationID
	}
	return fallback
}

// User is one member of the simulated population.
type User struct {
	ID ids.ID

	PrimaryLocationID  ids.ID
	PrimaryBuildingID  ids.ID
	PrimaryWorkspaceID ids.ID

	Permissions *permission.Set

	IsCurious       bool
	HasClonedBadge  bool
	IsNightShift    bool
	// AssignedNightBuildingID is present iff IsNightShift.
	AssignedNightBuildingID ids.ID

	Behavior BehaviorProfile

	Daily DailyState
}

// Validate checks the invariants spec §3 places on a User: the behavior
// profile's bounds, the night-shift/assigned-building pairing, and that
// the user can reach their own primary workspace. workspaceBuildingID and
// workspaceLocationID are the workspace room's known containers, looked up once
// by the caller from the facility registry.
func (u *User) Validate(workspaceBuildingID, workspaceLocationID ids.ID) error {
	if err := u.Behavior.Validate(); err != nil {
		return err
	}
	if u.IsNightShift && u.AssignedNightBuildingID.IsZero() {
		return fmt.Errorf("user %s: is_night_shift set without assigned_night_building", u.ID)
	}
	if !u.IsNightShift && !u.AssignedNightBuildingID.IsZero() {
		return fmt.Errorf("user %s: assigned_night_building set without is_night_shift", u.ID)
	}
	if !u.Permissions.CanAccessRoom(u.PrimaryWorkspaceID, workspaceBuildingID, workspaceLocationID) {
		return fmt.Errorf("user %s: cannot access own primary_workspace %s", u.ID, u.PrimaryWorkspaceID)
	}
	return nil
}
