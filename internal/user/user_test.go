package user

import (
	"testing"

	"github.com/krukkeniels/badgesim/internal/ids"
	"github.com/krukkeniels/badgesim/internal/permission"
)

func TestBehaviorProfileDerivedPredicates(t *testing.T) {
	p := BehaviorProfile{
		TravelFrequency:   0.2,
		CuriosityLevel:    0.6,
		ScheduleAdherence: 0.9,
		SocialLevel:       0.8,
	}
	if !p.TravelsFrequently() {
		t.Error("expected TravelsFrequently true at 0.2")
	}
	if !p.IsCurious() {
		t.Error("expected IsCurious true at 0.6")
	}
	if !p.IsScheduleFocused() {
		t.Error("expected IsScheduleFocused true at 0.9")
	}
	if !p.IsSocial() {
		t.Error("expected IsSocial true at 0.8")
	}

	low := BehaviorProfile{TravelFrequency: 0.1, CuriosityLevel: 0.4, ScheduleAdherence: 0.5, SocialLevel: 0.3}
	if low.TravelsFrequently() || low.IsCurious() || low.IsScheduleFocused() || low.IsSocial() {
		t.Error("expected all predicates false for low-trait profile")
	}
}

func TestBehaviorProfileValidateBounds(t *testing.T) {
	bad := BehaviorProfile{TravelFrequency: 1.5, CuriosityLevel: 0.5, ScheduleAdherence: 0.5, SocialLevel: 0.5}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for out-of-range travel_frequency")
	}

	good := BehaviorProfile{TravelFrequency: 0, CuriosityLevel: 1, ScheduleAdherence: 0.5, SocialLevel: 0.5}
	if err := good.Validate(); err != nil {
		t.Errorf("unexpected error for boundary values: %v", err)
	}
}

func TestDailyStateTransitionSingleUsePerDay(t *testing.T) {
	var d DailyState
	first := ids.New(ids.KindLocation)
	second := ids.New(ids.KindLocation)

	d.RecordTransition(first)
	d.RecordTransition(second)

	if !d.CurrentLocationID.Equal(first) {
		t.Errorf("expected transition destination to remain %v, got %v", first, d.CurrentLocationID)
	}
}

func TestDailyStateResetClearsTransition(t *testing.T) {
	var d DailyState
	d.RecordTransition(ids.New(ids.KindLocation))
	d.Reset()

	if d.TransitionUsed {
		t.Error("expected TransitionUsed false after Reset")
	}
	if !d.CurrentLocationID.IsZero() {
		t.Error("expected CurrentLocationID zero after Reset")
	}
}

func TestEffectiveLocationFallsBackBeforeTransition(t *testing.T) {
	var d DailyState
	primary := ids.New(ids.KindLocation)

	if got := d.EffectiveLocation(primary); !got.Equal(primary) {
		t.Errorf("EffectiveLocation before transition = %v, want %v", got, primary)
	}

	dest := ids.New(ids.KindLocation)
	d.RecordTransition(dest)
	if got := d.EffectiveLocation(primary); !got.Equal(dest) {
		t.Errorf("EffectiveLocation after transition = %v, want %v", got, dest)
	}
}

func TestUserValidateNightShiftPairing(t *testing.T) {
	room := ids.New(ids.KindRoom)
	bld := ids.New(ids.KindBuilding)
	loc := ids.New(ids.KindLocation)

	perms := permission.NewSet()
	perms.GrantRoom(room)

	u := &User{
		ID:                 ids.New(ids.KindUser),
		PrimaryLocationID:  loc,
		PrimaryBuildingID:  bld,
		PrimaryWorkspaceID: room,
		Permissions:        perms,
		IsNightShift:       true,
		Behavior:           BehaviorProfile{0.1, 0.1, 0.5, 0.5},
	}

	if err := u.Validate(bld, loc); err == nil {
		t.Error("expected error: is_night_shift without assigned_night_building")
	}

	u.AssignedNightBuildingID = ids.New(ids.KindBuilding)
	if err := u.Validate(bld, loc); err != nil {
		t.Errorf("unexpected error with paired night-shift fields: %v", err)
	}
}

func TestUserValidateRequiresWorkspaceAccess(t *testing.T) {
	room := ids.New(ids.KindRoom)
	otherRoom := ids.New(ids.KindRoom)
	bld := ids.New(ids.KindBuilding)
	loc := ids.New(ids.KindLocation)

	perms := permission.NewSet()
	perms.GrantRoom(otherRoom)

	u := &User{
		ID:                 ids.New(ids.KindUser),
		PrimaryWorkspaceID: room,
		Permissions:        perms,
		Behavior:           BehaviorProfile{0.1, 0.1, 0.5, 0.5},
	}

	if err := u.Validate(bld, loc); err == nil {
		t.Error("expected error: user cannot access own primary_workspace")
	}
}
