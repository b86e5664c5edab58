package visit

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/karibu-campus/karibu/internal/apperr"
	"github.com/karibu-campus/karibu/internal/db"
	"github.com/karibu-campus/karibu/internal/invite"
)

var gateTime = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type fixture struct {
	clock   *time.Time
	invites *invite.Service
	visits  *Service
	repo    *Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	database, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := database.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})

	current := gateTime
	now := func() time.Time { return current }

	inviteRepo := invite.NewRepository(database)
	visitRepo := NewRepository(database)

	return &fixture{
		clock:   &current,
		invites: invite.NewService(inviteRepo, visitRepo, now),
		visits:  NewService(visitRepo, inviteRepo, now),
		repo:    visitRepo,
	}
}

func (f *fixture) advance(d time.Duration) { *f.clock = f.clock.Add(d) }

func (f *fixture) createInvite(t *testing.T, visitorID string) *invite.Invite {
	t.Helper()
	inv, err := f.invites.Create(invite.CreateInput{
		HostName:        "Dr. Jane Mwangi",
		VisitorName:     "Peter Otieno",
		VisitorIDNumber: visitorID,
		Purpose:         "Thesis defense",
		Destination:     "Science Block",
	})
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	return inv
}

func TestCheckInByCode(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvite(t, "30112233")

	v, err := f.visits.CheckInByCode(inv.Code)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if v.Kind != KindInvite {
		t.Errorf("kind = %q, want invite", v.Kind)
	}
	if v.Status != StatusCheckedIn {
		t.Errorf("status = %q, want CHECKED_IN", v.Status)
	}
	if v.Code != inv.Code {
		t.Errorf("code = %q, want %q", v.Code, inv.Code)
	}
	if v.InviteID != inv.ID {
		t.Errorf("invite_id = %q, want %q", v.InviteID, inv.ID)
	}
	if !v.Open() {
		t.Error("expected open visit")
	}

	// Invite consumed.
	got, err := f.invites.ListForHost(inv.HostName)
	if err != nil {
		t.Fatalf("list invites: %v", err)
	}
	if got[0].Status != invite.StatusCheckedIn {
		t.Errorf("invite status = %q, want checked_in", got[0].Status)
	}
	if got[0].CheckedInAt == nil {
		t.Error("expected checked_in_at to be set")
	}
}

func TestCheckInNormalizesCode(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvite(t, "30112233")

	lower := " " + string(inv.Code[0]|0x20) + inv.Code[1:] + " "
	if _, err := f.visits.CheckInByCode(lower); err != nil {
		t.Fatalf("check in with messy code: %v", err)
	}
}

func TestCheckInTwice(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvite(t, "30112233")

	first, err := f.visits.CheckInByCode(inv.Code)
	if err != nil {
		t.Fatalf("first check in: %v", err)
	}

	_, err = f.visits.CheckInByCode(inv.Code)
	if !errors.Is(err, &apperr.Error{Kind: apperr.KindConflict, Reason: apperr.ReasonAlreadyCheckedIn}) {
		t.Fatalf("second check in error = %v, want conflict/already_checked_in", err)
	}

	// No duplicate visit was created.
	got, err := f.repo.FindByInviteID(inv.ID)
	if err != nil {
		t.Fatalf("find by invite: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("visit id = %q, want %q", got.ID, first.ID)
	}
}

func TestCheckInNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.visits.CheckInByCode("ZZZZZZZ")
	if !errors.Is(err, &apperr.Error{Kind: apperr.KindNotFound}) {
		t.Errorf("error = %v, want not_found", err)
	}
}

func TestCheckInEmptyCode(t *testing.T) {
	f := newFixture(t)

	_, err := f.visits.CheckInByCode("   ")
	if !errors.Is(err, &apperr.Error{Kind: apperr.KindValidation}) {
		t.Errorf("error = %v, want validation", err)
	}
}

func TestCheckInWrongDay(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvite(t, "30112233")

	f.advance(24 * time.Hour)

	_, err := f.visits.CheckInByCode(inv.Code)
	if !errors.Is(err, &apperr.Error{Kind: apperr.KindConflict, Reason: apperr.ReasonWrongDay}) {
		t.Errorf("error = %v, want conflict/wrong_day", err)
	}
}

func TestCheckInWrongDayBeatsCancelled(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvite(t, "30112233")
	if err := f.invites.Cancel(inv.ID, inv.HostName); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	f.advance(24 * time.Hour)

	_, err := f.visits.CheckInByCode(inv.Code)
	if !errors.Is(err, &apperr.Error{Kind: apperr.KindConflict, Reason: apperr.ReasonWrongDay}) {
		t.Errorf("error = %v, want wrong_day to take precedence", err)
	}
}

func TestCheckInCancelled(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvite(t, "30112233")
	if err := f.invites.Cancel(inv.ID, inv.HostName); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := f.visits.CheckInByCode(inv.Code)
	if !errors.Is(err, &apperr.Error{Kind: apperr.KindConflict, Reason: apperr.ReasonAlreadyCancelled}) {
		t.Errorf("error = %v, want conflict/already_cancelled", err)
	}
}

func TestCheckInDuplicateIdentity(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvite(t, "30112233")

	// Same physical identity already walked in.
	if _, err := f.visits.RegisterWalkIn(WalkInInput{
		IDNumber: "30112233", FullName: "Peter Otieno", Destination: "Library",
	}); err != nil {
		t.Fatalf("walk in: %v", err)
	}

	_, err := f.visits.CheckInByCode(inv.Code)
	if !errors.Is(err, &apperr.Error{Kind: apperr.KindConflict, Reason: apperr.ReasonDuplicateActiveIdentity}) {
		t.Fatalf("error = %v, want conflict/duplicate_active_identity", err)
	}

	// The invite must remain pending: the failed check-in consumed nothing.
	got, err := f.invites.ListForHost(inv.HostName)
	if err != nil {
		t.Fatalf("list invites: %v", err)
	}
	if got[0].Status != invite.StatusPending {
		t.Errorf("invite status = %q, want pending after failed check-in", got[0].Status)
	}
}

func TestRegisterWalkIn(t *testing.T) {
	f := newFixture(t)

	v, err := f.visits.RegisterWalkIn(WalkInInput{
		IDNumber:    "40990011",
		FullName:    "Grace Njeri",
		Email:       "grace@example.com",
		Destination: "Library",
		Purpose:     "Alumni records",
	})
	if err != nil {
		t.Fatalf("walk in: %v", err)
	}
	if v.Kind != KindWalkin {
		t.Errorf("kind = %q, want walkin", v.Kind)
	}
	if v.Decision != DecisionApproved {
		t.Errorf("decision = %q, want approved", v.Decision)
	}
	if v.Status != StatusCheckedIn {
		t.Errorf("status = %q, want CHECKED_IN", v.Status)
	}
	if v.InviteID != "" {
		t.Errorf("invite_id = %q, want empty", v.InviteID)
	}
}

func TestRegisterWalkInValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		in   WalkInInput
	}{
		{"short id", WalkInInput{IDNumber: "123", FullName: "Grace Njeri", Destination: "Library"}},
		{"short name", WalkInInput{IDNumber: "40990011", FullName: "G", Destination: "Library"}},
		{"no destination", WalkInInput{IDNumber: "40990011", FullName: "Grace Njeri"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.visits.RegisterWalkIn(tt.in)
			if !errors.Is(err, &apperr.Error{Kind: apperr.KindValidation}) {
				t.Errorf("error = %v, want validation", err)
			}
		})
	}
}

func TestRegisterWalkInDuplicateIdentity(t *testing.T) {
	f := newFixture(t)

	base := WalkInInput{IDNumber: "40990011", FullName: "Grace Njeri", Email: "grace@example.com", Destination: "Library"}
	if _, err := f.visits.RegisterWalkIn(base); err != nil {
		t.Fatalf("first walk in: %v", err)
	}

	t.Run("same id number", func(t *testing.T) {
		in := base
		in.Email = "other@example.com"
		_, err := f.visits.RegisterWalkIn(in)
		if !errors.Is(err, &apperr.Error{Kind: apperr.KindConflict, Reason: apperr.ReasonDuplicateActiveIdentity}) {
			t.Errorf("error = %v, want duplicate_active_identity", err)
		}
	})

	t.Run("same email different case", func(t *testing.T) {
		in := WalkInInput{IDNumber: "51223344", FullName: "G Njeri", Email: "GRACE@Example.com", Destination: "Gym"}
		_, err := f.visits.RegisterWalkIn(in)
		if !errors.Is(err, &apperr.Error{Kind: apperr.KindConflict, Reason: apperr.ReasonDuplicateActiveIdentity}) {
			t.Errorf("error = %v, want duplicate_active_identity", err)
		}
	})
}

func TestOpenIdentityFreedByCheckout(t *testing.T) {
	f := newFixture(t)

	v, err := f.visits.RegisterWalkIn(WalkInInput{
		IDNumber: "40990011", FullName: "Grace Njeri", Destination: "Library",
	})
	if err != nil {
		t.Fatalf("walk in: %v", err)
	}

	// Close the visit directly; the identity may then re-enter.
	checkedOut := f.clock.Add(time.Hour)
	if err := f.repo.closeForTest(v.ID, checkedOut); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := f.visits.RegisterWalkIn(WalkInInput{
		IDNumber: "40990011", FullName: "Grace Njeri", Destination: "Library",
	}); err != nil {
		t.Errorf("re-entry after checkout should succeed: %v", err)
	}
}

func TestCodes(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvite(t, "30112233")
	if _, err := f.visits.CheckInByCode(inv.Code); err != nil {
		t.Fatalf("check in: %v", err)
	}

	codes, err := f.repo.Codes()
	if err != nil {
		t.Fatalf("codes: %v", err)
	}
	if !codes[inv.Code] {
		t.Errorf("expected %q in visit codes", inv.Code)
	}
}

// closeForTest stamps a visit as checked out without going through the
// checkout coordinator, which lives in a package that imports this one.
func (r *Repository) closeForTest(id string, at time.Time) error {
	_, err := r.db.Exec(`UPDATE visits SET checked_out_at = ?, status = ? WHERE id = ?`,
		at.UTC(), StatusExitConfirmed, id)
	return err
}
