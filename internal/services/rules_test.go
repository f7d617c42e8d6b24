package services

import (
	"errors"
	"testing"
	"time"

	"github.com/saeid-a/GymSessionsBack/internal/models"
)

func strPtr(v string) *string { return &v }

func TestValidateWindow(t *testing.T) {
	now := at(8, 0)
	cases := []struct {
		name       string
		start, end time.Time
		wantErr    bool
	}{
		{"valid", at(10, 0), at(11, 0), false},
		{"end before start", at(11, 0), at(10, 0), true},
		{"end equals start", at(10, 0), at(10, 0), true},
		{"in the past", at(6, 0), at(7, 0), true},
		{"zero start", time.Time{}, at(7, 0), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateWindow(tc.start, tc.end, now)
			if tc.wantErr && !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateCapacity(t *testing.T) {
	for _, max := range []int{0, -1, maxParticipantsLimit + 1} {
		if err := validateCapacity(max); !errors.Is(err, ErrValidation) {
			t.Fatalf("validateCapacity(%d): expected ErrValidation, got %v", max, err)
		}
	}
	if err := validateCapacity(12); err != nil {
		t.Fatalf("validateCapacity(12): %v", err)
	}
}

func TestNormalizeKind(t *testing.T) {
	cases := map[string]string{
		"physical":   models.SessionKindPhysical,
		" In_Person": models.SessionKindPhysical,
		"VIRTUAL":    models.SessionKindVirtual,
		"online":     models.SessionKindVirtual,
	}
	for input, want := range cases {
		got, err := normalizeKind(input)
		if err != nil || got != want {
			t.Fatalf("normalizeKind(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := normalizeKind("hybrid"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for hybrid, got %v", err)
	}
}

func TestValidateVenue(t *testing.T) {
	location, link, err := validateVenue(models.SessionKindPhysical, strPtr("  Studio B "), nil)
	if err != nil {
		t.Fatalf("physical with location: %v", err)
	}
	if location == nil || *location != "Studio B" || link != nil {
		t.Fatalf("unexpected venue %v %v", location, link)
	}

	if _, _, err := validateVenue(models.SessionKindPhysical, strPtr("   "), nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected blank location to fail, got %v", err)
	}
	if _, _, err := validateVenue(models.SessionKindPhysical, strPtr("Studio"), strPtr("https://meet.example.com/x")); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected link on physical session to fail, got %v", err)
	}
	if _, _, err := validateVenue(models.SessionKindVirtual, nil, strPtr("ftp://files.example.com")); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected non-http link to fail, got %v", err)
	}
	if _, _, err := validateVenue(models.SessionKindVirtual, nil, strPtr("https://meet.example.com/abc")); err != nil {
		t.Fatalf("virtual with link: %v", err)
	}
}

func TestValidateMemberContact(t *testing.T) {
	name, email, err := validateMemberContact(" Dana ", " dana@example.com ")
	if err != nil {
		t.Fatalf("validateMemberContact: %v", err)
	}
	if name != "Dana" || email != "dana@example.com" {
		t.Fatalf("unexpected contact %q %q", name, email)
	}
	if _, _, err := validateMemberContact("", "dana@example.com"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected missing name to fail, got %v", err)
	}
	if _, _, err := validateMemberContact("Dana", "not-an-email"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected bad email to fail, got %v", err)
	}
}

func TestCheckJoinable(t *testing.T) {
	now := at(9, 0)
	session := activeSession(1, 7, at(10, 0), at(11, 0))
	if err := checkJoinable(&session, now); err != nil {
		t.Fatalf("expected active future session to be joinable, got %v", err)
	}

	cancelled := session
	cancelled.Status = models.SessionStatusCancelled
	if err := checkJoinable(&cancelled, now); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed for cancelled session, got %v", err)
	}

	if err := checkJoinable(&session, at(11, 0)); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed for ended session, got %v", err)
	}

	inProgress := at(10, 30)
	if err := checkJoinable(&session, inProgress); err != nil {
		t.Fatalf("expected in-progress session to stay joinable, got %v", err)
	}
}

func TestCheckSeatAvailable(t *testing.T) {
	session := models.Session{MaxParticipants: 2, CurrentParticipants: 1}
	if err := checkSeatAvailable(&session); err != nil {
		t.Fatalf("expected a free seat, got %v", err)
	}
	session.CurrentParticipants = 2
	if err := checkSeatAvailable(&session); !errors.Is(err, ErrSessionFull) {
		t.Fatalf("expected ErrSessionFull, got %v", err)
	}
}

func TestEnsureOwnedBy(t *testing.T) {
	session := activeSession(1, 7, at(10, 0), at(11, 0))

	if err := ensureOwnedBy(Actor{ID: 7, Role: RoleTrainer}, &session); err != nil {
		t.Fatalf("expected owner to pass, got %v", err)
	}
	if err := ensureOwnedBy(Actor{ID: 8, Role: RoleTrainer}, &session); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected other trainer to be forbidden, got %v", err)
	}
	if err := ensureOwnedBy(Actor{ID: 7, Role: RoleMember}, &session); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected member with the trainer's id to be forbidden, got %v", err)
	}
}

func TestEnsureDecidableOnlyAllowsPending(t *testing.T) {
	for status, wantErr := range map[string]bool{
		models.ParticipantStatusPending:  false,
		models.ParticipantStatusApproved: true,
		models.ParticipantStatusRejected: true,
	} {
		err := ensureDecidable(&models.ParticipantEntry{Status: status})
		if wantErr && !errors.Is(err, ErrInvalidState) {
			t.Fatalf("status %s: expected ErrInvalidState, got %v", status, err)
		}
		if !wantErr && err != nil {
			t.Fatalf("status %s: expected no error, got %v", status, err)
		}
	}
}

func TestNormalizeParticipantStatus(t *testing.T) {
	if got, err := normalizeParticipantStatus(" Approved "); err != nil || got != models.ParticipantStatusApproved {
		t.Fatalf("unexpected %q %v", got, err)
	}
	if got, err := normalizeParticipantStatus(""); err != nil || got != "" {
		t.Fatalf("expected empty filter to pass through, got %q %v", got, err)
	}
	if _, err := normalizeParticipantStatus("waitlisted"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
