package services

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/saeid-a/GymSessionsBack/internal/models"
)

const (
	maxTitleLength       = 200
	maxReasonLength      = 1000
	maxParticipantsLimit = 1000
)

func validateWindow(start, end, now time.Time) error {
	if start.IsZero() || end.IsZero() {
		return validationError("start and end are required")
	}
	if !end.After(start) {
		return validationError("end must be after start")
	}
	if start.Before(now.Add(-time.Minute)) {
		return validationError("start must not be in the past")
	}
	return nil
}

func validateCapacity(maxParticipants int) error {
	if maxParticipants <= 0 {
		return validationError("max_participants must be greater than 0")
	}
	if maxParticipants > maxParticipantsLimit {
		return validationError("max_participants must be at most %d", maxParticipantsLimit)
	}
	return nil
}

func normalizeKind(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case models.SessionKindPhysical, "in_person", "offline":
		return models.SessionKindPhysical, nil
	case models.SessionKindVirtual, "online":
		return models.SessionKindVirtual, nil
	default:
		return "", validationError("kind must be physical or virtual")
	}
}

// validateVenue checks that a physical session has a location and a virtual
// one an http(s) link, and returns the trimmed values.
func validateVenue(kind string, location, onlineLink *string) (*string, *string, error) {
	location = trimmedOrNil(location)
	onlineLink = trimmedOrNil(onlineLink)

	switch kind {
	case models.SessionKindPhysical:
		if location == nil {
			return nil, nil, validationError("location is required for physical sessions")
		}
		if onlineLink != nil {
			return nil, nil, validationError("online_link is only allowed for virtual sessions")
		}
	case models.SessionKindVirtual:
		if onlineLink == nil {
			return nil, nil, validationError("online_link is required for virtual sessions")
		}
		if location != nil {
			return nil, nil, validationError("location is only allowed for physical sessions")
		}
		if err := validateLink(*onlineLink); err != nil {
			return nil, nil, err
		}
	}
	return location, onlineLink, nil
}

func validateLink(link string) error {
	parsed, err := url.Parse(link)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "https" && parsed.Scheme != "http") {
		return validationError("online_link must be an http(s) URL")
	}
	return nil
}

func validateMemberContact(name, email string) (string, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return "", "", validationError("user_name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return "", "", validationError("user_email must be a valid email address")
	}
	return name, email, nil
}

func normalizeParticipantStatus(status string) (string, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" || models.IsValidParticipantStatus(status) {
		return status, nil
	}
	return "", validationError("status must be pending, approved or rejected")
}

// checkJoinable rejects joins on sessions that are not active or are over.
func checkJoinable(session *models.Session, now time.Time) error {
	if !session.IsActive() {
		return fmt.Errorf("%w: session is %s", ErrSessionClosed, session.Status)
	}
	if session.HasEnded(now) {
		return fmt.Errorf("%w: session has already ended", ErrSessionClosed)
	}
	return nil
}

func checkSeatAvailable(session *models.Session) error {
	if session.CurrentParticipants >= session.MaxParticipants {
		return fmt.Errorf("%w: %d of %d seats taken", ErrSessionFull, session.CurrentParticipants, session.MaxParticipants)
	}
	return nil
}

func ensureOwnedBy(actor Actor, session *models.Session) error {
	if !actor.IsTrainer() || session.TrainerID != actor.ID {
		return ErrForbidden
	}
	return nil
}

func ensureDecidable(entry *models.ParticipantEntry) error {
	if entry.Status != models.ParticipantStatusPending {
		return fmt.Errorf("%w: participant is already %s", ErrInvalidState, entry.Status)
	}
	return nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func formatWindow(start, end time.Time) string {
	return fmt.Sprintf("%s/%s", start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
}
