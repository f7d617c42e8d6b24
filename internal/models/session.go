package models

import "time"

const (
	SessionKindPhysical = "physical"
	SessionKindVirtual  = "virtual"
)

const (
	SessionStatusActive    = "active"
	SessionStatusCancelled = "cancelled"
	SessionStatusCompleted = "completed"
)

// Session is a trainer-led training event. Physical and virtual sessions
// share one shape and are told apart by Kind.
type Session struct {
	ID                  int64      `json:"id"`
	Title               string     `json:"title"`
	TrainerID           int64      `json:"trainer_id"`
	TrainerName         string     `json:"trainer_name"`
	Kind                string     `json:"kind"`
	Location            *string    `json:"location,omitempty"`
	OnlineLink          *string    `json:"online_link,omitempty"`
	StartAt             time.Time  `json:"start_at"`
	EndAt               time.Time  `json:"end_at"`
	MaxParticipants     int        `json:"max_participants"`
	CurrentParticipants int        `json:"current_participants"`
	RequiresApproval    bool       `json:"requires_approval"`
	Status              string     `json:"status"`
	CancellationReason  *string    `json:"cancellation_reason,omitempty"`
	CancelledBy         *int64     `json:"cancelled_by,omitempty"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`
	RescheduledBy       *int64     `json:"rescheduled_by,omitempty"`
	RescheduledAt       *time.Time `json:"rescheduled_at,omitempty"`
	Description         *string    `json:"description,omitempty"`
	Version             int64      `json:"version"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (s *Session) IsActive() bool {
	return s.Status == SessionStatusActive
}

// HasEnded reports whether the session end lies at or before now.
func (s *Session) HasEnded(now time.Time) bool {
	return !s.EndAt.After(now)
}

func (s *Session) SeatsLeft() int {
	left := s.MaxParticipants - s.CurrentParticipants
	if left < 0 {
		return 0
	}
	return left
}

// Booking is a member's view of one of their participant entries.
type Booking struct {
	Participant ParticipantEntry `json:"participant"`
	Session     Session          `json:"session"`
}
