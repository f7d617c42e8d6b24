package models

import "time"

const (
	ParticipantStatusPending  = "pending"
	ParticipantStatusApproved = "approved"
	ParticipantStatusRejected = "rejected"
)

type ParticipantEntry struct {
	ID                  int64      `json:"id"`
	SessionID           int64      `json:"session_id"`
	UserID              int64      `json:"user_id"`
	UserName            string     `json:"user_name"`
	UserEmail           string     `json:"user_email"`
	Status              string     `json:"status"`
	NeedsRenotification bool       `json:"needs_renotification"`
	JoinedAt            time.Time  `json:"joined_at"`
	DecidedAt           *time.Time `json:"decided_at,omitempty"`
	DecidedBy           *int64     `json:"decided_by,omitempty"`
}

func IsValidParticipantStatus(status string) bool {
	switch status {
	case ParticipantStatusPending, ParticipantStatusApproved, ParticipantStatusRejected:
		return true
	default:
		return false
	}
}
