package models

import "time"

const (
	EventSessionCreated      = "session_created"
	EventSessionRescheduled  = "session_rescheduled"
	EventSessionCancelled    = "session_cancelled"
	EventSessionCompleted    = "session_completed"
	EventCapacityChanged     = "capacity_changed"
	EventParticipantJoined   = "participant_joined"
	EventParticipantApproved = "participant_approved"
	EventParticipantRejected = "participant_rejected"
)

// SessionEvent is one audit-trail row. The same value is handed to the
// notifier once the transaction that wrote it has committed.
type SessionEvent struct {
	ID         string    `json:"id"`
	SessionID  int64     `json:"session_id"`
	Type       string    `json:"type"`
	ActorID    int64     `json:"actor_id"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
	Recipients []int64   `json:"-"`
}
