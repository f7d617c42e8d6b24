package services

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation error")
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrSchedulingConflict   = errors.New("scheduling conflict")
	ErrSessionClosed        = errors.New("session closed")
	ErrSessionFull          = errors.New("session full")
	ErrPlanIncompatible     = errors.New("plan incompatible")
	ErrAlreadyJoined        = errors.New("already joined")
	ErrCapacityBelowCurrent = errors.New("capacity below current participants")
	ErrInvalidState         = errors.New("invalid state")
	ErrConcurrencyConflict  = errors.New("concurrency conflict")
)

const KindInternal = "Internal"

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrValidation, "ValidationError"},
	{ErrNotFound, "NotFound"},
	{ErrForbidden, "Forbidden"},
	{ErrSchedulingConflict, "SchedulingConflict"},
	{ErrSessionClosed, "SessionClosed"},
	{ErrSessionFull, "SessionFull"},
	{ErrPlanIncompatible, "PlanIncompatible"},
	{ErrAlreadyJoined, "AlreadyJoined"},
	{ErrCapacityBelowCurrent, "CapacityBelowCurrent"},
	{ErrInvalidState, "InvalidState"},
	{ErrConcurrencyConflict, "ConcurrencyConflict"},
}

// ErrorKind names the business-rule category of err, or KindInternal for
// anything outside the taxonomy.
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func sessionNotFound(sessionID int64) error {
	return fmt.Errorf("%w: session %d", ErrNotFound, sessionID)
}

func participantNotFound(participantID int64) error {
	return fmt.Errorf("%w: participant %d", ErrNotFound, participantID)
}
