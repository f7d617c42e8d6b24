package services

import (
	"context"
	"time"

	"github.com/saeid-a/GymSessionsBack/internal/models"
)

type trainerScheduleReader interface {
	ListActiveEndingAfter(ctx context.Context, trainerID int64, after time.Time) ([]models.Session, error)
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

type ConflictChecker struct {
	sessions trainerScheduleReader
}

func NewConflictChecker(sessions trainerScheduleReader) *ConflictChecker {
	return &ConflictChecker{sessions: sessions}
}

// FindConflict returns the first active session of the trainer overlapping
// [start, end), ignoring excludeSessionID, or nil when the window is free.
func (c *ConflictChecker) FindConflict(
	ctx context.Context,
	trainerID int64,
	start time.Time,
	end time.Time,
	excludeSessionID int64,
) (*models.Session, error) {
	candidates, err := c.sessions.ListActiveEndingAfter(ctx, trainerID, start)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		existing := candidates[i]
		if existing.ID == excludeSessionID || existing.Status != models.SessionStatusActive {
			continue
		}
		if Overlaps(existing.StartAt, existing.EndAt, start, end) {
			return &existing, nil
		}
	}
	return nil, nil
}

func (c *ConflictChecker) HasConflict(
	ctx context.Context,
	trainerID int64,
	start time.Time,
	end time.Time,
	excludeSessionID int64,
) (bool, error) {
	conflict, err := c.FindConflict(ctx, trainerID, start, end, excludeSessionID)
	if err != nil {
		return false, err
	}
	return conflict != nil, nil
}
