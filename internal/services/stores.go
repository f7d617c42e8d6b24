package services

import (
	"context"

	"github.com/saeid-a/GymSessionsBack/internal/models"
	"github.com/saeid-a/GymSessionsBack/internal/repository"
)

type sessionWriter interface {
	trainerScheduleReader
	LockTrainer(ctx context.Context, trainerID int64) error
	GetByIDForUpdate(ctx context.Context, sessionID int64) (*models.Session, error)
	Create(ctx context.Context, input repository.CreateSessionInput) (*models.Session, error)
	Update(ctx context.Context, sessionID int64, expectedVersion int64, input repository.UpdateSessionInput) (*models.Session, error)
	Cancel(ctx context.Context, sessionID int64, expectedVersion int64, reason string, cancelledBy int64) (*models.Session, error)
	UpdateStatusIfCurrent(ctx context.Context, sessionID int64, expectedVersion int64, currentStatus string, nextStatus string) (*models.Session, error)
	RecountParticipants(ctx context.Context, sessionID int64, expectedVersion int64) (*models.Session, error)
}

type participantWriter interface {
	Create(ctx context.Context, input repository.CreateParticipantInput) (*models.ParticipantEntry, error)
	GetForUpdate(ctx context.Context, sessionID int64, participantID int64) (*models.ParticipantEntry, error)
	FindLive(ctx context.Context, sessionID int64, userID int64) (*models.ParticipantEntry, error)
	UpdateStatusIfCurrent(ctx context.Context, participantID int64, currentStatus string, nextStatus string, decidedBy int64) (*models.ParticipantEntry, error)
	MarkForRenotification(ctx context.Context, sessionID int64) ([]int64, error)
}

type eventWriter interface {
	Append(ctx context.Context, sessionID int64, eventType string, actorID int64, note string) (*models.SessionEvent, error)
}

// txStores are the repositories a unit of work writes through, bound to
// its transaction.
type txStores struct {
	sessions     sessionWriter
	participants participantWriter
	events       eventWriter
}

type storeFactory func(db repository.DBTX) txStores

func repositoryStores(db repository.DBTX) txStores {
	return txStores{
		sessions:     repository.NewSessionRepository(db),
		participants: repository.NewParticipantRepository(db),
		events:       repository.NewEventRepository(db),
	}
}

