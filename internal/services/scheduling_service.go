package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/saeid-a/GymSessionsBack/internal/models"
	"github.com/saeid-a/GymSessionsBack/internal/repository"
)

type sessionCatalog interface {
	GetByID(ctx context.Context, sessionID int64) (*models.Session, error)
	ListByTrainer(ctx context.Context, trainerID int64, filter repository.SessionListFilter) ([]models.Session, error)
	ListActive(ctx context.Context, filter repository.SessionListFilter) ([]models.Session, error)
	ListActiveEndingAfter(ctx context.Context, trainerID int64, after time.Time) ([]models.Session, error)
}

type eventReader interface {
	ListBySession(ctx context.Context, sessionID int64) ([]models.SessionEvent, error)
}

// rosterCanceller is the part of the participation manager that cancel
// needs, run over the cancelling transaction.
type rosterCanceller interface {
	RemoveOnCancel(ctx context.Context, db repository.DBTX, sessionID int64) ([]int64, error)
}

type SchedulingService struct {
	tx               *txRunner
	sessions         sessionCatalog
	events           eventReader
	roster           rosterCanceller
	stores           storeFactory
	notifier         Notifier
	metrics          MetricsRecorder
	now              func() time.Time
	requiresApproval bool
}

func NewSchedulingService(
	db txBeginner,
	sessions sessionCatalog,
	events eventReader,
	roster rosterCanceller,
	opts Options,
) *SchedulingService {
	opts = opts.withDefaults()
	return &SchedulingService{
		tx:               newTxRunner(db, opts.TxMaxAttempts, opts.Metrics),
		sessions:         sessions,
		events:           events,
		roster:           roster,
		stores:           repositoryStores,
		notifier:         opts.Notifier,
		metrics:          opts.Metrics,
		now:              opts.Now,
		requiresApproval: opts.DefaultRequiresApproval,
	}
}

type CreateSessionInput struct {
	Title            string
	TrainerName      string
	Kind             string
	Location         *string
	OnlineLink       *string
	StartAt          time.Time
	EndAt            time.Time
	MaxParticipants  int
	RequiresApproval *bool
	Description      *string
}

type RescheduleSessionInput struct {
	StartAt    time.Time
	EndAt      time.Time
	Location   *string
	OnlineLink *string
}

func (s *SchedulingService) CreateSession(
	ctx context.Context,
	actor Actor,
	input CreateSessionInput,
) (*models.Session, error) {
	if !actor.IsTrainer() {
		return nil, ErrForbidden
	}
	create, err := s.validateCreate(actor, input)
	if err != nil {
		return nil, err
	}

	var session *models.Session
	var event *models.SessionEvent
	err = s.tx.run(ctx, func(tx pgx.Tx) error {
		stores := s.stores(tx)
		sessions, events := stores.sessions, stores.events

		if err := sessions.LockTrainer(ctx, actor.ID); err != nil {
			return err
		}
		if err := s.ensureNoConflict(ctx, sessions, actor.ID, create.StartAt, create.EndAt, 0); err != nil {
			return err
		}

		created, err := sessions.Create(ctx, create)
		if err != nil {
			return s.overlapViolationOr(err)
		}
		appended, err := events.Append(ctx, created.ID, models.EventSessionCreated, actor.ID,
			fmt.Sprintf("scheduled %s", formatWindow(created.StartAt, created.EndAt)))
		if err != nil {
			return err
		}

		session = created
		event = appended
		return nil
	})
	if err != nil {
		return nil, err
	}

	event.Recipients = []int64{actor.ID}
	s.notifier.Notify(*event)
	log.Info().
		Int64("session_id", session.ID).
		Int64("trainer_id", actor.ID).
		Str("kind", session.Kind).
		Msg("session created")
	return session, nil
}

func (s *SchedulingService) validateCreate(actor Actor, input CreateSessionInput) (repository.CreateSessionInput, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return repository.CreateSessionInput{}, validationError("title is required")
	}
	if len(title) > maxTitleLength {
		return repository.CreateSessionInput{}, validationError("title must be at most %d characters", maxTitleLength)
	}
	kind, err := normalizeKind(input.Kind)
	if err != nil {
		return repository.CreateSessionInput{}, err
	}
	start, end := input.StartAt.UTC(), input.EndAt.UTC()
	if err := validateWindow(start, end, s.now()); err != nil {
		return repository.CreateSessionInput{}, err
	}
	if err := validateCapacity(input.MaxParticipants); err != nil {
		return repository.CreateSessionInput{}, err
	}
	location, onlineLink, err := validateVenue(kind, input.Location, input.OnlineLink)
	if err != nil {
		return repository.CreateSessionInput{}, err
	}

	requiresApproval := s.requiresApproval
	if input.RequiresApproval != nil {
		requiresApproval = *input.RequiresApproval
	}

	return repository.CreateSessionInput{
		Title:            title,
		TrainerID:        actor.ID,
		TrainerName:      firstNonEmpty(strings.TrimSpace(input.TrainerName), actor.Name),
		Kind:             kind,
		Location:         location,
		OnlineLink:       onlineLink,
		StartAt:          start,
		EndAt:            end,
		MaxParticipants:  input.MaxParticipants,
		RequiresApproval: requiresApproval,
		Description:      trimmedOrNil(input.Description),
	}, nil
}

func (s *SchedulingService) RescheduleSession(
	ctx context.Context,
	actor Actor,
	sessionID int64,
	input RescheduleSessionInput,
) (*models.Session, error) {
	if !actor.IsTrainer() {
		return nil, ErrForbidden
	}
	start, end := input.StartAt.UTC(), input.EndAt.UTC()
	if err := validateWindow(start, end, s.now()); err != nil {
		return nil, err
	}

	var session *models.Session
	var event *models.SessionEvent
	var notified []int64
	err := s.tx.run(ctx, func(tx pgx.Tx) error {
		stores := s.stores(tx)
		sessions, participants, events := stores.sessions, stores.participants, stores.events

		if err := sessions.LockTrainer(ctx, actor.ID); err != nil {
			return err
		}
		locked, err := sessions.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return notFoundOr(err, sessionNotFound(sessionID))
		}
		if err := ensureOwnedBy(actor, locked); err != nil {
			return err
		}
		if !locked.IsActive() {
			return fmt.Errorf("%w: %s sessions cannot be rescheduled", ErrInvalidState, locked.Status)
		}

		update := repository.UpdateSessionInput{
			StartAt:       &start,
			EndAt:         &end,
			RescheduledBy: &actor.ID,
		}
		if input.Location != nil || input.OnlineLink != nil {
			location, onlineLink, err := validateVenue(locked.Kind, mergeVenue(input.Location, locked.Location), mergeVenue(input.OnlineLink, locked.OnlineLink))
			if err != nil {
				return err
			}
			update.Location = location
			update.OnlineLink = onlineLink
		}

		if err := s.ensureNoConflict(ctx, sessions, actor.ID, start, end, sessionID); err != nil {
			return err
		}

		updated, err := sessions.Update(ctx, sessionID, locked.Version, update)
		if err != nil {
			return s.overlapViolationOr(err)
		}

		// Participants keep their status at the new time; they are only
		// flagged so the notification side can tell them.
		userIDs, err := participants.MarkForRenotification(ctx, sessionID)
		if err != nil {
			return err
		}

		appended, err := events.Append(ctx, sessionID, models.EventSessionRescheduled, actor.ID,
			fmt.Sprintf("rescheduled from %s to %s", formatWindow(locked.StartAt, locked.EndAt), formatWindow(start, end)))
		if err != nil {
			return err
		}

		session = updated
		event = appended
		notified = userIDs
		return nil
	})
	if err != nil {
		return nil, err
	}

	event.Recipients = append([]int64{actor.ID}, notified...)
	s.notifier.Notify(*event)
	log.Info().
		Int64("session_id", sessionID).
		Int("participants_flagged", len(notified)).
		Msg("session rescheduled")
	return session, nil
}

func (s *SchedulingService) CancelSession(
	ctx context.Context,
	actor Actor,
	sessionID int64,
	reason string,
) (*models.Session, error) {
	if !actor.IsTrainer() {
		return nil, ErrForbidden
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validationError("reason is required")
	}
	if len(reason) > maxReasonLength {
		return nil, validationError("reason must be at most %d characters", maxReasonLength)
	}

	var session *models.Session
	var event *models.SessionEvent
	var notified []int64
	err := s.tx.run(ctx, func(tx pgx.Tx) error {
		stores := s.stores(tx)
		sessions, events := stores.sessions, stores.events

		locked, err := sessions.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return notFoundOr(err, sessionNotFound(sessionID))
		}
		if err := ensureOwnedBy(actor, locked); err != nil {
			return err
		}
		if !locked.IsActive() {
			return fmt.Errorf("%w: session is already %s", ErrInvalidState, locked.Status)
		}

		cancelled, err := sessions.Cancel(ctx, sessionID, locked.Version, reason, actor.ID)
		if err != nil {
			return err
		}
		userIDs, err := s.roster.RemoveOnCancel(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		appended, err := events.Append(ctx, sessionID, models.EventSessionCancelled, actor.ID, reason)
		if err != nil {
			return err
		}

		session = cancelled
		event = appended
		notified = userIDs
		return nil
	})
	if err != nil {
		return nil, err
	}

	event.Recipients = append([]int64{actor.ID}, notified...)
	s.notifier.Notify(*event)
	log.Info().
		Int64("session_id", sessionID).
		Int("participants_flagged", len(notified)).
		Msg("session cancelled")
	return session, nil
}

func (s *SchedulingService) EditCapacity(
	ctx context.Context,
	actor Actor,
	sessionID int64,
	newMaxParticipants int,
) (*models.Session, error) {
	if !actor.IsTrainer() {
		return nil, ErrForbidden
	}
	if err := validateCapacity(newMaxParticipants); err != nil {
		return nil, err
	}

	var session *models.Session
	var event *models.SessionEvent
	err := s.tx.run(ctx, func(tx pgx.Tx) error {
		stores := s.stores(tx)
		sessions, events := stores.sessions, stores.events

		locked, err := sessions.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return notFoundOr(err, sessionNotFound(sessionID))
		}
		if err := ensureOwnedBy(actor, locked); err != nil {
			return err
		}
		if !locked.IsActive() {
			return fmt.Errorf("%w: session is %s", ErrInvalidState, locked.Status)
		}
		if newMaxParticipants < locked.CurrentParticipants {
			return fmt.Errorf("%w: %d participants already approved", ErrCapacityBelowCurrent, locked.CurrentParticipants)
		}

		updated, err := sessions.Update(ctx, sessionID, locked.Version, repository.UpdateSessionInput{
			MaxParticipants: &newMaxParticipants,
		})
		if err != nil {
			if repository.IsCheckViolation(err, repository.ConstraintCapacity) {
				return ErrCapacityBelowCurrent
			}
			return err
		}
		appended, err := events.Append(ctx, sessionID, models.EventCapacityChanged, actor.ID,
			fmt.Sprintf("capacity changed from %d to %d", locked.MaxParticipants, newMaxParticipants))
		if err != nil {
			return err
		}

		session = updated
		event = appended
		return nil
	})
	if err != nil {
		return nil, err
	}

	event.Recipients = []int64{actor.ID}
	s.notifier.Notify(*event)
	return session, nil
}

// CompleteSession closes an active session whose end has passed.
func (s *SchedulingService) CompleteSession(
	ctx context.Context,
	actor Actor,
	sessionID int64,
) (*models.Session, error) {
	if !actor.IsTrainer() {
		return nil, ErrForbidden
	}

	var session *models.Session
	var event *models.SessionEvent
	err := s.tx.run(ctx, func(tx pgx.Tx) error {
		stores := s.stores(tx)
		sessions, events := stores.sessions, stores.events

		locked, err := sessions.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return notFoundOr(err, sessionNotFound(sessionID))
		}
		if err := ensureOwnedBy(actor, locked); err != nil {
			return err
		}
		if !locked.IsActive() {
			return fmt.Errorf("%w: session is %s", ErrInvalidState, locked.Status)
		}
		if !locked.HasEnded(s.now()) {
			return fmt.Errorf("%w: session has not ended yet", ErrInvalidState)
		}

		completed, err := sessions.UpdateStatusIfCurrent(ctx, sessionID, locked.Version,
			models.SessionStatusActive, models.SessionStatusCompleted)
		if err != nil {
			return err
		}
		appended, err := events.Append(ctx, sessionID, models.EventSessionCompleted, actor.ID, "")
		if err != nil {
			return err
		}

		session = completed
		event = appended
		return nil
	})
	if err != nil {
		return nil, err
	}

	event.Recipients = []int64{actor.ID}
	s.notifier.Notify(*event)
	return session, nil
}

func (s *SchedulingService) GetSession(ctx context.Context, sessionID int64) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, notFoundOr(err, sessionNotFound(sessionID))
	}
	return session, nil
}

func (s *SchedulingService) ListSessionsForTrainer(
	ctx context.Context,
	trainerID int64,
	filter repository.SessionListFilter,
) ([]models.Session, error) {
	if trainerID <= 0 {
		return nil, validationError("trainer id must be positive")
	}
	filter, err := s.normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	return s.sessions.ListByTrainer(ctx, trainerID, filter)
}

func (s *SchedulingService) ListActiveSessions(
	ctx context.Context,
	filter repository.SessionListFilter,
) ([]models.Session, error) {
	filter, err := s.normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	return s.sessions.ListActive(ctx, filter)
}

func (s *SchedulingService) ListSessionEvents(
	ctx context.Context,
	actor Actor,
	sessionID int64,
) ([]models.SessionEvent, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := ensureOwnedBy(actor, session); err != nil {
		return nil, err
	}
	return s.events.ListBySession(ctx, sessionID)
}

// CheckAvailability is the advisory, lock-free form of the conflict check.
func (s *SchedulingService) CheckAvailability(
	ctx context.Context,
	trainerID int64,
	start time.Time,
	end time.Time,
) (bool, error) {
	if trainerID <= 0 {
		return false, validationError("trainer id must be positive")
	}
	if !end.After(start) {
		return false, validationError("end must be after start")
	}
	conflict, err := NewConflictChecker(s.sessions).HasConflict(ctx, trainerID, start.UTC(), end.UTC(), 0)
	if err != nil {
		return false, err
	}
	return !conflict, nil
}

func (s *SchedulingService) ensureNoConflict(
	ctx context.Context,
	sessions trainerScheduleReader,
	trainerID int64,
	start time.Time,
	end time.Time,
	excludeSessionID int64,
) error {
	conflict, err := NewConflictChecker(sessions).FindConflict(ctx, trainerID, start, end, excludeSessionID)
	if err != nil {
		return err
	}
	if conflict != nil {
		s.metrics.RecordSchedulingConflict()
		return fmt.Errorf("%w: overlaps session %d (%s)", ErrSchedulingConflict, conflict.ID, formatWindow(conflict.StartAt, conflict.EndAt))
	}
	return nil
}

// overlapViolationOr covers the window between the conflict query and the
// insert that the advisory lock does not (writes from outside this service).
func (s *SchedulingService) overlapViolationOr(err error) error {
	if repository.IsExclusionViolation(err, repository.ConstraintNoOverlap) {
		s.metrics.RecordSchedulingConflict()
		return ErrSchedulingConflict
	}
	return err
}

func (s *SchedulingService) normalizeFilter(filter repository.SessionListFilter) (repository.SessionListFilter, error) {
	switch strings.TrimSpace(filter.Timeframe) {
	case "", "upcoming", "past":
	default:
		return filter, validationError("timeframe must be upcoming or past")
	}
	switch strings.TrimSpace(filter.Status) {
	case "", models.SessionStatusActive, models.SessionStatusCancelled, models.SessionStatusCompleted:
	default:
		return filter, validationError("status must be active, cancelled or completed")
	}
	if strings.TrimSpace(filter.Kind) != "" {
		kind, err := normalizeKind(filter.Kind)
		if err != nil {
			return filter, err
		}
		filter.Kind = kind
	}
	filter.Now = s.now()
	return filter, nil
}

// mergeVenue prefers the requested value and falls back to the stored one.
func mergeVenue(requested, stored *string) *string {
	if requested != nil {
		return requested
	}
	return stored
}
