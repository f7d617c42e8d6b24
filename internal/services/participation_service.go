package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/saeid-a/GymSessionsBack/internal/models"
	"github.com/saeid-a/GymSessionsBack/internal/repository"
)

type sessionReader interface {
	GetByID(ctx context.Context, sessionID int64) (*models.Session, error)
}

type rosterReader interface {
	ListBySession(ctx context.Context, sessionID int64, status string) ([]models.ParticipantEntry, error)
	ListBookingsByUser(ctx context.Context, userID int64, status string) ([]models.Booking, error)
}

type Options struct {
	TxMaxAttempts int
	// DefaultRequiresApproval applies when a create request leaves the
	// approval policy unset.
	DefaultRequiresApproval bool
	Notifier                Notifier
	Metrics                 MetricsRecorder
	Now                     func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TxMaxAttempts < 1 {
		o.TxMaxAttempts = 5
	}
	if o.Notifier == nil {
		o.Notifier = nopNotifier{}
	}
	if o.Metrics == nil {
		o.Metrics = nopMetrics{}
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	return o
}

type ParticipationService struct {
	tx       *txRunner
	sessions sessionReader
	roster   rosterReader
	gate     *PlanGate
	stores   storeFactory
	notifier Notifier
	metrics  MetricsRecorder
	now      func() time.Time
}

func NewParticipationService(
	db txBeginner,
	sessions sessionReader,
	roster rosterReader,
	gate *PlanGate,
	opts Options,
) *ParticipationService {
	opts = opts.withDefaults()
	return &ParticipationService{
		tx:       newTxRunner(db, opts.TxMaxAttempts, opts.Metrics),
		sessions: sessions,
		roster:   roster,
		gate:     gate,
		stores:   repositoryStores,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
}

type JoinSessionInput struct {
	UserName  string
	UserEmail string
}

func (s *ParticipationService) JoinSession(
	ctx context.Context,
	actor Actor,
	sessionID int64,
	input JoinSessionInput,
) (*models.ParticipantEntry, error) {
	entry, err := s.join(ctx, actor, sessionID, input)
	s.metrics.RecordJoin(outcomeLabel("joined", err))
	return entry, err
}

func (s *ParticipationService) join(
	ctx context.Context,
	actor Actor,
	sessionID int64,
	input JoinSessionInput,
) (*models.ParticipantEntry, error) {
	if !actor.IsMember() {
		return nil, ErrForbidden
	}
	userName, userEmail, err := validateMemberContact(
		firstNonEmpty(input.UserName, actor.Name),
		firstNonEmpty(input.UserEmail, actor.Email),
	)
	if err != nil {
		return nil, err
	}

	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := checkJoinable(session, s.now()); err != nil {
		return nil, err
	}

	// The plan projections live outside the roster, so they are read before
	// the transaction. The verdict applies only after the duplicate check.
	decision, err := s.gate.Evaluate(ctx, actor.ID, session.TrainerID)
	if err != nil {
		return nil, err
	}

	var entry *models.ParticipantEntry
	var event *models.SessionEvent
	err = s.tx.run(ctx, func(tx pgx.Tx) error {
		stores := s.stores(tx)
		sessions, participants, events := stores.sessions, stores.participants, stores.events

		locked, err := sessions.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return notFoundOr(err, sessionNotFound(sessionID))
		}
		if err := checkJoinable(locked, s.now()); err != nil {
			return err
		}

		if _, err := participants.FindLive(ctx, sessionID, actor.ID); err == nil {
			return ErrAlreadyJoined
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if decision.Gated && !decision.Allowed {
			return fmt.Errorf("%w: trainer does not accept the member's current plan", ErrPlanIncompatible)
		}

		if err := checkSeatAvailable(locked); err != nil {
			return err
		}

		status := models.ParticipantStatusPending
		if !locked.RequiresApproval {
			status = models.ParticipantStatusApproved
		}
		created, err := participants.Create(ctx, repository.CreateParticipantInput{
			SessionID: sessionID,
			UserID:    actor.ID,
			UserName:  userName,
			UserEmail: userEmail,
			Status:    status,
		})
		if err != nil {
			if repository.IsUniqueViolation(err, repository.ConstraintLiveParticipant) {
				return ErrAlreadyJoined
			}
			return err
		}

		if status == models.ParticipantStatusApproved {
			if _, err := sessions.RecountParticipants(ctx, sessionID, locked.Version); err != nil {
				return capacityViolationOr(err)
			}
		}

		appended, err := events.Append(ctx, sessionID, models.EventParticipantJoined, actor.ID,
			fmt.Sprintf("participant %d joined as %s", created.ID, status))
		if err != nil {
			return err
		}

		entry = created
		event = appended
		return nil
	})
	if err != nil {
		return nil, err
	}

	event.Recipients = []int64{session.TrainerID, actor.ID}
	s.notifier.Notify(*event)
	log.Info().
		Int64("session_id", sessionID).
		Int64("user_id", actor.ID).
		Str("status", entry.Status).
		Msg("participant joined")
	return entry, nil
}

func (s *ParticipationService) ApproveParticipant(
	ctx context.Context,
	actor Actor,
	sessionID int64,
	participantID int64,
) (*models.ParticipantEntry, error) {
	return s.decide(ctx, actor, sessionID, participantID, models.ParticipantStatusApproved)
}

func (s *ParticipationService) RejectParticipant(
	ctx context.Context,
	actor Actor,
	sessionID int64,
	participantID int64,
) (*models.ParticipantEntry, error) {
	return s.decide(ctx, actor, sessionID, participantID, models.ParticipantStatusRejected)
}

func (s *ParticipationService) decide(
	ctx context.Context,
	actor Actor,
	sessionID int64,
	participantID int64,
	nextStatus string,
) (*models.ParticipantEntry, error) {
	var entry *models.ParticipantEntry
	var event *models.SessionEvent
	err := s.tx.run(ctx, func(tx pgx.Tx) error {
		stores := s.stores(tx)
		sessions, participants, events := stores.sessions, stores.participants, stores.events

		locked, err := sessions.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return notFoundOr(err, sessionNotFound(sessionID))
		}
		if err := ensureOwnedBy(actor, locked); err != nil {
			return err
		}
		if nextStatus == models.ParticipantStatusApproved {
			if err := checkJoinable(locked, s.now()); err != nil {
				return err
			}
		} else if !locked.IsActive() {
			return fmt.Errorf("%w: session is %s", ErrSessionClosed, locked.Status)
		}

		current, err := participants.GetForUpdate(ctx, sessionID, participantID)
		if err != nil {
			return notFoundOr(err, participantNotFound(participantID))
		}
		if err := ensureDecidable(current); err != nil {
			return err
		}
		if nextStatus == models.ParticipantStatusApproved {
			// The session may have filled up since the request was made.
			if err := checkSeatAvailable(locked); err != nil {
				return err
			}
		}

		updated, err := participants.UpdateStatusIfCurrent(
			ctx,
			participantID,
			models.ParticipantStatusPending,
			nextStatus,
			actor.ID,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvalidState
			}
			return err
		}

		if nextStatus == models.ParticipantStatusApproved {
			if _, err := sessions.RecountParticipants(ctx, sessionID, locked.Version); err != nil {
				return capacityViolationOr(err)
			}
		}

		eventType := models.EventParticipantApproved
		if nextStatus == models.ParticipantStatusRejected {
			eventType = models.EventParticipantRejected
		}
		appended, err := events.Append(ctx, sessionID, eventType, actor.ID,
			fmt.Sprintf("participant %d %s", participantID, nextStatus))
		if err != nil {
			return err
		}

		entry = updated
		event = appended
		return nil
	})
	s.metrics.RecordDecision(outcomeLabel(nextStatus, err))
	if err != nil {
		return nil, err
	}

	event.Recipients = []int64{actor.ID, entry.UserID}
	s.notifier.Notify(*event)
	return entry, nil
}

func (s *ParticipationService) ListParticipants(
	ctx context.Context,
	actor Actor,
	sessionID int64,
	status string,
) ([]models.ParticipantEntry, error) {
	status, err := normalizeParticipantStatus(status)
	if err != nil {
		return nil, err
	}
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := ensureOwnedBy(actor, session); err != nil {
		return nil, err
	}
	return s.roster.ListBySession(ctx, sessionID, status)
}

func (s *ParticipationService) ListMyBookings(
	ctx context.Context,
	actor Actor,
	status string,
) ([]models.Booking, error) {
	if !actor.IsMember() {
		return nil, ErrForbidden
	}
	status, err := normalizeParticipantStatus(status)
	if err != nil {
		return nil, err
	}
	return s.roster.ListBookingsByUser(ctx, actor.ID, status)
}

// Eligibility is the advisory form of the plan gate for UIs. JoinSession
// evaluates the gate again on its own.
func (s *ParticipationService) Eligibility(
	ctx context.Context,
	actor Actor,
	sessionID int64,
) (*models.Eligibility, error) {
	if !actor.IsMember() {
		return nil, ErrForbidden
	}
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	decision, err := s.gate.Evaluate(ctx, actor.ID, session.TrainerID)
	if err != nil {
		return nil, err
	}
	return &models.Eligibility{
		SessionID:     sessionID,
		CanJoin:       !decision.Gated || decision.Allowed,
		PlanGated:     decision.Gated,
		MemberPlan:    decision.MemberPlan,
		AcceptedPlans: decision.AcceptedPlans,
	}, nil
}

// RemoveOnCancel runs inside the cancelling transaction. Entries are kept for
// the audit trail and flagged for re-notification; the cancelled status of
// the session is what blocks further roster changes.
func (s *ParticipationService) RemoveOnCancel(
	ctx context.Context,
	db repository.DBTX,
	sessionID int64,
) ([]int64, error) {
	return s.stores(db).participants.MarkForRenotification(ctx, sessionID)
}

func (s *ParticipationService) getSession(ctx context.Context, sessionID int64) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, notFoundOr(err, sessionNotFound(sessionID))
	}
	return session, nil
}

func notFoundOr(err error, notFound error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	return err
}

// capacityViolationOr maps the table-level capacity check onto SessionFull.
func capacityViolationOr(err error) error {
	if repository.IsCheckViolation(err, repository.ConstraintCapacity) {
		return ErrSessionFull
	}
	return err
}

// outcomeLabel is the metrics label for an operation result: success on nil,
// otherwise the lower-cased error kind.
func outcomeLabel(success string, err error) string {
	if err == nil {
		return success
	}
	return strings.ToLower(ErrorKind(err))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
