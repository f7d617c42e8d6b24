package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/GymSessionsBack/internal/models"
)

const sessionColumns = `
	id, title, trainer_id, trainer_name, kind, location, online_link,
	start_at, end_at, max_participants, current_participants, requires_approval,
	status, cancellation_reason, cancelled_by, cancelled_at,
	rescheduled_by, rescheduled_at, description, version, created_at, updated_at
`

type CreateSessionInput struct {
	Title            string
	TrainerID        int64
	TrainerName      string
	Kind             string
	Location         *string
	OnlineLink       *string
	StartAt          time.Time
	EndAt            time.Time
	MaxParticipants  int
	RequiresApproval bool
	Description      *string
}

// UpdateSessionInput carries the fields a trainer may change. Nil pointers
// leave the stored value untouched.
type UpdateSessionInput struct {
	Title           *string
	StartAt         *time.Time
	EndAt           *time.Time
	Location        *string
	OnlineLink      *string
	MaxParticipants *int
	Description     *string
	RescheduledBy   *int64
}

type SessionListFilter struct {
	TrainerID int64
	Status    string
	Kind      string
	Timeframe string
	Now       time.Time
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.Title,
		&session.TrainerID,
		&session.TrainerName,
		&session.Kind,
		&session.Location,
		&session.OnlineLink,
		&session.StartAt,
		&session.EndAt,
		&session.MaxParticipants,
		&session.CurrentParticipants,
		&session.RequiresApproval,
		&session.Status,
		&session.CancellationReason,
		&session.CancelledBy,
		&session.CancelledAt,
		&session.RescheduledBy,
		&session.RescheduledAt,
		&session.Description,
		&session.Version,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Create(
	ctx context.Context,
	input CreateSessionInput,
) (*models.Session, error) {
	query := `
		INSERT INTO training_sessions (
			title, trainer_id, trainer_name, kind, location, online_link,
			start_at, end_at, max_participants, requires_approval, status, description
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'active', $11)
		RETURNING ` + sessionColumns

	return scanSession(r.db.QueryRow(
		ctx,
		query,
		input.Title,
		input.TrainerID,
		input.TrainerName,
		input.Kind,
		input.Location,
		input.OnlineLink,
		input.StartAt,
		input.EndAt,
		input.MaxParticipants,
		input.RequiresApproval,
		input.Description,
	))
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM training_sessions WHERE id = $1`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

// GetByIDForUpdate locks the row until the surrounding transaction ends.
func (r *SessionRepository) GetByIDForUpdate(
	ctx context.Context,
	sessionID int64,
) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM training_sessions WHERE id = $1 FOR UPDATE`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) List(
	ctx context.Context,
	filter SessionListFilter,
) ([]models.Session, error) {
	args := []any{}
	whereParts := []string{}

	if filter.TrainerID > 0 {
		args = append(args, filter.TrainerID)
		whereParts = append(whereParts, fmt.Sprintf("trainer_id = $%d", len(args)))
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}
	if kind := strings.TrimSpace(filter.Kind); kind != "" {
		args = append(args, kind)
		whereParts = append(whereParts, fmt.Sprintf("kind = $%d", len(args)))
	}

	now := filter.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		args = append(args, now)
		whereParts = append(whereParts, fmt.Sprintf("end_at > $%d", len(args)))
	case "past":
		args = append(args, now)
		whereParts = append(whereParts, fmt.Sprintf("end_at <= $%d", len(args)))
	}

	where := "TRUE"
	if len(whereParts) > 0 {
		where = strings.Join(whereParts, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM training_sessions
		WHERE %s
		ORDER BY start_at ASC, id ASC
	`, sessionColumns, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepository) ListByTrainer(
	ctx context.Context,
	trainerID int64,
	filter SessionListFilter,
) ([]models.Session, error) {
	filter.TrainerID = trainerID
	return r.List(ctx, filter)
}

func (r *SessionRepository) ListActive(
	ctx context.Context,
	filter SessionListFilter,
) ([]models.Session, error) {
	filter.Status = models.SessionStatusActive
	return r.List(ctx, filter)
}

// Update applies input only if the stored version still equals
// expectedVersion, and bumps the version on success.
func (r *SessionRepository) Update(
	ctx context.Context,
	sessionID int64,
	expectedVersion int64,
	input UpdateSessionInput,
) (*models.Session, error) {
	rescheduled := input.StartAt != nil || input.EndAt != nil
	query := `
		UPDATE training_sessions
		SET title = COALESCE($3, title),
			start_at = COALESCE($4, start_at),
			end_at = COALESCE($5, end_at),
			location = COALESCE($6, location),
			online_link = COALESCE($7, online_link),
			max_participants = COALESCE($8, max_participants),
			description = COALESCE($9, description),
			rescheduled_by = CASE WHEN $10 THEN $11 ELSE rescheduled_by END,
			rescheduled_at = CASE WHEN $10 THEN NOW() ELSE rescheduled_at END,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING ` + sessionColumns

	session, err := scanSession(r.db.QueryRow(
		ctx,
		query,
		sessionID,
		expectedVersion,
		input.Title,
		input.StartAt,
		input.EndAt,
		input.Location,
		input.OnlineLink,
		input.MaxParticipants,
		input.Description,
		rescheduled,
		input.RescheduledBy,
	))
	return session, staleOnNoRows(err)
}

func (r *SessionRepository) Cancel(
	ctx context.Context,
	sessionID int64,
	expectedVersion int64,
	reason string,
	cancelledBy int64,
) (*models.Session, error) {
	query := `
		UPDATE training_sessions
		SET status = 'cancelled',
			cancellation_reason = $3,
			cancelled_by = $4,
			cancelled_at = NOW(),
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $2 AND status = 'active'
		RETURNING ` + sessionColumns

	session, err := scanSession(r.db.QueryRow(ctx, query, sessionID, expectedVersion, reason, cancelledBy))
	return session, staleOnNoRows(err)
}

func (r *SessionRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	sessionID int64,
	expectedVersion int64,
	currentStatus string,
	nextStatus string,
) (*models.Session, error) {
	query := `
		UPDATE training_sessions
		SET status = $4, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND status = $3
		RETURNING ` + sessionColumns

	session, err := scanSession(r.db.QueryRow(ctx, query, sessionID, expectedVersion, currentStatus, nextStatus))
	return session, staleOnNoRows(err)
}

// RecountParticipants rewrites the denormalized counter from the roster.
func (r *SessionRepository) RecountParticipants(
	ctx context.Context,
	sessionID int64,
	expectedVersion int64,
) (*models.Session, error) {
	query := `
		UPDATE training_sessions
		SET current_participants = (
				SELECT COUNT(*)
				FROM session_participants
				WHERE session_id = $1 AND status = 'approved'
			),
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING ` + sessionColumns

	session, err := scanSession(r.db.QueryRow(ctx, query, sessionID, expectedVersion))
	return session, staleOnNoRows(err)
}

// ListActiveEndingAfter returns the trainer's active sessions that end
// strictly after the given instant, ordered by start.
func (r *SessionRepository) ListActiveEndingAfter(
	ctx context.Context,
	trainerID int64,
	after time.Time,
) ([]models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM training_sessions
		WHERE trainer_id = $1
		  AND status = 'active'
		  AND end_at > $2
		ORDER BY start_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, trainerID, after)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// LockTrainer serializes schedule writes for one trainer until the
// surrounding transaction ends.
func (r *SessionRepository) LockTrainer(ctx context.Context, trainerID int64) error {
	_, err := r.db.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", trainerID)
	return err
}

func staleOnNoRows(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrStaleVersion
	}
	return err
}
