package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/GymSessionsBack/internal/models"
)

const participantColumns = `
	id, session_id, user_id, user_name, user_email, status,
	needs_renotification, joined_at, decided_at, decided_by
`

type CreateParticipantInput struct {
	SessionID int64
	UserID    int64
	UserName  string
	UserEmail string
	Status    string
}

type ParticipantRepository struct {
	db DBTX
}

func NewParticipantRepository(db DBTX) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func scanParticipant(row pgx.Row) (*models.ParticipantEntry, error) {
	var entry models.ParticipantEntry
	err := row.Scan(
		&entry.ID,
		&entry.SessionID,
		&entry.UserID,
		&entry.UserName,
		&entry.UserEmail,
		&entry.Status,
		&entry.NeedsRenotification,
		&entry.JoinedAt,
		&entry.DecidedAt,
		&entry.DecidedBy,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *ParticipantRepository) Create(
	ctx context.Context,
	input CreateParticipantInput,
) (*models.ParticipantEntry, error) {
	query := `
		INSERT INTO session_participants (session_id, user_id, user_name, user_email, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + participantColumns

	return scanParticipant(r.db.QueryRow(
		ctx,
		query,
		input.SessionID,
		input.UserID,
		input.UserName,
		input.UserEmail,
		input.Status,
	))
}

// GetForUpdate returns the entry only if it belongs to sessionID.
func (r *ParticipantRepository) GetForUpdate(
	ctx context.Context,
	sessionID int64,
	participantID int64,
) (*models.ParticipantEntry, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM session_participants
		WHERE id = $1 AND session_id = $2
		FOR UPDATE
	`
	return scanParticipant(r.db.QueryRow(ctx, query, participantID, sessionID))
}

// FindLive returns the member's pending or approved entry for the session.
func (r *ParticipantRepository) FindLive(
	ctx context.Context,
	sessionID int64,
	userID int64,
) (*models.ParticipantEntry, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM session_participants
		WHERE session_id = $1 AND user_id = $2 AND status <> 'rejected'
	`
	return scanParticipant(r.db.QueryRow(ctx, query, sessionID, userID))
}

func (r *ParticipantRepository) ListBySession(
	ctx context.Context,
	sessionID int64,
	status string,
) ([]models.ParticipantEntry, error) {
	args := []any{sessionID}
	query := `
		SELECT ` + participantColumns + `
		FROM session_participants
		WHERE session_id = $1
	`
	if status = strings.TrimSpace(status); status != "" {
		args = append(args, status)
		query += ` AND status = $2`
	}
	query += ` ORDER BY joined_at ASC, id ASC`

	return r.list(ctx, query, args...)
}

func (r *ParticipantRepository) list(ctx context.Context, query string, args ...any) ([]models.ParticipantEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.ParticipantEntry, 0)
	for rows.Next() {
		entry, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// UpdateStatusIfCurrent moves an entry between statuses and returns
// pgx.ErrNoRows when the entry is no longer in currentStatus.
func (r *ParticipantRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	participantID int64,
	currentStatus string,
	nextStatus string,
	decidedBy int64,
) (*models.ParticipantEntry, error) {
	query := `
		UPDATE session_participants
		SET status = $3, decided_at = NOW(), decided_by = $4
		WHERE id = $1 AND status = $2
		RETURNING ` + participantColumns

	return scanParticipant(r.db.QueryRow(ctx, query, participantID, currentStatus, nextStatus, decidedBy))
}

// MarkForRenotification flags every live entry of the session and returns
// the affected member ids.
func (r *ParticipantRepository) MarkForRenotification(ctx context.Context, sessionID int64) ([]int64, error) {
	query := `
		UPDATE session_participants
		SET needs_renotification = TRUE
		WHERE session_id = $1 AND status <> 'rejected'
		RETURNING user_id
	`
	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	userIDs := make([]int64, 0)
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return userIDs, nil
}

// ListBookingsByUser returns the member's entries joined with their sessions.
func (r *ParticipantRepository) ListBookingsByUser(
	ctx context.Context,
	userID int64,
	status string,
) ([]models.Booking, error) {
	args := []any{userID}
	query := `
		SELECT
			p.id, p.session_id, p.user_id, p.user_name, p.user_email, p.status,
			p.needs_renotification, p.joined_at, p.decided_at, p.decided_by,
			s.id, s.title, s.trainer_id, s.trainer_name, s.kind, s.location, s.online_link,
			s.start_at, s.end_at, s.max_participants, s.current_participants, s.requires_approval,
			s.status, s.cancellation_reason, s.cancelled_by, s.cancelled_at,
			s.rescheduled_by, s.rescheduled_at, s.description, s.version, s.created_at, s.updated_at
		FROM session_participants p
		JOIN training_sessions s ON s.id = p.session_id
		WHERE p.user_id = $1
	`
	if status = strings.TrimSpace(status); status != "" {
		args = append(args, status)
		query += ` AND p.status = $2`
	}
	query += ` ORDER BY s.start_at ASC, p.id ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		var b models.Booking
		p := &b.Participant
		s := &b.Session
		if err := rows.Scan(
			&p.ID, &p.SessionID, &p.UserID, &p.UserName, &p.UserEmail, &p.Status,
			&p.NeedsRenotification, &p.JoinedAt, &p.DecidedAt, &p.DecidedBy,
			&s.ID, &s.Title, &s.TrainerID, &s.TrainerName, &s.Kind, &s.Location, &s.OnlineLink,
			&s.StartAt, &s.EndAt, &s.MaxParticipants, &s.CurrentParticipants, &s.RequiresApproval,
			&s.Status, &s.CancellationReason, &s.CancelledBy, &s.CancelledAt,
			&s.RescheduledBy, &s.RescheduledAt, &s.Description, &s.Version, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}
