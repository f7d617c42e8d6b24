package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/saeid-a/GymSessionsBack/internal/models"
)

// Events are returned in insertion order. seq is an identity column, so
// events appended within one transaction keep the order they were written.
const listSessionEventsQuery = `
	SELECT id, session_id, event_type, actor_id, note, created_at
	FROM session_events
	WHERE session_id = $1
	ORDER BY seq ASC
`

type EventRepository struct {
	db DBTX
}

func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(
	ctx context.Context,
	sessionID int64,
	eventType string,
	actorID int64,
	note string,
) (*models.SessionEvent, error) {
	query := `
		INSERT INTO session_events (id, session_id, event_type, actor_id, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, session_id, event_type, actor_id, note, created_at
	`
	var event models.SessionEvent
	var id uuid.UUID
	err := r.db.QueryRow(ctx, query, uuid.New(), sessionID, eventType, actorID, note).Scan(
		&id,
		&event.SessionID,
		&event.Type,
		&event.ActorID,
		&event.Note,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	event.ID = id.String()
	return &event, nil
}

func (r *EventRepository) ListBySession(ctx context.Context, sessionID int64) ([]models.SessionEvent, error) {
	rows, err := r.db.Query(ctx, listSessionEventsQuery, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]models.SessionEvent, 0)
	for rows.Next() {
		var event models.SessionEvent
		var id uuid.UUID
		if err := rows.Scan(&id, &event.SessionID, &event.Type, &event.ActorID, &event.Note, &event.CreatedAt); err != nil {
			return nil, err
		}
		event.ID = id.String()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
