package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/saeid-a/GymSessionsBack/internal/models"
	"github.com/saeid-a/GymSessionsBack/internal/repository"
)

// memStore is an in-memory stand-in for the session tables. It is also the
// txBeginner, and a rolled back transaction restores the state it began with.
type memStore struct {
	sessions     map[int64]models.Session
	participants map[int64]models.ParticipantEntry
	events       []models.SessionEvent
	lastID       int64
	begins       int
}

type memSnapshot struct {
	sessions     map[int64]models.Session
	participants map[int64]models.ParticipantEntry
	events       []models.SessionEvent
}

func newMemStore() *memStore {
	return &memStore{
		sessions:     map[int64]models.Session{},
		participants: map[int64]models.ParticipantEntry{},
	}
}

func (m *memStore) Begin(context.Context) (pgx.Tx, error) {
	m.begins++
	return &memTx{store: m, snapshot: m.snapshot()}, nil
}

func (m *memStore) stores(repository.DBTX) txStores {
	return txStores{
		sessions:     memSessions{m: m},
		participants: memParticipants{m: m},
		events:       memEvents{m: m},
	}
}

func (m *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		sessions:     make(map[int64]models.Session, len(m.sessions)),
		participants: make(map[int64]models.ParticipantEntry, len(m.participants)),
		events:       append([]models.SessionEvent(nil), m.events...),
	}
	for id, session := range m.sessions {
		snap.sessions[id] = session
	}
	for id, entry := range m.participants {
		snap.participants[id] = entry
	}
	return snap
}

func (m *memStore) restore(snap memSnapshot) {
	m.sessions = snap.sessions
	m.participants = snap.participants
	m.events = snap.events
}

func (m *memStore) nextID() int64 {
	m.lastID++
	return m.lastID
}

func (m *memStore) seedSession(session models.Session) models.Session {
	if session.ID == 0 {
		session.ID = m.nextID()
	}
	if session.Version == 0 {
		session.Version = 1
	}
	m.sessions[session.ID] = session
	return session
}

func (m *memStore) seedParticipant(entry models.ParticipantEntry) models.ParticipantEntry {
	if entry.ID == 0 {
		entry.ID = m.nextID()
	}
	m.participants[entry.ID] = entry
	return entry
}

func (m *memStore) sortedParticipants() []models.ParticipantEntry {
	entries := make([]models.ParticipantEntry, 0, len(m.participants))
	for _, entry := range m.participants {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

type memTx struct {
	pgx.Tx
	store    *memStore
	snapshot memSnapshot
	done     bool
}

func (t *memTx) Commit(context.Context) error {
	t.done = true
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if !t.done {
		t.store.restore(t.snapshot)
	}
	t.done = true
	return nil
}

func checkViolation(constraint string) error {
	return &pgconn.PgError{Code: "23514", ConstraintName: constraint}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

type memSessions struct {
	m *memStore
}

func (s memSessions) GetByID(_ context.Context, sessionID int64) (*models.Session, error) {
	session, ok := s.m.sessions[sessionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &session, nil
}

func (s memSessions) GetByIDForUpdate(ctx context.Context, sessionID int64) (*models.Session, error) {
	return s.GetByID(ctx, sessionID)
}

func (s memSessions) ListByTrainer(_ context.Context, trainerID int64, _ repository.SessionListFilter) ([]models.Session, error) {
	out := make([]models.Session, 0)
	for _, session := range s.m.sessions {
		if session.TrainerID == trainerID {
			out = append(out, session)
		}
	}
	return out, nil
}

func (s memSessions) ListActive(_ context.Context, _ repository.SessionListFilter) ([]models.Session, error) {
	out := make([]models.Session, 0)
	for _, session := range s.m.sessions {
		if session.IsActive() {
			out = append(out, session)
		}
	}
	return out, nil
}

func (s memSessions) ListActiveEndingAfter(_ context.Context, trainerID int64, after time.Time) ([]models.Session, error) {
	out := make([]models.Session, 0)
	for _, session := range s.m.sessions {
		if session.TrainerID == trainerID && session.IsActive() && session.EndAt.After(after) {
			out = append(out, session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (s memSessions) LockTrainer(context.Context, int64) error {
	return nil
}

func (s memSessions) Create(_ context.Context, input repository.CreateSessionInput) (*models.Session, error) {
	session := s.m.seedSession(models.Session{
		Title:            input.Title,
		TrainerID:        input.TrainerID,
		TrainerName:      input.TrainerName,
		Kind:             input.Kind,
		Location:         input.Location,
		OnlineLink:       input.OnlineLink,
		StartAt:          input.StartAt,
		EndAt:            input.EndAt,
		MaxParticipants:  input.MaxParticipants,
		RequiresApproval: input.RequiresApproval,
		Description:      input.Description,
		Status:           models.SessionStatusActive,
	})
	return &session, nil
}

// write applies a version-checked change the way the repository's
// conditional UPDATE does, including the capacity check constraint.
func (s memSessions) write(sessionID, expectedVersion int64, apply func(*models.Session) bool) (*models.Session, error) {
	session, ok := s.m.sessions[sessionID]
	if !ok || session.Version != expectedVersion || !apply(&session) {
		return nil, repository.ErrStaleVersion
	}
	if session.CurrentParticipants > session.MaxParticipants {
		return nil, checkViolation(repository.ConstraintCapacity)
	}
	session.Version++
	s.m.sessions[sessionID] = session
	return &session, nil
}

func (s memSessions) Update(_ context.Context, sessionID, expectedVersion int64, input repository.UpdateSessionInput) (*models.Session, error) {
	return s.write(sessionID, expectedVersion, func(session *models.Session) bool {
		if input.Title != nil {
			session.Title = *input.Title
		}
		if input.StartAt != nil {
			session.StartAt = *input.StartAt
		}
		if input.EndAt != nil {
			session.EndAt = *input.EndAt
		}
		if input.Location != nil {
			session.Location = input.Location
		}
		if input.OnlineLink != nil {
			session.OnlineLink = input.OnlineLink
		}
		if input.MaxParticipants != nil {
			session.MaxParticipants = *input.MaxParticipants
		}
		if input.Description != nil {
			session.Description = input.Description
		}
		if input.RescheduledBy != nil {
			session.RescheduledBy = input.RescheduledBy
		}
		return true
	})
}

func (s memSessions) Cancel(_ context.Context, sessionID, expectedVersion int64, reason string, cancelledBy int64) (*models.Session, error) {
	return s.write(sessionID, expectedVersion, func(session *models.Session) bool {
		if !session.IsActive() {
			return false
		}
		session.Status = models.SessionStatusCancelled
		session.CancellationReason = &reason
		session.CancelledBy = &cancelledBy
		return true
	})
}

func (s memSessions) UpdateStatusIfCurrent(_ context.Context, sessionID, expectedVersion int64, currentStatus, nextStatus string) (*models.Session, error) {
	return s.write(sessionID, expectedVersion, func(session *models.Session) bool {
		if session.Status != currentStatus {
			return false
		}
		session.Status = nextStatus
		return true
	})
}

func (s memSessions) RecountParticipants(_ context.Context, sessionID, expectedVersion int64) (*models.Session, error) {
	approved := 0
	for _, entry := range s.m.participants {
		if entry.SessionID == sessionID && entry.Status == models.ParticipantStatusApproved {
			approved++
		}
	}
	return s.write(sessionID, expectedVersion, func(session *models.Session) bool {
		session.CurrentParticipants = approved
		return true
	})
}

type memParticipants struct {
	m *memStore
}

func (p memParticipants) Create(_ context.Context, input repository.CreateParticipantInput) (*models.ParticipantEntry, error) {
	if _, err := p.FindLive(context.Background(), input.SessionID, input.UserID); err == nil {
		return nil, uniqueViolation(repository.ConstraintLiveParticipant)
	}
	entry := p.m.seedParticipant(models.ParticipantEntry{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		UserName:  input.UserName,
		UserEmail: input.UserEmail,
		Status:    input.Status,
		JoinedAt:  fixedNow(),
	})
	return &entry, nil
}

func (p memParticipants) GetForUpdate(_ context.Context, sessionID, participantID int64) (*models.ParticipantEntry, error) {
	entry, ok := p.m.participants[participantID]
	if !ok || entry.SessionID != sessionID {
		return nil, pgx.ErrNoRows
	}
	return &entry, nil
}

func (p memParticipants) FindLive(_ context.Context, sessionID, userID int64) (*models.ParticipantEntry, error) {
	for _, entry := range p.m.sortedParticipants() {
		if entry.SessionID == sessionID && entry.UserID == userID && entry.Status != models.ParticipantStatusRejected {
			return &entry, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (p memParticipants) UpdateStatusIfCurrent(_ context.Context, participantID int64, currentStatus, nextStatus string, decidedBy int64) (*models.ParticipantEntry, error) {
	entry, ok := p.m.participants[participantID]
	if !ok || entry.Status != currentStatus {
		return nil, pgx.ErrNoRows
	}
	decidedAt := fixedNow()
	entry.Status = nextStatus
	entry.DecidedAt = &decidedAt
	entry.DecidedBy = &decidedBy
	p.m.participants[participantID] = entry
	return &entry, nil
}

func (p memParticipants) MarkForRenotification(_ context.Context, sessionID int64) ([]int64, error) {
	userIDs := make([]int64, 0)
	for _, entry := range p.m.sortedParticipants() {
		if entry.SessionID != sessionID || entry.Status == models.ParticipantStatusRejected {
			continue
		}
		entry.NeedsRenotification = true
		p.m.participants[entry.ID] = entry
		userIDs = append(userIDs, entry.UserID)
	}
	return userIDs, nil
}

func (p memParticipants) ListBySession(_ context.Context, sessionID int64, status string) ([]models.ParticipantEntry, error) {
	out := make([]models.ParticipantEntry, 0)
	for _, entry := range p.m.sortedParticipants() {
		if entry.SessionID == sessionID && (status == "" || entry.Status == status) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (p memParticipants) ListBookingsByUser(_ context.Context, userID int64, status string) ([]models.Booking, error) {
	out := make([]models.Booking, 0)
	for _, entry := range p.m.sortedParticipants() {
		if entry.UserID == userID && (status == "" || entry.Status == status) {
			out = append(out, models.Booking{Participant: entry, Session: p.m.sessions[entry.SessionID]})
		}
	}
	return out, nil
}

type memEvents struct {
	m *memStore
}

func (e memEvents) Append(_ context.Context, sessionID int64, eventType string, actorID int64, note string) (*models.SessionEvent, error) {
	event := models.SessionEvent{
		ID:        fmt.Sprintf("evt-%d", len(e.m.events)+1),
		SessionID: sessionID,
		Type:      eventType,
		ActorID:   actorID,
		Note:      note,
		CreatedAt: fixedNow(),
	}
	e.m.events = append(e.m.events, event)
	return &event, nil
}

func (e memEvents) ListBySession(_ context.Context, sessionID int64) ([]models.SessionEvent, error) {
	out := make([]models.SessionEvent, 0)
	for _, event := range e.m.events {
		if event.SessionID == sessionID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (m *memStore) eventTypes(sessionID int64) []string {
	types := make([]string, 0)
	for _, event := range m.events {
		if event.SessionID == sessionID {
			types = append(types, event.Type)
		}
	}
	return types
}
