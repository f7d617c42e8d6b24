package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so a repository can be
// built over the pool for reads or over a transaction for writes.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrStaleVersion is returned by version-checked writes when the row changed
// after it was read.
var ErrStaleVersion = errors.New("stale session version")

const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
	pgCheckViolation     = "23514"
	pgSerialization      = "40001"
	pgDeadlock           = "40P01"
)

const (
	ConstraintLiveParticipant = "uq_session_participants_live"
	ConstraintNoOverlap       = "training_sessions_no_overlap"
	ConstraintCapacity        = "training_sessions_capacity"
)

func pgErrorCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

// IsUniqueViolation reports whether err is a unique violation on constraint.
// An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	code, name := pgErrorCode(err)
	return code == pgUniqueViolation && (constraint == "" || name == constraint)
}

func IsExclusionViolation(err error, constraint string) bool {
	code, name := pgErrorCode(err)
	return code == pgExclusionViolation && (constraint == "" || name == constraint)
}

func IsCheckViolation(err error, constraint string) bool {
	code, name := pgErrorCode(err)
	return code == pgCheckViolation && (constraint == "" || name == constraint)
}

// IsRetryable reports whether a transaction that failed with err can be
// replayed from the start.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrStaleVersion) {
		return true
	}
	code, _ := pgErrorCode(err)
	return code == pgSerialization || code == pgDeadlock
}
