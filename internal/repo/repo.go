// Package repo is the remote itinerary gateway: all database access for
// itineraries, days, and items. Each resource has its own file with an
// interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trip-itinerary/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan helpers
// to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// mapError translates driver errors into domain sentinels.
// pgx.ErrNoRows becomes domain.ErrNotFound; a unique violation becomes
// domain.ErrConflict. Anything else is returned unchanged.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// setClause accumulates "col = @col" assignments for a partial UPDATE.
type setClause struct {
	cols []string
	args pgx.NamedArgs
}

func newSetClause() *setClause {
	return &setClause{args: pgx.NamedArgs{}}
}

func (s *setClause) add(col string, v any) {
	s.cols = append(s.cols, col+" = @"+col)
	s.args[col] = v
}

func (s *setClause) empty() bool { return len(s.cols) == 0 }

func (s *setClause) String() string { return strings.Join(s.cols, ", ") }

// clockArg converts an optional ClockTime to a value for a Postgres time column.
// nil becomes NULL.
func clockArg(c *domain.ClockTime) pgtype.Time {
	if c == nil {
		return pgtype.Time{}
	}
	return pgtype.Time{Microseconds: c.Duration().Microseconds(), Valid: true}
}

// clockFromPG converts a scanned time column back into an optional ClockTime.
func clockFromPG(t pgtype.Time) *domain.ClockTime {
	if !t.Valid {
		return nil
	}
	c := domain.ClockTime(t.Microseconds / 60_000_000)
	return &c
}

// dateArg converts an optional date to a value for a Postgres date column.
func dateArg(d *time.Time) pgtype.Date {
	if d == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *d, Valid: true}
}
