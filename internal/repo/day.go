package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trip-itinerary/backend/internal/domain"
)

const dayColumns = `id, itinerary_id, day_number, date, title, created_at`

// DayRepo defines the persistence operations for itinerary Days.
// Writes are scoped by itineraryID to enforce ownership.
// Deleting a day cascades to its items at the database layer.
type DayRepo interface {
	// Create inserts one day and returns the persisted row.
	// Returns domain.ErrConflict if the itinerary already has a day on that date.
	Create(ctx context.Context, day domain.NewDay) (domain.Day, error)

	// CreateBatch inserts several days in a single round-trip.
	CreateBatch(ctx context.Context, days []domain.NewDay) error

	// Update writes the fields set in patch.
	// Returns domain.ErrNotFound if no day with that ID exists under that itinerary.
	Update(ctx context.Context, itineraryID, dayID uuid.UUID, patch domain.DayPatch) error

	// Delete removes a day and, by cascade, its items.
	// Returns domain.ErrNotFound if no day with that ID exists under that itinerary.
	Delete(ctx context.Context, itineraryID, dayID uuid.UUID) error
}

// pgDayRepo is the Postgres implementation of DayRepo.
type pgDayRepo struct {
	db db
}

// NewDayRepo constructs a DayRepo backed by the provided db connection.
func NewDayRepo(db db) DayRepo {
	return &pgDayRepo{db: db}
}

const insertDayQ = `
	INSERT INTO itinerary_days (itinerary_id, day_number, date, title)
	VALUES (@itinerary_id, @day_number, @date, @title)
	RETURNING ` + dayColumns

func newDayArgs(day domain.NewDay) pgx.NamedArgs {
	return pgx.NamedArgs{
		"itinerary_id": day.ItineraryID,
		"day_number":   day.DayNumber,
		"date":         dateArg(day.Date), // nil becomes NULL
		"title":        day.Title,
	}
}

func (r *pgDayRepo) Create(ctx context.Context, day domain.NewDay) (domain.Day, error) {
	result, err := scanDay(r.db.QueryRow(ctx, insertDayQ, newDayArgs(day)))
	if err != nil {
		return domain.Day{}, fmt.Errorf("repo.DayRepo.Create: %w", err)
	}
	result.Items = []domain.Item{}
	return result, nil
}

// CreateBatch queues one INSERT per day. pgx sends the batch as a single
// pipeline, which Postgres runs in one implicit transaction.
func (r *pgDayRepo) CreateBatch(ctx context.Context, days []domain.NewDay) error {
	if len(days) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, d := range days {
		b.Queue(insertDayQ, newDayArgs(d))
	}

	br := r.db.SendBatch(ctx, b)
	for range days {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("repo.DayRepo.CreateBatch: %w", mapError(err))
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("repo.DayRepo.CreateBatch: %w", mapError(err))
	}
	return nil
}

func (r *pgDayRepo) Update(ctx context.Context, itineraryID, dayID uuid.UUID, patch domain.DayPatch) error {
	set := newSetClause()
	if patch.DayNumber != nil {
		set.add("day_number", *patch.DayNumber)
	}
	if patch.Title.Set {
		set.add("title", patch.Title.Value)
	}
	if patch.Date.Set {
		set.add("date", dateArg(patch.Date.Value))
	}

	var q string
	if set.empty() {
		q = `SELECT id FROM itinerary_days WHERE id = @id AND itinerary_id = @itinerary_id`
	} else {
		q = `UPDATE itinerary_days SET ` + set.String() +
			` WHERE id = @id AND itinerary_id = @itinerary_id RETURNING id`
	}
	set.args["id"] = dayID
	set.args["itinerary_id"] = itineraryID

	var got pgtype.UUID
	if err := r.db.QueryRow(ctx, q, set.args).Scan(&got); err != nil {
		return fmt.Errorf("repo.DayRepo.Update: %w", mapError(err))
	}
	return nil
}

func (r *pgDayRepo) Delete(ctx context.Context, itineraryID, dayID uuid.UUID) error {
	const q = `DELETE FROM itinerary_days WHERE id = @id AND itinerary_id = @itinerary_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": dayID, "itinerary_id": itineraryID})
	if err != nil {
		return fmt.Errorf("repo.DayRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.DayRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanDay maps a single database row into a domain.Day.
// It handles the UUID and nullable date/title conversions.
func scanDay(s scanner) (domain.Day, error) {
	var (
		d     domain.Day
		id    pgtype.UUID
		itID  pgtype.UUID
		date  pgtype.Date
		title pgtype.Text
	)
	if err := s.Scan(&id, &itID, &d.DayNumber, &date, &title, &d.CreatedAt); err != nil {
		return domain.Day{}, mapError(err)
	}
	d.ID = uuid.UUID(id.Bytes)
	d.ItineraryID = uuid.UUID(itID.Bytes)
	if date.Valid {
		dt := date.Time
		d.Date = &dt
	}
	if title.Valid {
		t := title.String
		d.Title = &t
	}
	return d, nil
}
