package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trip-itinerary/backend/internal/domain"
)

const itemColumns = `id, day_id, title, location, description, start_time, end_time,
	position, image_url, created_by, created_at`

const qualifiedItemColumns = `i.id, i.day_id, i.title, i.location, i.description, i.start_time,
	i.end_time, i.position, i.image_url, i.created_by, i.created_at`

// ItemRepo defines the persistence operations for itinerary Items.
// Writes are scoped by dayID, and single reads by itineraryID, to enforce ownership.
type ItemRepo interface {
	// Create inserts an item at the given position and returns the persisted row.
	// Other rows of the day are not touched; shifting them is the caller's job.
	Create(ctx context.Context, dayID uuid.UUID, item domain.NewItem, position int) (domain.Item, error)

	// GetByID retrieves a single item of any day of the itinerary.
	// Returns domain.ErrNotFound if no item with that ID exists under that itinerary.
	GetByID(ctx context.Context, itineraryID, itemID uuid.UUID) (domain.Item, error)

	// Update writes the fields set in patch and returns the updated row.
	// Returns domain.ErrNotFound if no item with that ID exists under that day.
	Update(ctx context.Context, dayID, itemID uuid.UUID, patch domain.ItemPatch) (domain.Item, error)

	// Delete removes an item.
	// Returns domain.ErrNotFound if no item with that ID exists under that day.
	Delete(ctx context.Context, dayID, itemID uuid.UUID) error
}

// pgItemRepo is the Postgres implementation of ItemRepo.
type pgItemRepo struct {
	db db
}

// NewItemRepo constructs an ItemRepo backed by the provided db connection.
func NewItemRepo(db db) ItemRepo {
	return &pgItemRepo{db: db}
}

func (r *pgItemRepo) Create(ctx context.Context, dayID uuid.UUID, item domain.NewItem, position int) (domain.Item, error) {
	const q = `
		INSERT INTO itinerary_items
			(day_id, title, location, description, start_time, end_time, position, image_url, created_by)
		VALUES
			(@day_id, @title, @location, @description, @start_time, @end_time, @position, @image_url, @created_by)
		RETURNING ` + itemColumns

	args := pgx.NamedArgs{
		"day_id":      dayID,
		"title":       item.Title,
		"location":    item.Location, // nil becomes NULL
		"description": item.Description,
		"start_time":  clockArg(item.StartTime),
		"end_time":    clockArg(item.EndTime),
		"position":    position,
		"image_url":   item.ImageURL,
		"created_by":  item.CreatedBy,
	}

	result, err := scanItem(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Item{}, fmt.Errorf("repo.ItemRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgItemRepo) GetByID(ctx context.Context, itineraryID, itemID uuid.UUID) (domain.Item, error) {
	const q = `
		SELECT ` + qualifiedItemColumns + `
		FROM itinerary_items i
		JOIN itinerary_days d ON d.id = i.day_id
		WHERE i.id = @id AND d.itinerary_id = @itinerary_id`

	result, err := scanItem(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": itemID, "itinerary_id": itineraryID}))
	if err != nil {
		return domain.Item{}, fmt.Errorf("repo.ItemRepo.GetByID: %w", err)
	}
	return result, nil
}

// Update builds the SET list from the patch. An empty patch reads the row back.
func (r *pgItemRepo) Update(ctx context.Context, dayID, itemID uuid.UUID, patch domain.ItemPatch) (domain.Item, error) {
	if patch.IsEmpty() {
		const q = `SELECT ` + itemColumns + ` FROM itinerary_items WHERE id = @id AND day_id = @day_id`
		result, err := scanItem(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": itemID, "day_id": dayID}))
		if err != nil {
			return domain.Item{}, fmt.Errorf("repo.ItemRepo.Update: %w", err)
		}
		return result, nil
	}

	set := newSetClause()
	if patch.Title != nil {
		set.add("title", *patch.Title)
	}
	if patch.Location.Set {
		set.add("location", patch.Location.Value)
	}
	if patch.Description.Set {
		set.add("description", patch.Description.Value)
	}
	if patch.StartTime.Set {
		set.add("start_time", clockArg(patch.StartTime.Value))
	}
	if patch.EndTime.Set {
		set.add("end_time", clockArg(patch.EndTime.Value))
	}
	if patch.ImageURL.Set {
		set.add("image_url", patch.ImageURL.Value)
	}
	if patch.Position != nil {
		set.add("position", *patch.Position)
	}
	set.args["id"] = itemID
	set.args["day_id"] = dayID

	q := `UPDATE itinerary_items SET ` + set.String() +
		` WHERE id = @id AND day_id = @day_id RETURNING ` + itemColumns

	result, err := scanItem(r.db.QueryRow(ctx, q, set.args))
	if err != nil {
		return domain.Item{}, fmt.Errorf("repo.ItemRepo.Update: %w", err)
	}
	return result, nil
}

func (r *pgItemRepo) Delete(ctx context.Context, dayID, itemID uuid.UUID) error {
	const q = `DELETE FROM itinerary_items WHERE id = @id AND day_id = @day_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": itemID, "day_id": dayID})
	if err != nil {
		return fmt.Errorf("repo.ItemRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ItemRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanItem maps a single database row into a domain.Item.
func scanItem(s scanner) (domain.Item, error) {
	var (
		it          domain.Item
		id, dayID   pgtype.UUID
		createdBy   pgtype.UUID
		location    pgtype.Text
		description pgtype.Text
		imageURL    pgtype.Text
		start, end  pgtype.Time
	)
	err := s.Scan(&id, &dayID, &it.Title, &location, &description, &start, &end,
		&it.Position, &imageURL, &createdBy, &it.CreatedAt)
	if err != nil {
		return domain.Item{}, mapError(err)
	}

	it.ID = uuid.UUID(id.Bytes)
	it.DayID = uuid.UUID(dayID.Bytes)
	it.Location = textPtr(location)
	it.Description = textPtr(description)
	it.ImageURL = textPtr(imageURL)
	it.StartTime = clockFromPG(start)
	it.EndTime = clockFromPG(end)
	if createdBy.Valid {
		u := uuid.UUID(createdBy.Bytes)
		it.CreatedBy = &u
	}
	return it, nil
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}
