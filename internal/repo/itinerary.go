package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trip-itinerary/backend/internal/domain"
)

// ItineraryRepo defines the persistence operations for Itineraries.
// The store depends on this interface, not the concrete Postgres implementation,
// which allows the store to be unit-tested with a fake.
type ItineraryRepo interface {
	// GetTreeByGroup returns the itinerary of a group with its days (ordered by
	// day_number) and each day's items (ordered by position).
	// Returns domain.ErrNotFound if the group has no itinerary yet.
	GetTreeByGroup(ctx context.Context, groupID uuid.UUID) (domain.Itinerary, error)

	// GetTree is GetTreeByGroup keyed by the itinerary's own ID.
	GetTree(ctx context.Context, id uuid.UUID) (domain.Itinerary, error)

	// Create inserts an empty itinerary for groupID and returns the persisted row.
	// Returns domain.ErrConflict if the group already has one.
	Create(ctx context.Context, groupID uuid.UUID) (domain.Itinerary, error)
}

// pgItineraryRepo is the Postgres implementation of ItineraryRepo.
type pgItineraryRepo struct {
	db db
}

// NewItineraryRepo constructs an ItineraryRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewItineraryRepo(db db) ItineraryRepo {
	return &pgItineraryRepo{db: db}
}

// GetTreeByGroup fetches the itinerary row for a group, then its days and items.
func (r *pgItineraryRepo) GetTreeByGroup(ctx context.Context, groupID uuid.UUID) (domain.Itinerary, error) {
	const q = `
		SELECT id, group_id, created_at
		FROM itineraries
		WHERE group_id = @group_id`

	it, err := scanItinerary(r.db.QueryRow(ctx, q, pgx.NamedArgs{"group_id": groupID}))
	if err != nil {
		return domain.Itinerary{}, fmt.Errorf("repo.ItineraryRepo.GetTreeByGroup: %w", err)
	}
	if it.Days, err = r.loadDays(ctx, it.ID); err != nil {
		return domain.Itinerary{}, fmt.Errorf("repo.ItineraryRepo.GetTreeByGroup: %w", err)
	}
	return it, nil
}

// GetTree fetches an itinerary by primary key with its days and items.
func (r *pgItineraryRepo) GetTree(ctx context.Context, id uuid.UUID) (domain.Itinerary, error) {
	const q = `
		SELECT id, group_id, created_at
		FROM itineraries
		WHERE id = @id`

	it, err := scanItinerary(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Itinerary{}, fmt.Errorf("repo.ItineraryRepo.GetTree: %w", err)
	}
	if it.Days, err = r.loadDays(ctx, it.ID); err != nil {
		return domain.Itinerary{}, fmt.Errorf("repo.ItineraryRepo.GetTree: %w", err)
	}
	return it, nil
}

// Create inserts a new itinerary row for a group.
func (r *pgItineraryRepo) Create(ctx context.Context, groupID uuid.UUID) (domain.Itinerary, error) {
	const q = `
		INSERT INTO itineraries (group_id)
		VALUES (@group_id)
		RETURNING id, group_id, created_at`

	it, err := scanItinerary(r.db.QueryRow(ctx, q, pgx.NamedArgs{"group_id": groupID}))
	if err != nil {
		return domain.Itinerary{}, fmt.Errorf("repo.ItineraryRepo.Create: %w", err)
	}
	return it, nil
}

// loadDays returns the days of an itinerary ordered by day_number, each carrying
// its items ordered by position. Two queries; items are grouped in memory.
func (r *pgItineraryRepo) loadDays(ctx context.Context, itineraryID uuid.UUID) ([]domain.Day, error) {
	const daysQ = `
		SELECT ` + dayColumns + `
		FROM itinerary_days
		WHERE itinerary_id = @itinerary_id
		ORDER BY day_number, created_at`

	rows, err := r.db.Query(ctx, daysQ, pgx.NamedArgs{"itinerary_id": itineraryID})
	if err != nil {
		return nil, fmt.Errorf("days: %w", err)
	}
	days, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Day, error) {
		return scanDay(row)
	})
	if err != nil {
		return nil, fmt.Errorf("days: scan: %w", err)
	}

	const itemsQ = `
		SELECT ` + qualifiedItemColumns + `
		FROM itinerary_items i
		JOIN itinerary_days d ON d.id = i.day_id
		WHERE d.itinerary_id = @itinerary_id
		ORDER BY i.position, i.created_at`

	rows, err = r.db.Query(ctx, itemsQ, pgx.NamedArgs{"itinerary_id": itineraryID})
	if err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Item, error) {
		return scanItem(row)
	})
	if err != nil {
		return nil, fmt.Errorf("items: scan: %w", err)
	}

	byDay := make(map[uuid.UUID][]domain.Item, len(days))
	for _, it := range items {
		byDay[it.DayID] = append(byDay[it.DayID], it)
	}
	for i := range days {
		days[i].Items = byDay[days[i].ID]
		if days[i].Items == nil {
			days[i].Items = []domain.Item{}
		}
	}
	if days == nil {
		days = []domain.Day{}
	}
	return days, nil
}

// scanItinerary maps a single itinerary row (without days).
func scanItinerary(s scanner) (domain.Itinerary, error) {
	var (
		it domain.Itinerary
		id pgtype.UUID
		gr pgtype.UUID
	)
	if err := s.Scan(&id, &gr, &it.CreatedAt); err != nil {
		return domain.Itinerary{}, mapError(err)
	}
	it.ID = uuid.UUID(id.Bytes)
	it.GroupID = uuid.UUID(gr.Bytes)
	return it, nil
}
