package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-itinerary/backend/internal/domain"
)

func TestDayRepo_Create(t *testing.T) {
	r := newTestRepos(t)
	it := mustCreateItinerary(t, r)

	got, err := r.days.Create(context.Background(), domain.NewDay{
		ItineraryID: it.ID, DayNumber: 1, Date: mustDate(t, "2025-05-01"), Title: "Day 1",
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.UUID{}, got.ID)
	assert.Equal(t, it.ID, got.ItineraryID)
	assert.Equal(t, 1, got.DayNumber)
	assert.Equal(t, "2025-05-01", domain.DateKey(got.Date))
	require.NotNil(t, got.Title)
	assert.Equal(t, "Day 1", *got.Title)
}

func TestDayRepo_Create_FreeDays(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()
	it := mustCreateItinerary(t, r)

	// Two days without a date do not collide on the (itinerary_id, date) constraint.
	for n := 1; n <= 2; n++ {
		got, err := r.days.Create(ctx, domain.NewDay{ItineraryID: it.ID, DayNumber: n, Title: domain.DefaultDayTitle(n)})
		require.NoError(t, err)
		assert.Nil(t, got.Date)
	}
}

func TestDayRepo_Create_DuplicateDate(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()
	it := mustCreateItinerary(t, r)
	d := mustDate(t, "2025-05-01")

	_, err := r.days.Create(ctx, domain.NewDay{ItineraryID: it.ID, DayNumber: 1, Date: d, Title: "Day 1"})
	require.NoError(t, err)

	_, err = r.days.Create(ctx, domain.NewDay{ItineraryID: it.ID, DayNumber: 2, Date: d, Title: "Day 2"})

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestDayRepo_Update(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()
	it := mustCreateItinerary(t, r)
	day, err := r.days.Create(ctx, domain.NewDay{ItineraryID: it.ID, DayNumber: 1, Date: mustDate(t, "2025-05-01"), Title: "Day 1"})
	require.NoError(t, err)

	n := 3
	err = r.days.Update(ctx, it.ID, day.ID, domain.DayPatch{
		DayNumber: &n,
		Title:     domain.Some("Arrival"),
		Date:      domain.Null[time.Time](),
	})
	require.NoError(t, err)

	tree, err := r.itineraries.GetTree(ctx, it.ID)
	require.NoError(t, err)
	require.Len(t, tree.Days, 1)
	assert.Equal(t, 3, tree.Days[0].DayNumber)
	assert.Equal(t, "Arrival", *tree.Days[0].Title)
	assert.Nil(t, tree.Days[0].Date)
}

func TestDayRepo_Update_NotFound(t *testing.T) {
	r := newTestRepos(t)
	it := mustCreateItinerary(t, r)

	err := r.days.Update(context.Background(), it.ID, uuid.New(), domain.DayPatch{Title: domain.Some("x")})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDayRepo_Update_WrongItinerary(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()
	it := mustCreateItinerary(t, r)
	other := mustCreateItinerary(t, r)
	day, err := r.days.Create(ctx, domain.NewDay{ItineraryID: it.ID, DayNumber: 1, Title: "Day 1"})
	require.NoError(t, err)

	err = r.days.Update(ctx, other.ID, day.ID, domain.DayPatch{Title: domain.Some("Stolen")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// An empty patch is a read and is scoped the same way.
	err = r.days.Update(ctx, other.ID, day.ID, domain.DayPatch{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	tree, err := r.itineraries.GetTree(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "Day 1", *tree.Days[0].Title)
}

func TestDayRepo_Delete_WrongItinerary(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()
	it := mustCreateItinerary(t, r)
	other := mustCreateItinerary(t, r)
	day, err := r.days.Create(ctx, domain.NewDay{ItineraryID: it.ID, DayNumber: 1, Title: "Day 1"})
	require.NoError(t, err)

	err = r.days.Delete(ctx, other.ID, day.ID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	tree, err := r.itineraries.GetTree(ctx, it.ID)
	require.NoError(t, err)
	assert.Len(t, tree.Days, 1, "day of another itinerary must survive")
}

func TestDayRepo_Delete_CascadesItems(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()
	it := mustCreateItinerary(t, r)
	day, err := r.days.Create(ctx, domain.NewDay{ItineraryID: it.ID, DayNumber: 1, Title: "Day 1"})
	require.NoError(t, err)
	item, err := r.items.Create(ctx, day.ID, domain.NewItem{Title: "Museum"}, 0)
	require.NoError(t, err)

	require.NoError(t, r.days.Delete(ctx, it.ID, day.ID))

	_, err = r.items.GetByID(ctx, it.ID, item.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "items are removed with their day")
	assert.ErrorIs(t, r.days.Delete(ctx, it.ID, day.ID), domain.ErrNotFound)
}
