package daytabs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-itinerary/backend/internal/daytabs"
	"github.com/pkordes/trip-itinerary/backend/internal/domain"
)

// fakeDayStore keeps days in memory. addDay, when set, replaces the default
// append behaviour.
type fakeDayStore struct {
	itinerary *domain.Itinerary
	days      []domain.Day
	items     map[uuid.UUID][]domain.Item
	added     []*time.Time
	addDay    func(ctx context.Context, itineraryID uuid.UUID, date *time.Time) (domain.Day, error)
}

func (f *fakeDayStore) Itinerary() (domain.Itinerary, bool) {
	if f.itinerary == nil {
		return domain.Itinerary{}, false
	}
	return *f.itinerary, true
}

func (f *fakeDayStore) Days() []domain.Day { return append([]domain.Day{}, f.days...) }

func (f *fakeDayStore) Items(dayID uuid.UUID) []domain.Item { return f.items[dayID] }

func (f *fakeDayStore) AddDay(ctx context.Context, itineraryID uuid.UUID, date *time.Time) (domain.Day, error) {
	f.added = append(f.added, date)
	if f.addDay != nil {
		return f.addDay(ctx, itineraryID, date)
	}
	n := len(f.days) + 1
	title := domain.DefaultDayTitle(n)
	d := domain.Day{ID: uuid.New(), ItineraryID: itineraryID, DayNumber: n, Date: date, Title: &title}
	f.days = append(f.days, d)
	return d, nil
}

var _ daytabs.DayStore = (*fakeDayStore)(nil)

func mustDate(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return &d
}

func newFake(t *testing.T, dates ...string) *fakeDayStore {
	t.Helper()
	it := domain.Itinerary{ID: uuid.New(), GroupID: uuid.New()}
	f := &fakeDayStore{itinerary: &it, items: map[uuid.UUID][]domain.Item{}}
	for _, s := range dates {
		var date *time.Time
		if s != "" {
			date = mustDate(t, s)
		}
		_, _ = f.AddDay(context.Background(), it.ID, date)
	}
	f.added = nil
	return f
}

func keys(entries []daytabs.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}

func TestBuildAxis_DateRange(t *testing.T) {
	f := newFake(t, "2025-01-02")

	entries, err := daytabs.BuildAxis(f.Days(), mustDate(t, "2025-01-01"), mustDate(t, "2025-01-03"))

	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-01", "2025-01-02", "2025-01-03"}, keys(entries))
	assert.False(t, entries[0].Backed())
	assert.True(t, entries[1].Backed())
	assert.Equal(t, f.days[0].ID, *entries[1].DayID)
	assert.False(t, entries[2].Backed())
	assert.Equal(t, "Wed", entries[0].Top)
	assert.Equal(t, "01", entries[0].Bottom)
}

func TestBuildAxis_FallbackToDays(t *testing.T) {
	f := newFake(t, "2025-05-10", "")

	entries, err := daytabs.BuildAxis(f.Days(), nil, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"2025-05-10", "day-2"}, keys(entries))
	for _, e := range entries {
		assert.True(t, e.Backed())
	}
	assert.Equal(t, "Day", entries[1].Top)
	assert.Equal(t, "2", entries[1].Bottom)
}

func TestBuildAxis_InvalidRange(t *testing.T) {
	_, err := daytabs.BuildAxis(nil, mustDate(t, "2025-01-03"), mustDate(t, "2025-01-01"))
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		key     string
		date    string
		num     int
		wantErr bool
	}{
		{key: "2025-02-03", date: "2025-02-03"},
		{key: "day-4", num: 4},
		{key: "day-0", wantErr: true},
		{key: "day-x", wantErr: true},
		{key: "tomorrow", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			d, n, err := daytabs.ParseKey(tt.key)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.date, domain.DateKey(d))
			assert.Equal(t, tt.num, n)
		})
	}
}

func TestController_DefaultSelectsFirstDay(t *testing.T) {
	empty := daytabs.NewController(newFake(t))
	assert.Equal(t, "", empty.Selected())

	c := daytabs.NewController(newFake(t, "", "2025-01-01"))
	assert.Equal(t, "day-1", c.Selected())
	day, ok := c.ActiveDay()
	require.True(t, ok)
	assert.Equal(t, 1, day.DayNumber)
}

func TestController_SelectUnbackedDateAddsDay(t *testing.T) {
	f := newFake(t, "2025-01-01")
	c := daytabs.NewController(f)

	day, err := c.Select(context.Background(), "2025-01-02")

	require.NoError(t, err)
	require.Len(t, f.added, 1)
	assert.Equal(t, "2025-01-02", domain.DateKey(f.added[0]))
	assert.Equal(t, 2, day.DayNumber)
	assert.Equal(t, "2025-01-02", c.Selected())
}

func TestController_SelectBackedDateDoesNotAdd(t *testing.T) {
	f := newFake(t, "2025-01-01", "2025-01-02")
	c := daytabs.NewController(f)

	day, err := c.Select(context.Background(), "2025-01-02")

	require.NoError(t, err)
	assert.Empty(t, f.added)
	assert.Equal(t, f.days[1].ID, day.ID)
}

func TestController_SelectFallbackKeyNeverAdds(t *testing.T) {
	f := newFake(t, "")
	c := daytabs.NewController(f)

	_, err := c.Select(context.Background(), "day-5")

	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.added)
	assert.Equal(t, "day-5", c.Selected())
}

func TestController_SelectConflictResolvesToExistingDay(t *testing.T) {
	f := newFake(t)
	f.addDay = func(_ context.Context, itineraryID uuid.UUID, date *time.Time) (domain.Day, error) {
		// Another request created the day first.
		f.days = append(f.days, domain.Day{ID: uuid.New(), ItineraryID: itineraryID, DayNumber: 1, Date: date})
		return domain.Day{}, domain.ErrConflict
	}
	c := daytabs.NewController(f)

	day, err := c.Select(context.Background(), "2025-01-01")

	require.NoError(t, err)
	assert.Equal(t, f.days[0].ID, day.ID)
}

func TestController_SelectAddFailureKeepsSelection(t *testing.T) {
	f := newFake(t)
	boom := errors.New("boom")
	f.addDay = func(context.Context, uuid.UUID, *time.Time) (domain.Day, error) { return domain.Day{}, boom }
	c := daytabs.NewController(f)

	_, err := c.Select(context.Background(), "2025-01-01")

	require.ErrorIs(t, err, boom)
	assert.Equal(t, "2025-01-01", c.Selected())
}

func TestController_AddFreeDaySelectsIt(t *testing.T) {
	f := newFake(t, "2025-01-01")
	c := daytabs.NewController(f)

	day, err := c.AddFreeDay(context.Background())

	require.NoError(t, err)
	require.Len(t, f.added, 1)
	assert.Nil(t, f.added[0])
	assert.Equal(t, "day-2", c.Selected())
	active, ok := c.ActiveDay()
	require.True(t, ok)
	assert.Equal(t, day.ID, active.ID)
}

func TestController_NotLoaded(t *testing.T) {
	c := daytabs.NewController(&fakeDayStore{})

	_, err := c.AddFreeDay(context.Background())
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = c.Select(context.Background(), "2025-01-01")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestController_View(t *testing.T) {
	f := newFake(t, "2025-01-01")
	item := domain.Item{ID: uuid.New(), Title: "Breakfast"}
	f.items[f.days[0].ID] = []domain.Item{item}
	c := daytabs.NewController(f)

	v, err := c.View(mustDate(t, "2025-01-01"), mustDate(t, "2025-01-02"))

	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", v.Selected)
	assert.True(t, v.Entries[0].Selected)
	assert.False(t, v.Entries[1].Selected)
	require.NotNil(t, v.ActiveDay)
	assert.Equal(t, []domain.Item{item}, v.Items)
}
