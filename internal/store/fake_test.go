package store_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-itinerary/backend/internal/domain"
	"github.com/pkordes/trip-itinerary/backend/internal/repo"
	"github.com/pkordes/trip-itinerary/backend/internal/store"
)

// memDB is an in-memory stand-in for the three repos. Set fail to inject an
// error for an operation ("days.Update", "items.Create", ...) on a given id.
type memDB struct {
	mu          sync.Mutex
	itineraries map[uuid.UUID]domain.Itinerary
	days        map[uuid.UUID]domain.Day
	items       map[uuid.UUID]domain.Item
	itemOrder   []uuid.UUID // insertion order, so tree fetches are not pre-sorted
	calls       map[string]int

	fail func(op string, id uuid.UUID) error
}

func newMemDB() *memDB {
	return &memDB{
		itineraries: map[uuid.UUID]domain.Itinerary{},
		days:        map[uuid.UUID]domain.Day{},
		items:       map[uuid.UUID]domain.Item{},
		calls:       map[string]int{},
	}
}

func (m *memDB) check(op string, id uuid.UUID) error {
	m.calls[op]++
	if m.fail == nil {
		return nil
	}
	return m.fail(op, id)
}

func (m *memDB) setFail(f func(op string, id uuid.UUID) error) {
	m.mu.Lock()
	m.fail = f
	m.mu.Unlock()
}

func (m *memDB) callCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *memDB) item(id uuid.UUID) (domain.Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	return it, ok
}

func (m *memDB) day(id uuid.UUID) (domain.Day, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.days[id]
	return d, ok
}

// seedItem stores an item directly, bypassing the store.
func (m *memDB) seedItem(dayID uuid.UUID, title string, start *domain.ClockTime, pos int) domain.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := domain.Item{ID: uuid.New(), DayID: dayID, Title: title, StartTime: start, Position: pos, CreatedAt: time.Now()}
	m.items[it.ID] = it
	m.itemOrder = append([]uuid.UUID{it.ID}, m.itemOrder...)
	return it
}

func (m *memDB) tree(id uuid.UUID) (domain.Itinerary, error) {
	it, ok := m.itineraries[id]
	if !ok {
		return domain.Itinerary{}, domain.ErrNotFound
	}
	var days []domain.Day
	for _, d := range m.days {
		if d.ItineraryID == id {
			d.Items = []domain.Item{}
			for _, itemID := range m.itemOrder {
				if item, ok := m.items[itemID]; ok && item.DayID == d.ID {
					d.Items = append(d.Items, item)
				}
			}
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].DayNumber < days[j].DayNumber })
	it.Days = days
	return it, nil
}

type memItineraries struct{ *memDB }

func (m memItineraries) GetTreeByGroup(_ context.Context, groupID uuid.UUID) (domain.Itinerary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("itineraries.GetTreeByGroup", groupID); err != nil {
		return domain.Itinerary{}, err
	}
	for _, it := range m.itineraries {
		if it.GroupID == groupID {
			return m.tree(it.ID)
		}
	}
	return domain.Itinerary{}, fmt.Errorf("memdb: %w", domain.ErrNotFound)
}

func (m memItineraries) GetTree(_ context.Context, id uuid.UUID) (domain.Itinerary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("itineraries.GetTree", id); err != nil {
		return domain.Itinerary{}, err
	}
	return m.tree(id)
}

func (m memItineraries) Create(_ context.Context, groupID uuid.UUID) (domain.Itinerary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("itineraries.Create", groupID); err != nil {
		return domain.Itinerary{}, err
	}
	for _, it := range m.itineraries {
		if it.GroupID == groupID {
			return domain.Itinerary{}, domain.ErrConflict
		}
	}
	it := domain.Itinerary{ID: uuid.New(), GroupID: groupID, CreatedAt: time.Now()}
	m.itineraries[it.ID] = it
	return it, nil
}

type memDays struct{ *memDB }

func (m memDays) insert(nd domain.NewDay) (domain.Day, error) {
	if nd.Date != nil {
		for _, d := range m.days {
			if d.ItineraryID == nd.ItineraryID && d.Date != nil && d.Date.Equal(*nd.Date) {
				return domain.Day{}, fmt.Errorf("memdb: %w", domain.ErrConflict)
			}
		}
	}
	title := nd.Title
	d := domain.Day{ID: uuid.New(), ItineraryID: nd.ItineraryID, DayNumber: nd.DayNumber, Date: nd.Date, Title: &title, CreatedAt: time.Now()}
	m.days[d.ID] = d
	return d, nil
}

func (m memDays) Create(_ context.Context, nd domain.NewDay) (domain.Day, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("days.Create", nd.ItineraryID); err != nil {
		return domain.Day{}, err
	}
	return m.insert(nd)
}

func (m memDays) CreateBatch(_ context.Context, days []domain.NewDay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, nd := range days {
		if err := m.check("days.CreateBatch", nd.ItineraryID); err != nil {
			return err
		}
		if _, err := m.insert(nd); err != nil {
			return err
		}
	}
	return nil
}

func (m memDays) Update(_ context.Context, itineraryID, id uuid.UUID, patch domain.DayPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("days.Update", id); err != nil {
		return err
	}
	d, ok := m.days[id]
	if !ok || d.ItineraryID != itineraryID {
		return domain.ErrNotFound
	}
	m.days[id] = patch.Apply(d)
	return nil
}

func (m memDays) Delete(_ context.Context, itineraryID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("days.Delete", id); err != nil {
		return err
	}
	if d, ok := m.days[id]; !ok || d.ItineraryID != itineraryID {
		return domain.ErrNotFound
	}
	delete(m.days, id)
	for itemID, it := range m.items {
		if it.DayID == id {
			delete(m.items, itemID)
		}
	}
	return nil
}

type memItems struct{ *memDB }

func (m memItems) Create(_ context.Context, dayID uuid.UUID, ni domain.NewItem, position int) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("items.Create", dayID); err != nil {
		return domain.Item{}, err
	}
	if _, ok := m.days[dayID]; !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	it := domain.Item{
		ID: uuid.New(), DayID: dayID, Title: ni.Title, Location: ni.Location, Description: ni.Description,
		StartTime: ni.StartTime, EndTime: ni.EndTime, Position: position, ImageURL: ni.ImageURL,
		CreatedBy: ni.CreatedBy, CreatedAt: time.Now(),
	}
	m.items[it.ID] = it
	m.itemOrder = append(m.itemOrder, it.ID)
	return it, nil
}

func (m memItems) GetByID(_ context.Context, itineraryID, id uuid.UUID) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("items.GetByID", id); err != nil {
		return domain.Item{}, err
	}
	it, ok := m.items[id]
	if !ok || m.days[it.DayID].ItineraryID != itineraryID {
		return domain.Item{}, domain.ErrNotFound
	}
	return it, nil
}

func (m memItems) Update(_ context.Context, dayID, id uuid.UUID, patch domain.ItemPatch) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("items.Update", id); err != nil {
		return domain.Item{}, err
	}
	it, ok := m.items[id]
	if !ok || it.DayID != dayID {
		return domain.Item{}, domain.ErrNotFound
	}
	it = patch.Apply(it)
	m.items[id] = it
	return it, nil
}

func (m memItems) Delete(_ context.Context, dayID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("items.Delete", id); err != nil {
		return err
	}
	if it, ok := m.items[id]; !ok || it.DayID != dayID {
		return domain.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

var (
	_ repo.ItineraryRepo = memItineraries{}
	_ repo.DayRepo       = memDays{}
	_ repo.ItemRepo      = memItems{}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestStore wires a Store over db with a fast-retrying Reconciler.
func newTestStore(db *memDB) (*store.Store, *store.Reconciler) {
	recon := store.NewReconciler(discardLogger(), store.ReconcilerConfig{
		Workers:    2,
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	})
	return store.New(memItineraries{db}, memDays{db}, memItems{db}, recon, discardLogger()), recon
}

func clock(s string) *domain.ClockTime {
	c, err := domain.ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return &c
}

func date(s string) *time.Time {
	t, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &t
}
