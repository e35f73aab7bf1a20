// Package store owns the in-memory projection of one group's itinerary: its
// days in display order and an index from day id to that day's ordered items.
// Every operation persists through the repo layer and then reconciles the
// projection; the database stays authoritative and a fresh fetch can always
// rebuild the projection.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-itinerary/backend/internal/domain"
	"github.com/pkordes/trip-itinerary/backend/internal/repo"
	"github.com/pkordes/trip-itinerary/backend/internal/schedule"
)

// ErrNotLoaded is returned by operations that need a loaded itinerary.
var ErrNotLoaded = errors.New("itinerary not loaded")

// ErrReverted marks a failed optimistic change whose local effect was undone.
// Errors without it come from confirm-then-apply operations, which never touched
// local state.
var ErrReverted = errors.New("local change reverted")

// Status is the load state of a Store.
type Status int

const (
	StatusUnloaded Status = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "error"
	default:
		return "unloaded"
	}
}

// daysKey serializes changes to the day list itself (add, delete, renumber).
// Item changes are serialized per day, keyed by the day's id.
var daysKey = uuid.Nil

// fanOut caps concurrent remote writes issued by one operation.
const fanOut = 8

// Store is the itinerary projection of one group.
// It is safe for concurrent use. Item mutations on the same day run one at a
// time, as do mutations of the day list.
type Store struct {
	itineraries repo.ItineraryRepo
	days        repo.DayRepo
	items       repo.ItemRepo
	recon       *Reconciler
	log         *slog.Logger

	locks    keyedMutex
	inflight atomic.Int64

	mu        sync.RWMutex
	status    Status
	itinerary *domain.Itinerary
	dayList   []domain.Day
	index     map[uuid.UUID][]domain.Item
	lastErr   string
}

// New constructs an unloaded Store. Secondary writes go through recon.
func New(itineraries repo.ItineraryRepo, days repo.DayRepo, items repo.ItemRepo, recon *Reconciler, log *slog.Logger) *Store {
	return &Store{
		itineraries: itineraries,
		days:        days,
		items:       items,
		recon:       recon,
		log:         log,
		index:       map[uuid.UUID][]domain.Item{},
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Projection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := Projection{
		Status:       s.status,
		Days:         domain.CloneDays(s.dayList),
		ItemsByDayID: cloneIndex(s.index),
		Err:          s.lastErr,
		Loading:      s.status == StatusLoading || s.inflight.Load() > 0,
	}
	if s.itinerary != nil {
		it := *s.itinerary
		p.Itinerary = &it
	}
	return p
}

// Itinerary returns the loaded itinerary without its days.
func (s *Store) Itinerary() (domain.Itinerary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.itinerary == nil {
		return domain.Itinerary{}, false
	}
	return *s.itinerary, true
}

// Days returns the days in display order.
func (s *Store) Days() []domain.Day {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneDays(s.dayList)
}

// Items returns the ordered items of a day. The list is never nil.
func (s *Store) Items(dayID uuid.UUID) []domain.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := domain.CloneItems(s.index[dayID])
	if out == nil {
		out = []domain.Item{}
	}
	return out
}

// Status returns the load state.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Err returns the message of the last failed operation, or "".
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// IsLoading reports whether a load or any mutation is in flight.
// Callers use it to gate duplicate submissions.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status == StatusLoading || s.inflight.Load() > 0
}

// PendingWrites returns the number of background writes not yet finished.
func (s *Store) PendingWrites() int64 {
	return s.recon.Pending()
}

// LoadItinerary installs the itinerary of groupID, creating it when the group
// has none. A new itinerary gets one day per date from start to end inclusive
// when both are given. After creation the whole tree is fetched again so the
// projection carries server-assigned ids.
//
// On failure the Store keeps whatever it had loaded before.
func (s *Store) LoadItinerary(ctx context.Context, groupID uuid.UUID, start, end *time.Time) error {
	s.begin()
	defer s.end()

	s.mu.Lock()
	s.status = StatusLoading
	s.lastErr = ""
	s.mu.Unlock()

	tree, err := s.itineraries.GetTreeByGroup(ctx, groupID)
	if errors.Is(err, domain.ErrNotFound) {
		tree, err = s.create(ctx, groupID, start, end)
	}
	if err != nil {
		s.mu.Lock()
		s.status = StatusFailed
		s.mu.Unlock()
		return s.fail("LoadItinerary", err)
	}

	s.install(tree)
	s.log.Debug("itinerary loaded", "group_id", groupID, "itinerary_id", tree.ID, "days", len(tree.Days))
	return nil
}

// create inserts the itinerary and its generated days, then refetches the tree.
// Day rows already inserted are not removed if a later step fails.
func (s *Store) create(ctx context.Context, groupID uuid.UUID, start, end *time.Time) (domain.Itinerary, error) {
	withRange := start != nil && end != nil
	if withRange {
		// Reject a bad range before anything is written.
		if _, err := schedule.DateRange(*start, *end); err != nil {
			return domain.Itinerary{}, err
		}
	}

	it, err := s.itineraries.Create(ctx, groupID)
	if errors.Is(err, domain.ErrConflict) {
		// Another writer created it between our fetch and insert.
		return s.itineraries.GetTreeByGroup(ctx, groupID)
	}
	if err != nil {
		return domain.Itinerary{}, err
	}

	if withRange {
		days, err := schedule.DaysForRange(it.ID, *start, *end)
		if err != nil {
			return domain.Itinerary{}, err
		}
		if err := s.days.CreateBatch(ctx, days); err != nil {
			return domain.Itinerary{}, err
		}
		s.log.Info("itinerary created", "group_id", groupID, "itinerary_id", it.ID, "days", len(days))
	}

	return s.itineraries.GetTree(ctx, it.ID)
}

// install replaces the whole projection with a fetched tree.
func (s *Store) install(tree domain.Itinerary) {
	header := tree
	header.Days = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	s.itinerary = &header
	s.dayList = stripItems(tree.Days)
	s.index = BuildIndex(tree.Days)
	s.status = StatusLoaded
}

// resync refetches the loaded itinerary and installs it.
func (s *Store) resync(ctx context.Context) error {
	it, ok := s.Itinerary()
	if !ok {
		return ErrNotLoaded
	}
	tree, err := s.itineraries.GetTree(ctx, it.ID)
	if err != nil {
		return err
	}
	s.install(tree)
	return nil
}

// FetchItem looks up one item of the loaded itinerary in the database. The
// projection is not consulted or changed; a failure is recorded as the Store's
// error message.
func (s *Store) FetchItem(ctx context.Context, itemID uuid.UUID) (domain.Item, error) {
	s.clearErr()
	it, ok := s.Itinerary()
	if !ok {
		return domain.Item{}, s.fail("FetchItem", ErrNotLoaded)
	}
	item, err := s.items.GetByID(ctx, it.ID, itemID)
	if err != nil {
		return domain.Item{}, s.fail("FetchItem", err)
	}
	return item, nil
}

func (s *Store) begin() { s.inflight.Add(1) }
func (s *Store) end()   { s.inflight.Add(-1) }

func (s *Store) clearErr() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

// fail records err as the Store's error message and returns it wrapped with the
// operation name.
func (s *Store) fail(op string, err error) error {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
	s.log.Warn("itinerary operation failed", "op", op, "error", err)
	return fmt.Errorf("store.Store.%s: %w", op, err)
}

// requireLoaded returns the loaded itinerary id or ErrNotLoaded.
func (s *Store) requireLoaded(itineraryID uuid.UUID) error {
	it, ok := s.Itinerary()
	if !ok || (itineraryID != uuid.Nil && it.ID != itineraryID) {
		return fmt.Errorf("%w: %s", ErrNotLoaded, itineraryID)
	}
	return nil
}
