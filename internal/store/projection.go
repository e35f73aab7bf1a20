package store

import (
	"github.com/google/uuid"

	"github.com/pkordes/trip-itinerary/backend/internal/domain"
	"github.com/pkordes/trip-itinerary/backend/internal/schedule"
)

// Projection is a point-in-time copy of a Store's state. Callers may keep and
// modify it freely; it shares no memory with the Store.
type Projection struct {
	Status       Status
	Itinerary    *domain.Itinerary // nil until the first successful load; Days is unset
	Days         []domain.Day      // ordered by DayNumber; Items is unset
	ItemsByDayID map[uuid.UUID][]domain.Item
	Err          string
	Loading      bool
}

// DayByID returns the day with the given id.
func (p Projection) DayByID(id uuid.UUID) (domain.Day, bool) {
	for _, d := range p.Days {
		if d.ID == id {
			return d, true
		}
	}
	return domain.Day{}, false
}

// BuildIndex derives the day → items index from a fetched tree: one entry per
// day, items sorted by position. It is the only way the index is built from
// scratch; every full resync goes through it.
func BuildIndex(days []domain.Day) map[uuid.UUID][]domain.Item {
	idx := make(map[uuid.UUID][]domain.Item, len(days))
	for _, d := range days {
		idx[d.ID] = schedule.SortByPosition(d.Items)
	}
	return idx
}

// stripItems returns the days without their nested item lists.
func stripItems(days []domain.Day) []domain.Day {
	out := make([]domain.Day, len(days))
	for i, d := range days {
		d.Items = nil
		out[i] = d
	}
	return out
}

func cloneIndex(idx map[uuid.UUID][]domain.Item) map[uuid.UUID][]domain.Item {
	out := make(map[uuid.UUID][]domain.Item, len(idx))
	for k, v := range idx {
		items := domain.CloneItems(v)
		if items == nil {
			items = []domain.Item{}
		}
		out[k] = items
	}
	return out
}
