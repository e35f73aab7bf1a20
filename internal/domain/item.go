package domain

import (
	"time"

	"github.com/google/uuid"
)

// Item is a single scheduled activity within a day.
// Position is the zero-based rank within the day; positions of a day form a
// dense 0..N-1 run. StartTime and EndTime are nil when the activity is untimed.
type Item struct {
	ID          uuid.UUID
	DayID       uuid.UUID
	Title       string
	Location    *string
	Description *string
	StartTime   *ClockTime
	EndTime     *ClockTime
	Position    int
	ImageURL    *string
	CreatedBy   *uuid.UUID
	CreatedAt   time.Time
}

// Clone returns a copy of it that shares no pointers with it.
func (it Item) Clone() Item {
	it.Location = clonePtr(it.Location)
	it.Description = clonePtr(it.Description)
	it.StartTime = clonePtr(it.StartTime)
	it.EndTime = clonePtr(it.EndTime)
	it.ImageURL = clonePtr(it.ImageURL)
	it.CreatedBy = clonePtr(it.CreatedBy)
	return it
}

// CloneItems deep-copies a list of items. A nil list stays nil.
func CloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// NewItem carries the user-supplied fields of an activity to insert.
// Title is required; the position is computed by the store.
type NewItem struct {
	Title       string
	Location    *string
	Description *string
	StartTime   *ClockTime
	EndTime     *ClockTime
	ImageURL    *string
	CreatedBy   *uuid.UUID
}

// ItemPatch is a partial update of an item. Unset fields are left untouched.
type ItemPatch struct {
	Title       *string
	Location    Optional[string]
	Description Optional[string]
	StartTime   Optional[ClockTime]
	EndTime     Optional[ClockTime]
	ImageURL    Optional[string]
	Position    *int
}

// IsEmpty reports whether the patch changes nothing.
func (p ItemPatch) IsEmpty() bool {
	return p.Title == nil && p.Position == nil &&
		!p.Location.Set && !p.Description.Set &&
		!p.StartTime.Set && !p.EndTime.Set && !p.ImageURL.Set
}

// Apply returns it with the patch fields written over it.
func (p ItemPatch) Apply(it Item) Item {
	if p.Title != nil {
		it.Title = *p.Title
	}
	if p.Position != nil {
		it.Position = *p.Position
	}
	it.Location = p.Location.Or(it.Location)
	it.Description = p.Description.Or(it.Description)
	it.StartTime = p.StartTime.Or(it.StartTime)
	it.EndTime = p.EndTime.Or(it.EndTime)
	it.ImageURL = p.ImageURL.Or(it.ImageURL)
	return it
}
