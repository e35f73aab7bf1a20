// Package domain contains the core data types for the trip itinerary service.
// This package depends only on uuid and is imported by every other internal
// package (repo, store, handler).
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire and display format of calendar dates ("yyyy-MM-dd").
const DateLayout = "2006-01-02"

// Itinerary is the root schedule container of one group (trip or event).
// It is created lazily on first load and never deleted here; removing the
// owning group cascades to it.
type Itinerary struct {
	ID        uuid.UUID
	GroupID   uuid.UUID
	CreatedAt time.Time
	Days      []Day // ordered by DayNumber
}

// Day is a dated or free-floating bucket of items.
// DayNumber is 1-based and dense across the itinerary; it is the display order.
type Day struct {
	ID          uuid.UUID
	ItineraryID uuid.UUID
	DayNumber   int
	Date        *time.Time // nil for a free day not pinned to the calendar
	Title       *string
	CreatedAt   time.Time
	Items       []Item // only populated by tree fetches
}

// Clone returns a copy of d, including its items, that shares no pointers with d.
func (d Day) Clone() Day {
	d.Date = clonePtr(d.Date)
	d.Title = clonePtr(d.Title)
	d.Items = CloneItems(d.Items)
	return d
}

// CloneDays deep-copies a list of days.
func CloneDays(days []Day) []Day {
	out := make([]Day, len(days))
	for i, d := range days {
		out[i] = d.Clone()
	}
	return out
}

// NewDay carries the fields of a day row to insert.
type NewDay struct {
	ItineraryID uuid.UUID
	DayNumber   int
	Date        *time.Time
	Title       string
}

// DefaultDayTitle returns the title given to a day that was not named by the user.
func DefaultDayTitle(dayNumber int) string {
	return fmt.Sprintf("Day %d", dayNumber)
}

// DateKey formats d as "yyyy-MM-dd", or "" when d is nil.
func DateKey(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(DateLayout)
}

// ParseDate parses a "yyyy-MM-dd" string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be yyyy-MM-dd", ErrValidation, s)
	}
	return t, nil
}

// DayPatch is a partial update of a day. Unset fields are left untouched.
type DayPatch struct {
	DayNumber *int
	Title     Optional[string]
	Date      Optional[time.Time]
}

// IsEmpty reports whether the patch changes nothing.
func (p DayPatch) IsEmpty() bool {
	return p.DayNumber == nil && !p.Title.Set && !p.Date.Set
}

// Apply returns d with the patch fields written over it.
func (p DayPatch) Apply(d Day) Day {
	if p.DayNumber != nil {
		d.DayNumber = *p.DayNumber
	}
	d.Title = p.Title.Or(d.Title)
	d.Date = p.Date.Or(d.Date)
	return d
}
