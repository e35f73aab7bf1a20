// Package daytabs derives the day-tab strip of an itinerary and tracks which
// tab is selected. Selecting a date that has no day yet creates that day.
package daytabs

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-itinerary/backend/internal/domain"
	"github.com/pkordes/trip-itinerary/backend/internal/schedule"
)

const fallbackPrefix = "day-"

// Entry is one tab of the strip.
// Key is "yyyy-MM-dd" for calendar dates and "day-N" for days without one.
type Entry struct {
	Key      string
	Date     *time.Time
	DayID    *uuid.UUID // the backing day, nil until it exists
	Top      string     // weekday ("Mon") or "Day"
	Bottom   string     // day of month ("07") or the tab's ordinal
	Selected bool
}

// Backed reports whether a day record exists for the entry.
func (e Entry) Backed() bool { return e.DayID != nil }

// KeyFor returns the axis key of a day.
func KeyFor(d domain.Day) string {
	if d.Date != nil {
		return domain.DateKey(d.Date)
	}
	return fallbackPrefix + strconv.Itoa(d.DayNumber)
}

// ParseKey splits an axis key into a date or a day number. Exactly one of the
// results is set when err is nil.
func ParseKey(key string) (*time.Time, int, error) {
	if n, ok := strings.CutPrefix(key, fallbackPrefix); ok {
		num, err := strconv.Atoi(n)
		if err != nil || num < 1 {
			return nil, 0, fmt.Errorf("%w: bad day key %q", domain.ErrValidation, key)
		}
		return nil, num, nil
	}
	d, err := domain.ParseDate(key)
	if err != nil {
		return nil, 0, err
	}
	return &d, 0, nil
}

// BuildAxis lists the tabs for days. With both start and end it is the full
// inclusive date range, each date backed by the day holding it if any.
// Otherwise it falls back to one tab per existing day, in day order.
func BuildAxis(days []domain.Day, start, end *time.Time) ([]Entry, error) {
	if start == nil || end == nil {
		entries := make([]Entry, len(days))
		for i, d := range days {
			entries[i] = entryFor(KeyFor(d), d.Date, i)
			id := d.ID
			entries[i].DayID = &id
		}
		return entries, nil
	}

	dates, err := schedule.DateRange(*start, *end)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]uuid.UUID, len(days))
	for _, d := range days {
		if d.Date != nil {
			byDate[domain.DateKey(d.Date)] = d.ID
		}
	}

	entries := make([]Entry, len(dates))
	for i, dt := range dates {
		key := dt.Format(domain.DateLayout)
		entries[i] = entryFor(key, &dt, i)
		if id, ok := byDate[key]; ok {
			entries[i].DayID = &id
		}
	}
	return entries, nil
}

func entryFor(key string, date *time.Time, index int) Entry {
	if date == nil {
		return Entry{Key: key, Top: "Day", Bottom: strconv.Itoa(index + 1)}
	}
	d := *date
	return Entry{Key: key, Date: &d, Top: d.Format("Mon"), Bottom: d.Format("02")}
}
