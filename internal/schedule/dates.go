package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-itinerary/backend/internal/domain"
)

// MaxRangeDays caps the number of days generated from a trip's date range.
const MaxRangeDays = 366

// DateRange enumerates every calendar date from start to end inclusive.
// Both bounds are truncated to their UTC date. end before start is an error,
// as is a range longer than MaxRangeDays.
func DateRange(start, end time.Time) ([]time.Time, error) {
	s := truncateDate(start)
	e := truncateDate(end)
	if e.Before(s) {
		return nil, fmt.Errorf("%w: end date %s is before start date %s",
			domain.ErrValidation, e.Format(domain.DateLayout), s.Format(domain.DateLayout))
	}

	var dates []time.Time
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		if len(dates) == MaxRangeDays {
			return nil, fmt.Errorf("%w: date range exceeds %d days", domain.ErrValidation, MaxRangeDays)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// DaysForRange builds the day rows generated for a new itinerary: one per date,
// numbered from 1 and titled "Day N".
func DaysForRange(itineraryID uuid.UUID, start, end time.Time) ([]domain.NewDay, error) {
	dates, err := DateRange(start, end)
	if err != nil {
		return nil, err
	}
	out := make([]domain.NewDay, len(dates))
	for i, d := range dates {
		date := d
		out[i] = domain.NewDay{
			ItineraryID: itineraryID,
			DayNumber:   i + 1,
			Date:        &date,
			Title:       domain.DefaultDayTitle(i + 1),
		}
	}
	return out, nil
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
