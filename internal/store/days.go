package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-itinerary/backend/internal/domain"
)

// AddDay appends a day numbered after the current last one and titled
// "Day N". date may be nil for a free day. The day is added locally only after
// the insert succeeds.
//
// A date already held by another day of the itinerary is refused with
// domain.ErrConflict before anything is written.
func (s *Store) AddDay(ctx context.Context, itineraryID uuid.UUID, date *time.Time) (domain.Day, error) {
	unlock := s.locks.Lock(daysKey)
	defer unlock()
	s.begin()
	defer s.end()
	s.clearErr()

	if err := s.requireLoaded(itineraryID); err != nil {
		return domain.Day{}, s.fail("AddDay", err)
	}
	if date != nil {
		if d, taken := s.dayOnDate(*date, uuid.Nil); taken {
			return domain.Day{}, s.fail("AddDay", fmt.Errorf("%w: %s already belongs to day %d",
				domain.ErrConflict, domain.DateKey(date), d.DayNumber))
		}
	}

	s.mu.RLock()
	n := len(s.dayList) + 1
	s.mu.RUnlock()

	day, err := s.days.Create(ctx, domain.NewDay{
		ItineraryID: itineraryID,
		DayNumber:   n,
		Date:        date,
		Title:       domain.DefaultDayTitle(n),
	})
	if err != nil {
		return domain.Day{}, s.fail("AddDay", err)
	}

	day.Items = nil
	s.mu.Lock()
	s.dayList = append(s.dayList, day)
	s.index[day.ID] = []domain.Item{}
	s.mu.Unlock()

	return day, nil
}

// UpdateDay persists a title and/or date change and then patches the local day.
// Day numbers are managed by the Store and cannot be patched here. A day that
// is not part of the loaded itinerary is domain.ErrNotFound and nothing is written.
func (s *Store) UpdateDay(ctx context.Context, dayID uuid.UUID, patch domain.DayPatch) error {
	unlock := s.locks.Lock(daysKey)
	defer unlock()
	s.begin()
	defer s.end()
	s.clearErr()

	if patch.DayNumber != nil {
		return s.fail("UpdateDay", fmt.Errorf("%w: day_number is assigned by the itinerary", domain.ErrValidation))
	}
	day, err := s.ownedDay(dayID)
	if err != nil {
		return s.fail("UpdateDay", err)
	}
	if patch.Date.Set && patch.Date.Value != nil {
		if d, taken := s.dayOnDate(*patch.Date.Value, dayID); taken {
			return s.fail("UpdateDay", fmt.Errorf("%w: %s already belongs to day %d",
				domain.ErrConflict, domain.DateKey(patch.Date.Value), d.DayNumber))
		}
	}

	if err := s.days.Update(ctx, day.ItineraryID, dayID, patch); err != nil {
		return s.fail("UpdateDay", err)
	}

	s.mu.Lock()
	for i, d := range s.dayList {
		if d.ID == dayID {
			s.dayList[i] = patch.Apply(d)
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// DeleteDay removes a day and its items, then renumbers the remaining days to
// 1..N in their current order. Days still carrying a default title get the
// title of their new number. Persisting the renumbered days runs in the
// background through the Reconciler.
//
// Only days of the loaded itinerary can be deleted; any other id is
// domain.ErrNotFound and nothing is written.
func (s *Store) DeleteDay(ctx context.Context, dayID uuid.UUID) error {
	unlockDays := s.locks.Lock(daysKey)
	defer unlockDays()
	unlockDay := s.locks.Lock(dayID)
	defer unlockDay()
	s.begin()
	defer s.end()
	s.clearErr()

	day, err := s.ownedDay(dayID)
	if err != nil {
		return s.fail("DeleteDay", err)
	}
	if err := s.days.Delete(ctx, day.ItineraryID, dayID); err != nil {
		return s.fail("DeleteDay", err)
	}

	var moved []uuid.UUID
	s.mu.Lock()
	remaining := make([]domain.Day, 0, len(s.dayList))
	for _, d := range s.dayList {
		if d.ID == dayID {
			continue
		}
		n := len(remaining) + 1
		if d.DayNumber != n {
			if isDefaultTitle(d.Title, d.DayNumber) {
				t := domain.DefaultDayTitle(n)
				d.Title = &t
			}
			d.DayNumber = n
			moved = append(moved, d.ID)
		}
		remaining = append(remaining, d)
	}
	s.dayList = remaining
	delete(s.index, dayID)
	s.mu.Unlock()

	for _, id := range moved {
		s.recon.Enqueue(s.renumberTask(id))
	}
	return nil
}

// renumberTask writes a day's current number and title. It reads them when it
// runs, under the day-list lock, so a late retry never writes a stale number.
func (s *Store) renumberTask(dayID uuid.UUID) Task {
	return Task{
		Name: "renumber day " + dayID.String(),
		Run: func(ctx context.Context) error {
			unlock := s.locks.Lock(daysKey)
			defer unlock()

			d, ok := s.localDay(dayID)
			if !ok {
				return nil // deleted since; nothing to persist
			}
			err := s.days.Update(ctx, d.ItineraryID, dayID, domain.DayPatch{
				DayNumber: &d.DayNumber,
				Title:     domain.Optional[string]{Set: true, Value: d.Title},
			})
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		},
	}
}

func (s *Store) localDay(id uuid.UUID) (domain.Day, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.dayList {
		if d.ID == id {
			return d, true
		}
	}
	return domain.Day{}, false
}

// ownedDay returns the local day with id, or domain.ErrNotFound when the
// loaded itinerary has no such day.
func (s *Store) ownedDay(id uuid.UUID) (domain.Day, error) {
	if err := s.requireLoaded(uuid.Nil); err != nil {
		return domain.Day{}, err
	}
	d, ok := s.localDay(id)
	if !ok {
		return domain.Day{}, fmt.Errorf("%w: day %s", domain.ErrNotFound, id)
	}
	return d, nil
}

// dayOnDate returns the local day holding date, ignoring the day with id except.
func (s *Store) dayOnDate(date time.Time, except uuid.UUID) (domain.Day, bool) {
	key := date.Format(domain.DateLayout)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.dayList {
		if d.ID != except && domain.DateKey(d.Date) == key {
			return d, true
		}
	}
	return domain.Day{}, false
}

// isDefaultTitle reports whether title is absent or the generated "Day N".
func isDefaultTitle(title *string, dayNumber int) bool {
	return title == nil || *title == domain.DefaultDayTitle(dayNumber)
}
