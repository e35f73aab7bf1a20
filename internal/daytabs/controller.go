package daytabs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-itinerary/backend/internal/domain"
)

// DayStore is the part of the itinerary store the tab strip drives.
type DayStore interface {
	Itinerary() (domain.Itinerary, bool)
	Days() []domain.Day
	Items(dayID uuid.UUID) []domain.Item
	AddDay(ctx context.Context, itineraryID uuid.UUID, date *time.Time) (domain.Day, error)
}

// View is the tab strip with the active day resolved.
type View struct {
	Entries   []Entry
	Selected  string
	ActiveDay *domain.Day
	Items     []domain.Item
}

// Controller holds the selected tab of one itinerary.
type Controller struct {
	store DayStore

	mu       sync.Mutex
	selected string
}

// NewController returns a Controller with nothing selected.
func NewController(store DayStore) *Controller {
	return &Controller{store: store}
}

// Selected returns the selected key. Until something is selected, the first
// day is, once there is one.
func (c *Controller) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == "" {
		if days := c.store.Days(); len(days) > 0 {
			c.selected = KeyFor(days[0])
		}
	}
	return c.selected
}

// Select makes key the selected tab. A date no day holds yet is materialized
// with AddDay; "day-N" keys only ever select.
//
// The selection sticks even when creating the day fails.
func (c *Controller) Select(ctx context.Context, key string) (domain.Day, error) {
	date, _, err := ParseKey(key)
	if err != nil {
		return domain.Day{}, fmt.Errorf("daytabs.Controller.Select: %w", err)
	}

	c.mu.Lock()
	c.selected = key
	c.mu.Unlock()

	if day, ok := c.ActiveDay(); ok {
		return day, nil
	}
	if date == nil {
		return domain.Day{}, fmt.Errorf("daytabs.Controller.Select: %w: no day for %s", domain.ErrNotFound, key)
	}

	it, ok := c.store.Itinerary()
	if !ok {
		return domain.Day{}, fmt.Errorf("daytabs.Controller.Select: %w", domain.ErrNotFound)
	}
	day, err := c.store.AddDay(ctx, it.ID, date)
	if errors.Is(err, domain.ErrConflict) {
		// Created by a concurrent select of the same date.
		if day, ok := c.ActiveDay(); ok {
			return day, nil
		}
	}
	if err != nil {
		return domain.Day{}, fmt.Errorf("daytabs.Controller.Select: %w", err)
	}
	return day, nil
}

// AddFreeDay appends a day without a date and selects it.
func (c *Controller) AddFreeDay(ctx context.Context) (domain.Day, error) {
	it, ok := c.store.Itinerary()
	if !ok {
		return domain.Day{}, fmt.Errorf("daytabs.Controller.AddFreeDay: %w", domain.ErrNotFound)
	}
	day, err := c.store.AddDay(ctx, it.ID, nil)
	if err != nil {
		return domain.Day{}, fmt.Errorf("daytabs.Controller.AddFreeDay: %w", err)
	}

	c.mu.Lock()
	c.selected = KeyFor(day)
	c.mu.Unlock()
	return day, nil
}

// ActiveDay returns the day behind the selected tab.
func (c *Controller) ActiveDay() (domain.Day, bool) {
	key := c.Selected()
	if key == "" {
		return domain.Day{}, false
	}
	for _, d := range c.store.Days() {
		if KeyFor(d) == key {
			return d, true
		}
	}
	return domain.Day{}, false
}

// View builds the tab strip for the given range and marks the selection.
func (c *Controller) View(start, end *time.Time) (View, error) {
	entries, err := BuildAxis(c.store.Days(), start, end)
	if err != nil {
		return View{}, fmt.Errorf("daytabs.Controller.View: %w", err)
	}

	v := View{Entries: entries, Selected: c.Selected()}
	for i := range v.Entries {
		v.Entries[i].Selected = v.Entries[i].Key == v.Selected
	}
	if day, ok := c.ActiveDay(); ok {
		v.ActiveDay = &day
		v.Items = c.store.Items(day.ID)
	} else {
		v.Items = []domain.Item{}
	}
	return v, nil
}
