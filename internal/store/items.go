package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/trip-itinerary/backend/internal/domain"
	"github.com/pkordes/trip-itinerary/backend/internal/schedule"
)

// AddItem inserts an activity into a day at the position its start time calls
// for, shifting later items down by one. Nothing changes locally until every
// shift and the insert have succeeded.
//
// The shifts run concurrently and all must succeed. Shifts already written
// are not undone when another fails.
func (s *Store) AddItem(ctx context.Context, dayID uuid.UUID, item domain.NewItem) (domain.Item, error) {
	unlock := s.locks.Lock(dayID)
	defer unlock()
	s.begin()
	defer s.end()
	s.clearErr()

	item.Title = strings.TrimSpace(item.Title)
	if item.Title == "" {
		return domain.Item{}, s.fail("AddItem", fmt.Errorf("%w: title is required", domain.ErrValidation))
	}

	existing, ok := s.localItems(dayID)
	if !ok {
		return domain.Item{}, s.fail("AddItem", fmt.Errorf("%w: day %s", domain.ErrNotFound, dayID))
	}

	pos := schedule.ResolvePosition(item.StartTime, existing)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for _, it := range schedule.ShiftFrom(existing, pos) {
		next := it.Position + 1
		g.Go(func() error {
			_, err := s.items.Update(gctx, dayID, it.ID, domain.ItemPatch{Position: &next})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Item{}, s.fail("AddItem", err)
	}

	created, err := s.items.Create(ctx, dayID, item, pos)
	if err != nil {
		return domain.Item{}, s.fail("AddItem", err)
	}

	s.mu.Lock()
	list := make([]domain.Item, 0, len(s.index[dayID])+1)
	for _, it := range s.index[dayID] {
		if it.ID == created.ID {
			continue // already installed by a concurrent load
		}
		if it.Position >= pos {
			it.Position++
		}
		list = append(list, it)
	}
	s.index[dayID] = schedule.SortByPosition(append(list, created))
	s.mu.Unlock()

	return created, nil
}

// UpdateItem persists a field change and then replaces the local item with the
// row returned. The item keeps its position even when its start time changes;
// use ReorderItems to move it. An item that is not in the day's local list is
// domain.ErrNotFound and nothing is written.
func (s *Store) UpdateItem(ctx context.Context, itemID, dayID uuid.UUID, patch domain.ItemPatch) (domain.Item, error) {
	unlock := s.locks.Lock(dayID)
	defer unlock()
	s.begin()
	defer s.end()
	s.clearErr()

	if patch.Position != nil {
		return domain.Item{}, s.fail("UpdateItem", fmt.Errorf("%w: position is changed by reordering", domain.ErrValidation))
	}
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		if t == "" {
			return domain.Item{}, s.fail("UpdateItem", fmt.Errorf("%w: title is required", domain.ErrValidation))
		}
		patch.Title = &t
	}
	if err := s.ownedItem(dayID, itemID); err != nil {
		return domain.Item{}, s.fail("UpdateItem", err)
	}

	updated, err := s.items.Update(ctx, dayID, itemID, patch)
	if err != nil {
		return domain.Item{}, s.fail("UpdateItem", err)
	}

	s.mu.Lock()
	if list, ok := s.index[dayID]; ok {
		out := make([]domain.Item, len(list))
		for i, it := range list {
			if it.ID == itemID {
				it = updated
			}
			out[i] = it
		}
		s.index[dayID] = schedule.SortByPosition(out)
	}
	s.mu.Unlock()

	return updated, nil
}

// DeleteItem removes an activity and compacts the positions of the rest of the
// day. The compacted positions are written in the background. An item that is
// not in the day's local list is domain.ErrNotFound and nothing is written.
func (s *Store) DeleteItem(ctx context.Context, itemID, dayID uuid.UUID) error {
	unlock := s.locks.Lock(dayID)
	defer unlock()
	s.begin()
	defer s.end()
	s.clearErr()

	if err := s.ownedItem(dayID, itemID); err != nil {
		return s.fail("DeleteItem", err)
	}
	if err := s.items.Delete(ctx, dayID, itemID); err != nil {
		return s.fail("DeleteItem", err)
	}

	var moved []uuid.UUID
	s.mu.Lock()
	if list, ok := s.index[dayID]; ok {
		rest := make([]domain.Item, 0, len(list))
		for _, it := range list {
			if it.ID != itemID {
				rest = append(rest, it)
			}
		}
		before := make(map[uuid.UUID]int, len(rest))
		for _, it := range rest {
			before[it.ID] = it.Position
		}
		rest = schedule.Compact(rest)
		for _, it := range rest {
			if before[it.ID] != it.Position {
				moved = append(moved, it.ID)
			}
		}
		s.index[dayID] = rest
	}
	s.mu.Unlock()

	for _, id := range moved {
		s.recon.Enqueue(s.positionTask(dayID, id))
	}
	return nil
}

// ReorderItems makes ordered the day's item list, positions rewritten 0..N-1
// in that order. ordered must hold exactly the day's items.
//
// The new order is applied locally before it is written. Every position write
// is attempted; if any fails the day is refetched and the returned error wraps
// ErrReverted.
func (s *Store) ReorderItems(ctx context.Context, dayID uuid.UUID, ordered []domain.Item) error {
	return s.reorder(ctx, dayID, func([]domain.Item) ([]domain.Item, error) {
		return ordered, nil
	})
}

// ReorderByID is ReorderItems keyed by item ids; the items themselves are taken
// from the local list.
func (s *Store) ReorderByID(ctx context.Context, dayID uuid.UUID, ids []uuid.UUID) error {
	return s.reorder(ctx, dayID, func(current []domain.Item) ([]domain.Item, error) {
		byID := make(map[uuid.UUID]domain.Item, len(current))
		for _, it := range current {
			byID[it.ID] = it
		}
		out := make([]domain.Item, 0, len(ids))
		for _, id := range ids {
			it, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("%w: item %s is not in day %s", domain.ErrValidation, id, dayID)
			}
			out = append(out, it)
		}
		return out, nil
	})
}

func (s *Store) reorder(ctx context.Context, dayID uuid.UUID, order func([]domain.Item) ([]domain.Item, error)) error {
	unlock := s.locks.Lock(dayID)
	defer unlock()
	s.begin()
	defer s.end()
	s.clearErr()

	current, ok := s.localItems(dayID)
	if !ok {
		return s.fail("ReorderItems", fmt.Errorf("%w: day %s", domain.ErrNotFound, dayID))
	}
	ordered, err := order(current)
	if err != nil {
		return s.fail("ReorderItems", err)
	}
	if err := samePermutation(current, ordered); err != nil {
		return s.fail("ReorderItems", err)
	}

	next := make([]domain.Item, len(ordered))
	for i, it := range ordered {
		it.Position = i
		it.DayID = dayID
		next[i] = it
	}
	s.mu.Lock()
	s.index[dayID] = next
	s.mu.Unlock()

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(fanOut)
	for _, it := range next {
		pos := it.Position
		g.Go(func() error {
			if _, err := s.items.Update(ctx, dayID, it.ID, domain.ItemPatch{Position: &pos}); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	if len(errs) == 0 {
		return nil
	}

	cause := errors.Join(errs...)
	if err := s.resyncDay(ctx, dayID); err != nil {
		s.log.Warn("refetch after failed reorder", "day_id", dayID, "error", err)
		s.mu.Lock()
		s.index[dayID] = current
		s.mu.Unlock()
	}
	return s.fail("ReorderItems", fmt.Errorf("%w: %w", ErrReverted, cause))
}

// resyncDay refetches the tree and replaces the item list of one day.
// The caller holds the day's lock.
func (s *Store) resyncDay(ctx context.Context, dayID uuid.UUID) error {
	it, ok := s.Itinerary()
	if !ok {
		return ErrNotLoaded
	}
	tree, err := s.itineraries.GetTree(ctx, it.ID)
	if err != nil {
		return err
	}
	idx := BuildIndex(tree.Days)

	s.mu.Lock()
	defer s.mu.Unlock()
	if items, ok := idx[dayID]; ok {
		s.index[dayID] = items
	} else {
		delete(s.index, dayID)
	}
	return nil
}

// positionTask writes an item's current local position.
func (s *Store) positionTask(dayID, itemID uuid.UUID) Task {
	return Task{
		Name: "reposition item " + itemID.String(),
		Run: func(ctx context.Context) error {
			unlock := s.locks.Lock(dayID)
			defer unlock()

			pos, ok := s.localPosition(dayID, itemID)
			if !ok {
				return nil
			}
			_, err := s.items.Update(ctx, dayID, itemID, domain.ItemPatch{Position: &pos})
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		},
	}
}

func (s *Store) localItems(dayID uuid.UUID) ([]domain.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, ok := s.index[dayID]
	if !ok {
		return nil, false
	}
	return append([]domain.Item{}, list...), true
}

// ownedItem returns domain.ErrNotFound unless itemID is in the local list of dayID.
func (s *Store) ownedItem(dayID, itemID uuid.UUID) error {
	if err := s.requireLoaded(uuid.Nil); err != nil {
		return err
	}
	if _, ok := s.localPosition(dayID, itemID); !ok {
		return fmt.Errorf("%w: item %s in day %s", domain.ErrNotFound, itemID, dayID)
	}
	return nil
}

func (s *Store) localPosition(dayID, itemID uuid.UUID) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.index[dayID] {
		if it.ID == itemID {
			return it.Position, true
		}
	}
	return 0, false
}

// samePermutation checks that ordered holds each item of current exactly once.
func samePermutation(current, ordered []domain.Item) error {
	if len(current) != len(ordered) {
		return fmt.Errorf("%w: expected %d items, got %d", domain.ErrValidation, len(current), len(ordered))
	}
	want := make(map[uuid.UUID]bool, len(current))
	for _, it := range current {
		want[it.ID] = true
	}
	for _, it := range ordered {
		if !want[it.ID] {
			return fmt.Errorf("%w: item %s listed twice or not in this day", domain.ErrValidation, it.ID)
		}
		delete(want, it.ID)
	}
	return nil
}
