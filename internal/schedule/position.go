// Package schedule holds the pure ordering and calendar rules of an itinerary:
// where a new activity lands within a day, and which dates a trip spans.
package schedule

import (
	"sort"

	"github.com/pkordes/trip-itinerary/backend/internal/domain"
)

// ResolvePosition returns the index in [0, len(existing)] at which an activity
// starting at start should be inserted so the day stays time-ordered.
//
// A nil start, or an empty day, appends. Otherwise existing items are scanned in
// position order and the index of the first item whose start time is strictly
// later than start is returned. Untimed items are skipped by the comparison but
// still occupy their slot, and equal start times keep the new item after the
// ones already there.
func ResolvePosition(start *domain.ClockTime, existing []domain.Item) int {
	if start == nil || len(existing) == 0 {
		return len(existing)
	}

	sorted := SortByPosition(existing)
	for i, it := range sorted {
		if it.StartTime != nil && *it.StartTime > *start {
			return i
		}
	}
	return len(existing)
}

// SortByPosition returns a copy of items ordered by Position ascending.
// Items with equal positions keep their relative order.
func SortByPosition(items []domain.Item) []domain.Item {
	out := make([]domain.Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Compact rewrites positions to the dense run 0..N-1 in the current order.
func Compact(items []domain.Item) []domain.Item {
	out := SortByPosition(items)
	for i := range out {
		out[i].Position = i
	}
	return out
}

// ShiftFrom returns the items whose position is at or after pos, in position order.
// These are the rows that move down by one when an item is inserted at pos.
func ShiftFrom(items []domain.Item, pos int) []domain.Item {
	var out []domain.Item
	for _, it := range SortByPosition(items) {
		if it.Position >= pos {
			out = append(out, it)
		}
	}
	return out
}
