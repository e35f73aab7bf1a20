package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkordes/trip-itinerary/backend/internal/domain"
)

func TestItemPatch_Apply(t *testing.T) {
	loc := "Old Town"
	start := domain.ClockTime(600)
	item := domain.Item{Title: "Walk", Location: &loc, StartTime: &start, Position: 2}

	title := "Guided walk"
	patch := domain.ItemPatch{
		Title:     &title,
		Location:  domain.Null[string](),
		StartTime: domain.Some(domain.ClockTime(660)),
	}

	got := patch.Apply(item)

	assert.Equal(t, "Guided walk", got.Title)
	assert.Nil(t, got.Location, "Null should clear the location")
	assert.Equal(t, 660, got.StartTime.Minutes())
	assert.Equal(t, 2, got.Position, "position is untouched when not patched")
	assert.Equal(t, "Old Town", loc, "Apply must not write through to the original")
}

func TestItemPatch_IsEmpty(t *testing.T) {
	assert.True(t, domain.ItemPatch{}.IsEmpty())
	assert.False(t, domain.ItemPatch{Description: domain.Null[string]()}.IsEmpty())
}

func TestDayPatch_Apply(t *testing.T) {
	d := domain.Day{DayNumber: 3}
	n := 1
	got := domain.DayPatch{DayNumber: &n, Title: domain.Some(domain.DefaultDayTitle(1))}.Apply(d)

	assert.Equal(t, 1, got.DayNumber)
	assert.Equal(t, "Day 1", *got.Title)
	assert.Nil(t, got.Date)
}

func TestDay_Clone(t *testing.T) {
	title := "Arrival"
	loc := "Harbour"
	d := domain.Day{DayNumber: 1, Title: &title, Items: []domain.Item{{Title: "Ferry", Location: &loc}}}

	c := d.Clone()
	*c.Title = "changed"
	*c.Items[0].Location = "changed"
	c.Items[0].Title = "changed"

	assert.Equal(t, "Arrival", *d.Title)
	assert.Equal(t, "Harbour", *d.Items[0].Location)
	assert.Equal(t, "Ferry", d.Items[0].Title)
	assert.Nil(t, domain.CloneItems(nil))
}
