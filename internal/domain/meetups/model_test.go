package meetups

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMeetup_Past(t *testing.T) {
	now := time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC)

	assert.True(t, Meetup{Date: now.Add(-time.Second)}.Past(now))
	assert.False(t, Meetup{Date: now}.Past(now), "meetup starting right now is not past yet")
	assert.False(t, Meetup{Date: now.Add(time.Hour)}.Past(now))
}

func TestPatch_Apply(t *testing.T) {
	base := Meetup{ID: 7, OwnerID: 1, Title: "Go meetup", Description: "talks", Location: "Hall A"}
	title := "Go meetup #2"
	date := time.Date(2026, 6, 1, 19, 0, 0, 0, time.UTC)
	banner := int64(42)

	got := Patch{Title: &title, Date: &date, BannerID: &banner}.Apply(base)

	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, int64(1), got.OwnerID)
	assert.Equal(t, "Go meetup #2", got.Title)
	assert.Equal(t, "talks", got.Description)
	assert.Equal(t, "Hall A", got.Location)
	assert.Equal(t, date, got.Date)
	if assert.NotNil(t, got.BannerID) {
		assert.Equal(t, int64(42), *got.BannerID)
	}
	assert.Equal(t, "Go meetup", base.Title, "original must stay untouched")
}

func TestPatch_Empty(t *testing.T) {
	assert.True(t, Patch{}.Empty())
	loc := "Hall B"
	assert.False(t, Patch{Location: &loc}.Empty())
}

func TestFilter_Match(t *testing.T) {
	day := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	end := day.Add(24*time.Hour - time.Nanosecond)
	f := Filter{From: &day, To: &end, OwnerID: 3}

	assert.True(t, f.Match(Meetup{OwnerID: 3, Date: day}))
	assert.True(t, f.Match(Meetup{OwnerID: 3, Date: end}))
	assert.False(t, f.Match(Meetup{OwnerID: 3, Date: end.Add(time.Nanosecond)}))
	assert.False(t, f.Match(Meetup{OwnerID: 4, Date: day.Add(time.Hour)}))
	assert.True(t, Filter{}.Match(Meetup{OwnerID: 9}))
}
