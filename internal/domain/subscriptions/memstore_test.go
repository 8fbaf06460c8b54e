package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/Spok95/meetapp/internal/domain/apperr"
	"github.com/Spok95/meetapp/internal/domain/meetups"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_InsertRejectsDuplicatePair(t *testing.T) {
	ctx := context.Background()
	ms := meetups.NewMemStore(nil)
	s := NewMemStore(ms, nil)

	require.NoError(t, s.Insert(ctx, &Subscription{UserID: 2, MeetupID: 1}))
	err := s.Insert(ctx, &Subscription{UserID: 2, MeetupID: 1})
	assert.ErrorIs(t, err, apperr.ErrDuplicateSubscription)

	require.NoError(t, s.Insert(ctx, &Subscription{UserID: 3, MeetupID: 1}))
}

func TestMemStore_ListByUserOrderedByMeetupDate(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	ms := meetups.NewMemStore(nil)
	late := &meetups.Meetup{OwnerID: 1, Title: "late", Date: base.Add(48 * time.Hour)}
	early := &meetups.Meetup{OwnerID: 1, Title: "early", Date: base.Add(2 * time.Hour)}
	require.NoError(t, ms.Insert(ctx, late))
	require.NoError(t, ms.Insert(ctx, early))

	s := NewMemStore(ms, nil)
	require.NoError(t, s.Insert(ctx, &Subscription{UserID: 5, MeetupID: late.ID}))
	require.NoError(t, s.Insert(ctx, &Subscription{UserID: 5, MeetupID: early.ID}))
	require.NoError(t, s.Insert(ctx, &Subscription{UserID: 6, MeetupID: early.ID}))

	got, err := s.ListByUser(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].Meetup.Title)
	assert.Equal(t, "late", got[1].Meetup.Title)
}

func TestMemStore_DeleteByMeetup(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore(meetups.NewMemStore(nil), nil)
	a := &Subscription{UserID: 1, MeetupID: 10}
	b := &Subscription{UserID: 2, MeetupID: 10}
	c := &Subscription{UserID: 2, MeetupID: 11}
	for _, sub := range []*Subscription{a, b, c} {
		require.NoError(t, s.Insert(ctx, sub))
	}

	require.NoError(t, s.DeleteByMeetup(ctx, 10))

	_, err := s.Get(ctx, a.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = s.Get(ctx, b.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = s.Get(ctx, c.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, s.Delete(ctx, a.ID), apperr.ErrNotFound)
	assert.NoError(t, s.Delete(ctx, c.ID))
}

func TestMemStore_ListByMeetup(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore(meetups.NewMemStore(nil), nil)
	for _, sub := range []*Subscription{{UserID: 3, MeetupID: 10}, {UserID: 1, MeetupID: 11}, {UserID: 2, MeetupID: 10}} {
		require.NoError(t, s.Insert(ctx, sub))
	}

	got, err := s.ListByMeetup(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].UserID)
	assert.Equal(t, int64(2), got[1].UserID)

	none, err := s.ListByMeetup(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemStore_CountByMeetups(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore(meetups.NewMemStore(nil), nil)
	for _, sub := range []*Subscription{{UserID: 1, MeetupID: 10}, {UserID: 2, MeetupID: 10}, {UserID: 2, MeetupID: 11}, {UserID: 3, MeetupID: 12}} {
		require.NoError(t, s.Insert(ctx, sub))
	}

	got, err := s.CountByMeetups(ctx, []int64{10, 11, 13})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{10: 2, 11: 1}, got)
}
