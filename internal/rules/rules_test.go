package rules

import (
	"testing"
	"time"

	"github.com/Spok95/meetapp/internal/domain/apperr"
	"github.com/Spok95/meetapp/internal/domain/meetups"
	"github.com/Spok95/meetapp/internal/domain/subscriptions"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 4, 20, 15, 0, 0, 0, time.UTC)

func validInput(date time.Time) meetups.CreateInput {
	return meetups.CreateInput{Title: "Gophers", Description: "Monthly talks", Location: "Hall A", Date: date}
}

func TestCheckCreate(t *testing.T) {
	tests := []struct {
		name    string
		owner   int64
		in      meetups.CreateInput
		wantErr error
	}{
		{"ok", 1, validInput(now.Add(time.Hour)), nil},
		{"no owner", 0, validInput(now.Add(time.Hour)), apperr.ErrValidation},
		{"blank title", 1, meetups.CreateInput{Title: "  ", Description: "d", Location: "l", Date: now.Add(time.Hour)}, apperr.ErrValidation},
		{"no description", 1, meetups.CreateInput{Title: "t", Location: "l", Date: now.Add(time.Hour)}, apperr.ErrValidation},
		{"no location", 1, meetups.CreateInput{Title: "t", Description: "d", Date: now.Add(time.Hour)}, apperr.ErrValidation},
		{"no date", 1, validInput(time.Time{}), apperr.ErrValidation},
		{"date is now", 1, validInput(now), apperr.ErrInvalidSchedule},
		{"date in past", 1, validInput(now.Add(-time.Minute)), apperr.ErrInvalidSchedule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCreate(tt.owner, tt.in, now)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckPatch(t *testing.T) {
	empty := ""
	title := "New title"

	assert.ErrorIs(t, CheckPatch(meetups.Patch{}), apperr.ErrValidation)
	assert.ErrorIs(t, CheckPatch(meetups.Patch{Location: &empty}), apperr.ErrValidation)
	assert.NoError(t, CheckPatch(meetups.Patch{Title: &title}))
}

func TestCheckMutate(t *testing.T) {
	m := meetups.Meetup{ID: 1, OwnerID: 7, Date: now.Add(time.Hour)}

	assert.NoError(t, CheckMutate(m, 7, now))
	assert.ErrorIs(t, CheckMutate(m, 8, now), apperr.ErrPermission)

	past := meetups.Meetup{ID: 2, OwnerID: 7, Date: now.Add(-time.Second)}
	assert.ErrorIs(t, CheckMutate(past, 7, now), apperr.ErrPastEvent)
}

func TestCheckSubscribe(t *testing.T) {
	at := now.Add(3 * time.Hour)
	a := meetups.Meetup{ID: 1, OwnerID: 1, Date: at}
	b := meetups.Meetup{ID: 2, OwnerID: 3, Date: at}
	c := meetups.Meetup{ID: 3, OwnerID: 3, Date: at.Add(time.Minute)}
	holding := []subscriptions.WithMeetup{{Subscription: subscriptions.Subscription{ID: 10, UserID: 2, MeetupID: 1}, Meetup: a}}

	tests := []struct {
		name     string
		m        meetups.Meetup
		user     int64
		existing []subscriptions.WithMeetup
		wantErr  error
	}{
		{"first subscription", a, 2, nil, nil},
		{"own meetup", a, 1, nil, apperr.ErrSelfSubscription},
		{"past meetup", meetups.Meetup{ID: 4, OwnerID: 1, Date: now.Add(-time.Minute)}, 2, nil, apperr.ErrPastEvent},
		{"duplicate", a, 2, holding, apperr.ErrDuplicateSubscription},
		{"same instant", b, 2, holding, apperr.ErrScheduleConflict},
		{"a minute later", c, 2, holding, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSubscribe(tt.m, tt.user, tt.existing, now)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckReschedule(t *testing.T) {
	at := now.Add(5 * time.Hour)
	held := []subscriptions.WithMeetup{
		{Subscription: subscriptions.Subscription{ID: 1, UserID: 2, MeetupID: 1}, Meetup: meetups.Meetup{ID: 1, Date: now.Add(3 * time.Hour)}},
		{Subscription: subscriptions.Subscription{ID: 2, UserID: 2, MeetupID: 2}, Meetup: meetups.Meetup{ID: 2, Date: at}},
	}

	assert.ErrorIs(t, CheckReschedule(1, at, held), apperr.ErrScheduleConflict)
	assert.NoError(t, CheckReschedule(1, at.Add(time.Second), held))
	// своя же встреча на прежнем времени не конфликт
	assert.NoError(t, CheckReschedule(2, at, held))
	assert.NoError(t, CheckReschedule(1, at, nil))
}

func TestCheckSubscribe_SelfCheckedBeforePast(t *testing.T) {
	m := meetups.Meetup{ID: 1, OwnerID: 1, Date: now.Add(-time.Hour)}
	assert.ErrorIs(t, CheckSubscribe(m, 1, nil, now), apperr.ErrSelfSubscription)
}

func TestCheckUnsubscribe(t *testing.T) {
	m := meetups.Meetup{ID: 1, OwnerID: 1, Date: now.Add(3 * time.Hour)}
	s := subscriptions.Subscription{ID: 5, UserID: 2, MeetupID: 1}

	assert.NoError(t, CheckUnsubscribe(s, m, 2, now))
	assert.ErrorIs(t, CheckUnsubscribe(s, m, 3, now), apperr.ErrPermission)

	justBefore := m.Date.Add(-CancellationWindow - time.Nanosecond)
	assert.NoError(t, CheckUnsubscribe(s, m, 2, justBefore))

	boundary := m.Date.Add(-CancellationWindow)
	assert.ErrorIs(t, CheckUnsubscribe(s, m, 2, boundary), apperr.ErrCancellationWindow)

	assert.ErrorIs(t, CheckUnsubscribe(s, m, 2, m.Date.Add(-90*time.Minute)), apperr.ErrCancellationWindow)
	assert.ErrorIs(t, CheckUnsubscribe(s, m, 2, m.Date.Add(time.Minute)), apperr.ErrPastEvent)
}

func TestSubscriptionState(t *testing.T) {
	m := meetups.Meetup{Date: now.Add(3 * time.Hour)}

	assert.Equal(t, StateActive, SubscriptionState(m, now))
	assert.Equal(t, StateLocked, SubscriptionState(m, m.Date.Add(-CancellationWindow)))
	assert.Equal(t, StateLocked, SubscriptionState(m, m.Date))
	assert.Equal(t, StatePast, SubscriptionState(m, m.Date.Add(time.Nanosecond)))
}

func TestUpcoming(t *testing.T) {
	list := []subscriptions.WithMeetup{
		{Subscription: subscriptions.Subscription{ID: 1}, Meetup: meetups.Meetup{Date: now.Add(48 * time.Hour)}},
		{Subscription: subscriptions.Subscription{ID: 2}, Meetup: meetups.Meetup{Date: now.Add(-time.Hour)}},
		{Subscription: subscriptions.Subscription{ID: 3}, Meetup: meetups.Meetup{Date: now}},
		{Subscription: subscriptions.Subscription{ID: 4}, Meetup: meetups.Meetup{Date: now.Add(time.Hour)}},
	}

	got := Upcoming(list, now)
	if assert.Len(t, got, 2) {
		assert.Equal(t, int64(4), got[0].ID)
		assert.Equal(t, int64(1), got[1].ID)
	}
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	start, end := DayBounds(time.Date(2026, 4, 20, 17, 45, 0, 0, loc))

	assert.Equal(t, time.Date(2026, 4, 20, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2026, 4, 20, 23, 59, 59, 999999999, loc), end)
}

func TestPage(t *testing.T) {
	limit, offset := Page(0)
	assert.Equal(t, 10, limit)
	assert.Equal(t, 0, offset)

	_, offset = Page(3)
	assert.Equal(t, 20, offset)
}
