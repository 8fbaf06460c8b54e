// Package rules содержит чистые проверки жизненного цикла встреч и подписок.
// Все функции детерминированы: текущее время приходит параметром.
package rules

import (
	"sort"
	"strings"
	"time"

	"github.com/Spok95/meetapp/internal/domain/apperr"
	"github.com/Spok95/meetapp/internal/domain/meetups"
	"github.com/Spok95/meetapp/internal/domain/subscriptions"
)

const (
	// CancellationWindow: за столько до начала отписка уже запрещена.
	CancellationWindow = 2 * time.Hour
	PageSize           = 10
)

type State string

const (
	StateActive State = "active"
	StateLocked State = "locked"
	StatePast   State = "past"
)

// SubscriptionState: active -> locked (последние 2 часа) -> past.
func SubscriptionState(m meetups.Meetup, now time.Time) State {
	switch {
	case m.Past(now):
		return StatePast
	case cancellationLocked(m.Date, now):
		return StateLocked
	default:
		return StateActive
	}
}

func cancellationLocked(date, now time.Time) bool {
	return !now.Before(date.Add(-CancellationWindow))
}

func requireText(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return apperr.Wrap(apperr.ErrValidation, "%s is required", field)
	}
	return nil
}

func CheckSchedule(date, now time.Time) error {
	if date.IsZero() {
		return apperr.Wrap(apperr.ErrValidation, "date is required")
	}
	if !date.After(now) {
		return apperr.Wrap(apperr.ErrInvalidSchedule, "date %s is not in the future", date.Format(time.RFC3339))
	}
	return nil
}

func CheckCreate(ownerID int64, in meetups.CreateInput, now time.Time) error {
	if ownerID <= 0 {
		return apperr.Wrap(apperr.ErrValidation, "owner is required")
	}
	for _, f := range []struct{ name, v string }{
		{"title", in.Title},
		{"description", in.Description},
		{"location", in.Location},
	} {
		if err := requireText(f.name, f.v); err != nil {
			return err
		}
	}
	return CheckSchedule(in.Date, now)
}

// CheckPatch проверяет только форму патча; дату сверяет CheckSchedule.
func CheckPatch(p meetups.Patch) error {
	if p.Empty() {
		return apperr.Wrap(apperr.ErrValidation, "nothing to update")
	}
	for _, f := range []struct {
		name string
		v    *string
	}{
		{"title", p.Title},
		{"description", p.Description},
		{"location", p.Location},
	} {
		if f.v == nil {
			continue
		}
		if err := requireText(f.name, *f.v); err != nil {
			return err
		}
	}
	return nil
}

// CheckMutate: общие условия для изменения и удаления встречи.
func CheckMutate(m meetups.Meetup, actorID int64, now time.Time) error {
	if m.OwnerID != actorID {
		return apperr.Wrap(apperr.ErrPermission, "meetup %d belongs to another user", m.ID)
	}
	if m.Past(now) {
		return apperr.Wrap(apperr.ErrPastEvent, "meetup %d", m.ID)
	}
	return nil
}

// CheckSubscribe принимает все текущие подписки пользователя вместе со встречами.
func CheckSubscribe(m meetups.Meetup, userID int64, existing []subscriptions.WithMeetup, now time.Time) error {
	if m.OwnerID == userID {
		return apperr.Wrap(apperr.ErrSelfSubscription, "meetup %d", m.ID)
	}
	if m.Past(now) {
		return apperr.Wrap(apperr.ErrPastEvent, "meetup %d", m.ID)
	}
	for _, s := range existing {
		if s.MeetupID == m.ID {
			return apperr.Wrap(apperr.ErrDuplicateSubscription, "meetup %d", m.ID)
		}
	}
	for _, s := range existing {
		if s.Meetup.Date.Equal(m.Date) {
			return apperr.Wrap(apperr.ErrScheduleConflict, "meetup %d starts together with meetup %d", m.ID, s.MeetupID)
		}
	}
	return nil
}

// CheckReschedule: перенос встречи не должен дать подписчику две подписки на одно и то же время.
// existing: подписки одного подписчика переносимой встречи.
func CheckReschedule(meetupID int64, date time.Time, existing []subscriptions.WithMeetup) error {
	for _, s := range existing {
		if s.MeetupID != meetupID && s.Meetup.Date.Equal(date) {
			return apperr.Wrap(apperr.ErrScheduleConflict,
				"user %d is subscribed to meetup %d at the same time", s.UserID, s.MeetupID)
		}
	}
	return nil
}

func CheckUnsubscribe(s subscriptions.Subscription, m meetups.Meetup, actorID int64, now time.Time) error {
	if s.UserID != actorID {
		return apperr.Wrap(apperr.ErrPermission, "subscription %d belongs to another user", s.ID)
	}
	if m.Past(now) {
		return apperr.Wrap(apperr.ErrPastEvent, "meetup %d", m.ID)
	}
	if cancellationLocked(m.Date, now) {
		return apperr.Wrap(apperr.ErrCancellationWindow, "meetup %d starts at %s", m.ID, m.Date.Format(time.RFC3339))
	}
	return nil
}

// Upcoming оставляет подписки на ещё не начавшиеся встречи, по возрастанию даты.
func Upcoming(list []subscriptions.WithMeetup, now time.Time) []subscriptions.WithMeetup {
	out := make([]subscriptions.WithMeetup, 0, len(list))
	for _, s := range list {
		if s.Meetup.Date.After(now) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Meetup.Date.Before(out[j].Meetup.Date)
	})
	return out
}

// DayBounds: [начало дня, конец дня] в часовом поясе day.
func DayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Page нормализует номер страницы и возвращает limit/offset.
func Page(page int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	return PageSize, (page - 1) * PageSize
}
