package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Spok95/meetapp/internal/clock"
	"github.com/Spok95/meetapp/internal/domain/apperr"
	"github.com/Spok95/meetapp/internal/domain/meetups"
	"github.com/Spok95/meetapp/internal/domain/subscriptions"
	"github.com/Spok95/meetapp/internal/domain/users"
	"github.com/Spok95/meetapp/internal/infra/metrics"
	"github.com/Spok95/meetapp/internal/lock"
	"github.com/Spok95/meetapp/internal/notify"
	"github.com/Spok95/meetapp/internal/rules"
	"github.com/Spok95/meetapp/internal/service"
)

type MeetupGetter interface {
	Get(ctx context.Context, id int64) (*meetups.Meetup, error)
}

type Store interface {
	Get(ctx context.Context, id int64) (*subscriptions.Subscription, error)
	Insert(ctx context.Context, s *subscriptions.Subscription) error
	Delete(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID int64) ([]subscriptions.WithMeetup, error)
}

type UserGetter interface {
	Get(ctx context.Context, id int64) (*users.User, error)
}

type Service struct {
	log        *slog.Logger
	clock      clock.Clock
	meetups    MeetupGetter
	subs       Store
	users      UserGetter
	dispatcher notify.Dispatcher
	locks      *lock.Keyed
}

type Deps struct {
	Log        *slog.Logger
	Clock      clock.Clock
	Meetups    MeetupGetter
	Subs       Store
	Users      UserGetter // может быть nil: тогда в уведомление уходит только id
	Dispatcher notify.Dispatcher
	Locks      *lock.Keyed
}

func New(d Deps) *Service {
	return &Service{
		log:        d.Log,
		clock:      d.Clock,
		meetups:    d.Meetups,
		subs:       d.Subs,
		users:      d.Users,
		dispatcher: d.Dispatcher,
		locks:      d.Locks,
	}
}

func (s *Service) observe(op string, err error) {
	metrics.ObserveOperation(op, service.Result(err, apperr.Kind))
	if err != nil && !apperr.IsBusiness(err) {
		s.log.Error("subscription operation failed", "op", op, "err", err)
	}
}

func requireActor(id int64) error {
	if id <= 0 {
		return apperr.Wrap(apperr.ErrValidation, "user is required")
	}
	return nil
}

// Subscribe оформляет подписку и ставит уведомление организатору.
// Уведомление не блокирует и не откатывает подписку.
func (s *Service) Subscribe(ctx context.Context, userID, meetupID int64) (sub *subscriptions.Subscription, err error) {
	defer func() { s.observe("subscribe", err) }()

	if err := requireActor(userID); err != nil {
		return nil, err
	}

	m, sub, err := s.subscribe(ctx, userID, meetupID)
	if err != nil {
		return nil, err
	}

	s.dispatcher.Notify(ctx, *m, s.subscriber(ctx, userID))
	s.log.Info("subscribed", "subscription_id", sub.ID, "meetup_id", meetupID, "user_id", userID)
	return sub, nil
}

func (s *Service) subscribe(ctx context.Context, userID, meetupID int64) (*meetups.Meetup, *subscriptions.Subscription, error) {
	unlock := s.locks.Lock(service.MeetupKey(meetupID), service.UserKey(userID))
	defer unlock()

	m, err := s.meetups.Get(ctx, meetupID)
	if err != nil {
		return nil, nil, err
	}
	existing, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list subscriptions of user %d: %w", userID, err)
	}
	if err := rules.CheckSubscribe(*m, userID, existing, s.clock.Now()); err != nil {
		return nil, nil, err
	}

	sub := &subscriptions.Subscription{UserID: userID, MeetupID: meetupID}
	if err := s.subs.Insert(ctx, sub); err != nil {
		return nil, nil, err
	}
	return m, sub, nil
}

func (s *Service) subscriber(ctx context.Context, userID int64) users.User {
	if s.users != nil {
		u, err := s.users.Get(ctx, userID)
		if err == nil {
			return *u
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			s.log.Warn("subscriber lookup failed", "user_id", userID, "err", err)
		}
	}
	return users.User{ID: userID}
}

func (s *Service) Unsubscribe(ctx context.Context, subscriptionID, requesterID int64) (err error) {
	defer func() { s.observe("unsubscribe", err) }()

	if err := requireActor(requesterID); err != nil {
		return err
	}

	sub, err := s.subs.Get(ctx, subscriptionID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(service.MeetupKey(sub.MeetupID), service.UserKey(sub.UserID))
	defer unlock()

	// перечитываем под блокировкой: подписку могли удалить параллельно
	sub, err = s.subs.Get(ctx, subscriptionID)
	if err != nil {
		return err
	}
	m, err := s.meetups.Get(ctx, sub.MeetupID)
	if err != nil {
		return err
	}
	if err := rules.CheckUnsubscribe(*sub, *m, requesterID, s.clock.Now()); err != nil {
		return err
	}
	if err := s.subs.Delete(ctx, subscriptionID); err != nil {
		return err
	}
	s.log.Info("unsubscribed", "subscription_id", subscriptionID, "meetup_id", sub.MeetupID, "user_id", requesterID)
	return nil
}

// ListMine: подписки пользователя на будущие встречи, ближайшие первыми.
func (s *Service) ListMine(ctx context.Context, userID int64) ([]subscriptions.WithMeetup, error) {
	list, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rules.Upcoming(list, s.clock.Now()), nil
}

// Now отдаёт время тех же часов, по которым проверяются правила.
func (s *Service) Now() time.Time { return s.clock.Now() }
