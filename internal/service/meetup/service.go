package meetup

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Spok95/meetapp/internal/clock"
	"github.com/Spok95/meetapp/internal/domain/apperr"
	"github.com/Spok95/meetapp/internal/domain/meetups"
	"github.com/Spok95/meetapp/internal/domain/subscriptions"
	"github.com/Spok95/meetapp/internal/export"
	"github.com/Spok95/meetapp/internal/infra/metrics"
	"github.com/Spok95/meetapp/internal/lock"
	"github.com/Spok95/meetapp/internal/rules"
	"github.com/Spok95/meetapp/internal/service"
)

type Store interface {
	Get(ctx context.Context, id int64) (*meetups.Meetup, error)
	Insert(ctx context.Context, m *meetups.Meetup) error
	Update(ctx context.Context, m *meetups.Meetup) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f meetups.Filter) ([]meetups.Meetup, error)
}

// Subscriptions: то, что сервису встреч нужно знать о подписках.
type Subscriptions interface {
	ListByMeetup(ctx context.Context, meetupID int64) ([]subscriptions.Subscription, error)
	ListByUser(ctx context.Context, userID int64) ([]subscriptions.WithMeetup, error)
	DeleteByMeetup(ctx context.Context, meetupID int64) error
	CountByMeetups(ctx context.Context, meetupIDs []int64) (map[int64]int, error)
}

type Service struct {
	log     *slog.Logger
	clock   clock.Clock
	meetups Store
	subs    Subscriptions
	locks   *lock.Keyed
}

func New(log *slog.Logger, clk clock.Clock, meetups Store, subs Subscriptions, locks *lock.Keyed) *Service {
	return &Service{log: log, clock: clk, meetups: meetups, subs: subs, locks: locks}
}

func (s *Service) observe(op string, err error) {
	metrics.ObserveOperation(op, service.Result(err, apperr.Kind))
	if err != nil && !apperr.IsBusiness(err) {
		s.log.Error("meetup operation failed", "op", op, "err", err)
	}
}

func (s *Service) Create(ctx context.Context, ownerID int64, in meetups.CreateInput) (m *meetups.Meetup, err error) {
	defer func() { s.observe("meetup_create", err) }()

	if err := rules.CheckCreate(ownerID, in, s.clock.Now()); err != nil {
		return nil, err
	}
	m = &meetups.Meetup{
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Date:        in.Date,
		BannerID:    in.BannerID,
	}
	if err := s.meetups.Insert(ctx, m); err != nil {
		return nil, fmt.Errorf("insert meetup: %w", err)
	}
	s.log.Info("meetup created", "meetup_id", m.ID, "owner_id", ownerID)
	return m, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*meetups.Meetup, error) {
	return s.meetups.Get(ctx, id)
}

// Update: сначала владелец и "не прошла ли встреча", потом содержимое патча и новая дата.
// При переносе ни один подписчик не должен оказаться на двух встречах в одно время.
func (s *Service) Update(ctx context.Context, meetupID, requesterID int64, p meetups.Patch) (m *meetups.Meetup, err error) {
	defer func() { s.observe("meetup_update", err) }()

	unlock := s.locks.Lock(service.MeetupKey(meetupID))
	defer unlock()

	cur, err := s.meetups.Get(ctx, meetupID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := rules.CheckMutate(*cur, requesterID, now); err != nil {
		return nil, err
	}
	if err := rules.CheckPatch(p); err != nil {
		return nil, err
	}
	if p.Date != nil {
		if err := rules.CheckSchedule(*p.Date, now); err != nil {
			return nil, err
		}
		if !p.Date.Equal(cur.Date) {
			release, err := s.checkSubscribers(ctx, meetupID, *p.Date)
			if err != nil {
				return nil, err
			}
			defer release()
		}
	}

	next := p.Apply(*cur)
	if err := s.meetups.Update(ctx, &next); err != nil {
		return nil, fmt.Errorf("update meetup %d: %w", meetupID, err)
	}
	s.log.Info("meetup updated", "meetup_id", meetupID)
	return &next, nil
}

// checkSubscribers берёт блокировки подписчиков встречи (ключ встречи уже у вызывающего)
// и проверяет их расписание на новое время. Новых подписчиков не будет: для подписки
// нужен тот же ключ встречи.
func (s *Service) checkSubscribers(ctx context.Context, meetupID int64, date time.Time) (func(), error) {
	subs, err := s.subs.ListByMeetup(ctx, meetupID)
	if err != nil {
		return nil, fmt.Errorf("list subscribers of meetup %d: %w", meetupID, err)
	}
	keys := make([]string, 0, len(subs))
	for _, sub := range subs {
		keys = append(keys, service.UserKey(sub.UserID))
	}
	unlock := s.locks.Lock(keys...)

	for _, sub := range subs {
		held, err := s.subs.ListByUser(ctx, sub.UserID)
		if err != nil {
			unlock()
			return nil, fmt.Errorf("list subscriptions of user %d: %w", sub.UserID, err)
		}
		if err := rules.CheckReschedule(meetupID, date, held); err != nil {
			unlock()
			return nil, err
		}
	}
	return unlock, nil
}

func (s *Service) Delete(ctx context.Context, meetupID, requesterID int64) (err error) {
	defer func() { s.observe("meetup_delete", err) }()

	unlock := s.locks.Lock(service.MeetupKey(meetupID))
	defer unlock()

	cur, err := s.meetups.Get(ctx, meetupID)
	if err != nil {
		return err
	}
	if err := rules.CheckMutate(*cur, requesterID, s.clock.Now()); err != nil {
		return err
	}
	// Встреча удаляется первой: в Postgres подписки уходят вместе с ней (ON DELETE CASCADE)
	// в том же запросе. Если этот шаг не прошёл, подписки остаются на месте.
	if err := s.meetups.Delete(ctx, meetupID); err != nil {
		return fmt.Errorf("delete meetup %d: %w", meetupID, err)
	}
	// Для MemStore каскада нет. Подписки на удалённую встречу уже не видны в ListByUser,
	// поэтому ошибка здесь только логируется.
	if err := s.subs.DeleteByMeetup(ctx, meetupID); err != nil {
		s.log.Error("cleanup subscriptions of deleted meetup", "meetup_id", meetupID, "err", err)
	}
	s.log.Info("meetup deleted", "meetup_id", meetupID)
	return nil
}

// List отдаёт страницу по 10 встреч; с day только встречи этого календарного дня.
func (s *Service) List(ctx context.Context, day *time.Time, page int) ([]meetups.Meetup, error) {
	var f meetups.Filter
	if day != nil {
		from, to := rules.DayBounds(*day)
		f.From, f.To = &from, &to
	}
	f.Limit, f.Offset = rules.Page(page)
	return s.meetups.List(ctx, f)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID int64) ([]meetups.Meetup, error) {
	return s.meetups.List(ctx, meetups.Filter{OwnerID: ownerID})
}

// Export выгружает встречи организатора в xlsx вместе с числом подписчиков.
func (s *Service) Export(ctx context.Context, ownerID int64) (*bytes.Buffer, string, error) {
	list, err := s.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, "", err
	}
	ids := make([]int64, 0, len(list))
	for _, m := range list {
		ids = append(ids, m.ID)
	}
	counts, err := s.subs.CountByMeetups(ctx, ids)
	if err != nil {
		return nil, "", fmt.Errorf("count subscribers: %w", err)
	}
	now := s.clock.Now()
	buf, err := export.OrganizerXLSX(list, counts, now)
	if err != nil {
		return nil, "", fmt.Errorf("build xlsx: %w", err)
	}
	return buf, export.FileName(ownerID, now), nil
}
