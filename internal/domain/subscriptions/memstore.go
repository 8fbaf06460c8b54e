package subscriptions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Spok95/meetapp/internal/domain/apperr"
	"github.com/Spok95/meetapp/internal/domain/meetups"
)

// MeetupGetter нужен MemStore, чтобы собирать WithMeetup без JOIN.
type MeetupGetter interface {
	Get(ctx context.Context, id int64) (*meetups.Meetup, error)
}

type MemStore struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]Subscription
	meetups MeetupGetter
	now     func() time.Time
}

func NewMemStore(m MeetupGetter, now func() time.Time) *MemStore {
	if now == nil {
		now = time.Now
	}
	return &MemStore{byID: make(map[int64]Subscription), meetups: m, now: now}
}

func (s *MemStore) Get(_ context.Context, id int64) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.byID[id]
	if !ok {
		return nil, apperr.Wrap(apperr.ErrNotFound, "subscription %d", id)
	}
	return &sub, nil
}

func (s *MemStore) Insert(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.byID {
		if cur.UserID == sub.UserID && cur.MeetupID == sub.MeetupID {
			return apperr.Wrap(apperr.ErrDuplicateSubscription, "user %d, meetup %d", sub.UserID, sub.MeetupID)
		}
	}
	s.nextID++
	sub.ID = s.nextID
	sub.CreatedAt = s.now()
	s.byID[sub.ID] = *sub
	return nil
}

func (s *MemStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return apperr.Wrap(apperr.ErrNotFound, "subscription %d", id)
	}
	delete(s.byID, id)
	return nil
}

func (s *MemStore) DeleteByMeetup(_ context.Context, meetupID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sub := range s.byID {
		if sub.MeetupID == meetupID {
			delete(s.byID, id)
		}
	}
	return nil
}

func (s *MemStore) ListByMeetup(_ context.Context, meetupID int64) ([]Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Subscription
	for _, sub := range s.byID {
		if sub.MeetupID == meetupID {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) ListByUser(ctx context.Context, userID int64) ([]WithMeetup, error) {
	s.mu.RLock()
	var subs []Subscription
	for _, sub := range s.byID {
		if sub.UserID == userID {
			subs = append(subs, sub)
		}
	}
	s.mu.RUnlock()

	out := make([]WithMeetup, 0, len(subs))
	for _, sub := range subs {
		m, err := s.meetups.Get(ctx, sub.MeetupID)
		if err != nil {
			// встреча удалена между чтениями: такой подписки уже нет
			continue
		}
		out = append(out, WithMeetup{Subscription: sub, Meetup: *m})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Meetup.Date.Equal(out[j].Meetup.Date) {
			return out[i].Meetup.Date.Before(out[j].Meetup.Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemStore) CountByMeetups(_ context.Context, meetupIDs []int64) (map[int64]int, error) {
	want := make(map[int64]struct{}, len(meetupIDs))
	for _, id := range meetupIDs {
		want[id] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]int, len(meetupIDs))
	for _, sub := range s.byID {
		if _, ok := want[sub.MeetupID]; ok {
			out[sub.MeetupID]++
		}
	}
	return out, nil
}
