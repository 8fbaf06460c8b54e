package meetups

import (
	"context"
	"sync"
	"time"

	"github.com/Spok95/meetapp/internal/domain/apperr"
)

// MemStore: хранилище в памяти, порядок выдачи совпадает с порядком вставки.
type MemStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]Meetup
	order  []int64
	now    func() time.Time
}

func NewMemStore(now func() time.Time) *MemStore {
	if now == nil {
		now = time.Now
	}
	return &MemStore{byID: make(map[int64]Meetup), now: now}
}

func (s *MemStore) Get(_ context.Context, id int64) (*Meetup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	if !ok {
		return nil, apperr.Wrap(apperr.ErrNotFound, "meetup %d", id)
	}
	return &m, nil
}

func (s *MemStore) Insert(_ context.Context, m *Meetup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	m.CreatedAt = s.now()
	m.UpdatedAt = m.CreatedAt
	s.byID[m.ID] = *m
	s.order = append(s.order, m.ID)
	return nil
}

func (s *MemStore) Update(_ context.Context, m *Meetup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[m.ID]
	if !ok {
		return apperr.Wrap(apperr.ErrNotFound, "meetup %d", m.ID)
	}
	m.OwnerID = cur.OwnerID
	m.CreatedAt = cur.CreatedAt
	m.UpdatedAt = s.now()
	s.byID[m.ID] = *m
	return nil
}

func (s *MemStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return apperr.Wrap(apperr.ErrNotFound, "meetup %d", id)
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemStore) List(_ context.Context, f Filter) ([]Meetup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Meetup
	skipped := 0
	for _, id := range s.order {
		m := s.byID[id]
		if !f.Match(m) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, m)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}
