package users

import (
	"context"
	"sync"
	"time"

	"github.com/Spok95/meetapp/internal/domain/apperr"
)

type MemStore struct {
	mu   sync.RWMutex
	byID map[int64]User
}

func NewMemStore() *MemStore { return &MemStore{byID: make(map[int64]User)} }

func (s *MemStore) Get(_ context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, apperr.Wrap(apperr.ErrNotFound, "user %d", id)
	}
	return &u, nil
}

func (s *MemStore) Upsert(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cur := range s.byID {
		if id != u.ID && cur.Email == u.Email {
			return apperr.Wrap(apperr.ErrValidation, "email %s is used by another user", u.Email)
		}
	}
	now := time.Now().UTC()
	if cur, ok := s.byID[u.ID]; ok {
		u.CreatedAt = cur.CreatedAt
		if u.TelegramID == 0 {
			u.TelegramID = cur.TelegramID
		}
	} else {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	s.byID[u.ID] = *u
	return nil
}
