// Package user ведёт справочник контактов: по ним уведомления находят организатора.
// Сам id пользователя выдаёт внешняя авторизация.
package user

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/Spok95/meetapp/internal/domain/apperr"
	"github.com/Spok95/meetapp/internal/domain/users"
	"github.com/Spok95/meetapp/internal/infra/metrics"
	"github.com/Spok95/meetapp/internal/service"
)

type Store interface {
	Get(ctx context.Context, id int64) (*users.User, error)
	Upsert(ctx context.Context, u *users.User) error
}

type Profile struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	TelegramID int64  `json:"telegram_id,omitempty"`
}

type Service struct {
	log   *slog.Logger
	users Store
}

func New(log *slog.Logger, users Store) *Service {
	return &Service{log: log, users: users}
}

func (s *Service) Get(ctx context.Context, id int64) (*users.User, error) {
	return s.users.Get(ctx, id)
}

// Save создаёт или обновляет контакты пользователя id.
func (s *Service) Save(ctx context.Context, id int64, p Profile) (u *users.User, err error) {
	defer func() {
		metrics.ObserveOperation("profile_save", service.Result(err, apperr.Kind))
		if err != nil && !apperr.IsBusiness(err) {
			s.log.Error("profile save failed", "user_id", id, "err", err)
		}
	}()

	if id <= 0 {
		return nil, apperr.Wrap(apperr.ErrValidation, "user is required")
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, apperr.Wrap(apperr.ErrValidation, "name is required")
	}
	addr, perr := mail.ParseAddress(strings.TrimSpace(p.Email))
	if perr != nil {
		return nil, apperr.Wrap(apperr.ErrValidation, "invalid email %q", p.Email)
	}
	if p.TelegramID < 0 {
		return nil, apperr.Wrap(apperr.ErrValidation, "invalid telegram id")
	}

	u = &users.User{ID: id, Name: name, Email: strings.ToLower(addr.Address), TelegramID: p.TelegramID}
	if err := s.users.Upsert(ctx, u); err != nil {
		if apperr.IsBusiness(err) {
			return nil, err
		}
		return nil, fmt.Errorf("upsert user %d: %w", id, err)
	}
	s.log.Info("profile saved", "user_id", id)
	return u, nil
}
