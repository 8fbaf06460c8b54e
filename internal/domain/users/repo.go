package users

import (
	"context"
	"errors"

	"github.com/Spok95/meetapp/internal/domain/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Get(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, telegram_id, created_at, updated_at
		FROM users WHERE id = $1
	`, id)

	var u User
	var tg *int64
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &tg, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.ErrNotFound, "user %d", id)
		}
		return nil, err
	}
	if tg != nil {
		u.TelegramID = *tg
	}
	return &u, nil
}

// Upsert по id из внешней авторизации. Пустой telegram_id не затирает уже привязанный,
// чужой email превращается в ErrValidation.
func (r *Repo) Upsert(ctx context.Context, u *User) error {
	var tg *int64
	if u.TelegramID != 0 {
		tg = &u.TelegramID
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, telegram_id)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id)
		DO UPDATE SET
			name        = EXCLUDED.name,
			email       = EXCLUDED.email,
			telegram_id = COALESCE(EXCLUDED.telegram_id, users.telegram_id),
			updated_at  = now()
		RETURNING telegram_id, created_at, updated_at
	`, u.ID, u.Name, u.Email, tg).Scan(&tg, &u.CreatedAt, &u.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Wrap(apperr.ErrValidation, "email %s is used by another user", u.Email)
	}
	if err != nil {
		return err
	}
	if tg != nil {
		u.TelegramID = *tg
	}
	return nil
}
