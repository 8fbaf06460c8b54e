package subscriptions

import (
	"context"
	"errors"

	"github.com/Spok95/meetapp/internal/domain/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type Repo struct{ db *pgxpool.Pool }

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{db: db} }

func (r *Repo) Get(ctx context.Context, id int64) (*Subscription, error) {
	var s Subscription
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, meetup_id, created_at FROM subscriptions WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.MeetupID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.ErrNotFound, "subscription %d", id)
		}
		return nil, err
	}
	return &s, nil
}

// Insert опирается на UNIQUE (user_id, meetup_id): повтор превращается в ErrDuplicateSubscription.
func (r *Repo) Insert(ctx context.Context, s *Subscription) error {
	const q = `
INSERT INTO subscriptions (user_id, meetup_id)
VALUES ($1, $2)
RETURNING id, created_at`
	err := r.db.QueryRow(ctx, q, s.UserID, s.MeetupID).Scan(&s.ID, &s.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Wrap(apperr.ErrDuplicateSubscription, "user %d, meetup %d", s.UserID, s.MeetupID)
	}
	return err
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.Wrap(apperr.ErrNotFound, "subscription %d", id)
	}
	return nil
}

func (r *Repo) DeleteByMeetup(ctx context.Context, meetupID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM subscriptions WHERE meetup_id = $1`, meetupID)
	return err
}

func (r *Repo) ListByMeetup(ctx context.Context, meetupID int64) ([]Subscription, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, meetup_id, created_at FROM subscriptions WHERE meetup_id = $1 ORDER BY id`, meetupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		var s Subscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.MeetupID, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListByUser возвращает все подписки пользователя (и прошедшие тоже) по возрастанию даты встречи.
func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]WithMeetup, error) {
	const q = `
SELECT s.id, s.user_id, s.meetup_id, s.created_at,
       m.id, m.owner_id, m.title, m.description, m.location, m.date, m.banner_id, m.created_at, m.updated_at
FROM subscriptions s
JOIN meetups m ON m.id = s.meetup_id
WHERE s.user_id = $1
ORDER BY m.date, s.id`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WithMeetup
	for rows.Next() {
		var w WithMeetup
		if err := rows.Scan(
			&w.ID,
			&w.UserID,
			&w.MeetupID,
			&w.CreatedAt,
			&w.Meetup.ID,
			&w.Meetup.OwnerID,
			&w.Meetup.Title,
			&w.Meetup.Description,
			&w.Meetup.Location,
			&w.Meetup.Date,
			&w.Meetup.BannerID,
			&w.Meetup.CreatedAt,
			&w.Meetup.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *Repo) CountByMeetups(ctx context.Context, meetupIDs []int64) (map[int64]int, error) {
	out := make(map[int64]int, len(meetupIDs))
	if len(meetupIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT meetup_id, COUNT(*) FROM subscriptions WHERE meetup_id = ANY($1) GROUP BY meetup_id`, meetupIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}
