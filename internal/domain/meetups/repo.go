package meetups

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Spok95/meetapp/internal/domain/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ db *pgxpool.Pool }

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{db: db} }

const selectCols = `id, owner_id, title, description, location, date, banner_id, created_at, updated_at`

func scanMeetup(row pgx.Row) (*Meetup, error) {
	var m Meetup
	if err := row.Scan(
		&m.ID,
		&m.OwnerID,
		&m.Title,
		&m.Description,
		&m.Location,
		&m.Date,
		&m.BannerID,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (*Meetup, error) {
	row := r.db.QueryRow(ctx, `SELECT `+selectCols+` FROM meetups WHERE id = $1`, id)
	m, err := scanMeetup(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.ErrNotFound, "meetup %d", id)
		}
		return nil, err
	}
	return m, nil
}

func (r *Repo) Insert(ctx context.Context, m *Meetup) error {
	const q = `
INSERT INTO meetups (owner_id, title, description, location, date, banner_id)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, q, m.OwnerID, m.Title, m.Description, m.Location, m.Date, m.BannerID).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

// Update перезаписывает изменяемые поля. owner_id сюда не входит.
func (r *Repo) Update(ctx context.Context, m *Meetup) error {
	const q = `
UPDATE meetups
SET title = $2, description = $3, location = $4, date = $5, banner_id = $6, updated_at = NOW()
WHERE id = $1
RETURNING updated_at`
	err := r.db.QueryRow(ctx, q, m.ID, m.Title, m.Description, m.Location, m.Date, m.BannerID).Scan(&m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.Wrap(apperr.ErrNotFound, "meetup %d", m.ID)
	}
	return err
}

// Delete удаляет встречу; подписки уходят каскадом (ON DELETE CASCADE).
func (r *Repo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM meetups WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.Wrap(apperr.ErrNotFound, "meetup %d", id)
	}
	return nil
}

func (r *Repo) List(ctx context.Context, f Filter) ([]Meetup, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.OwnerID != 0 {
		add("owner_id = $%d", f.OwnerID)
	}
	if f.From != nil {
		add("date >= $%d", *f.From)
	}
	if f.To != nil {
		add("date <= $%d", *f.To)
	}

	q := `SELECT ` + selectCols + ` FROM meetups`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY id`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		q += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Meetup
	for rows.Next() {
		m, err := scanMeetup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
