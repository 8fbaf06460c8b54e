package meetups

import "time"

type Meetup struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	BannerID    *int64    `json:"banner_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Past вычисляется на момент now и нигде не хранится.
func (m Meetup) Past(now time.Time) bool {
	return m.Date.Before(now)
}

type CreateInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	BannerID    *int64    `json:"banner_id,omitempty"`
}

// Patch: частичное изменение; nil означает "не трогать".
type Patch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	BannerID    *int64     `json:"banner_id,omitempty"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Location == nil && p.Date == nil && p.BannerID == nil
}

// Apply возвращает копию m с применённым патчем. Владелец не меняется.
func (p Patch) Apply(m Meetup) Meetup {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.Location != nil {
		m.Location = *p.Location
	}
	if p.Date != nil {
		m.Date = *p.Date
	}
	if p.BannerID != nil {
		id := *p.BannerID
		m.BannerID = &id
	}
	return m
}

// Filter для выборки списка. Нулевые значения означают "без ограничения".
type Filter struct {
	From    *time.Time
	To      *time.Time
	OwnerID int64
	Limit   int
	Offset  int
}

func (f Filter) Match(m Meetup) bool {
	if f.OwnerID != 0 && m.OwnerID != f.OwnerID {
		return false
	}
	if f.From != nil && m.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && m.Date.After(*f.To) {
		return false
	}
	return true
}
