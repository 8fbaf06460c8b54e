package subscriptions

import (
	"time"

	"github.com/Spok95/meetapp/internal/domain/meetups"
)

type Subscription struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	MeetupID  int64     `json:"meetup_id"`
	CreatedAt time.Time `json:"created_at"`
}

// WithMeetup: подписка вместе со встречей, на которую она оформлена.
type WithMeetup struct {
	Subscription
	Meetup meetups.Meetup `json:"meetup"`
}
