// Package notify доставляет уведомления о новых подписках.
// Ядро только решает, что уведомление нужно, и вызывает Dispatcher.Notify:
// вызов не блокирует и ошибок наружу не возвращает.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/Spok95/meetapp/internal/domain/meetups"
	"github.com/Spok95/meetapp/internal/domain/users"
)

// ErrNoRecipient значит, что у канала нет адресата (нет email, не привязан Telegram).
var ErrNoRecipient = errors.New("notify: no recipient for channel")

type Dispatcher interface {
	Notify(ctx context.Context, m meetups.Meetup, subscriber users.User)
}

type Job struct {
	Meetup     meetups.Meetup `json:"meetup"`
	Subscriber users.User     `json:"subscriber"`
	QueuedAt   time.Time      `json:"queued_at"`
}

type Sender interface {
	Send(ctx context.Context, job Job) error
}

// UserGetter ищет организатора встречи, чтобы узнать его контакты.
type UserGetter interface {
	Get(ctx context.Context, id int64) (*users.User, error)
}

const sendTimeout = 10 * time.Second
