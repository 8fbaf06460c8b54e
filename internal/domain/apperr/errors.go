package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Виды бизнес-ошибок. Все восстановимы на границе (HTTP), ядро их не ретраит.
var (
	ErrValidation            = errors.New("validation failed")
	ErrInvalidSchedule       = errors.New("invalid meetup date")
	ErrNotFound              = errors.New("not found")
	ErrPermission            = errors.New("permission denied")
	ErrPastEvent             = errors.New("meetup already happened")
	ErrSelfSubscription      = errors.New("can't subscribe to your own meetup")
	ErrDuplicateSubscription = errors.New("already subscribed to this meetup")
	ErrScheduleConflict      = errors.New("already subscribed to a meetup at the same time")
	ErrCancellationWindow    = errors.New("can't cancel the subscription 2 hours before it starts")
)

type kindInfo struct {
	err    error
	code   string
	status int
}

var kinds = []kindInfo{
	{ErrValidation, "validation", http.StatusBadRequest},
	{ErrInvalidSchedule, "invalid_schedule", http.StatusBadRequest},
	{ErrNotFound, "not_found", http.StatusNotFound},
	{ErrPermission, "permission", http.StatusForbidden},
	{ErrPastEvent, "past_event", http.StatusUnprocessableEntity},
	{ErrSelfSubscription, "self_subscription", http.StatusUnprocessableEntity},
	{ErrDuplicateSubscription, "duplicate_subscription", http.StatusConflict},
	{ErrScheduleConflict, "schedule_conflict", http.StatusConflict},
	{ErrCancellationWindow, "cancellation_window", http.StatusUnprocessableEntity},
}

// Wrap добавляет к виду ошибки человекочитаемую деталь, сохраняя errors.Is.
func Wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Kind возвращает стабильный код вида ошибки или "internal".
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "internal"
}

func HTTPStatus(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// IsBusiness сообщает, что err является отказом по бизнес-правилу, а не сбой инфраструктуры.
func IsBusiness(err error) bool {
	return Kind(err) != "internal"
}
