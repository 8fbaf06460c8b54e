package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindAndStatus(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{Wrap(ErrValidation, "title is required"), "validation", http.StatusBadRequest},
		{Wrap(ErrInvalidSchedule, "date %s", "2020-01-01"), "invalid_schedule", http.StatusBadRequest},
		{fmt.Errorf("meetups: %w", ErrNotFound), "not_found", http.StatusNotFound},
		{ErrPermission, "permission", http.StatusForbidden},
		{ErrPastEvent, "past_event", http.StatusUnprocessableEntity},
		{ErrSelfSubscription, "self_subscription", http.StatusUnprocessableEntity},
		{ErrDuplicateSubscription, "duplicate_subscription", http.StatusConflict},
		{ErrScheduleConflict, "schedule_conflict", http.StatusConflict},
		{ErrCancellationWindow, "cancellation_window", http.StatusUnprocessableEntity},
		{errors.New("connection reset"), "internal", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, Kind(tt.err))
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestWrap_KeepsKind(t *testing.T) {
	err := Wrap(ErrValidation, "location is required")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation failed: location is required", err.Error())
	assert.True(t, IsBusiness(err))
	assert.False(t, IsBusiness(errors.New("boom")))
}
