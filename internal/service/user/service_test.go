package user

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/Spok95/meetapp/internal/domain/apperr"
	"github.com/Spok95/meetapp/internal/domain/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() (*Service, *users.MemStore) {
	st := users.NewMemStore()
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), st), st
}

func TestSave(t *testing.T) {
	svc, st := newService()
	ctx := context.Background()

	u, err := svc.Save(ctx, 7, Profile{Name: " Ann ", Email: "Ann <ANN@Example.com>", TelegramID: 555})
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, "ann@example.com", u.Email)

	got, err := st.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(555), got.TelegramID)
}

func TestSave_Validation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	tests := []struct {
		name string
		id   int64
		p    Profile
	}{
		{"no user", 0, Profile{Name: "Ann", Email: "ann@example.com"}},
		{"no name", 7, Profile{Name: "  ", Email: "ann@example.com"}},
		{"bad email", 7, Profile{Name: "Ann", Email: "ann"}},
		{"negative telegram", 7, Profile{Name: "Ann", Email: "ann@example.com", TelegramID: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Save(ctx, tt.id, tt.p)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestSave_EmailTaken(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Save(ctx, 1, Profile{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)
	_, err = svc.Save(ctx, 2, Profile{Name: "Eve", Email: "bob@example.com"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
