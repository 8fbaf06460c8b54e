package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Spok95/meetapp/internal/config"
	"github.com/Spok95/meetapp/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(driver string) config.Config {
	var c config.Config
	c.App.Timezone = "UTC"
	c.Store.Driver = "memory"
	c.Notify.Driver = driver
	c.Notify.Workers = 1
	c.Notify.Buffer = 10
	return c
}

func TestBuild_MemoryEndToEnd(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := Build(context.Background(), memoryConfig("async"), log)
	require.NoError(t, err)
	defer a.Close()

	date := time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339)
	req := httptest.NewRequest(http.MethodPost, "/meetups",
		strings.NewReader(`{"title":"Gophers","description":"talks","location":"Hall A","date":"`+date+`"}`))
	req.Header.Set("X-User-ID", "1")
	rec := httptest.NewRecorder()
	a.API.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// контакты заводятся без миграций и сидов: id берётся из заголовка
	req = httptest.NewRequest(http.MethodPut, "/users/me",
		strings.NewReader(`{"name":"Ann","email":"ann@example.com"}`))
	req.Header.Set("X-User-ID", "2")
	rec = httptest.NewRecorder()
	a.API.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/meetups/1/subscription", nil)
	req.Header.Set("X-User-ID", "2")
	rec = httptest.NewRecorder()
	a.API.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	u, err := a.Users.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)
}

func TestBuild_LogDriver(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := Build(context.Background(), memoryConfig("log"), log)
	require.NoError(t, err)
	a.Close()
	a.Close()
}

func TestBuildSender_FallsBackToLog(t *testing.T) {
	a := &App{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	s, err := a.buildSender(memoryConfig("async"), nil)
	require.NoError(t, err)

	chain, ok := s.(notify.FirstOf)
	require.True(t, ok)
	require.Len(t, chain, 1)
	assert.IsType(t, notify.LogSender{}, chain[0])
}
