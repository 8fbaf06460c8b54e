package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Spok95/meetapp/internal/domain/apperr"
	"github.com/Spok95/meetapp/internal/domain/meetups"
	"github.com/Spok95/meetapp/internal/domain/subscriptions"
	"github.com/Spok95/meetapp/internal/domain/users"
	"github.com/Spok95/meetapp/internal/rules"
	usersvc "github.com/Spok95/meetapp/internal/service/user"
)

// UserHeader несёт id пользователя, уже проверенного внешним слоем авторизации.
const UserHeader = "X-User-ID"

var errUnauthenticated = errors.New("missing or invalid " + UserHeader)

type MeetupService interface {
	Create(ctx context.Context, ownerID int64, in meetups.CreateInput) (*meetups.Meetup, error)
	Get(ctx context.Context, id int64) (*meetups.Meetup, error)
	Update(ctx context.Context, meetupID, requesterID int64, p meetups.Patch) (*meetups.Meetup, error)
	Delete(ctx context.Context, meetupID, requesterID int64) error
	List(ctx context.Context, day *time.Time, page int) ([]meetups.Meetup, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]meetups.Meetup, error)
	Export(ctx context.Context, ownerID int64) (*bytes.Buffer, string, error)
}

type SubscriptionService interface {
	Subscribe(ctx context.Context, userID, meetupID int64) (*subscriptions.Subscription, error)
	Unsubscribe(ctx context.Context, subscriptionID, requesterID int64) error
	ListMine(ctx context.Context, userID int64) ([]subscriptions.WithMeetup, error)
	Now() time.Time
}

type UserService interface {
	Get(ctx context.Context, id int64) (*users.User, error)
	Save(ctx context.Context, id int64, p usersvc.Profile) (*users.User, error)
}

type API struct {
	log      *slog.Logger
	meetups  MeetupService
	subs     SubscriptionService
	users    UserService
	location *time.Location
	mux      *http.ServeMux
}

// NewAPI регистрирует маршруты; loc: часовой пояс для фильтра ?date=YYYY-MM-DD.
func NewAPI(log *slog.Logger, ms MeetupService, ss SubscriptionService, us UserService, loc *time.Location) *API {
	if loc == nil {
		loc = time.UTC
	}
	a := &API{log: log, meetups: ms, subs: ss, users: us, location: loc, mux: http.NewServeMux()}

	a.mux.HandleFunc("GET /meetups", a.listMeetups)
	a.mux.HandleFunc("POST /meetups", a.withUser(a.createMeetup))
	a.mux.HandleFunc("GET /meetups/{id}", a.getMeetup)
	a.mux.HandleFunc("PUT /meetups/{id}", a.withUser(a.updateMeetup))
	a.mux.HandleFunc("DELETE /meetups/{id}", a.withUser(a.deleteMeetup))
	a.mux.HandleFunc("POST /meetups/{id}/subscription", a.withUser(a.subscribe))

	a.mux.HandleFunc("GET /organizing", a.withUser(a.organizing))
	a.mux.HandleFunc("GET /organizing/export", a.withUser(a.organizingExport))

	a.mux.HandleFunc("GET /subscriptions", a.withUser(a.listSubscriptions))
	a.mux.HandleFunc("DELETE /subscriptions/{id}", a.withUser(a.unsubscribe))

	a.mux.HandleFunc("GET /users/me", a.withUser(a.getProfile))
	a.mux.HandleFunc("PUT /users/me", a.withUser(a.saveProfile))
	return a
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID int64)

func (a *API) withUser(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.Header.Get(UserHeader), 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errUnauthenticated.Error(), Kind: "unauthenticated"})
			return
		}
		h(w, r, id)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	kind := apperr.Kind(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg, Kind: kind})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Wrap(apperr.ErrValidation, "invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.ErrValidation, "bad request body: %v", err)
	}
	return nil
}

func (a *API) listMeetups(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if v := q.Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			a.writeError(w, r, apperr.Wrap(apperr.ErrValidation, "invalid page %q", v))
			return
		}
		page = p
	}

	var day *time.Time
	if v := q.Get("date"); v != "" {
		d, err := parseDay(v, a.location)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		day = &d
	}

	list, err := a.meetups.List(r.Context(), day, page)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

// parseDay принимает и "2006-01-02", и полный RFC3339.
func parseDay(v string, loc *time.Location) (time.Time, error) {
	if d, err := time.ParseInLocation(time.DateOnly, v, loc); err == nil {
		return d, nil
	}
	if d, err := time.Parse(time.RFC3339, v); err == nil {
		return d.In(loc), nil
	}
	return time.Time{}, apperr.Wrap(apperr.ErrValidation, "invalid date %q", v)
}

func (a *API) getMeetup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	m, err := a.meetups.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *API) createMeetup(w http.ResponseWriter, r *http.Request, userID int64) {
	var in meetups.CreateInput
	if err := decode(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	m, err := a.meetups.Create(r.Context(), userID, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (a *API) updateMeetup(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var p meetups.Patch
	if err := decode(r, &p); err != nil {
		a.writeError(w, r, err)
		return
	}
	m, err := a.meetups.Update(r.Context(), id, userID, p)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *API) deleteMeetup(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.meetups.Delete(r.Context(), id, userID); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) organizing(w http.ResponseWriter, r *http.Request, userID int64) {
	list, err := a.meetups.ListByOwner(r.Context(), userID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (a *API) organizingExport(w http.ResponseWriter, r *http.Request, userID int64) {
	buf, name, err := a.meetups.Export(r.Context(), userID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type mySubscription struct {
	subscriptions.WithMeetup
	State rules.State `json:"state"`
}

func (a *API) listSubscriptions(w http.ResponseWriter, r *http.Request, userID int64) {
	list, err := a.subs.ListMine(r.Context(), userID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	now := a.subs.Now()
	out := make([]mySubscription, 0, len(list))
	for _, s := range list {
		out = append(out, mySubscription{WithMeetup: s, State: rules.SubscriptionState(s.Meetup, now)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) subscribe(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sub, err := a.subs.Subscribe(r.Context(), userID, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (a *API) unsubscribe(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.subs.Unsubscribe(r.Context(), id, userID); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) getProfile(w http.ResponseWriter, r *http.Request, userID int64) {
	u, err := a.users.Get(r.Context(), userID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) saveProfile(w http.ResponseWriter, r *http.Request, userID int64) {
	var p usersvc.Profile
	if err := decode(r, &p); err != nil {
		a.writeError(w, r, err)
		return
	}
	u, err := a.users.Save(r.Context(), userID, p)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func nonNil(list []meetups.Meetup) []meetups.Meetup {
	if list == nil {
		return []meetups.Meetup{}
	}
	return list
}
