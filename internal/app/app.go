// Package app собирает зависимости по конфигу: хранилища, уведомления, HTTP API.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Spok95/meetapp/internal/clock"
	"github.com/Spok95/meetapp/internal/config"
	"github.com/Spok95/meetapp/internal/domain/meetups"
	"github.com/Spok95/meetapp/internal/domain/subscriptions"
	"github.com/Spok95/meetapp/internal/domain/users"
	"github.com/Spok95/meetapp/internal/infra/db"
	httpx "github.com/Spok95/meetapp/internal/infra/http"
	"github.com/Spok95/meetapp/internal/lock"
	"github.com/Spok95/meetapp/internal/notify"
	meetupsvc "github.com/Spok95/meetapp/internal/service/meetup"
	subsvc "github.com/Spok95/meetapp/internal/service/subscription"
	usersvc "github.com/Spok95/meetapp/internal/service/user"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
)

type stores struct {
	meetups meetupsvc.Store
	subs    interface {
		subsvc.Store
		meetupsvc.Subscriptions
	}
	users usersvc.Store
}

type App struct {
	log     *slog.Logger
	Meetups *meetupsvc.Service
	Subs    *subsvc.Service
	Users   *usersvc.Service
	API     http.Handler

	workers []func(ctx context.Context) error
	closers []func()
}

func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{log: log}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clk := clock.System{Location: loc}

	st, err := a.buildStores(ctx, cfg, clk)
	if err != nil {
		a.Close()
		return nil, err
	}

	dispatcher, err := a.buildDispatcher(ctx, cfg, st.users)
	if err != nil {
		a.Close()
		return nil, err
	}

	locks := lock.NewKeyed()
	a.Meetups = meetupsvc.New(log, clk, st.meetups, st.subs, locks)
	a.Subs = subsvc.New(subsvc.Deps{
		Log:        log,
		Clock:      clk,
		Meetups:    st.meetups,
		Subs:       st.subs,
		Users:      st.users,
		Dispatcher: dispatcher,
		Locks:      locks,
	})
	a.Users = usersvc.New(log, st.users)
	a.API = httpx.NewAPI(log, a.Meetups, a.Subs, a.Users, loc)
	return a, nil
}

func (a *App) buildStores(ctx context.Context, cfg config.Config, clk clock.Clock) (stores, error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return stores{}, fmt.Errorf("db connect: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		a.log.Info("db connected")
		return stores{
			meetups: meetups.NewRepo(pool),
			subs:    subscriptions.NewRepo(pool),
			users:   users.NewRepo(pool),
		}, nil
	default:
		ms := meetups.NewMemStore(clk.Now)
		return stores{
			meetups: ms,
			subs:    subscriptions.NewMemStore(ms, clk.Now),
			users:   users.NewMemStore(),
		}, nil
	}
}

// buildSender: Telegram, потом e-mail, и в конце запись в лог, чтобы событие не терялось молча.
func (a *App) buildSender(cfg config.Config, owners notify.UserGetter) (notify.Sender, error) {
	var chain notify.FirstOf
	if token := cfg.Notify.Telegram.Token; token != "" {
		api, err := tgbotapi.NewBotAPI(token)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		chain = append(chain, notify.NewTelegramSender(api, owners))
	}
	if mj := cfg.Notify.Mailjet; mj.PublicKey != "" && mj.PrivateKey != "" {
		chain = append(chain, notify.NewMailSender(mj.PublicKey, mj.PrivateKey, mj.Sender, owners))
	}
	chain = append(chain, notify.LogSender{Log: a.log})
	return chain, nil
}

func (a *App) buildDispatcher(ctx context.Context, cfg config.Config, owners notify.UserGetter) (notify.Dispatcher, error) {
	n := cfg.Notify
	switch n.Driver {
	case "log":
		d := notify.NewAsync(a.log, notify.LogSender{Log: a.log}, 1, n.Buffer)
		a.closers = append(a.closers, d.Close)
		return d, nil
	case "redis":
		rdb, err := connectRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		if n.Worker {
			sender, err := a.buildSender(cfg, owners)
			if err != nil {
				return nil, err
			}
			w := notify.NewWorker(rdb, cfg.Redis.Queue, sender, a.log)
			a.workers = append(a.workers, w.Run)
		}
		q := notify.NewRedisQueue(rdb, cfg.Redis.Queue, a.log, n.Workers, n.Buffer)
		a.closers = append(a.closers, q.Close)
		return q, nil
	default:
		sender, err := a.buildSender(cfg, owners)
		if err != nil {
			return nil, err
		}
		d := notify.NewAsync(a.log, sender, n.Workers, n.Buffer)
		a.closers = append(a.closers, d.Close)
		return d, nil
	}
}

func connectRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// Run запускает фоновые воркеры и ждёт отмены ctx.
func (a *App) Run(ctx context.Context) {
	for _, w := range a.workers {
		go func(run func(context.Context) error) {
			if err := run(ctx); err != nil && ctx.Err() == nil {
				a.log.Error("worker stopped", "err", err)
			}
		}(w)
	}
}

// Close освобождает ресурсы в обратном порядке создания.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
