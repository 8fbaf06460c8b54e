package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Spok95/meetapp/internal/app"
	"github.com/Spok95/meetapp/internal/config"
	httpx "github.com/Spok95/meetapp/internal/infra/http"
	"github.com/Spok95/meetapp/internal/infra/logger"
	"github.com/Spok95/meetapp/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "meetapp",
		Short:         "Meetups and subscriptions service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config/example.yaml", "path to YAML config")

	root.AddCommand(newServeCmd(&cfgPath), newMigrateCmd(&cfgPath))
	return root
}

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg.App.Env)

			if cfg.Store.Driver == "postgres" {
				if err := runMigrations(cfg.Postgres.DSN); err != nil {
					return fmt.Errorf("migrations failed: %w", err)
				}
				log.Info("migrations applied")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.Build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()
			a.Run(ctx)

			return serve(ctx, log, httpx.New(cfg.HTTP.Addr, a.API, log, cfg.Metrics.Enabled), cfg.HTTP.Addr)
		},
	}
}

func serve(ctx context.Context, log *slog.Logger, srv *httpx.Server, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	log.Info("HTTP server started", "addr", addr)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
	return nil
}

func newMigrateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.DSN == "" {
				return errors.New("postgres.dsn is empty")
			}
			if err := runMigrations(cfg.Postgres.DSN); err != nil {
				return err
			}
			logger.New(cfg.App.Env).Info("migrations applied")
			return nil
		},
	}
}

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()

	goose.SetBaseFS(migrations.FS)
	return goose.Up(sqlDB, ".")
}
