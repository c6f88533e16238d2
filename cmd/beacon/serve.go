package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/beaconlabs/beacon/internal/bot"
	"github.com/beaconlabs/beacon/internal/config"
	"github.com/beaconlabs/beacon/internal/db"
	"github.com/beaconlabs/beacon/internal/forward"
	"github.com/beaconlabs/beacon/internal/gateway"
	"github.com/beaconlabs/beacon/internal/handlers"
	"github.com/beaconlabs/beacon/internal/logger"
	"github.com/beaconlabs/beacon/internal/notify"
	"github.com/beaconlabs/beacon/internal/server"
	"github.com/beaconlabs/beacon/internal/store"
	"github.com/beaconlabs/beacon/internal/topology"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and the management API",
		Run: func(cmd *cobra.Command, args []string) {
			runServe(configPath(cmd))
		},
	}
}

func runServe(cfgPath string) {
	fx.New(
		fx.Provide(
			func() (config.Config, error) { return provideConfig(cfgPath) },
			provideLogger,
			provideDBConn,
			provideStore,
			provideGatewayClient,
			provideSynchronizer,
			provideCache,
			provideEvaluator,
			provideScheduler,
			bot.NewRuntime,
			providePingHandler,
			provideStatusHandler,
			provideServerHandler,
			provideForwarderHandler,
			provideNotificationHandler,
			provideSettingsHandler,
			provideServer,
		),
		fx.Invoke(
			startRuntime,
			startServer,
		),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	if err := db.MigrateUp(cfg.Postgres.DSN()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	pool, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { pool.Close(); return nil }})
	return pool, nil
}

func provideStore(log *slog.Logger, pool *pgxpool.Pool) *store.Store {
	return store.New(log, pool)
}

func provideGatewayClient(log *slog.Logger, cfg config.Config) *gateway.Client {
	return gateway.NewClient(log, cfg.Discord.Token)
}

func provideSynchronizer(log *slog.Logger, st *store.Store, client *gateway.Client) *topology.Synchronizer {
	return topology.NewSynchronizer(log, st, client)
}

func provideCache(log *slog.Logger, st *store.Store) *forward.Cache {
	return forward.NewCache(log, st)
}

func provideEvaluator(log *slog.Logger, cache *forward.Cache, client *gateway.Client, st *store.Store) *forward.Evaluator {
	return forward.NewEvaluator(log, cache, client, st)
}

func provideScheduler(log *slog.Logger, st *store.Store, client *gateway.Client) *notify.Scheduler {
	return notify.NewScheduler(log, st, client)
}

func providePingHandler(log *slog.Logger) *handlers.PingHandler {
	return handlers.NewPingHandler(log)
}

func provideStatusHandler(log *slog.Logger, runtime *bot.Runtime, cache *forward.Cache) *handlers.StatusHandler {
	return handlers.NewStatusHandler(log, runtime, cache)
}

func provideServerHandler(st *store.Store, client *gateway.Client) *handlers.ServerHandler {
	return handlers.NewServerHandler(st, client)
}

func provideForwarderHandler(st *store.Store, runtime *bot.Runtime) *handlers.ForwarderHandler {
	return handlers.NewForwarderHandler(st, runtime)
}

func provideNotificationHandler(st *store.Store) *handlers.NotificationHandler {
	return handlers.NewNotificationHandler(st)
}

func provideSettingsHandler(st *store.Store) *handlers.SettingsHandler {
	return handlers.NewSettingsHandler(st)
}

func provideServer(
	log *slog.Logger,
	cfg config.Config,
	pingHandler *handlers.PingHandler,
	statusHandler *handlers.StatusHandler,
	serverHandler *handlers.ServerHandler,
	forwarderHandler *handlers.ForwarderHandler,
	notificationHandler *handlers.NotificationHandler,
	settingsHandler *handlers.SettingsHandler,
) *server.Server {
	return server.NewServer(log, cfg.Server.Addr,
		pingHandler, statusHandler, serverHandler,
		forwarderHandler, notificationHandler, settingsHandler)
}

func startRuntime(lc fx.Lifecycle, runtime *bot.Runtime) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return runtime.Start(ctx) },
		OnStop:  func(ctx context.Context) error { return runtime.Stop() },
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
