package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/cartsync/api/controllers"
	"github.com/angelmondragon/cartsync/api/middleware"
	"github.com/angelmondragon/cartsync/api/routes"
	"github.com/angelmondragon/cartsync/internal/cart"
	"github.com/angelmondragon/cartsync/internal/notifications"
	"github.com/angelmondragon/cartsync/internal/snapshots"
	"github.com/angelmondragon/cartsync/pkg/cartapi"
	"github.com/angelmondragon/cartsync/pkg/config"
	"github.com/angelmondragon/cartsync/pkg/db"
	"github.com/angelmondragon/cartsync/pkg/enums"
	"github.com/angelmondragon/cartsync/pkg/logger"
	"github.com/angelmondragon/cartsync/pkg/metrics"
	"github.com/angelmondragon/cartsync/pkg/migrate"
	"github.com/angelmondragon/cartsync/pkg/pubsub"
	"github.com/angelmondragon/cartsync/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run owns every client so deferred closes happen before main exits.
func run() error {
	logg := logger.New(logger.Options{ServiceName: "cartsync-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		return err
	}

	logg = logger.New(logger.Options{
		ServiceName: "cartsync-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	defer func() {
		if err := closeAll(closers); err != nil {
			logg.Error(context.Background(), "error closing clients", err)
		}
	}()

	fail := func(msg string, err error) error {
		logg.Error(ctx, msg, err)
		return fmt.Errorf("%s: %w", msg, err)
	}

	pingers := map[string]controllers.Pinger{}
	snapshotDriver := cfg.Snapshots.DriverKind()
	notifyDriver := cfg.Notifications.DriverKind()

	var redisClient *redis.Client
	if cfg.Redis.Configured() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return fail("failed to bootstrap redis", err)
		}
		closers = append(closers, redisClient.Close)
		pingers["redis"] = redisClient
	}

	var dbClient *db.Client
	if snapshotDriver == enums.SnapshotDriverDB {
		dbClient, err = db.New(ctx, cfg.DB, logg)
		if err != nil {
			return fail("failed to bootstrap database", err)
		}
		closers = append(closers, dbClient.Close)
		if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
			return fail("failed to run migrations", err)
		}
		pingers["db"] = dbClient
	}

	var pubsubClient *pubsub.Client
	if notifyDriver == enums.NotificationDriverPubSub {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.GCP, cfg.Notifications.PubSubTopic, logg)
		if err != nil {
			return fail("failed to bootstrap pubsub", err)
		}
		closers = append(closers, pubsubClient.Close)
		pingers["pubsub"] = pubsubClient
	}

	cartClient, err := cartapi.NewClient(
		cfg.CartService.BaseURL,
		cartapi.WithTimeout(cfg.CartService.Timeout),
		cartapi.WithStaticToken(cfg.CartService.Token),
		cartapi.WithTokenSource(middleware.AccessTokenFromContext),
	)
	if err != nil {
		return fail("failed to create cart service client", err)
	}

	notifier, err := buildNotifier(notifyDriver, cfg, logg, redisClient, pubsubClient)
	if err != nil {
		return fail("failed to create notifier", err)
	}

	snapshotStore, err := buildSnapshotStore(snapshotDriver, cfg, redisClient, dbClient)
	if err != nil {
		return fail("failed to create snapshot store", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cartMetrics := metrics.NewCartMetrics(registry)

	sessions, err := cart.NewRegistry(cart.RegistryParams{
		Service:   cartClient,
		Notifier:  notifier,
		Snapshots: snapshotStore,
		Metrics:   cartMetrics,
		Logger:    logg,
	})
	if err != nil {
		return fail("failed to create cart registry", err)
	}
	go sessions.RunEviction(ctx, cfg.Sessions.SweepInterval, cfg.Sessions.IdleTTL)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"addr":          addr,
		"snapshots":     snapshotDriver.String(),
		"notifications": notifyDriver.String(),
	})
	logg.Info(ctx, "starting cartsync api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, sessions, pingers, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fail("api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}

	logg.Info(ctx, "cartsync api shutting down gracefully")
	return nil
}

// closeAll closes clients in reverse order of creation.
func closeAll(closers []func() error) error {
	var errs error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, closers[i]())
	}
	return errs
}

func buildNotifier(
	driver enums.NotificationDriver,
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	pubsubClient *pubsub.Client,
) (notifications.Notifier, error) {
	switch driver {
	case enums.NotificationDriverRedis:
		return notifications.NewRedisNotifier(redisClient, cfg.Notifications.RedisChannel)
	case enums.NotificationDriverPubSub:
		return notifications.NewPubSubNotifier(pubsubClient.NotificationPublisher())
	default:
		return notifications.NewLogNotifier(logg), nil
	}
}

func buildSnapshotStore(
	driver enums.SnapshotDriver,
	cfg *config.Config,
	redisClient *redis.Client,
	dbClient *db.Client,
) (cart.SnapshotStore, error) {
	switch driver {
	case enums.SnapshotDriverRedis:
		return snapshots.NewRedisStore(redisClient, cfg.Snapshots.TTL)
	case enums.SnapshotDriverDB:
		return snapshots.NewDBStore(dbClient.DB())
	default:
		return nil, nil
	}
}
