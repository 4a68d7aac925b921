package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/kanban-service/internal/api/http"
	"github.com/spec-kit/kanban-service/internal/api/http/handlers"
	"github.com/spec-kit/kanban-service/internal/auth"
	"github.com/spec-kit/kanban-service/internal/config"
	"github.com/spec-kit/kanban-service/internal/events"
	"github.com/spec-kit/kanban-service/internal/observability"
	"github.com/spec-kit/kanban-service/internal/persistence"
	"github.com/spec-kit/kanban-service/internal/repository"
	"github.com/spec-kit/kanban-service/internal/service"
	"github.com/spec-kit/kanban-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Auth.UsesDefaultSecret() {
		logger.Warn("AUTH_JWT_SECRET not set, using the development signing key")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := map[string]handlers.Pinger{}
	repos, closeStore, err := openStore(ctx, cfg, logger, checks)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer closeStore()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var broadcaster service.Broadcaster
	if redis != nil {
		broadcaster = redis
		checks["redis"] = redis
	}

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification, broadcaster)
	worker.StartNotificationWorker(notifications)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: repos.Users})
	logger.Info("auth configured", zap.Duration("token_ttl", authService.TokenManager().TTL()))
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    repos.Tickets,
		Dispatcher:    dispatcher,
		Logger:        logger,
		StrictUpdates: cfg.Tickets.StrictUpdates,
	})
	metrics := observability.NewMetrics()

	app := httptransport.NewApp(cfg.App.Name,
		httptransport.MiddlewareConfig{
			Logger:           logger,
			Metrics:          metrics,
			RequestTimeout:   cfg.App.RequestTimeout(),
			CORSAllowOrigins: cfg.App.CORSAllowOrigins,
		},
		httptransport.RouteConfig{
			Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks),
			Users:          handlers.NewUsersHandler(authService),
			Tickets:        handlers.NewTicketsHandler(ticketService),
			Metrics:        handlers.NewMetricsHandler(metrics),
			AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
		})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

// openStore connects to Postgres when a DSN is configured. When no DSN is set,
// or Postgres cannot be reached, it falls back to the SQLite file. The
// returned func releases the handle.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, checks map[string]handlers.Pinger) (repository.Repositories, func(), error) {
	if cfg.Postgres.DSN != "" {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err == nil {
			if cfg.Postgres.RunMigrations {
				if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
					pg.Close()
					return repository.Repositories{}, nil, fmt.Errorf("run postgres migrations: %w", err)
				}
			}
			checks["postgres"] = pg
			return repository.NewPostgresRepositories(pg.PoolHandle()), pg.Close, nil
		}
		logger.Warn("postgres unavailable, falling back to sqlite", zap.Error(err))
	}

	lite, err := persistence.OpenSQLite(ctx, cfg.SQLite, logger)
	if err != nil {
		return repository.Repositories{}, nil, fmt.Errorf("open sqlite: %w", err)
	}
	checks["sqlite"] = lite
	return repository.NewSQLiteRepositories(lite.DB), lite.Close, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
