package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/opsdesk/incident-service/internal/api/http"
	"github.com/opsdesk/incident-service/internal/api/http/handlers"
	"github.com/opsdesk/incident-service/internal/config"
	"github.com/opsdesk/incident-service/internal/domain"
	"github.com/opsdesk/incident-service/internal/events"
	"github.com/opsdesk/incident-service/internal/observability"
	"github.com/opsdesk/incident-service/internal/persistence"
	"github.com/opsdesk/incident-service/internal/repository"
	"github.com/opsdesk/incident-service/internal/service"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	incidentRepo := repository.NewIncidentRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	statusRepo := repository.NewCachedStatusRepository(
		repository.NewStatusRepository(pool),
		redis.Client,
		cfg.Redis.StatusCacheTTL,
	)

	dispatcher := events.NewInMemoryDispatcher()
	events.RegisterLoggingObserver(dispatcher, logger)

	statusRoles := domain.DefaultStatusRoles()
	incidentService := service.NewIncidentService(service.IncidentDependencies{
		IncidentRepo: incidentRepo,
		StatusRepo:   statusRepo,
		Roles:        statusRoles,
		Dispatcher:   dispatcher,
	})
	userService := service.NewUserService(userRepo, dispatcher)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Incidents: handlers.NewIncidentsHandler(incidentService),
		Users:     handlers.NewUsersHandler(userService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
