package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/FistoAR/AkiraServiceTool-sub000/internal/api/http"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/api/http/handlers"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/auth"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/config"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/events"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/observability"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/persistence"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/repository"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/service"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/worker"
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

	metrics := observability.NewMetrics()

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
	handlerRepo := repository.NewHandlerRepository(pool)
	loadRepo := repository.NewTicketLoadRepository(pool)

	var store repository.SnapshotStore
	if err := redis.Ping(ctx); err != nil {
		logger.Warn("redis unavailable; falling back to in-memory snapshot store", zap.Error(err))
		store = repository.NewMemorySnapshotStore()
	} else {
		store = repository.NewRedisSnapshotStore(redis.Client)
	}

	dispatcher := events.NewInMemoryDispatcher()

	alertService := service.NewAlertService(dispatcher, logger, metrics)
	alertService.RegisterHandlers()

	escalationService := service.NewEscalationService(cfg.Escalation, service.EscalationDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	authService := service.NewAuthService(*cfg, handlerRepo)

	escalationWorker := worker.NewEscalationWorker(cfg.Escalation, worker.WorkerDependencies{
		Store:      store,
		Roster:     worker.NewRepositoryRosterProvider(handlerRepo, loadRepo),
		Evaluator:  service.NewDeadlineEvaluator(cfg.Escalation),
		Projector:  service.NewTimerProjector(cfg.Escalation),
		Alerts:     alertService,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	escalationWorker.Start()
	defer escalationWorker.Stop()

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), handlerRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Session:        handlers.NewSessionHandler(authService),
		Escalations:    handlers.NewEscalationsHandler(escalationService, escalationWorker),
		Alerts:         handlers.NewAlertsHandler(alertService),
		Roster:         handlers.NewRosterHandler(handlerRepo),
		AuthMiddleware: authMiddleware,
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
