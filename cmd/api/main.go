package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/promptmart/promptmart-backend/api/controllers"
	"github.com/promptmart/promptmart-backend/api/routes"
	"github.com/promptmart/promptmart-backend/internal/auth"
	"github.com/promptmart/promptmart-backend/internal/cleanup"
	"github.com/promptmart/promptmart-backend/internal/mailer"
	"github.com/promptmart/promptmart-backend/internal/prompts"
	"github.com/promptmart/promptmart-backend/internal/users"
	"github.com/promptmart/promptmart-backend/pkg/config"
	"github.com/promptmart/promptmart-backend/pkg/db"
	"github.com/promptmart/promptmart-backend/pkg/logger"
	"github.com/promptmart/promptmart-backend/pkg/metrics"
	"github.com/promptmart/promptmart-backend/pkg/migrate"
	"github.com/promptmart/promptmart-backend/pkg/pubsub"
	"github.com/promptmart/promptmart-backend/pkg/redis"
	"github.com/promptmart/promptmart-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	requireResource(ctx, logg, "object storage", err)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)

	sendgridMailer, err := mailer.NewSendgridMailer(cfg.Sendgrid, logg)
	requireResource(ctx, logg, "mailer", err)

	userRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		Mailer:         sendgridMailer,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	requireResource(ctx, logg, "auth service", err)

	usersService, err := users.NewService(users.ServiceParams{
		UserRepo:    userRepo,
		ObjectStore: gcsClient,
		Logger:      logg,
	})
	requireResource(ctx, logg, "users service", err)

	imageCleanup, err := cleanup.NewPublisher(pubsubClient.ImageDeletionPublisher(), logg)
	requireResource(ctx, logg, "image cleanup publisher", err)

	promptsService, err := prompts.NewService(prompts.ServiceParams{
		PromptRepo:  prompts.NewRepository(dbClient.DB()),
		ObjectStore: gcsClient,
		Cleanup:     imageCleanup,
		Uploads:     cfg.Uploads,
		Logger:      logg,
	})
	requireResource(ctx, logg, "prompts service", err)

	registry := prometheus.NewRegistry()

	router := routes.NewRouter(routes.RouterParams{
		Config:      cfg,
		Logger:      logg,
		RateLimiter: redisClient,
		Health: controllers.HealthDependencies{
			Database: dbClient,
			Redis:    redisClient,
			Storage:  gcsClient,
			PubSub:   pubsubClient,
		},
		Metrics:         metrics.NewHTTPMetrics(registry),
		MetricsRegistry: registry,
		AuthService:     authService,
		UsersService:    usersService,
		PromptsService:  promptsService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	runCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stopCtx.Done():
		logg.Info(runCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	closeErr := multierr.Combine(
		server.Shutdown(shutdownCtx),
		pubsubClient.Close(),
		gcsClient.Close(),
		redisClient.Close(),
		dbClient.Close(),
	)
	if closeErr != nil {
		logg.Error(runCtx, "error during shutdown", closeErr)
		os.Exit(1)
	}
	logg.Info(runCtx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
