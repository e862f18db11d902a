package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/socialgraph/backend/internal/fanout"
	"github.com/socialgraph/backend/internal/metrics"
	"github.com/socialgraph/backend/internal/middleware"
	"github.com/socialgraph/backend/internal/repositories"
	"github.com/socialgraph/backend/internal/router"
	"github.com/socialgraph/backend/internal/storage"
	"github.com/socialgraph/backend/pkg/config"
	"github.com/socialgraph/backend/pkg/firebase"
	"github.com/socialgraph/backend/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server, the metrics endpoint and the fan-out worker",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	mongoDB := db.MongoDatabase()
	if err := repositories.EnsureIndexes(ctx, mongoDB); err != nil {
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	fanoutRepo := repositories.NewPostgresFanoutRepository(db.Postgres)
	repos := router.Repositories{
		Users:         repositories.NewMongoUserRepository(mongoDB, cfg.MongoTransactions),
		Posts:         repositories.NewMongoPostRepository(mongoDB),
		Comments:      repositories.NewMongoCommentRepository(mongoDB),
		Notifications: repositories.NewMongoNotificationRepository(mongoDB),
		Fanout:        fanoutRepo,
	}
	svc := router.NewServices(repos, m, log)

	opts := router.Options{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.JWTExpiration,
		Logger:    log,
	}
	if opts.Media, opts.UploadDir, err = mediaStore(cfg); err != nil {
		return err
	}
	if cfg.FirebaseCredentialsPath != "" {
		app, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			return err
		}
		opts.Firebase = app.AuthClient
		log.Info("firebase login enabled")
	}

	var limiter echomw.RateLimiterStore
	if db.Redis != nil {
		limiter = middleware.NewRedisRateLimiterStore(db.Redis, cfg.RateLimitPerMinute, log)
	} else {
		limiter = middleware.NewMemoryRateLimiterStore(cfg.RateLimitPerMinute)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	config.SetupMiddleware(e, log, m, limiter)
	router.SetupRoutes(e, svc, opts)

	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	worker := fanout.NewWorker(fanoutRepo, repos.Users, svc.Notifications, fanout.Config{
		BatchSize:    cfg.FanoutBatchSize,
		Concurrency:  cfg.FanoutConcurrency,
		PollInterval: cfg.FanoutPollInterval,
		MaxAttempts:  cfg.FanoutMaxAttempts,
	}, m, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api server listening", "port", cfg.Port, "env", cfg.Env)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("metrics server listening", "port", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(e.Shutdown(shutdownCtx), metricsServer.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

// mediaStore selects Cloudinary when configured, local disk otherwise. The
// returned directory is non-empty only for local storage.
func mediaStore(cfg *config.Config) (storage.Store, string, error) {
	if cfg.CloudinaryURL != "" {
		store, err := storage.NewCloudinaryStore(cfg.CloudinaryURL, "socialgraph")
		return store, "", err
	}
	store, err := storage.NewLocalStore(cfg.UploadDir, "/uploads")
	if err != nil {
		return nil, "", err
	}
	return store, cfg.UploadDir, nil
}
