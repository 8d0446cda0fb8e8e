package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"freshly/internal/auth"
	"freshly/internal/config"
	"freshly/internal/handler"
	"freshly/internal/job"
	"freshly/internal/libsql"
	"freshly/internal/media"
	"freshly/internal/service"
	"freshly/internal/storage"
	"freshly/internal/upstream"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	// PARSE ARGS
	var configPath string
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")

	flag.Parse()

	cfg := config.MustLoadConfig(configPath)

	// INIT LOGGER
	lgr := setupLogger(cfg.Env)
	lgr.Info("starting freshly", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lgr); err != nil {
		lgr.Error("freshly stopped with error", slog.Any("error", err))
		os.Exit(1)
	}

	lgr.Info("freshly stopped")
}

func run(ctx context.Context, cfg *config.Config, lgr *slog.Logger) error {
	// INIT DB
	db, err := libsql.New(cfg.DB.URL, cfg.DB.AuthToken, libsql.WithTimeout(cfg.DB.Timeout))
	if err != nil {
		return err
	}
	defer db.Close()

	lgr.Info("database gateway ready", slog.String("endpoint", db.Endpoint()))

	if cfg.DB.AutoMigrate {
		if err := storage.Migrate(ctx, db, lgr); err != nil {
			return err
		}
	}

	st := storage.NewLibSQLStorage(db)

	// INIT SERVICES
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTTL, cfg.Auth.Leeway)
	if err != nil {
		return err
	}

	directory, err := upstream.New(cfg.UserAPI.URL, cfg.UserAPI.APIKey, cfg.UserAPI.Timeout)
	if err != nil {
		return err
	}

	var images service.ImageStore
	if cfg.S3.Enabled() {
		store, err := media.NewS3ImageStore(ctx, media.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PublicBaseURL:   cfg.S3.PublicBaseURL,
			PresignTTL:      cfg.S3.PresignTTL,
		})
		if err != nil {
			return err
		}
		images = store
	} else {
		lgr.Warn("s3 bucket not configured, image uploads disabled")
	}

	srvc := service.NewService(st, tokens, directory, images, cfg.Auth.RefreshTTL, lgr)

	// INIT JOBS
	scheduler := job.NewScheduler(lgr)
	if err := job.Schedule(scheduler, cfg.Jobs.TokenCleanupSchedule, job.NewRefreshTokenCleanupJob(srvc, lgr)); err != nil {
		return err
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	// INIT SERVER
	h := handler.NewHandler(srvc, auth.NewGate(tokens), lgr)

	server := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      h.InitRoutes(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		lgr.Info("http server listening", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lgr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}
	return log
}
