package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baechuer/summons/internal/audit"
	"github.com/baechuer/summons/internal/config"
	"github.com/baechuer/summons/internal/domain"
	"github.com/baechuer/summons/internal/infrastructure/email"
	"github.com/baechuer/summons/internal/infrastructure/memory"
	"github.com/baechuer/summons/internal/infrastructure/postgres"
	"github.com/baechuer/summons/internal/infrastructure/redis"
	"github.com/baechuer/summons/internal/infrastructure/storage"
	"github.com/baechuer/summons/internal/notify"
	"github.com/baechuer/summons/internal/pkg/logger"
	"github.com/baechuer/summons/internal/service"
	"github.com/baechuer/summons/internal/transport/rest"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	if cfg.LogLevel != "" {
		_ = os.Setenv("LOG_LEVEL", cfg.LogLevel)
	}

	logger.Init()
	log := logger.Logger.With().
		Str("env", cfg.AppEnv).
		Logger()

	// Root ctx with signal cancellation
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aud := audit.New(log)

	// ---- Store ----
	var store domain.Store
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store = memory.New()
		log.Warn().Msg("using in-memory store; data is lost on restart")

	default:
		dbPool, err := pgxpool.New(rootCtx, cfg.DBDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres pool create failed")
		}
		defer dbPool.Close()

		pingCtx, cancel := context.WithTimeout(rootCtx, 5*time.Second)
		err = dbPool.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("postgres ping failed")
		}
		log.Info().Msg("postgres connected")

		repo := postgres.New(dbPool)
		store = repo

		// ---- Outbox worker (outbound invite.* events) ----
		if cfg.OutboxEnabled {
			repo.StartOutboxWorker(rootCtx, cfg.RabbitURL, cfg.RabbitExchange, aud)
			log.Info().Msg("outbox worker started")
		}
	}

	// ---- Redis ----
	// Optional. Interface values stay nil when it is off so consumers can
	// tell "no cache" from "cache down".
	var (
		cache domain.CacheRepository
		idem  notify.IdempotencyStore
	)
	if cfg.RedisEnabled {
		rc := redis.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.EventStatusTTL)
		defer rc.Close()

		pingCtx, cancel := context.WithTimeout(rootCtx, 2*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			// best effort; every caller fails open
			log.Warn().Err(err).Msg("redis ping failed (continuing)")
		} else {
			log.Info().Msg("redis connected")
		}
		cancel()
		cache, idem = rc, rc
	}

	// ---- Email ----
	var sender notify.Sender
	if cfg.EmailSender == config.EmailSenderSMTP {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			Timeout:  cfg.SMTPTimeout,
			Insecure: cfg.SMTPInsecure,
		}, log)
	} else {
		sender = email.NewFakeSender(log)
	}
	notifier := notify.NewService(sender, idem, cfg.SiteURL, cfg.EmailIdempotencyTTL, log)

	// ---- Images ----
	var images service.ImageStore
	if cfg.S3Enabled {
		s3c, err := storage.NewS3Client(cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("s3 client init failed")
		}
		ensureCtx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
		if err := s3c.EnsureBucket(ensureCtx); err != nil {
			log.Warn().Err(err).Str("bucket", cfg.S3Bucket).Msg("s3 bucket check failed (uploads may fail)")
		}
		cancel()
		images = s3c
	}

	// ---- Application service ----
	svc := service.New(store, service.Deps{
		Cache:    cache,
		Notifier: notifier,
		Images:   images,
		Audit:    aud,
	})

	// ---- Router ----
	httpHandler := rest.NewRouter(rest.RouterDeps{
		Cache:   cache,
		Handler: rest.NewHandler(svc, cfg.MaxImageBytes),
		Preview: rest.NewPreview(svc, cfg.SiteURL),
		RateLimit: rest.RateLimitOptions{
			Enabled: cfg.RLEnabled,
			Limit:   cfg.RLLimit,
			Window:  cfg.RLWindow,
		},
	})

	// ---- HTTP server ----
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server crash
	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server crashed")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("shutdown complete")
}
