package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"venuepos/backend/internal/cache"
	"venuepos/backend/internal/config"
	"venuepos/backend/internal/httpapi"
	"venuepos/backend/internal/logging"
	"venuepos/backend/internal/service"
	"venuepos/backend/internal/store"
	"venuepos/backend/internal/store/memory"
	pgstore "venuepos/backend/internal/store/postgres"
)

func main() {
	logging.Setup()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback")
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info().Msg("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Info().Msg("repository: in-memory")
	}

	receiptCache := cache.ReceiptCache(cache.NoopReceiptCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisReceiptCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using noop receipt cache")
		} else {
			receiptCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Info().Msg("receipt cache: redis")
		}
	} else {
		log.Info().Msg("receipt cache: noop")
	}

	svc := service.New(repo, receiptCache, cfg.TaxRate, time.Duration(cfg.ReceiptCacheTTLSeconds)*time.Second)
	api := httpapi.New(svc, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Msg("POS backend listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close error")
		}
	}

	log.Info().Msg("server stopped")
}
