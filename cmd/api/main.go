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

	"adgen/internal/adapter/repo"
	"adgen/internal/bus"
	"adgen/internal/http/handlers"
	"adgen/internal/http/httpapi"
	"adgen/internal/infra"
	"adgen/internal/lifecycle"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: db connection failed")
	}
	defer pool.Close()

	jobs := repo.NewJobRepository(pool)
	if err := jobs.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("api: ensure schema failed")
	}

	queue, err := bus.Connect(bus.Options{
		URL:     cfg.NATSURL,
		Stream:  cfg.QueueStream,
		Subject: cfg.QueueSubject,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: queue connection failed")
	}
	defer queue.Close()

	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure storage")
	}

	ctrl := lifecycle.New(lifecycle.Deps{
		Jobs:   jobs,
		Queue:  queue,
		Store:  store,
		Logger: logger,
	}, lifecycle.Options{
		Retention:     cfg.Retention,
		ScrapeTimeout: cfg.ScrapeTimeout,
		JobDeadline:   cfg.JobDeadline,
		LinkTTL:       cfg.LinkTTL,
		RenewalMargin: cfg.LinkRenewalMargin,
	})

	app := handlers.NewApp(jobs, ctrl, logger)
	routerCfg := httpapi.RouterConfig{
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	}
	if cfg.StorageBackend == "filesystem" {
		routerCfg.StaticDir = cfg.StoragePath
	}
	router := httpapi.NewRouter(app, logger, routerCfg)

	srv := infra.NewHTTPServer(cfg, router)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("api: shutdown failed")
		}
	}()

	logger.Info().Str("port", cfg.Port).Msg("api: started")
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("api: server stopped with error")
	}
	logger.Info().Msg("api: stopped")
}
