package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"adgen/internal/adapter/repo"
	"adgen/internal/bus"
	"adgen/internal/domain"
	"adgen/internal/infra"
	"adgen/internal/lifecycle"
	"adgen/internal/providers/genai"
	"adgen/internal/scrape"
)

type jobWorker struct {
	ctrl   *lifecycle.Controller
	jobs   *repo.JobRepositoryPG
	logger infra.Logger
}

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
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	jobs := repo.NewJobRepository(pool)
	if err := jobs.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("worker: ensure schema failed")
	}

	queue, err := bus.Connect(bus.Options{
		URL:     cfg.NATSURL,
		Stream:  cfg.QueueStream,
		Subject: cfg.QueueSubject,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: queue connection failed")
	}
	defer queue.Close()

	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	synth, err := genai.NewClient(genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure gemini client")
	}
	if cfg.GeminiAPIKey == "" {
		logger.Warn().Str("model", synth.Model()).Msg("worker: gemini api key missing, synthesis calls will fail")
	}

	ctrl := lifecycle.New(lifecycle.Deps{
		Jobs:    jobs,
		Queue:   queue,
		Store:   store,
		Scraper: scrape.New(cfg.ScrapeTimeout),
		Synth:   synth,
		Logger:  logger,
	}, lifecycle.Options{
		Retention:     cfg.Retention,
		ScrapeTimeout: cfg.ScrapeTimeout,
		JobDeadline:   cfg.JobDeadline,
		LinkTTL:       cfg.LinkTTL,
		RenewalMargin: cfg.LinkRenewalMargin,
	})

	w := &jobWorker{ctrl: ctrl, jobs: jobs, logger: logger}
	go w.sweepLoop(ctx, cfg.SweepInterval)

	logger.Info().
		Str("stream", cfg.QueueStream).
		Str("subject", cfg.QueueSubject).
		Str("durable", cfg.QueueDurable).
		Msg("worker: started")

	err = queue.Consume(ctx, bus.ConsumeOptions{
		Durable:    cfg.QueueDurable,
		AckWait:    cfg.QueueAckWait,
		MaxDeliver: cfg.QueueMaxDeliver,
	}, w.handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func (w *jobWorker) handle(ctx context.Context, item domain.WorkItem) error {
	w.logger.Info().Str("job_id", item.JobID).Str("product_url", item.ProductURL).Msg("worker: picked job")
	if err := w.ctrl.Process(ctx, item); err != nil {
		w.logger.Error().Err(err).Str("job_id", item.JobID).Msg("worker: attempt failed, awaiting redelivery")
		return err
	}
	return nil
}

// sweepLoop purges job records past their retention deadline.
func (w *jobWorker) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.jobs.DeleteExpired(ctx, time.Now())
			if err != nil {
				w.logger.Error().Err(err).Msg("worker: retention sweep failed")
				continue
			}
			if n > 0 {
				w.logger.Info().Int64("purged", n).Msg("worker: retention sweep")
			}
		}
	}
}
