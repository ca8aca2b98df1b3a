package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"adgen/internal/domain"
	"adgen/internal/imagegen"
	"adgen/internal/infra"
)

// Options bounds the controller's external calls and record lifetimes.
type Options struct {
	Retention     time.Duration // record lifetime before the sweep may purge it
	ScrapeTimeout time.Duration
	JobDeadline   time.Duration // ceiling for one processing attempt
	LinkTTL       time.Duration
	RenewalMargin time.Duration // links closer than this to expiry are renewed
}

func (o *Options) applyDefaults() {
	if o.Retention <= 0 {
		o.Retention = 24 * time.Hour
	}
	if o.ScrapeTimeout <= 0 {
		o.ScrapeTimeout = 10 * time.Second
	}
	if o.JobDeadline <= 0 {
		o.JobDeadline = 15 * time.Minute
	}
	if o.LinkTTL <= 0 {
		o.LinkTTL = time.Hour
	}
	if o.RenewalMargin <= 0 {
		o.RenewalMargin = 5 * time.Minute
	}
}

// Deps are the controller's collaborators. Scraper and Synth are only needed
// by Process; callers that never process jobs may leave them nil.
type Deps struct {
	Jobs    domain.JobRepository
	Queue   domain.WorkQueue
	Store   domain.ObjectStore
	Scraper domain.Scraper
	Synth   domain.Synthesizer
	Logger  infra.Logger
}

// Controller owns every transition of a job record: it creates pending jobs,
// drives the scrape -> synthesize -> store -> finalize pipeline, and renews
// access links on completed jobs. All coordination between concurrent
// invocations happens through the job repository's conditional updates.
type Controller struct {
	jobs    domain.JobRepository
	queue   domain.WorkQueue
	store   domain.ObjectStore
	scraper domain.Scraper
	synth   domain.Synthesizer
	logger  infra.Logger
	opts    Options
	now     func() time.Time
}

// New constructs a Controller with defaults applied to zero options.
func New(deps Deps, opts Options) *Controller {
	opts.applyDefaults()
	return &Controller{
		jobs:    deps.Jobs,
		queue:   deps.Queue,
		store:   deps.Store,
		scraper: deps.Scraper,
		synth:   deps.Synth,
		logger:  deps.Logger,
		opts:    opts,
		now:     time.Now,
	}
}

// Create validates the product URL, writes a pending record and enqueues the
// work item. The record write happens before the enqueue so a consumer can
// always find the record. When the enqueue fails the record is left pending
// and falls to the retention sweep; nothing retries it.
func (c *Controller) Create(ctx context.Context, productURL string) (string, error) {
	if strings.TrimSpace(productURL) == "" {
		return "", fmt.Errorf("%w: product_url is required", domain.ErrInvalidInput)
	}

	now := c.now()
	job := &domain.Job{
		ID:                uuid.NewString(),
		ProductURL:        productURL,
		Status:            domain.JobStatusPending,
		CreatedAt:         now,
		RetentionDeadline: now.Add(c.opts.Retention),
	}
	if err := c.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("create job record: %w", err)
	}

	if err := c.queue.Enqueue(ctx, domain.WorkItem{JobID: job.ID, ProductURL: job.ProductURL}); err != nil {
		c.logger.Error().Err(err).Str("job_id", job.ID).Msg("lifecycle: enqueue failed, record left pending")
		return "", fmt.Errorf("%w: enqueue job %s: %v", domain.ErrInfra, job.ID, err)
	}

	c.logger.Info().Str("job_id", job.ID).Str("product_url", job.ProductURL).Msg("lifecycle: job accepted")
	return job.ID, nil
}

// Process handles one delivery of a work item. Deliveries are at-least-once:
// a redelivered non-terminal job simply restarts processing, while a delivery
// for a terminal job is a no-op so the message gets acked. Every claimed
// attempt ends in a terminal write; the failed write is the pipeline's
// exception-safety net. A non-nil return means the attempt could not record
// an outcome and the message should be redelivered.
func (c *Controller) Process(ctx context.Context, item domain.WorkItem) error {
	claimed, err := c.jobs.Claim(ctx, item.JobID)
	if err != nil {
		return fmt.Errorf("claim job %s: %w", item.JobID, err)
	}
	if !claimed {
		job, err := c.jobs.GetByID(ctx, item.JobID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Record purged by retention; nothing left to do.
				c.logger.Warn().Str("job_id", item.JobID).Msg("lifecycle: work item for missing record")
				return nil
			}
			return fmt.Errorf("load job %s: %w", item.JobID, err)
		}
		c.logger.Info().Str("job_id", item.JobID).Str("status", string(job.Status)).
			Msg("lifecycle: duplicate delivery for terminal job")
		return nil
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.JobDeadline)
	defer cancel()

	if err := c.runPipeline(attemptCtx, item); err != nil {
		msg := c.failureMessage(err)
		// The terminal write must not be skipped because the attempt's
		// deadline already fired.
		wrote, ferr := c.jobs.MarkFailed(context.WithoutCancel(ctx), item.JobID, msg, c.now())
		if ferr != nil {
			return fmt.Errorf("record failure for job %s: %w", item.JobID, ferr)
		}
		if wrote {
			c.logger.Error().Err(err).Str("job_id", item.JobID).Msg("lifecycle: job failed")
		} else {
			c.logger.Info().Str("job_id", item.JobID).Msg("lifecycle: failure lost race to another attempt")
		}
	}
	return nil
}

func (c *Controller) runPipeline(ctx context.Context, item domain.WorkItem) error {
	scrapeCtx, cancel := context.WithTimeout(ctx, c.opts.ScrapeTimeout)
	info, err := c.scraper.Scrape(scrapeCtx, item.ProductURL)
	cancel()
	if err != nil {
		return fmt.Errorf("scrape product page: %w", err)
	}

	prompt := imagegen.BuildInstruction(*info)
	data, err := c.synth.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, domain.ErrNoImage) {
			return domain.ErrNoImage
		}
		return fmt.Errorf("synthesize image: %w", err)
	}
	if len(data) == 0 {
		return domain.ErrNoImage
	}

	format := DetectFormat(data)
	key := fmt.Sprintf("%s.%s", item.JobID, format.Ext)
	metadata := map[string]string{
		"product_url":   item.ProductURL,
		"product_name":  info.Name,
		"product_price": info.Price,
		"offer":         info.Offer,
		"location":      info.Location,
	}
	if err := c.store.Put(ctx, key, format.ContentType, metadata, data); err != nil {
		return fmt.Errorf("store artifact: %w", err)
	}

	link, expires, err := c.store.PresignGet(ctx, key, c.opts.LinkTTL)
	if err != nil {
		return fmt.Errorf("grant access link: %w", err)
	}

	wrote, err := c.jobs.MarkCompleted(ctx, item.JobID, domain.CompletedResult{
		ArtifactKey:  key,
		ContentType:  format.ContentType,
		CompletedAt:  c.now(),
		AccessLink:   link,
		LinkExpires:  expires,
		ProductName:  info.Name,
		ProductPrice: info.Price,
		OverlayText:  imagegen.OverlayText(*info),
	})
	if err != nil {
		return fmt.Errorf("finalize job: %w", err)
	}
	if wrote {
		c.logger.Info().Str("job_id", item.JobID).Str("artifact_key", key).Msg("lifecycle: job completed")
	} else {
		c.logger.Info().Str("job_id", item.JobID).Msg("lifecycle: completion lost race to another attempt")
	}
	return nil
}

func (c *Controller) failureMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("processing timed out after %s", c.opts.JobDeadline)
	}
	return err.Error()
}

// EnsureFreshLink guarantees a completed job's access link is valid for at
// least the renewal margin. Within the margin the stored pair is returned
// untouched, with no object-store call. Concurrent renewals are each valid;
// the repository keeps the last write.
func (c *Controller) EnsureFreshLink(ctx context.Context, job *domain.Job) (string, time.Time, error) {
	if job.Status != domain.JobStatusCompleted {
		return "", time.Time{}, fmt.Errorf("%w: job %s is not completed", domain.ErrInvalidInput, job.ID)
	}
	if job.ArtifactKey == "" {
		// Should not happen for a completed record; serve whatever is stored
		// rather than failing the status read.
		c.logger.Warn().Str("job_id", job.ID).Msg("lifecycle: completed job without artifact key")
		return job.AccessLink, job.AccessLinkExpires, nil
	}
	if job.AccessLink != "" && job.AccessLinkExpires.After(c.now().Add(c.opts.RenewalMargin)) {
		return job.AccessLink, job.AccessLinkExpires, nil
	}

	link, expires, err := c.store.PresignGet(ctx, job.ArtifactKey, c.opts.LinkTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("renew access link: %w", err)
	}
	if err := c.jobs.UpdateAccessLink(ctx, job.ID, link, expires); err != nil {
		return "", time.Time{}, fmt.Errorf("persist access link: %w", err)
	}
	job.AccessLink = link
	job.AccessLinkExpires = expires
	c.logger.Debug().Str("job_id", job.ID).Time("expires_at", expires).Msg("lifecycle: access link renewed")
	return link, expires, nil
}
