package domain

import (
	"context"
	"time"
)

// JobRepository defines persistence for job records. It is the single source
// of truth for job state; every status transition goes through one of the
// conditional updates below.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	// Claim transitions a non-terminal job to processing. It returns false
	// without modifying the record when the job is already terminal or does
	// not exist.
	Claim(ctx context.Context, jobID string) (bool, error)
	// MarkCompleted and MarkFailed only apply while the job is processing,
	// so the first terminal write wins and later attempts become no-ops.
	MarkCompleted(ctx context.Context, jobID string, result CompletedResult) (bool, error)
	MarkFailed(ctx context.Context, jobID, errMsg string, failedAt time.Time) (bool, error)
	// UpdateAccessLink refreshes the presigned link pair on a completed job.
	UpdateAccessLink(ctx context.Context, jobID, link string, expiresAt time.Time) error
	// DeleteExpired purges records whose retention deadline has passed and
	// returns the number of rows removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// WorkQueue carries job work items from submission to processing with
// at-least-once delivery.
type WorkQueue interface {
	Enqueue(ctx context.Context, item WorkItem) error
}

// Scraper extracts product metadata from a web page. Network, status and
// parse failures all surface as a single generic error.
type Scraper interface {
	Scrape(ctx context.Context, productURL string) (*ProductInfo, error)
}

// Synthesizer turns a prompt into raw image bytes. An empty result is an
// error, never a success.
type Synthesizer interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// ObjectStore persists artifacts and issues time-limited access links.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, metadata map[string]string, data []byte) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error)
}
