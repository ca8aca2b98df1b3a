package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"adgen/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// EnsureSchema creates the jobs table when it does not exist yet.
func (r *JobRepositoryPG) EnsureSchema(ctx context.Context) error {
	query := `
CREATE TABLE IF NOT EXISTS jobs (
    id                     TEXT PRIMARY KEY,
    product_url            TEXT NOT NULL,
    status                 TEXT NOT NULL,
    created_at             TIMESTAMPTZ NOT NULL,
    retention_deadline     TIMESTAMPTZ NOT NULL,
    artifact_key           TEXT NOT NULL DEFAULT '',
    content_type           TEXT NOT NULL DEFAULT '',
    completed_at           TIMESTAMPTZ,
    access_link            TEXT NOT NULL DEFAULT '',
    access_link_expires_at TIMESTAMPTZ,
    product_name           TEXT NOT NULL DEFAULT '',
    product_price          TEXT NOT NULL DEFAULT '',
    overlay_text           TEXT NOT NULL DEFAULT '',
    error_message          TEXT NOT NULL DEFAULT '',
    failed_at              TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS jobs_retention_deadline_idx ON jobs (retention_deadline);
`
	_, err := r.pool.Exec(ctx, query)
	return err
}

// Create inserts a new pending job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, product_url, status, created_at, retention_deadline)
VALUES ($1, $2, $3, $4, $5);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.ProductURL,
		job.Status,
		job.CreatedAt,
		job.RetentionDeadline,
	)
	return err
}

// Claim transitions a non-terminal job to processing. Redelivery of an
// in-flight job restarts processing; terminal records are left untouched.
func (r *JobRepositoryPG) Claim(ctx context.Context, jobID string) (bool, error) {
	query := `
UPDATE jobs
SET status = $2
WHERE id = $1 AND status IN ($3, $2);
`
	tag, err := r.pool.Exec(ctx, query, jobID, domain.JobStatusProcessing, domain.JobStatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkCompleted writes the terminal completed record. The update only applies
// while the job is still processing, so the first terminal write wins.
func (r *JobRepositoryPG) MarkCompleted(ctx context.Context, jobID string, result domain.CompletedResult) (bool, error) {
	query := `
UPDATE jobs
SET status = $2,
    artifact_key = $3,
    content_type = $4,
    completed_at = $5,
    access_link = $6,
    access_link_expires_at = $7,
    product_name = $8,
    product_price = $9,
    overlay_text = $10
WHERE id = $1 AND status = $11;
`
	tag, err := r.pool.Exec(ctx, query,
		jobID,
		domain.JobStatusCompleted,
		result.ArtifactKey,
		result.ContentType,
		result.CompletedAt,
		result.AccessLink,
		result.LinkExpires,
		result.ProductName,
		result.ProductPrice,
		result.OverlayText,
		domain.JobStatusProcessing,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkFailed writes the terminal failed record, guarded the same way as
// MarkCompleted.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, jobID, errMsg string, failedAt time.Time) (bool, error) {
	query := `
UPDATE jobs
SET status = $2,
    error_message = $3,
    failed_at = $4
WHERE id = $1 AND status = $5;
`
	tag, err := r.pool.Exec(ctx, query, jobID, domain.JobStatusFailed, errMsg, failedAt, domain.JobStatusProcessing)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateAccessLink refreshes the presigned link pair on a completed job.
// Concurrent renewals are last-write-wins; either link is valid for its own
// window.
func (r *JobRepositoryPG) UpdateAccessLink(ctx context.Context, jobID, link string, expiresAt time.Time) error {
	query := `
UPDATE jobs
SET access_link = $2,
    access_link_expires_at = $3
WHERE id = $1 AND status = $4;
`
	_, err := r.pool.Exec(ctx, query, jobID, link, expiresAt, domain.JobStatusCompleted)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
SELECT id, product_url, status, created_at, retention_deadline,
       artifact_key, content_type, completed_at,
       access_link, access_link_expires_at,
       product_name, product_price, overlay_text,
       error_message, failed_at
FROM jobs
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, jobID)
	var job domain.Job
	var completedAt, linkExpires, failedAt *time.Time
	if err := row.Scan(
		&job.ID,
		&job.ProductURL,
		&job.Status,
		&job.CreatedAt,
		&job.RetentionDeadline,
		&job.ArtifactKey,
		&job.ContentType,
		&completedAt,
		&job.AccessLink,
		&linkExpires,
		&job.ProductName,
		&job.ProductPrice,
		&job.OverlayText,
		&job.ErrorMessage,
		&failedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if completedAt != nil {
		job.CompletedAt = *completedAt
	}
	if linkExpires != nil {
		job.AccessLinkExpires = *linkExpires
	}
	if failedAt != nil {
		job.FailedAt = *failedAt
	}
	return &job, nil
}

// DeleteExpired purges records past their retention deadline.
func (r *JobRepositoryPG) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE retention_deadline < $1;`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
