package domain

import "time"

// JobStatus enumerates job lifecycle states. Transitions only move forward:
// pending -> processing -> completed|failed.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further automatic transition occurs from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job encapsulates the lifecycle of one ad-image generation request.
type Job struct {
	ID                string
	ProductURL        string
	Status            JobStatus
	CreatedAt         time.Time
	RetentionDeadline time.Time

	// Populated once Status is completed.
	ArtifactKey       string
	ContentType       string
	CompletedAt       time.Time
	AccessLink        string
	AccessLinkExpires time.Time
	ProductName       string
	ProductPrice      string
	OverlayText       string

	// Populated once Status is failed.
	ErrorMessage string
	FailedAt     time.Time
}

// ProductInfo is the best-effort metadata scraped from a product page. Every
// field is optional; consumers must tolerate empty strings.
type ProductInfo struct {
	Name          string
	Description   string
	Price         string
	OriginalPrice string
	Offer         string
	Phone         string
	Location      string
	BodyText      string
}

// WorkItem is the only payload exchanged over the work queue.
type WorkItem struct {
	JobID      string `json:"job_id"`
	ProductURL string `json:"product_url"`
}

// CompletedResult carries every field written by the single terminal
// completed update, so a racing attempt can never leave a half-written
// record.
type CompletedResult struct {
	ArtifactKey  string
	ContentType  string
	CompletedAt  time.Time
	AccessLink   string
	LinkExpires  time.Time
	ProductName  string
	ProductPrice string
	OverlayText  string
}
