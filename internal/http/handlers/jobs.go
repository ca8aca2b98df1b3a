package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"adgen/internal/domain"
)

type jobSubmitRequest struct {
	ProductURL string `json:"product_url"`
}

type jobSubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobsSubmit accepts a product URL, creates a pending job and enqueues it.
func (a *App) JobsSubmit(w http.ResponseWriter, r *http.Request) {
	var req jobSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	jobID, err := a.Lifecycle.Create(r.Context(), req.ProductURL)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			a.error(w, http.StatusBadRequest, "bad_request", "product_url is required")
			return
		}
		a.Logger.Error().Err(err).Msg("handlers: job submission failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}
	a.json(w, http.StatusAccepted, jobSubmitResponse{JobID: jobID, Status: string(domain.JobStatusPending)})
}

// JobStatus reports the current state of a job, shaped per status. Completed
// jobs get their access link renewed transparently before responding.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("handlers: job lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}

	resp := map[string]any{
		"job_id":     job.ID,
		"status":     job.Status,
		"created_at": job.CreatedAt,
	}
	switch job.Status {
	case domain.JobStatusProcessing:
		resp["message"] = "your ad image is being generated"
	case domain.JobStatusCompleted:
		link, expires, err := a.Lifecycle.EnsureFreshLink(r.Context(), job)
		if err != nil {
			a.Logger.Error().Err(err).Str("job_id", jobID).Msg("handlers: access link renewal failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to refresh download link")
			return
		}
		resp["download_url"] = link
		resp["download_url_expires_at"] = expires
		resp["content_type"] = job.ContentType
		resp["completed_at"] = job.CompletedAt
		if job.ProductName != "" {
			resp["product_name"] = job.ProductName
		}
		if job.ProductPrice != "" {
			resp["product_price"] = job.ProductPrice
		}
		if job.OverlayText != "" {
			resp["overlay_text"] = job.OverlayText
		}
	case domain.JobStatusFailed:
		resp["error"] = job.ErrorMessage
		resp["failed_at"] = job.FailedAt
	}
	a.json(w, http.StatusOK, resp)
}
