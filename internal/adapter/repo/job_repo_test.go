package repo

// Integration tests for the conditional-update guards. They need a live
// database and are skipped unless DATABASE_URL is set, e.g.
//
//	DATABASE_URL=postgres://localhost/adgen_test go test ./internal/adapter/repo/

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"adgen/internal/domain"
)

func newTestRepo(t *testing.T) *JobRepositoryPG {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping database integration test")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	r := NewJobRepository(pool)
	if err := r.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return r
}

func insertPending(t *testing.T, r *JobRepositoryPG, retention time.Duration) string {
	t.Helper()
	now := time.Now().UTC()
	job := &domain.Job{
		ID:                uuid.NewString(),
		ProductURL:        "https://example.com/widget",
		Status:            domain.JobStatusPending,
		CreatedAt:         now,
		RetentionDeadline: now.Add(retention),
	}
	if err := r.Create(context.Background(), job); err != nil {
		t.Fatalf("create: %v", err)
	}
	return job.ID
}

func completedResult(now time.Time) domain.CompletedResult {
	return domain.CompletedResult{
		ArtifactKey:  "k.jpg",
		ContentType:  "image/jpeg",
		CompletedAt:  now,
		AccessLink:   "https://store.example.com/k.jpg?sig=1",
		LinkExpires:  now.Add(time.Hour),
		ProductName:  "Widget",
		ProductPrice: "$9.99",
		OverlayText:  "Widget | $9.99",
	}
}

func TestClaimGuards(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	jobID := insertPending(t, r, time.Hour)

	claimed, err := r.Claim(ctx, jobID)
	if err != nil || !claimed {
		t.Fatalf("claim pending: claimed=%v err=%v", claimed, err)
	}
	job, err := r.GetByID(ctx, jobID)
	if err != nil || job.Status != domain.JobStatusProcessing {
		t.Fatalf("after claim: status=%v err=%v", job.Status, err)
	}

	// Redelivery of an in-flight job restarts processing.
	claimed, err = r.Claim(ctx, jobID)
	if err != nil || !claimed {
		t.Fatalf("re-claim processing: claimed=%v err=%v", claimed, err)
	}

	if _, err := r.MarkCompleted(ctx, jobID, completedResult(time.Now().UTC())); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	claimed, err = r.Claim(ctx, jobID)
	if err != nil {
		t.Fatalf("claim terminal: %v", err)
	}
	if claimed {
		t.Fatal("claim regressed a terminal record")
	}
	job, _ = r.GetByID(ctx, jobID)
	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("terminal status overwritten: %s", job.Status)
	}

	claimed, err = r.Claim(ctx, uuid.NewString())
	if err != nil || claimed {
		t.Fatalf("claim missing id: claimed=%v err=%v", claimed, err)
	}
}

func TestMarkCompletedOnlyWhileProcessing(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	jobID := insertPending(t, r, time.Hour)

	wrote, err := r.MarkCompleted(ctx, jobID, completedResult(now))
	if err != nil {
		t.Fatalf("mark completed on pending: %v", err)
	}
	if wrote {
		t.Fatal("completed write applied to a pending record")
	}
	job, _ := r.GetByID(ctx, jobID)
	if job.Status != domain.JobStatusPending || job.ArtifactKey != "" {
		t.Fatalf("pending record mutated: %+v", job)
	}

	if _, err := r.Claim(ctx, jobID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	wrote, err = r.MarkCompleted(ctx, jobID, completedResult(now))
	if err != nil || !wrote {
		t.Fatalf("mark completed on processing: wrote=%v err=%v", wrote, err)
	}
	job, _ = r.GetByID(ctx, jobID)
	if job.Status != domain.JobStatusCompleted || job.ArtifactKey != "k.jpg" || job.AccessLink == "" {
		t.Fatalf("completed fields not written: %+v", job)
	}

	// A racing failed write must lose to the earlier terminal write.
	wrote, err = r.MarkFailed(ctx, jobID, "late failure", now)
	if err != nil {
		t.Fatalf("mark failed on completed: %v", err)
	}
	if wrote {
		t.Fatal("failed write overwrote a completed record")
	}
	job, _ = r.GetByID(ctx, jobID)
	if job.Status != domain.JobStatusCompleted || job.ErrorMessage != "" {
		t.Fatalf("completed record mixed with failure fields: %+v", job)
	}
}

func TestMarkFailedOnlyWhileProcessing(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	jobID := insertPending(t, r, time.Hour)

	wrote, err := r.MarkFailed(ctx, jobID, "early failure", now)
	if err != nil {
		t.Fatalf("mark failed on pending: %v", err)
	}
	if wrote {
		t.Fatal("failed write applied to a pending record")
	}

	if _, err := r.Claim(ctx, jobID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	wrote, err = r.MarkFailed(ctx, jobID, "scrape product page: connection refused", now)
	if err != nil || !wrote {
		t.Fatalf("mark failed on processing: wrote=%v err=%v", wrote, err)
	}
	job, _ := r.GetByID(ctx, jobID)
	if job.Status != domain.JobStatusFailed || job.ErrorMessage == "" || job.FailedAt.IsZero() {
		t.Fatalf("failed fields not written: %+v", job)
	}

	wrote, err = r.MarkCompleted(ctx, jobID, completedResult(now))
	if err != nil {
		t.Fatalf("mark completed on failed: %v", err)
	}
	if wrote {
		t.Fatal("completed write overwrote a failed record")
	}
	job, _ = r.GetByID(ctx, jobID)
	if job.Status != domain.JobStatusFailed || job.ArtifactKey != "" {
		t.Fatalf("failed record mixed with completed fields: %+v", job)
	}
}

func TestUpdateAccessLinkRequiresCompleted(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	jobID := insertPending(t, r, time.Hour)
	if _, err := r.Claim(ctx, jobID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := r.UpdateAccessLink(ctx, jobID, "https://store.example.com/early", now.Add(time.Hour)); err != nil {
		t.Fatalf("update link on processing: %v", err)
	}
	job, _ := r.GetByID(ctx, jobID)
	if job.AccessLink != "" {
		t.Fatalf("link written to a non-completed record: %q", job.AccessLink)
	}

	if _, err := r.MarkCompleted(ctx, jobID, completedResult(now)); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	renewed := now.Add(2 * time.Hour)
	if err := r.UpdateAccessLink(ctx, jobID, "https://store.example.com/k.jpg?sig=2", renewed); err != nil {
		t.Fatalf("update link on completed: %v", err)
	}
	job, _ = r.GetByID(ctx, jobID)
	if job.AccessLink != "https://store.example.com/k.jpg?sig=2" || !job.AccessLinkExpires.Equal(renewed) {
		t.Fatalf("renewed pair not persisted: %+v", job)
	}
}

func TestDeleteExpiredOnlyPastDeadline(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	expiredID := insertPending(t, r, -time.Minute)
	liveID := insertPending(t, r, time.Hour)

	n, err := r.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n < 1 {
		t.Fatalf("expired record not purged, deleted %d", n)
	}
	if _, err := r.GetByID(ctx, expiredID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expired record still readable: %v", err)
	}
	if _, err := r.GetByID(ctx, liveID); err != nil {
		t.Fatalf("live record purged: %v", err)
	}
}
