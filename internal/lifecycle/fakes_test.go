package lifecycle

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"adgen/internal/domain"
	"adgen/internal/infra"
)

func discardLogger() infra.Logger {
	return zerolog.New(io.Discard)
}

// memJobs is an in-memory JobRepository enforcing the same conditional
// transition semantics as the Postgres implementation.
type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job

	createErr error
	claimErr  error
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: make(map[string]*domain.Job)}
}

func (m *memJobs) Create(ctx context.Context, job *domain.Job) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return fmt.Errorf("duplicate job %s", job.ID)
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memJobs) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *memJobs) Claim(ctx context.Context, jobID string) (bool, error) {
	if m.claimErr != nil {
		return false, m.claimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return false, nil
	}
	job.Status = domain.JobStatusProcessing
	return true, nil
}

func (m *memJobs) MarkCompleted(ctx context.Context, jobID string, result domain.CompletedResult) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.Status != domain.JobStatusProcessing {
		return false, nil
	}
	job.Status = domain.JobStatusCompleted
	job.ArtifactKey = result.ArtifactKey
	job.ContentType = result.ContentType
	job.CompletedAt = result.CompletedAt
	job.AccessLink = result.AccessLink
	job.AccessLinkExpires = result.LinkExpires
	job.ProductName = result.ProductName
	job.ProductPrice = result.ProductPrice
	job.OverlayText = result.OverlayText
	return true, nil
}

func (m *memJobs) MarkFailed(ctx context.Context, jobID, errMsg string, failedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.Status != domain.JobStatusProcessing {
		return false, nil
	}
	job.Status = domain.JobStatusFailed
	job.ErrorMessage = errMsg
	job.FailedAt = failedAt
	return true, nil
}

func (m *memJobs) UpdateAccessLink(ctx context.Context, jobID, link string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.Status != domain.JobStatusCompleted {
		return nil
	}
	job.AccessLink = link
	job.AccessLinkExpires = expiresAt
	return nil
}

func (m *memJobs) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, job := range m.jobs {
		if job.RetentionDeadline.Before(now) {
			delete(m.jobs, id)
			n++
		}
	}
	return n, nil
}

type memQueue struct {
	mu    sync.Mutex
	items []domain.WorkItem
	err   error
}

func (q *memQueue) Enqueue(ctx context.Context, item domain.WorkItem) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	return nil
}

type putCall struct {
	key         string
	contentType string
	metadata    map[string]string
	data        []byte
}

// memStore counts presign calls and hands out unique links so tests can
// observe renewal behavior.
type memStore struct {
	mu         sync.Mutex
	puts       []putCall
	presigns   int
	putErr     error
	presignErr error
}

func (s *memStore) Put(ctx context.Context, key, contentType string, metadata map[string]string, data []byte) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, putCall{key: key, contentType: contentType, metadata: metadata, data: data})
	return nil
}

func (s *memStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	if s.presignErr != nil {
		return "", time.Time{}, s.presignErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presigns++
	link := fmt.Sprintf("https://store.example.com/%s?sig=%d", key, s.presigns)
	return link, time.Now().Add(ttl), nil
}

type fakeScraper struct {
	info *domain.ProductInfo
	err  error
}

func (s *fakeScraper) Scrape(ctx context.Context, productURL string) (*domain.ProductInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	cp := *s.info
	return &cp, nil
}

type fakeSynth struct {
	data []byte
	err  error
	// block makes Generate wait for ctx cancellation, for deadline tests.
	block bool
}

func (s *fakeSynth) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}
