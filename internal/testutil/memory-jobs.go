package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"elt-orchestration-service/internal/core/domain"
	ports "elt-orchestration-service/internal/core/ports/output"
)

// MemoryJobRepo is an in-memory JobRepository for tests that exercise a
// full pipeline flow without a database.
type MemoryJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func NewMemoryJobRepo() *MemoryJobRepo {
	return &MemoryJobRepo{jobs: make(map[string]*domain.Job)}
}

func (r *MemoryJobRepo) Create(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *job
	r.jobs[job.ID.String()] = &stored
	return nil
}

func (r *MemoryJobRepo) Update(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID.String()]; !ok {
		return domain.ErrJobNotFound
	}
	stored := *job
	r.jobs[job.ID.String()] = &stored
	return nil
}

func (r *MemoryJobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (r *MemoryJobRepo) LatestByName(ctx context.Context, name string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *domain.Job
	for _, job := range r.jobs {
		if job.Name != name {
			continue
		}
		if latest == nil || job.StartedAt.After(latest.StartedAt) {
			latest = job
		}
	}
	if latest == nil {
		return nil, domain.ErrJobNotFound
	}
	copied := *latest
	return &copied, nil
}

func (r *MemoryJobRepo) List(ctx context.Context, filter ports.JobListFilter) ([]*domain.Job, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*domain.Job
	for _, job := range r.jobs {
		if filter.State != "" && string(job.State) != filter.State {
			continue
		}
		if filter.Search != "" && !strings.Contains(job.Name, filter.Search) {
			continue
		}
		copied := *job
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartedAt.After(matched[j].StartedAt)
	})

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (r *MemoryJobRepo) MarkStaleRunning(ctx context.Context, cutoffHours int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-time.Duration(cutoffHours) * time.Hour)
	marked := 0
	for _, job := range r.jobs {
		if job.State == domain.JobStateRunning && job.StartedAt.Before(cutoff) {
			job.State = domain.JobStateDead
			marked++
		}
	}
	return marked, nil
}
