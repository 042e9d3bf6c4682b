package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/imoveis-tracker/internal/jobs"
)

// DefaultRetention is how many finished jobs a Store keeps by default.
const DefaultRetention = 500

// Store is an in-memory JobStore, safe for concurrent use. Once more than
// its retention of jobs have finished, the oldest finished ones are evicted.
// Pending and running jobs are never evicted.
type Store struct {
	mu        sync.RWMutex
	jobs      map[string]*jobs.ExportJob
	retention int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRetention sets how many finished jobs are kept. n <= 0 keeps all of
// them.
func WithRetention(n int) StoreOption {
	return func(s *Store) { s.retention = n }
}

// NewStore creates a new in-memory job store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		jobs:      make(map[string]*jobs.ExportJob),
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveJob stores a copy of job.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ExportJob) error {
	if job.JobID == "" {
		return fmt.Errorf("SaveJob: job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy
	if job.Status.Final() {
		s.evict()
	}
	return nil
}

// evict drops the oldest finished jobs beyond the retention. Callers hold mu.
func (s *Store) evict() {
	if s.retention <= 0 {
		return
	}
	var finished []*jobs.ExportJob
	for _, job := range s.jobs {
		if job.Status.Final() {
			finished = append(finished, job)
		}
	}
	if len(finished) <= s.retention {
		return
	}
	sortNewestFirst(finished)
	for _, job := range finished[s.retention:] {
		delete(s.jobs, job.JobID)
	}
}

// GetJob returns a copy of the job, or jobs.ErrJobNotFound.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("GetJob %s: %w", jobID, jobs.ErrJobNotFound)
	}

	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs returns copies of the matching jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.ExportJob
	for _, job := range s.jobs {
		if filter.Type != "" && job.Type != filter.Type {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	}
	sortNewestFirst(result)

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.ExportJob{}, nil
		}
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

func sortNewestFirst(list []*jobs.ExportJob) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].JobID < list[j].JobID
	})
}

// Ensure Store implements JobStore interface.
var _ jobs.JobStore = (*Store)(nil)
