package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/kitchen-ledger/internal/jobs"
)

// DefaultMaxJobs bounds how many sessions the store remembers.
const DefaultMaxJobs = 1000

// Store is an in-memory JobStore, safe for concurrent use. Once it holds more
// than its limit, the oldest finished jobs are dropped. Data is lost on restart.
type Store struct {
	mu      sync.RWMutex
	jobs    map[string]*jobs.IngestUpdateJob
	maxJobs int
}

// NewStore creates a store holding up to DefaultMaxJobs jobs.
func NewStore() *Store {
	return NewStoreWithLimit(DefaultMaxJobs)
}

// NewStoreWithLimit creates a store holding up to maxJobs jobs. Pending and
// running jobs are never evicted, so the limit can be exceeded while they wait.
func NewStoreWithLimit(maxJobs int) *Store {
	if maxJobs <= 0 {
		maxJobs = DefaultMaxJobs
	}
	return &Store{
		jobs:    make(map[string]*jobs.IngestUpdateJob),
		maxJobs: maxJobs,
	}
}

// SaveJob implements the JobStore interface.
func (s *Store) SaveJob(ctx context.Context, job *jobs.IngestUpdateJob) error {
	if job.JobID == "" {
		return fmt.Errorf("SaveJob: job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy so later changes by the worker are only seen after the next save.
	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy

	if len(s.jobs) > s.maxJobs {
		s.evictLocked(len(s.jobs) - s.maxJobs)
	}
	return nil
}

// evictLocked drops up to n finished jobs, oldest first.
func (s *Store) evictLocked(n int) {
	var finished []*jobs.IngestUpdateJob
	for _, job := range s.jobs {
		if job.Status == jobs.JobStatusCompleted || job.Status == jobs.JobStatusFailed {
			finished = append(finished, job)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].CreatedAt.Before(finished[j].CreatedAt)
	})
	for i := 0; i < n && i < len(finished); i++ {
		delete(s.jobs, finished[i].JobID)
	}
}

// GetJob implements the JobStore interface.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.IngestUpdateJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("GetJob %s: %w", jobID, jobs.ErrJobNotFound)
	}

	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs implements the JobStore interface.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.IngestUpdateJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*jobs.IngestUpdateJob{}
	for _, job := range s.jobs {
		if filter.ChatID != 0 && job.ChatID != filter.ChatID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.Stage != "" && job.Stage != filter.Stage {
			continue
		}

		jobCopy := *job
		result = append(result, &jobCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].JobID < result[j].JobID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.IngestUpdateJob{}, nil
		}
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

var _ jobs.JobStore = (*Store)(nil)
