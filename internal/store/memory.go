package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps jobs in process. It backs the "memory" driver and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	jobs   []Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) FindMany(_ context.Context, filter Filter, order Sort, limit int) ([]Job, error) {
	limit = clampLimit(limit, defaultLimit, maxLimit)

	s.mu.RLock()
	var out []Job
	for _, j := range s.jobs {
		if filter.matches(j) {
			out = append(out, cloneJob(j))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(a, b int) bool {
		return less(out[a], out[b], order)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) DeleteMany(_ context.Context, filter Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.jobs[:0]
	var n int64
	for _, j := range s.jobs {
		if filter.matches(j) {
			n++
			continue
		}
		kept = append(kept, j)
	}
	s.jobs = kept
	return n, nil
}

func (s *MemoryStore) Create(_ context.Context, job Job) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if j.Source == job.Source && j.ExternalID == job.ExternalID {
			return Job{}, fmt.Errorf("create job %s/%s: %w", job.Source, job.ExternalID, ErrConflict)
		}
	}
	s.nextID++
	now := time.Now().UTC()
	job.ID = s.nextID
	job.CreatedAt = now
	job.UpdatedAt = now
	job = cloneJob(job)
	s.jobs = append(s.jobs, job)
	return cloneJob(job), nil
}

func (f Filter) matches(j Job) bool {
	if f.Source != "" && j.Source != f.Source {
		return false
	}
	if f.Modality != "" && !strings.EqualFold(j.Modality, f.Modality) {
		return false
	}
	return containsFold(j.Company, f.Company) &&
		containsFold(j.Location, f.Location) &&
		containsFold(j.Title, f.Query)
}

func containsFold(s, sub string) bool {
	sub = strings.TrimSpace(sub)
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func less(a, b Job, order Sort) bool {
	if order == SortRecent {
		switch {
		case a.PostedAt != nil && b.PostedAt == nil:
			return true
		case a.PostedAt == nil && b.PostedAt != nil:
			return false
		case a.PostedAt != nil && !a.PostedAt.Equal(*b.PostedAt):
			return a.PostedAt.After(*b.PostedAt)
		}
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func cloneJob(j Job) Job {
	if j.PostedAt != nil {
		t := *j.PostedAt
		j.PostedAt = &t
	}
	if j.Skills != nil {
		j.Skills = append([]string(nil), j.Skills...)
	}
	return j
}
