package jobs

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ProjectThrottle serializes file processing within a project. Glossaries and
// suppression rules are project-scoped, so running one file at a time per
// project keeps rule edits from interleaving with half-finished runs.
//
// The throttle is process-scoped: with multiple workers the effective
// per-project concurrency is one per worker process.
type ProjectThrottle struct {
	limit int64

	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

// NewProjectThrottle builds a throttle allowing limit concurrent runs per
// project. A non-positive limit means one.
func NewProjectThrottle(limit int64) *ProjectThrottle {
	if limit <= 0 {
		limit = 1
	}
	return &ProjectThrottle{
		limit: limit,
		sems:  make(map[string]*semaphore.Weighted),
	}
}

func (t *ProjectThrottle) sem(projectID string) *semaphore.Weighted {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sems[projectID]
	if !ok {
		s = semaphore.NewWeighted(t.limit)
		t.sems[projectID] = s
	}
	return s
}

// Acquire blocks until the project has a free slot or ctx is done. The
// returned release function must be called exactly once.
func (t *ProjectThrottle) Acquire(ctx context.Context, projectID string) (func(), error) {
	s := t.sem(projectID)
	if err := s.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { s.Release(1) }, nil
}
