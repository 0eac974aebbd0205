package store

import (
	"context"
	"sync"
	"time"
)

// Job states for batch extract/merge operations.
const (
	StateQueued     = "queued"
	StateProcessing = "processing"
	StateSuccess    = "success"
	StateFailed     = "failed"
	StateDiscarded  = "discarded" // result arrived against a stale workspace revision
)

// Status describes one batch job.
type Status struct {
	State       string     `json:"state"`
	Kind        string     `json:"kind"` // "extract" | "merge"
	Message     string     `json:"message,omitempty"`
	Revision    uint64     `json:"revision"`
	DocumentIDs []string   `json:"document_ids,omitempty"`
	Start       *time.Time `json:"start_time,omitempty"`
	End         *time.Time `json:"end_time,omitempty"`
}

// StatusStore persists batch job status. The workspace itself is in-memory
// and session-scoped; job status may outlive a request and can optionally be
// shared via redis.
type StatusStore interface {
	Set(ctx context.Context, jobID string, st Status) error
	Get(ctx context.Context, jobID string) (Status, bool, error)
}

// MemoryStatus is the default in-process StatusStore.
type MemoryStatus struct {
	mu   sync.RWMutex
	jobs map[string]Status
}

// NewMemoryStatus returns an empty in-memory status store.
func NewMemoryStatus() *MemoryStatus {
	return &MemoryStatus{jobs: make(map[string]Status)}
}

func (s *MemoryStatus) Set(ctx context.Context, jobID string, st Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[jobID] = st
	return nil
}

func (s *MemoryStatus) Get(ctx context.Context, jobID string) (Status, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.jobs[jobID]
	return st, ok, nil
}
