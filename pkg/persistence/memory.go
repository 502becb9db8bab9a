package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepository keeps records in process memory. Records are copied on
// the way in and out, so callers never share state with the repository.
type MemoryRepository struct {
	mu         sync.RWMutex
	workflows  map[string]*Workflow
	executions map[string]*Execution
	closed     bool
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		workflows:  make(map[string]*Workflow),
		executions: make(map[string]*Execution),
	}
}

// CreateWorkflow implements Repository.
func (r *MemoryRepository) CreateWorkflow(ctx context.Context, w *Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return err
	}
	if _, ok := r.workflows[w.ID]; ok {
		return fmt.Errorf("workflow %s: %w", w.ID, ErrConflict)
	}
	cp, err := clone(w)
	if err != nil {
		return err
	}
	r.workflows[w.ID] = cp
	return nil
}

// UpdateWorkflow implements Repository.
func (r *MemoryRepository) UpdateWorkflow(ctx context.Context, w *Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return err
	}
	if _, ok := r.workflows[w.ID]; !ok {
		return fmt.Errorf("workflow %s: %w", w.ID, ErrNotFound)
	}
	cp, err := clone(w)
	if err != nil {
		return err
	}
	r.workflows[w.ID] = cp
	return nil
}

// GetWorkflow implements Repository.
func (r *MemoryRepository) GetWorkflow(ctx context.Context, id string) (*Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(); err != nil {
		return nil, err
	}
	w, ok := r.workflows[id]
	if !ok {
		return nil, fmt.Errorf("workflow %s: %w", id, ErrNotFound)
	}
	return clone(w)
}

// ListWorkflows implements Repository.
func (r *MemoryRepository) ListWorkflows(ctx context.Context, tenantID string) ([]*Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(); err != nil {
		return nil, err
	}

	out := []*Workflow{}
	for _, w := range r.workflows {
		if tenantID != "" && w.TenantID != tenantID {
			continue
		}
		cp, err := clone(w)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// CreateExecution implements Repository.
func (r *MemoryRepository) CreateExecution(ctx context.Context, e *Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return err
	}
	if _, ok := r.executions[e.ID]; ok {
		return fmt.Errorf("execution %s: %w", e.ID, ErrConflict)
	}
	cp, err := clone(e)
	if err != nil {
		return err
	}
	r.executions[e.ID] = cp
	return nil
}

// UpdateExecution implements Repository.
func (r *MemoryRepository) UpdateExecution(ctx context.Context, e *Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return err
	}
	if _, ok := r.executions[e.ID]; !ok {
		return fmt.Errorf("execution %s: %w", e.ID, ErrNotFound)
	}
	cp, err := clone(e)
	if err != nil {
		return err
	}
	r.executions[e.ID] = cp
	return nil
}

// GetExecution implements Repository.
func (r *MemoryRepository) GetExecution(ctx context.Context, id string) (*Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(); err != nil {
		return nil, err
	}
	e, ok := r.executions[id]
	if !ok {
		return nil, fmt.Errorf("execution %s: %w", id, ErrNotFound)
	}
	return clone(e)
}

// ListExecutions implements Repository.
func (r *MemoryRepository) ListExecutions(ctx context.Context, workflowID string) ([]*Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(); err != nil {
		return nil, err
	}

	out := []*Execution{}
	for _, e := range r.executions {
		if e.WorkflowID != workflowID {
			continue
		}
		cp, err := clone(e)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// Close implements Repository.
func (r *MemoryRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *MemoryRepository) check() error {
	if r.closed {
		return fmt.Errorf("repository is closed")
	}
	return nil
}

// clone deep-copies a record through its JSON form, the same form the
// Postgres repository stores.
func clone[T any](v *T) (*T, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}

var _ Repository = (*MemoryRepository)(nil)
