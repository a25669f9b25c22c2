package screening

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests and local runs.
type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]Call
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{rows: map[string]Call{}} }

func (r *MemoryRepo) Get(ctx context.Context, id string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return Call{}, ErrNotFound
	}
	return cloneCall(c), nil
}

func (r *MemoryRepo) Put(ctx context.Context, c Call) error {
	if c.ID == "" {
		return errors.New("screening: id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.ID] = cloneCall(c)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, f Filter) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, 0)
	for _, c := range r.rows {
		if f.Match(c) {
			out = append(out, cloneCall(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func cloneCall(c Call) Call {
	out := c
	out.Summary = c.Summary.clone()
	if c.Transcript != nil {
		v := *c.Transcript
		out.Transcript = &v
	}
	if c.ErrorMessage != nil {
		v := *c.ErrorMessage
		out.ErrorMessage = &v
	}
	if c.ProcessedAt != nil {
		v := *c.ProcessedAt
		out.ProcessedAt = &v
	}
	return out
}
