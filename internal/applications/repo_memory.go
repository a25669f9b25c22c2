package applications

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests and local runs.
// Reads and writes copy records so callers never share timeline slices with the store.
type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]Application
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{rows: map[string]Application{}} }

func (r *MemoryRepo) Get(ctx context.Context, id string) (Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return Application{}, ErrNotFound
	}
	return a.Clone(), nil
}

func (r *MemoryRepo) Put(ctx context.Context, a Application) error {
	if a.ID == "" {
		return errors.New("applications: id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.rows[a.ID]; ok && len(cur.Timeline) > len(a.Timeline) {
		return fmt.Errorf("%w: %s has %d entries, write has %d", ErrStaleWrite, a.ID, len(cur.Timeline), len(a.Timeline))
	}
	r.rows[a.ID] = a.Clone()
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, f Filter) ([]Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Application, 0)
	for _, a := range r.rows {
		if f.Match(a) {
			out = append(out, a.Clone())
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
