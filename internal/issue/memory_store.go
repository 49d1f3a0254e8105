package issue

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory issue store for demo/development mode.
type MemoryStore struct {
	issues map[string]*Issue
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory issue store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{issues: make(map[string]*Issue)}
}

func (m *MemoryStore) Create(ctx context.Context, i *Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *i
	m.issues[i.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.issues[id]
	if !ok {
		return nil, ErrIssueNotFound
	}
	cp := *i
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, i *Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.issues[i.ID]; !ok {
		return ErrIssueNotFound
	}
	cp := *i
	m.issues[i.ID] = &cp
	return nil
}

func (m *MemoryStore) ListByStatus(ctx context.Context, status Status, supervisorID string, limit int) ([]*Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Issue
	for _, i := range m.issues {
		if i.Status != status {
			continue
		}
		if supervisorID != "" && i.SupervisorID != supervisorID {
			continue
		}
		cp := *i
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
