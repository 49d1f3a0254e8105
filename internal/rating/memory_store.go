package rating

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory rating store for demo/development mode.
type MemoryStore struct {
	ratings []*Rating
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory rating store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Create(ctx context.Context, r *Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *r
	m.ratings = append(m.ratings, &cp)
	return nil
}

func (m *MemoryStore) Exists(ctx context.Context, tradeID, raterID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.ratings {
		if r.TradeID == tradeID && r.RaterID == raterID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) ListForUser(ctx context.Context, rateeID string, limit int) ([]*Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Rating
	for _, r := range m.ratings {
		if r.RateeID != rateeID {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
