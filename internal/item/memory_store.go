package item

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/pagination"
)

// MemoryStore is an in-memory item store for demo/development mode.
type MemoryStore struct {
	items map[string]*Item
	mu    sync.RWMutex
}

// NewMemoryStore creates a new in-memory item store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Item)}
}

func (m *MemoryStore) Create(ctx context.Context, item *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[item.ID] = item
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	return copyItem(item), nil
}

func (m *MemoryStore) List(ctx context.Context, filter Filter, limit int) ([]*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Item
	for _, it := range m.items {
		if !matches(it, filter) {
			continue
		}
		if c := filter.Cursor; c != nil && !beforeCursor(it, c) {
			continue
		}
		result = append(result, copyItem(it))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemoryStore) SetStatus(ctx context.Context, id string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[id]
	if !ok {
		return ErrItemNotFound
	}
	it.Status = status
	return nil
}

func (m *MemoryStore) MarkSold(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[id]
	if !ok {
		return ErrItemNotFound
	}
	if it.Status == StatusSold {
		return ErrAlreadySold
	}
	it.Status = StatusSold
	return nil
}

// beforeCursor reports whether it sorts strictly after the cursor position
// in newest-first order.
func beforeCursor(it *Item, c *pagination.Cursor) bool {
	if it.CreatedAt.Equal(c.CreatedAt) {
		return it.ID < c.ID
	}
	return it.CreatedAt.Before(c.CreatedAt)
}

func matches(it *Item, f Filter) bool {
	if f.Category != "" && it.Category != f.Category {
		return false
	}
	if f.Type != "" && it.Type != f.Type {
		return false
	}
	if f.Marketplace != "" && it.Marketplace != f.Marketplace {
		return false
	}
	if f.SellerID != "" && it.SellerID != f.SellerID {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(it.Title), q) &&
			!strings.Contains(strings.ToLower(it.Description), q) &&
			!tagsContain(it.Tags, q) {
			return false
		}
	}
	return true
}

func tagsContain(tags []string, q string) bool {
	for _, t := range tags {
		if strings.ToLower(t) == q {
			return true
		}
	}
	return false
}

func copyItem(it *Item) *Item {
	cp := *it
	if it.Tags != nil {
		cp.Tags = append([]string(nil), it.Tags...)
	}
	if it.Images != nil {
		cp.Images = append([]string(nil), it.Images...)
	}
	if it.Price != nil {
		price := *it.Price
		cp.Price = &price
	}
	return &cp
}
