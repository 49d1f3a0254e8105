package trade

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ItemMarker closes out a listing when its trade is accepted. Both the
// item memory store and the item service satisfy this.
type ItemMarker interface {
	MarkSold(ctx context.Context, id string) error
}

// MemoryStore is an in-memory trade store for demo/development mode.
type MemoryStore struct {
	trades map[string]*Trade
	items  ItemMarker
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory trade store. The marker is
// used by Accept to close the listing in the same logical step.
func NewMemoryStore(items ItemMarker) *MemoryStore {
	return &MemoryStore{
		trades: make(map[string]*Trade),
		items:  items,
	}
}

func (m *MemoryStore) Create(ctx context.Context, t *Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.trades[t.ID] = copyTrade(t)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.trades[id]
	if !ok {
		return nil, ErrTradeNotFound
	}
	return copyTrade(t), nil
}

func (m *MemoryStore) FindActive(ctx context.Context, listingID, buyerID string) (*Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.trades {
		if t.ListingID == listingID && t.BuyerID == buyerID && t.Status != StatusCancelled {
			return copyTrade(t), nil
		}
	}
	return nil, ErrTradeNotFound
}

func (m *MemoryStore) Update(ctx context.Context, t *Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.trades[t.ID]; !ok {
		return ErrTradeNotFound
	}
	m.trades[t.ID] = copyTrade(t)
	return nil
}

func (m *MemoryStore) UpdateIfStatus(ctx context.Context, t *Trade, expect Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.trades[t.ID]
	if !ok {
		return ErrTradeNotFound
	}
	if stored.Status != expect {
		return ErrInvalidStatus
	}
	m.trades[t.ID] = copyTrade(t)
	return nil
}

// Accept marks the listing SOLD before flipping the trade so that a
// marker failure leaves the trade untouched, matching the all-or-nothing
// behavior of the SQL transaction.
func (m *MemoryStore) Accept(ctx context.Context, id, listingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trades[id]
	if !ok {
		return ErrTradeNotFound
	}
	if t.Status != StatusProposed {
		return ErrInvalidStatus
	}
	if err := m.items.MarkSold(ctx, listingID); err != nil {
		return err
	}
	t.Status = StatusAccepted
	touch(t)
	return nil
}

func (m *MemoryStore) ListForSupervision(ctx context.Context, excludeUserID string, statuses []Status, limit int) ([]*Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}

	var result []*Trade
	for _, t := range m.trades {
		if !wanted[t.Status] {
			continue
		}
		if t.BuyerID == excludeUserID || t.SellerID == excludeUserID {
			continue
		}
		result = append(result, copyTrade(t))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func touch(t *Trade) {
	t.UpdatedAt = time.Now()
}

func copyTrade(t *Trade) *Trade {
	cp := *t
	if t.MoneyProposal != nil {
		v := *t.MoneyProposal
		cp.MoneyProposal = &v
	}
	if t.ScheduledAt != nil {
		v := *t.ScheduledAt
		cp.ScheduledAt = &v
	}
	return &cp
}
