package chat

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory message store for demo/development mode.
// Messages are kept per-trade in append order.
type MemoryStore struct {
	byTrade map[string][]*Message
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory message store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byTrade: make(map[string][]*Message)}
}

func (m *MemoryStore) Create(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *msg
	m.byTrade[msg.TradeID] = append(m.byTrade[msg.TradeID], &cp)
	return nil
}

func (m *MemoryStore) ListByTrade(ctx context.Context, tradeID string, limit int) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.byTrade[tradeID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	result := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		cp := *msg
		result = append(result, &cp)
	}
	return result, nil
}
