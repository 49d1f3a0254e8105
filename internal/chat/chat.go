// Package chat provides trade-scoped messaging.
//
// Messages are immutable and append-only. A message is persisted first
// and then fanned out to the trade's realtime room with its
// server-assigned timestamp; senders render from the echo, which keeps
// every room member on the same durable order.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/idgen"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/metrics"
)

var (
	ErrEmptyMessage = errors.New("message content is empty")
	ErrNoSender     = errors.New("message sender is required")
	ErrUnknownTrade = errors.New("no trade with that id")
)

// Message is a single chat entry scoped to one trade.
type Message struct {
	ID         string    `json:"id"`
	TradeID    string    `json:"tradeId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store persists messages.
type Store interface {
	Create(ctx context.Context, m *Message) error
	// ListByTrade returns messages for a trade in creation order.
	ListByTrade(ctx context.Context, tradeID string, limit int) ([]*Message, error)
}

// SenderDirectory resolves display names for message senders.
type SenderDirectory interface {
	FullName(ctx context.Context, userID string) (string, error)
}

// Broadcaster fans a persisted message out to the trade's room.
type Broadcaster interface {
	MessageReceived(tradeID string, m *Message)
}

// RoomDirectory confirms a trade exists before messages are written
// against it. Socket clients pick their own room keys, so an unchecked
// send would persist rows for arbitrary ids.
type RoomDirectory interface {
	Exists(ctx context.Context, tradeID string) (bool, error)
}

// Service implements the chat relay.
type Service struct {
	store       Store
	directory   SenderDirectory
	broadcaster Broadcaster
	rooms       RoomDirectory
}

// NewService creates a new chat service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// WithDirectory adds sender display-name resolution.
func (s *Service) WithDirectory(d SenderDirectory) *Service {
	s.directory = d
	return s
}

// WithBroadcaster adds realtime fan-out.
func (s *Service) WithBroadcaster(b Broadcaster) *Service {
	s.broadcaster = b
	return s
}

// WithRooms adds trade existence checks on send.
func (s *Service) WithRooms(r RoomDirectory) *Service {
	s.rooms = r
	return s
}

// Send persists a message, then broadcasts the stored row (including
// the sender's own connection). An empty room is a no-op, not an error.
func (s *Service) Send(ctx context.Context, tradeID, senderID, content string) (*Message, error) {
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if senderID == "" {
		return nil, ErrNoSender
	}
	if s.rooms != nil {
		ok, err := s.rooms.Exists(ctx, tradeID)
		if err != nil {
			return nil, fmt.Errorf("failed to verify trade: %w", err)
		}
		if !ok {
			return nil, ErrUnknownTrade
		}
	}

	m := &Message{
		ID:        idgen.WithPrefix("msg_"),
		TradeID:   tradeID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if s.directory != nil {
		if name, err := s.directory.FullName(ctx, senderID); err == nil {
			m.SenderName = name
		}
	}

	if err := s.store.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}
	metrics.MessagesTotal.Inc()

	if s.broadcaster != nil {
		s.broadcaster.MessageReceived(tradeID, m)
	}
	return m, nil
}

// History returns a trade's messages in creation order.
func (s *Service) History(ctx context.Context, tradeID string, limit int) ([]*Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	return s.store.ListByTrade(ctx, tradeID, limit)
}
