package rating

import (
	"context"
	"time"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/idgen"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/syncutil"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/trade"
)

// TradeReader loads trades for eligibility checks. The trade store
// satisfies this.
type TradeReader interface {
	Get(ctx context.Context, id string) (*trade.Trade, error)
}

// TrustLedger credits trust-score points to reviewed users. The user
// store satisfies this.
type TrustLedger interface {
	AddTrustScore(ctx context.Context, id string, points int) error
}

// SubmitRequest is one party's review of the other.
type SubmitRequest struct {
	TradeID    string `json:"tradeId" binding:"required"`
	Accuracy   int    `json:"accuracy" binding:"required"`
	Honesty    int    `json:"honesty" binding:"required"`
	Experience int    `json:"experience" binding:"required"`
	Comment    string `json:"comment"`
}

// Service implements review business logic.
type Service struct {
	store  Store
	trades TradeReader
	trust  TrustLedger
	locks  syncutil.ShardedMutex // per trade+rater to stop double-submit races
}

// NewService creates a new rating service.
func NewService(store Store, trades TradeReader) *Service {
	return &Service{
		store:  store,
		trades: trades,
	}
}

// WithTrustLedger adds trust-score crediting.
func (s *Service) WithTrustLedger(t TrustLedger) *Service {
	s.trust = t
	return s
}

// Submit records a review. The trade must be COMPLETED, the caller must
// be one of its parties, and each party reviews a trade at most once.
func (s *Service) Submit(ctx context.Context, raterID string, req SubmitRequest) (*Rating, error) {
	unlock := s.locks.Lock(req.TradeID + "/" + raterID)
	defer unlock()

	t, err := s.trades.Get(ctx, req.TradeID)
	if err != nil {
		return nil, err
	}
	if !t.IsParticipant(raterID) {
		return nil, ErrNotParticipant
	}
	if t.Status != trade.StatusCompleted {
		return nil, ErrTradeNotComplete
	}

	if taken, err := s.store.Exists(ctx, req.TradeID, raterID); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrAlreadyRated
	}

	rateeID := t.BuyerID
	if raterID == t.BuyerID {
		rateeID = t.SellerID
	}

	r := &Rating{
		ID:         idgen.WithPrefix("rat_"),
		TradeID:    req.TradeID,
		RaterID:    raterID,
		RateeID:    rateeID,
		Accuracy:   req.Accuracy,
		Honesty:    req.Honesty,
		Experience: req.Experience,
		Comment:    req.Comment,
		CreatedAt:  time.Now(),
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}

	if s.trust != nil {
		// Trust credit is best effort; the review itself is the record
		_ = s.trust.AddTrustScore(ctx, rateeID, r.Points())
	}
	return r, nil
}

// ListForUser returns reviews received by a user, newest first.
func (s *Service) ListForUser(ctx context.Context, rateeID string, limit int) ([]*Rating, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListForUser(ctx, rateeID, limit)
}
