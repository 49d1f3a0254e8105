package issue

import (
	"context"
	"errors"
	"time"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/idgen"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/metrics"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/syncutil"
)

// Service implements dispute business logic.
type Service struct {
	store  Store
	trades TradeEngine
	locks  syncutil.ShardedMutex // per-issue locks to serialize mediation steps
}

// NewService creates a new issue service.
func NewService(store Store, trades TradeEngine) *Service {
	return &Service{
		store:  store,
		trades: trades,
	}
}

func (s *Service) issueLock(id string) func() {
	return s.locks.Lock(id)
}

// Report files a dispute on a trade. The trade suspends in UNDER_REVIEW
// first; the issue record only exists if the suspension succeeded, so a
// report on a dead or foreign trade never leaves an orphan issue.
func (s *Service) Report(ctx context.Context, tradeID, reporterID, description string) (*Issue, error) {
	if description == "" {
		return nil, errors.New("issue description is required")
	}

	t, err := s.trades.BeginReview(ctx, tradeID, reporterID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	i := &Issue{
		ID:          idgen.WithPrefix("iss_"),
		TradeID:     tradeID,
		ReporterID:  reporterID,
		BuyerID:     t.BuyerID,
		SellerID:    t.SellerID,
		Description: description,
		Status:      StatusOpen,
		// Inherits the trade's supervisor when one is already bound;
		// a claim reassigns it.
		SupervisorID: t.SupervisorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, i); err != nil {
		return nil, err
	}
	metrics.IssuesTotal.WithLabelValues(string(StatusOpen)).Inc()
	return i, nil
}

// Claim assigns the caller as the issue's mediator. First claim wins;
// the trade's own parties can never mediate it.
func (s *Service) Claim(ctx context.Context, id, supervisorID string) (*Issue, error) {
	unlock := s.issueLock(id)
	defer unlock()

	i, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if i.IsParty(supervisorID) {
		return nil, ErrSelfMediate
	}
	if i.Status != StatusOpen {
		if i.Status == StatusPending {
			return nil, ErrAlreadyClaimed
		}
		return nil, ErrInvalidStatus
	}

	i.Status = StatusPending
	i.SupervisorID = supervisorID
	i.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, i); err != nil {
		return nil, err
	}
	metrics.IssuesTotal.WithLabelValues(string(StatusPending)).Inc()
	return i, nil
}

// ResolveParty records one party's sign-off on the mediated outcome and
// mirrors it onto the trade. Only claimed issues accept sign-offs.
func (s *Service) ResolveParty(ctx context.Context, id, userID string) (*Issue, error) {
	unlock := s.issueLock(id)
	defer unlock()

	i, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !i.IsParty(userID) {
		return nil, ErrUnauthorized
	}
	if i.Status != StatusPending {
		return nil, ErrInvalidStatus
	}

	switch userID {
	case i.BuyerID:
		if i.BuyerResolved {
			return i, nil
		}
		i.BuyerResolved = true
	case i.SellerID:
		if i.SellerResolved {
			return i, nil
		}
		i.SellerResolved = true
	}

	if _, err := s.trades.MirrorResolution(ctx, i.TradeID, userID); err != nil {
		return nil, err
	}

	i.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, i); err != nil {
		return nil, err
	}
	return i, nil
}

// Finalize closes the issue. Only the claiming mediator may finalize.
// The party sign-off flags do not gate this: finalizing is the
// mediator's override for cases a party refuses to sign off on.
func (s *Service) Finalize(ctx context.Context, id, supervisorID, resolution string) (*Issue, error) {
	unlock := s.issueLock(id)
	defer unlock()

	i, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if i.SupervisorID != supervisorID {
		return nil, ErrUnauthorized
	}
	if i.Status != StatusPending {
		return nil, ErrInvalidStatus
	}

	i.Status = StatusResolved
	i.Resolution = resolution
	i.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, i); err != nil {
		return nil, err
	}
	metrics.IssuesTotal.WithLabelValues(string(StatusResolved)).Inc()
	return i, nil
}

// ListByStatus returns a status bucket of issues. The OPEN queue is
// shared across all supervising members; claimed and closed cases are
// scoped to the caller's own caseload.
func (s *Service) ListByStatus(ctx context.Context, status Status, callerID string, limit int) ([]*Issue, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	supervisorID := ""
	if status != StatusOpen {
		supervisorID = callerID
	}
	return s.store.ListByStatus(ctx, status, supervisorID, limit)
}
