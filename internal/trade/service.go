package trade

import (
	"context"
	"errors"
	"time"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/chat"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/idgen"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/item"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/metrics"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/syncutil"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/user"
)

// ListingStore reads listings for trade validation and snapshots.
type ListingStore interface {
	Get(ctx context.Context, id string) (*item.Item, error)
}

// UserStore reads buyer profiles for snapshots.
type UserStore interface {
	Get(ctx context.Context, id string) (*user.User, error)
}

// MessageHistory reads a trade's chat log for snapshots.
type MessageHistory interface {
	History(ctx context.Context, tradeID string, limit int) ([]*chat.Message, error)
}

// Events receives the expanded snapshot after every successful
// mutation. The realtime hub implements this.
type Events interface {
	TradeUpdated(tradeID string, snap *Snapshot)
}

// ProposeRequest contains the final terms of a deal.
type ProposeRequest struct {
	Money      *float64 `json:"money"`
	Barter     string   `json:"barter"`
	Commitment string   `json:"commitment"`
}

// ScheduleRequest contains the meeting details set by a supervisor.
type ScheduleRequest struct {
	Location    string    `json:"location" binding:"required"`
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
	Note        string    `json:"note"`
}

// Service implements trade lifecycle business logic.
type Service struct {
	store    Store
	listings ListingStore
	users    UserStore
	messages MessageHistory
	events   Events
	locks    syncutil.ShardedMutex // per-trade locks to serialize transitions
}

// NewService creates a new trade service.
func NewService(store Store, listings ListingStore) *Service {
	return &Service{
		store:    store,
		listings: listings,
	}
}

// WithUsers adds buyer profile expansion to snapshots.
func (s *Service) WithUsers(u UserStore) *Service {
	s.users = u
	return s
}

// WithMessages adds chat history expansion to snapshots.
func (s *Service) WithMessages(m MessageHistory) *Service {
	s.messages = m
	return s
}

// WithEvents adds realtime fan-out of trade snapshots.
func (s *Service) WithEvents(e Events) *Service {
	s.events = e
	return s
}

// tradeLock acquires the lock for the given trade ID and returns the
// unlock. This prevents concurrent transitions (e.g. accept + decline
// racing).
func (s *Service) tradeLock(id string) func() {
	return s.locks.Lock(id)
}

// Create opens a trade on a listing for the buyer. If the buyer already
// has a live trade on this listing that trade is returned instead, so
// re-tapping "contact seller" never forks the conversation.
func (s *Service) Create(ctx context.Context, listingID, buyerID string) (*Trade, error) {
	listing, err := s.listings.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID == buyerID {
		return nil, ErrSelfTrade
	}
	if listing.Status != item.StatusVerified {
		return nil, ErrListingClosed
	}

	if existing, err := s.store.FindActive(ctx, listingID, buyerID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrTradeNotFound) {
		return nil, err
	}

	now := time.Now()
	t := &Trade{
		ID:        idgen.WithPrefix("trd_"),
		ListingID: listingID,
		BuyerID:   buyerID,
		SellerID:  listing.SellerID,
		Status:    StatusNegotiating,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	metrics.TradeTransitionsTotal.WithLabelValues(string(StatusNegotiating)).Inc()
	return t, nil
}

// Get returns the expanded trade. Only participants and supervising
// members may read a trade.
func (s *Service) Get(ctx context.Context, id, callerID string, canSupervise bool) (*Snapshot, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.IsParticipant(callerID) && !canSupervise {
		return nil, ErrUnauthorized
	}
	return s.snapshot(ctx, t), nil
}

// ListPendingSupervision returns the supervision queue, excluding any
// trade the caller is a party to. The default bucket is ACCEPTED
// (awaiting a meeting slot); SCHEDULED lists upcoming meetings.
func (s *Service) ListPendingSupervision(ctx context.Context, callerID string, status Status, limit int) ([]*Trade, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	switch status {
	case "":
		status = StatusAccepted
	case StatusAccepted, StatusScheduled:
	default:
		return nil, ErrInvalidStatus
	}
	return s.store.ListForSupervision(ctx, callerID, []Status{status}, limit)
}

// Propose locks in final terms. Only the seller proposes; the buyer
// answers with Accept or Decline. Re-proposing while still PROPOSED
// revises the terms in place.
func (s *Service) Propose(ctx context.Context, id, callerID string, req ProposeRequest) (*Snapshot, error) {
	if req.Money == nil && req.Barter == "" && req.Commitment == "" {
		return nil, errors.New("proposal needs at least one term")
	}
	if req.Money != nil && *req.Money < 0 {
		return nil, errors.New("money term cannot be negative")
	}

	unlock := s.tradeLock(id)
	defer unlock()

	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerID != t.SellerID {
		return nil, ErrUnauthorized
	}
	if t.Status != StatusNegotiating && t.Status != StatusProposed {
		return nil, ErrInvalidStatus
	}

	expect := t.Status
	t.Status = StatusProposed
	t.MoneyProposal = req.Money
	t.BarterProposal = req.Barter
	t.CommitmentProposal = req.Commitment
	t.ProposerID = callerID
	t.UpdatedAt = time.Now()

	if err := s.store.UpdateIfStatus(ctx, t, expect); err != nil {
		return nil, err
	}
	return s.transitioned(ctx, t), nil
}

// Accept takes the proposed terms. The trade moves to ACCEPTED and the
// listing is marked SOLD in the same step; a failure on either side
// leaves both unchanged.
func (s *Service) Accept(ctx context.Context, id, callerID string) (*Snapshot, error) {
	unlock := s.tradeLock(id)
	defer unlock()

	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerID != t.BuyerID {
		return nil, ErrUnauthorized
	}
	if t.Status != StatusProposed {
		return nil, ErrInvalidStatus
	}

	if err := s.store.Accept(ctx, id, t.ListingID); err != nil {
		return nil, err
	}

	t, err = s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transitioned(ctx, t), nil
}

// Decline rejects the proposed terms and reopens negotiation. This is
// the only backward transition; the stale terms are cleared so a fresh
// proposal starts from nothing.
func (s *Service) Decline(ctx context.Context, id, callerID string) (*Snapshot, error) {
	unlock := s.tradeLock(id)
	defer unlock()

	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerID != t.BuyerID {
		return nil, ErrUnauthorized
	}
	if t.Status != StatusProposed {
		return nil, ErrInvalidStatus
	}

	t.Status = StatusNegotiating
	t.MoneyProposal = nil
	t.BarterProposal = ""
	t.CommitmentProposal = ""
	t.ProposerID = ""
	t.UpdatedAt = time.Now()

	if err := s.store.UpdateIfStatus(ctx, t, StatusProposed); err != nil {
		return nil, err
	}
	return s.transitioned(ctx, t), nil
}

// Schedule assigns the caller as supervisor and sets the meeting place
// and time. A supervisor may re-schedule their own assignment, but a
// trade participant can never supervise it.
func (s *Service) Schedule(ctx context.Context, id, callerID string, req ScheduleRequest) (*Snapshot, error) {
	unlock := s.tradeLock(id)
	defer unlock()

	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.IsParticipant(callerID) {
		return nil, ErrSelfSupervise
	}
	if t.Status != StatusAccepted && t.Status != StatusScheduled {
		return nil, ErrInvalidStatus
	}
	if t.Status == StatusScheduled && t.SupervisorID != callerID {
		return nil, ErrUnauthorized
	}

	expect := t.Status
	t.Status = StatusScheduled
	t.Location = req.Location
	scheduledAt := req.ScheduledAt
	t.ScheduledAt = &scheduledAt
	t.SupervisorID = callerID
	t.SupervisorNote = req.Note
	t.SupervisorConfirmed = false
	t.UpdatedAt = time.Now()

	if err := s.store.UpdateIfStatus(ctx, t, expect); err != nil {
		return nil, err
	}
	return s.transitioned(ctx, t), nil
}

// MarkDone is the supervisor's attestation that the exchange happened.
// Party confirmations are rejected until this is set.
func (s *Service) MarkDone(ctx context.Context, id, callerID string) (*Snapshot, error) {
	unlock := s.tradeLock(id)
	defer unlock()

	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerID != t.SupervisorID || t.SupervisorID == "" {
		return nil, ErrUnauthorized
	}
	if t.Status != StatusScheduled {
		return nil, ErrInvalidStatus
	}

	t.SupervisorConfirmed = true
	t.UpdatedAt = time.Now()

	if err := s.store.UpdateIfStatus(ctx, t, StatusScheduled); err != nil {
		return nil, err
	}
	return s.transitioned(ctx, t), nil
}

// Finish records a party's confirmation that they received their side
// of the exchange. The trade completes when both have confirmed.
// Re-confirming is a no-op, as is a call from a non-participant.
func (s *Service) Finish(ctx context.Context, id, callerID string) (*Snapshot, error) {
	unlock := s.tradeLock(id)
	defer unlock()

	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == StatusCompleted {
		// Clients retry finish; a trade that already completed just
		// returns its snapshot without re-firing the transition.
		return s.snapshot(ctx, t), nil
	}
	if t.Status != StatusScheduled {
		return nil, ErrInvalidStatus
	}
	if !t.SupervisorConfirmed {
		return nil, ErrNotConfirmed
	}

	changed := false
	switch callerID {
	case t.BuyerID:
		changed = !t.BuyerFinished
		t.BuyerFinished = true
	case t.SellerID:
		changed = !t.SellerFinished
		t.SellerFinished = true
	}
	if !changed {
		return s.snapshot(ctx, t), nil
	}

	if t.BuyerFinished && t.SellerFinished {
		t.Status = StatusCompleted
	}
	t.UpdatedAt = time.Now()

	if err := s.store.UpdateIfStatus(ctx, t, StatusScheduled); err != nil {
		return nil, err
	}
	return s.transitioned(ctx, t), nil
}

// BeginReview suspends completion while a dispute is open. Called by
// the issue engine when a participant files a report.
func (s *Service) BeginReview(ctx context.Context, id, reporterID string) (*Trade, error) {
	unlock := s.tradeLock(id)
	defer unlock()

	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.IsParticipant(reporterID) {
		return nil, ErrNotParticipant
	}
	if t.Status != StatusAccepted && t.Status != StatusScheduled {
		return nil, ErrInvalidStatus
	}

	expect := t.Status
	t.Status = StatusUnderReview
	t.UpdatedAt = time.Now()

	if err := s.store.UpdateIfStatus(ctx, t, expect); err != nil {
		return nil, err
	}
	s.transitioned(ctx, t)
	return t, nil
}

// MirrorResolution records a party's sign-off on a dispute resolution.
// When both parties have signed off the trade completes directly from
// UNDER_REVIEW; the supervisor gate does not apply to mediated closes.
func (s *Service) MirrorResolution(ctx context.Context, id, userID string) (*Trade, error) {
	unlock := s.tradeLock(id)
	defer unlock()

	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == StatusCompleted {
		// A retried sign-off whose mirror already landed must not
		// brick: the close already happened, just hand the trade back.
		if (userID == t.BuyerID && t.BuyerFinished) ||
			(userID == t.SellerID && t.SellerFinished) {
			return t, nil
		}
	}
	if t.Status != StatusUnderReview {
		return nil, ErrInvalidStatus
	}

	switch userID {
	case t.BuyerID:
		t.BuyerFinished = true
	case t.SellerID:
		t.SellerFinished = true
	default:
		return nil, ErrNotParticipant
	}

	if t.BuyerFinished && t.SellerFinished {
		t.Status = StatusCompleted
	}
	t.UpdatedAt = time.Now()

	if err := s.store.UpdateIfStatus(ctx, t, StatusUnderReview); err != nil {
		return nil, err
	}
	s.transitioned(ctx, t)
	return t, nil
}

// transitioned records the transition metric and broadcasts the new
// snapshot to the trade's room.
func (s *Service) transitioned(ctx context.Context, t *Trade) *Snapshot {
	metrics.TradeTransitionsTotal.WithLabelValues(string(t.Status)).Inc()
	snap := s.snapshot(ctx, t)
	if s.events != nil {
		s.events.TradeUpdated(t.ID, snap)
	}
	return snap
}

// snapshot expands a trade with its listing, buyer, and chat history.
// Expansion failures degrade to a partial snapshot rather than failing
// the mutation that produced it.
func (s *Service) snapshot(ctx context.Context, t *Trade) *Snapshot {
	snap := &Snapshot{Trade: t}
	if listing, err := s.listings.Get(ctx, t.ListingID); err == nil {
		snap.Listing = listing
	}
	if s.users != nil {
		if buyer, err := s.users.Get(ctx, t.BuyerID); err == nil {
			snap.Buyer = buyer
		}
	}
	if s.messages != nil {
		if msgs, err := s.messages.History(ctx, t.ID, 0); err == nil {
			snap.Messages = msgs
		}
	}
	return snap
}
