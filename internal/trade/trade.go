// Package trade implements the trade lifecycle engine.
//
// Flow:
//  1. Buyer opens a trade on a listing -> NEGOTIATING (free-form chat)
//  2. Seller locks in final terms -> PROPOSED
//  3. Buyer accepts -> ACCEPTED (listing marked SOLD atomically)
//     or declines -> back to NEGOTIATING (the only backward transition)
//  4. A supervising member sets meeting place/time -> SCHEDULED
//  5. Both parties independently confirm the exchange -> COMPLETED
//  6. Either party may report an issue -> UNDER_REVIEW; the dispute
//     engine resolves it back toward completion
//
// Every successful mutation broadcasts the full expanded trade snapshot
// to the trade's realtime room; clients re-render from broadcasts only.
package trade

import (
	"context"
	"errors"
	"time"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/chat"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/item"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/user"
)

var (
	ErrTradeNotFound  = errors.New("trade not found")
	ErrUnauthorized   = errors.New("not authorized for this trade operation")
	ErrInvalidStatus  = errors.New("invalid trade status for this operation")
	ErrSelfTrade      = errors.New("cannot trade on your own listing")
	ErrSelfSupervise  = errors.New("cannot supervise your own trade")
	ErrNotConfirmed   = errors.New("supervisor has not confirmed the exchange")
	ErrListingClosed  = errors.New("listing is no longer available")
	ErrNotParticipant = errors.New("caller is not a participant of this trade")
)

// Status represents the state of a trade.
type Status string

const (
	StatusNegotiating Status = "NEGOTIATING"  // Created; free-form chat only
	StatusProposed    Status = "PROPOSED"     // Seller locked in final terms
	StatusAccepted    Status = "ACCEPTED"     // Buyer accepted; listing SOLD
	StatusScheduled   Status = "SCHEDULED"    // Supervisor set meeting details
	StatusUnderReview Status = "UNDER_REVIEW" // Dispute open; completion suspended
	StatusCompleted   Status = "COMPLETED"    // Both parties confirmed; terminal
	StatusCancelled   Status = "CANCELLED"    // Administratively dead; terminal
)

// IsTerminal returns true if the trade is in a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Trade is a single buyer/seller deal over one listing. The seller is
// denormalized from the listing at creation and never changes.
type Trade struct {
	ID        string `json:"id"`
	ListingID string `json:"listingId"`
	BuyerID   string `json:"buyerId"`
	SellerID  string `json:"sellerId"`
	Status    Status `json:"status"`

	// Proposal terms, set by proposeDeal and cleared by declineDeal
	MoneyProposal      *float64 `json:"moneyProposal,omitempty"`
	BarterProposal     string   `json:"barterProposal,omitempty"`
	CommitmentProposal string   `json:"commitmentProposal,omitempty"`
	ProposerID         string   `json:"proposerId,omitempty"`

	// Scheduling, set by scheduleTrade
	Location            string     `json:"location,omitempty"`
	ScheduledAt         *time.Time `json:"scheduledAt,omitempty"`
	SupervisorID        string     `json:"supervisorId,omitempty"`
	SupervisorNote      string     `json:"supervisorNote,omitempty"`
	SupervisorConfirmed bool       `json:"supervisorConfirmed"`

	// Dual completion flags; COMPLETED fires when both are true
	BuyerFinished  bool `json:"buyerFinished"`
	SellerFinished bool `json:"sellerFinished"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsParticipant reports whether the user is the trade's buyer or seller.
func (t *Trade) IsParticipant(userID string) bool {
	return userID == t.BuyerID || userID == t.SellerID
}

// Snapshot is a trade expanded with its listing, buyer, and chat
// history. This is the payload broadcast to the trade's realtime room
// and returned from reads.
type Snapshot struct {
	*Trade
	Listing  *item.Item      `json:"listing,omitempty"`
	Buyer    *user.User      `json:"buyer,omitempty"`
	Messages []*chat.Message `json:"messages,omitempty"`
}

// Store persists trade data.
type Store interface {
	Create(ctx context.Context, t *Trade) error
	Get(ctx context.Context, id string) (*Trade, error)
	// FindActive returns the non-cancelled trade for a buyer-listing
	// pair, or ErrTradeNotFound.
	FindActive(ctx context.Context, listingID, buyerID string) (*Trade, error)
	// Update writes all mutable fields unconditionally.
	Update(ctx context.Context, t *Trade) error
	// UpdateIfStatus writes all mutable fields only while the stored row
	// still has the expected status; otherwise ErrInvalidStatus. This is
	// the compare-and-swap that serializes racing transitions.
	UpdateIfStatus(ctx context.Context, t *Trade, expect Status) error
	// Accept atomically moves the trade PROPOSED -> ACCEPTED and the
	// listing -> SOLD. Both writes commit or neither does.
	Accept(ctx context.Context, id, listingID string) error
	// ListForSupervision returns trades in the given statuses where the
	// user is neither buyer nor seller, newest activity first.
	ListForSupervision(ctx context.Context, excludeUserID string, statuses []Status, limit int) ([]*Trade, error)
}
