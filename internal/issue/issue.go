// Package issue implements the dispute engine for trades under review.
//
// A participant reports an issue on a live trade; the trade suspends in
// UNDER_REVIEW and the issue opens. A supervising member claims it,
// mediates off-platform, and each party signs off on the outcome. The
// sign-offs mirror onto the trade, which completes once both are in,
// and the supervisor finalizes the issue record.
package issue

import (
	"context"
	"errors"
	"time"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/trade"
)

var (
	ErrIssueNotFound  = errors.New("issue not found")
	ErrUnauthorized   = errors.New("not authorized for this issue operation")
	ErrInvalidStatus  = errors.New("invalid issue status for this operation")
	ErrAlreadyClaimed = errors.New("issue already claimed by another member")
	ErrSelfMediate    = errors.New("cannot mediate a trade you are party to")
)

// Status represents the state of a dispute.
type Status string

const (
	StatusOpen     Status = "OPEN"     // Reported, awaiting a mediator
	StatusPending  Status = "PENDING"  // Claimed, mediation in progress
	StatusResolved Status = "RESOLVED" // Finalized; terminal
)

// ParseStatus validates a status string from the wire.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOpen, StatusPending, StatusResolved:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

// Issue is a dispute over one trade. Buyer and seller are denormalized
// from the trade at report time so mediation checks never need a join.
type Issue struct {
	ID          string `json:"id"`
	TradeID     string `json:"tradeId"`
	ReporterID  string `json:"reporterId"`
	BuyerID     string `json:"buyerId"`
	SellerID    string `json:"sellerId"`
	Description string `json:"description"`
	Status      Status `json:"status"`

	SupervisorID string `json:"supervisorId,omitempty"`
	Resolution   string `json:"resolution,omitempty"`

	// Per-party sign-off on the mediated outcome
	BuyerResolved  bool `json:"buyerResolved"`
	SellerResolved bool `json:"sellerResolved"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsParty reports whether the user is the disputed trade's buyer or seller.
func (i *Issue) IsParty(userID string) bool {
	return userID == i.BuyerID || userID == i.SellerID
}

// Store persists dispute data.
type Store interface {
	Create(ctx context.Context, i *Issue) error
	Get(ctx context.Context, id string) (*Issue, error)
	Update(ctx context.Context, i *Issue) error
	// ListByStatus returns issues in a status, newest first. A non-empty
	// supervisorID narrows to that mediator's caseload.
	ListByStatus(ctx context.Context, status Status, supervisorID string, limit int) ([]*Issue, error)
}

// TradeEngine is the slice of the trade service the dispute engine
// drives: suspending a trade on report and mirroring sign-offs back.
type TradeEngine interface {
	BeginReview(ctx context.Context, tradeID, reporterID string) (*trade.Trade, error)
	MirrorResolution(ctx context.Context, tradeID, userID string) (*trade.Trade, error)
}
