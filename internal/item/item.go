// Package item provides marketplace listing storage and moderation.
//
// Listings are created by students (pending verification), browsed by
// everyone, moderated by admins, and marked sold exactly once by the
// trade engine when a deal is accepted.
package item

import (
	"context"
	"errors"
	"time"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/pagination"
)

var (
	ErrItemNotFound  = errors.New("item not found")
	ErrInvalidStatus = errors.New("invalid item status for this operation")
	ErrAlreadySold   = errors.New("item already sold")
)

// Status represents the lifecycle state of a listing.
type Status string

const (
	StatusPending  Status = "PENDING"  // Awaiting moderation
	StatusVerified Status = "VERIFIED" // Visible and tradeable
	StatusSold     Status = "SOLD"     // Trade accepted; terminal
	StatusRemoved  Status = "REMOVED"  // Rejected or taken down; terminal
)

// ListingType is how the seller wants to trade the item.
type ListingType string

const (
	TypeSell   ListingType = "SELL"
	TypeLend   ListingType = "LEND"
	TypeBarter ListingType = "BARTER"
)

// Marketplace segments listings between the general campus market and
// the freshers-only section.
type Marketplace string

const (
	MarketNormal   Marketplace = "NORMAL"
	MarketFreshers Marketplace = "FRESHERS"
)

// Item represents a tradeable listing.
type Item struct {
	ID          string      `json:"id"`
	SellerID    string      `json:"sellerId"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category"`
	Tags        []string    `json:"tags"`
	Type        ListingType `json:"type"`
	Price       *float64    `json:"price,omitempty"` // nil for pure barter
	Images      []string    `json:"images"`
	Marketplace Marketplace `json:"marketplace"`
	AllowHybrid bool        `json:"allowHybrid"` // partial cash + partial barter
	Status      Status      `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Filter narrows a listing query.
type Filter struct {
	Category    string
	Type        ListingType
	Marketplace Marketplace
	Search      string // matches title, description, or tags
	SellerID    string
	// Cursor resumes a browse from a previous page (newest first).
	Cursor *pagination.Cursor
}

// Page is one page of a listing browse.
type Page struct {
	Items      []*Item `json:"items"`
	NextCursor string  `json:"nextCursor,omitempty"`
	HasMore    bool    `json:"hasMore"`
}

// Store persists listing data.
type Store interface {
	Create(ctx context.Context, item *Item) error
	Get(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context, filter Filter, limit int) ([]*Item, error)
	// SetStatus updates moderation status (PENDING -> VERIFIED/REMOVED).
	SetStatus(ctx context.Context, id string, status Status) error
	// MarkSold transitions an item to SOLD. It must succeed at most once:
	// a second call returns ErrAlreadySold.
	MarkSold(ctx context.Context, id string) error
}
