package item

import (
	"context"
	"fmt"
	"time"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/idgen"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/pagination"
)

// Service implements listing business logic.
type Service struct {
	store Store
}

// NewService creates a new item service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateRequest contains the parameters for creating a listing.
type CreateRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Category    string   `json:"category" binding:"required"`
	Tags        []string `json:"tags"`
	Type        string   `json:"type" binding:"required"`
	Price       *float64 `json:"price"`
	Images      []string `json:"images"`
	Marketplace string   `json:"marketplace"`
	AllowHybrid bool     `json:"allowHybrid"`
}

// Create stores a new listing pending moderation.
func (s *Service) Create(ctx context.Context, sellerID string, req CreateRequest) (*Item, error) {
	typ := ListingType(req.Type)
	switch typ {
	case TypeSell, TypeLend, TypeBarter:
	default:
		return nil, fmt.Errorf("unknown listing type %q", req.Type)
	}

	marketplace := Marketplace(req.Marketplace)
	if marketplace == "" {
		marketplace = MarketNormal
	}
	if marketplace != MarketNormal && marketplace != MarketFreshers {
		return nil, fmt.Errorf("unknown marketplace %q", req.Marketplace)
	}

	if req.Price != nil && *req.Price < 0 {
		return nil, fmt.Errorf("price must not be negative")
	}

	now := time.Now()
	it := &Item{
		ID:          idgen.WithPrefix("itm_"),
		SellerID:    sellerID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
		Type:        typ,
		Price:       req.Price,
		Images:      req.Images,
		Marketplace: marketplace,
		AllowHybrid: req.AllowHybrid,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if it.Tags == nil {
		it.Tags = []string{}
	}
	if it.Images == nil {
		it.Images = []string{}
	}

	if err := s.store.Create(ctx, it); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}
	return it, nil
}

// Get returns a listing by ID.
func (s *Service) Get(ctx context.Context, id string) (*Item, error) {
	return s.store.Get(ctx, id)
}

// List returns one page of listings matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter Filter, limit int) (*Page, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	// Fetch one extra row to know whether another page exists.
	items, err := s.store.List(ctx, filter, limit+1)
	if err != nil {
		return nil, err
	}
	items, next, more := pagination.ComputePage(items, limit, func(it *Item) (time.Time, string) {
		return it.CreatedAt, it.ID
	})
	if items == nil {
		items = []*Item{}
	}
	return &Page{Items: items, NextCursor: next, HasMore: more}, nil
}

// Moderate sets a listing's moderation status (VERIFIED or REMOVED).
func (s *Service) Moderate(ctx context.Context, id string, status Status) (*Item, error) {
	if status != StatusVerified && status != StatusRemoved {
		return nil, ErrInvalidStatus
	}

	it, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// Sold items are out of moderation's reach
	if it.Status == StatusSold {
		return nil, ErrInvalidStatus
	}

	if err := s.store.SetStatus(ctx, id, status); err != nil {
		return nil, err
	}
	it.Status = status
	return it, nil
}

// MarkSold transitions a listing to SOLD. Called only by the trade
// engine when a deal is accepted.
func (s *Service) MarkSold(ctx context.Context, id string) error {
	return s.store.MarkSold(ctx, id)
}
