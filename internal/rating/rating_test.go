package rating

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/trade"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/user"
)

const (
	sellerID = "usr_seller"
	buyerID  = "usr_buyer"
)

// staticTrades serves fixed trades straight from a map.
type staticTrades map[string]*trade.Trade

func (s staticTrades) Get(_ context.Context, id string) (*trade.Trade, error) {
	if t, ok := s[id]; ok {
		return t, nil
	}
	return nil, trade.ErrTradeNotFound
}

func completedTrade(id string) *trade.Trade {
	return &trade.Trade{
		ID:        id,
		ListingID: "itm_1",
		BuyerID:   buyerID,
		SellerID:  sellerID,
		Status:    trade.StatusCompleted,
	}
}

func newTestService(trades staticTrades) (*Service, *user.MemoryStore) {
	users := user.NewMemoryStore()
	_ = users.Create(context.Background(), &user.User{ID: buyerID, TrustScore: 10})
	_ = users.Create(context.Background(), &user.User{ID: sellerID, TrustScore: 10})
	svc := NewService(NewMemoryStore(), trades).WithTrustLedger(users)
	return svc, users
}

func TestSubmitCreditsTrustScore(t *testing.T) {
	svc, users := newTestService(staticTrades{"trd_1": completedTrade("trd_1")})
	ctx := context.Background()

	r, err := svc.Submit(ctx, buyerID, SubmitRequest{
		TradeID:    "trd_1",
		Accuracy:   5,
		Honesty:    4,
		Experience: 5,
		Comment:    "exactly as described",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if r.RateeID != sellerID {
		t.Errorf("expected review to target the other party, got %s", r.RateeID)
	}
	// mean(5,4,5) rounds to 5
	if r.Points() != 5 {
		t.Errorf("expected 5 points, got %d", r.Points())
	}

	seller, err := users.Get(ctx, sellerID)
	if err != nil {
		t.Fatalf("get seller failed: %v", err)
	}
	if seller.TrustScore != 15 {
		t.Errorf("expected trust score 15, got %d", seller.TrustScore)
	}
}

func TestSubmitOncePerPartyPerTrade(t *testing.T) {
	svc, _ := newTestService(staticTrades{"trd_1": completedTrade("trd_1")})
	ctx := context.Background()
	req := SubmitRequest{TradeID: "trd_1", Accuracy: 3, Honesty: 3, Experience: 3}

	if _, err := svc.Submit(ctx, buyerID, req); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if _, err := svc.Submit(ctx, buyerID, req); !errors.Is(err, ErrAlreadyRated) {
		t.Errorf("expected ErrAlreadyRated, got %v", err)
	}

	// The other direction is independent
	if _, err := svc.Submit(ctx, sellerID, req); err != nil {
		t.Errorf("seller review should be independent, got %v", err)
	}
}

func TestSubmitEligibility(t *testing.T) {
	live := completedTrade("trd_live")
	live.Status = trade.StatusScheduled
	svc, _ := newTestService(staticTrades{
		"trd_1":    completedTrade("trd_1"),
		"trd_live": live,
	})
	ctx := context.Background()
	req := SubmitRequest{Accuracy: 3, Honesty: 3, Experience: 3}

	req.TradeID = "trd_live"
	if _, err := svc.Submit(ctx, buyerID, req); !errors.Is(err, ErrTradeNotComplete) {
		t.Errorf("expected ErrTradeNotComplete, got %v", err)
	}

	req.TradeID = "trd_1"
	if _, err := svc.Submit(ctx, "usr_stranger", req); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("expected ErrNotParticipant, got %v", err)
	}

	req.TradeID = "trd_missing"
	if _, err := svc.Submit(ctx, buyerID, req); !errors.Is(err, trade.ErrTradeNotFound) {
		t.Errorf("expected ErrTradeNotFound, got %v", err)
	}
}

func TestPointsRounding(t *testing.T) {
	cases := []struct {
		scores [3]int
		want   int
	}{
		{[3]int{1, 1, 1}, 1},
		{[3]int{1, 1, 2}, 1}, // 1.33 rounds down
		{[3]int{1, 2, 2}, 2}, // 1.67 rounds up
		{[3]int{3, 3, 3}, 3},
		{[3]int{4, 4, 5}, 4}, // 4.33 rounds down
		{[3]int{4, 5, 5}, 5}, // 4.67 rounds up
		{[3]int{5, 5, 5}, 5},
	}
	for _, tc := range cases {
		r := &Rating{Accuracy: tc.scores[0], Honesty: tc.scores[1], Experience: tc.scores[2]}
		if got := r.Points(); got != tc.want {
			t.Errorf("Points(%v) = %d, want %d", tc.scores, got, tc.want)
		}
	}
}

func TestListForUser(t *testing.T) {
	svc, _ := newTestService(staticTrades{
		"trd_1": completedTrade("trd_1"),
		"trd_2": completedTrade("trd_2"),
	})
	ctx := context.Background()

	for i, tradeID := range []string{"trd_1", "trd_2"} {
		if _, err := svc.Submit(ctx, buyerID, SubmitRequest{
			TradeID: tradeID, Accuracy: 4, Honesty: 4, Experience: 4,
		}); err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		time.Sleep(time.Millisecond)
	}

	reviews, err := svc.ListForUser(ctx, sellerID, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(reviews))
	}
	if reviews[0].TradeID != "trd_2" {
		t.Errorf("expected newest first, got %s", reviews[0].TradeID)
	}

	none, err := svc.ListForUser(ctx, buyerID, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no reviews for buyer, got %d", len(none))
	}
}
