package trade

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/item"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/testutil"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/user"
)

func seedPGTrade(t *testing.T, db *sql.DB) (*PostgresStore, *Trade) {
	t.Helper()
	ctx := context.Background()

	users := user.NewPostgresStore(db)
	for _, u := range []*user.User{
		{ID: "usr_pg_seller", Email: "seller@srmist.edu.in", Role: "STUDENT", CreatedAt: time.Now()},
		{ID: "usr_pg_buyer", Email: "buyer@srmist.edu.in", Role: "STUDENT", CreatedAt: time.Now()},
	} {
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	items := item.NewPostgresStore(db)
	price := 250.0
	it := &item.Item{
		ID:          "itm_pg_1",
		SellerID:    "usr_pg_seller",
		Title:       "Drafter",
		Category:    "Stationery",
		Type:        item.TypeSell,
		Price:       &price,
		Marketplace: item.MarketNormal,
		Status:      item.StatusVerified,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := items.Create(ctx, it); err != nil {
		t.Fatalf("seed item: %v", err)
	}

	store := NewPostgresStore(db)
	trd := &Trade{
		ID:        "trd_pg_1",
		ListingID: it.ID,
		BuyerID:   "usr_pg_buyer",
		SellerID:  "usr_pg_seller",
		Status:    StatusNegotiating,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.Create(ctx, trd); err != nil {
		t.Fatalf("seed trade: %v", err)
	}
	return store, trd
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()
	ctx := context.Background()

	store, trd := seedPGTrade(t, db)

	got, err := store.Get(ctx, trd.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusNegotiating || got.BuyerID != "usr_pg_buyer" {
		t.Errorf("round trip mismatch: %+v", got)
	}

	active, err := store.FindActive(ctx, trd.ListingID, trd.BuyerID)
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if active.ID != trd.ID {
		t.Errorf("expected active trade %s, got %s", trd.ID, active.ID)
	}

	if _, err := store.Get(ctx, "trd_missing"); !errors.Is(err, ErrTradeNotFound) {
		t.Errorf("expected ErrTradeNotFound, got %v", err)
	}
}

func TestPostgresStoreUpdateIfStatus(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()
	ctx := context.Background()

	store, trd := seedPGTrade(t, db)

	money := 200.0
	trd.Status = StatusProposed
	trd.MoneyProposal = &money
	trd.ProposerID = trd.SellerID
	if err := store.UpdateIfStatus(ctx, trd, StatusNegotiating); err != nil {
		t.Fatalf("update: %v", err)
	}

	// The same precondition no longer holds.
	if err := store.UpdateIfStatus(ctx, trd, StatusNegotiating); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus on stale precondition, got %v", err)
	}

	got, err := store.Get(ctx, trd.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusProposed || got.MoneyProposal == nil || *got.MoneyProposal != 200.0 {
		t.Errorf("proposal not persisted: %+v", got)
	}
}

func TestPostgresStoreAccept(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()
	ctx := context.Background()

	store, trd := seedPGTrade(t, db)

	// Accept requires PROPOSED.
	if err := store.Accept(ctx, trd.ID, trd.ListingID); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus from NEGOTIATING, got %v", err)
	}

	trd.Status = StatusProposed
	if err := store.UpdateIfStatus(ctx, trd, StatusNegotiating); err != nil {
		t.Fatalf("propose: %v", err)
	}

	if err := store.Accept(ctx, trd.ID, trd.ListingID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	got, err := store.Get(ctx, trd.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusAccepted {
		t.Errorf("expected ACCEPTED, got %s", got.Status)
	}

	items := item.NewPostgresStore(db)
	it, err := items.Get(ctx, trd.ListingID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if it.Status != item.StatusSold {
		t.Errorf("expected listing SOLD, got %s", it.Status)
	}
}
