package item

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/pagination"
)

func newTestService() *Service {
	return NewService(NewMemoryStore())
}

func createTestItem(t *testing.T, svc *Service) *Item {
	t.Helper()
	price := 450.0
	it, err := svc.Create(context.Background(), "usr_seller", CreateRequest{
		Title:       "Calculus Textbook (11th Ed)",
		Description: "Used for MAT101. Good condition.",
		Category:    "Books",
		Tags:        []string{"Engineering", "Freshers"},
		Type:        "SELL",
		Price:       &price,
	})
	if err != nil {
		t.Fatalf("failed to create item: %v", err)
	}
	return it
}

func TestCreateItem(t *testing.T) {
	svc := newTestService()
	it := createTestItem(t, svc)

	if !strings.HasPrefix(it.ID, "itm_") {
		t.Errorf("expected ID prefix itm_, got %s", it.ID)
	}
	if it.Status != StatusPending {
		t.Errorf("new listings must start PENDING, got %s", it.Status)
	}
	if it.Marketplace != MarketNormal {
		t.Errorf("expected default marketplace NORMAL, got %s", it.Marketplace)
	}
	if it.SellerID != "usr_seller" {
		t.Errorf("expected seller usr_seller, got %s", it.SellerID)
	}
}

func TestCreateItemUnknownType(t *testing.T) {
	svc := newTestService()
	_, err := svc.Create(context.Background(), "usr_seller", CreateRequest{
		Title:    "Mystery Box",
		Category: "Misc",
		Type:     "GIFT",
	})
	if err == nil {
		t.Error("expected error for unknown listing type")
	}
}

func TestCreateItemNegativePrice(t *testing.T) {
	svc := newTestService()
	price := -5.0
	_, err := svc.Create(context.Background(), "usr_seller", CreateRequest{
		Title:    "Broken Lamp",
		Category: "Electronics",
		Type:     "SELL",
		Price:    &price,
	})
	if err == nil {
		t.Error("expected error for negative price")
	}
}

func TestListFilters(t *testing.T) {
	svc := newTestService()
	createTestItem(t, svc)
	_, err := svc.Create(context.Background(), "usr_other", CreateRequest{
		Title:    "Sony Headphones",
		Category: "Electronics",
		Type:     "BARTER",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	books, err := svc.List(context.Background(), Filter{Category: "Books"}, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(books.Items) != 1 {
		t.Fatalf("expected 1 book, got %d", len(books.Items))
	}

	barter, err := svc.List(context.Background(), Filter{Type: TypeBarter}, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(barter.Items) != 1 || barter.Items[0].Title != "Sony Headphones" {
		t.Errorf("barter filter returned wrong results: %v", barter.Items)
	}

	byTag, err := svc.List(context.Background(), Filter{Search: "freshers"}, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(byTag.Items) != 1 {
		t.Errorf("tag search expected 1 result, got %d", len(byTag.Items))
	}
}

func TestListPagination(t *testing.T) {
	svc := newTestService()
	for i := 0; i < 5; i++ {
		_, err := svc.Create(context.Background(), "usr_seller", CreateRequest{
			Title:    fmt.Sprintf("Notebook %d", i),
			Category: "Stationery",
			Type:     "SELL",
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	first, err := svc.List(context.Background(), Filter{Category: "Stationery"}, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(first.Items) != 2 || !first.HasMore || first.NextCursor == "" {
		t.Fatalf("expected full first page with cursor, got %d items hasMore=%v", len(first.Items), first.HasMore)
	}

	cursor, err := pagination.Decode(first.NextCursor)
	if err != nil {
		t.Fatalf("decode cursor: %v", err)
	}
	second, err := svc.List(context.Background(), Filter{Category: "Stationery", Cursor: cursor}, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(second.Items) != 2 {
		t.Fatalf("expected 2 items on second page, got %d", len(second.Items))
	}
	for _, it := range second.Items {
		if it.ID == first.Items[0].ID || it.ID == first.Items[1].ID {
			t.Errorf("item %s repeated across pages", it.ID)
		}
	}

	cursor, err = pagination.Decode(second.NextCursor)
	if err != nil {
		t.Fatalf("decode cursor: %v", err)
	}
	last, err := svc.List(context.Background(), Filter{Category: "Stationery", Cursor: cursor}, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(last.Items) != 1 || last.HasMore {
		t.Errorf("expected final page of 1, got %d hasMore=%v", len(last.Items), last.HasMore)
	}
}

func TestModerate(t *testing.T) {
	svc := newTestService()
	it := createTestItem(t, svc)

	verified, err := svc.Moderate(context.Background(), it.ID, StatusVerified)
	if err != nil {
		t.Fatalf("moderate failed: %v", err)
	}
	if verified.Status != StatusVerified {
		t.Errorf("expected VERIFIED, got %s", verified.Status)
	}

	// Moderation cannot set SOLD or PENDING
	if _, err := svc.Moderate(context.Background(), it.ID, StatusSold); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.Moderate(context.Background(), "itm_missing", StatusVerified); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestMarkSoldExactlyOnce(t *testing.T) {
	svc := newTestService()
	it := createTestItem(t, svc)

	if err := svc.MarkSold(context.Background(), it.ID); err != nil {
		t.Fatalf("first MarkSold failed: %v", err)
	}

	got, err := svc.Get(context.Background(), it.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != StatusSold {
		t.Errorf("expected SOLD, got %s", got.Status)
	}

	if err := svc.MarkSold(context.Background(), it.ID); !errors.Is(err, ErrAlreadySold) {
		t.Errorf("second MarkSold expected ErrAlreadySold, got %v", err)
	}

	// Sold items cannot be moderated afterwards
	if _, err := svc.Moderate(context.Background(), it.ID, StatusRemoved); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus for sold item, got %v", err)
	}
}
