package issue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/item"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/trade"
)

const (
	sellerID     = "usr_seller"
	buyerID      = "usr_buyer"
	supervisorID = "usr_member"
)

type testEnv struct {
	svc    *Service
	store  Store
	trades *trade.Service
}

// newTestEnv wires the dispute engine against a real trade service with
// one trade walked to SCHEDULED.
func newTestEnv(t *testing.T) (*testEnv, *trade.Trade) {
	t.Helper()
	ctx := context.Background()

	items := item.NewMemoryStore()
	if err := items.Create(ctx, &item.Item{
		ID:       "itm_1",
		SellerID: sellerID,
		Status:   item.StatusVerified,
	}); err != nil {
		t.Fatalf("failed to seed listing: %v", err)
	}

	trades := trade.NewService(trade.NewMemoryStore(items), items)
	tr, err := trades.Create(ctx, "itm_1", buyerID)
	if err != nil {
		t.Fatalf("create trade failed: %v", err)
	}
	money := 500.0
	if _, err := trades.Propose(ctx, tr.ID, sellerID, trade.ProposeRequest{Money: &money}); err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if _, err := trades.Accept(ctx, tr.ID, buyerID); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if _, err := trades.Schedule(ctx, tr.ID, supervisorID, trade.ScheduleRequest{
		Location:    "Tech Park lobby",
		ScheduledAt: time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	store := NewMemoryStore()
	return &testEnv{
		svc:    NewService(store, trades),
		store:  store,
		trades: trades,
	}, tr
}

func (e *testEnv) tradeStatus(t *testing.T, id string) trade.Status {
	t.Helper()
	snap, err := e.trades.Get(context.Background(), id, buyerID, false)
	if err != nil {
		t.Fatalf("get trade failed: %v", err)
	}
	return snap.Status
}

func TestReportSuspendsTrade(t *testing.T) {
	env, tr := newTestEnv(t)
	ctx := context.Background()

	i, err := env.svc.Report(ctx, tr.ID, buyerID, "seller never showed up")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if !strings.HasPrefix(i.ID, "iss_") {
		t.Errorf("expected iss_ prefix, got %s", i.ID)
	}
	if i.Status != StatusOpen {
		t.Errorf("expected OPEN, got %s", i.Status)
	}
	if i.BuyerID != buyerID || i.SellerID != sellerID {
		t.Error("expected trade parties denormalized onto issue")
	}
	if i.SupervisorID != supervisorID {
		t.Errorf("expected issue to inherit trade supervisor, got %q", i.SupervisorID)
	}
	if got := env.tradeStatus(t, tr.ID); got != trade.StatusUnderReview {
		t.Errorf("expected trade UNDER_REVIEW, got %s", got)
	}
}

func TestReportRejections(t *testing.T) {
	env, tr := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Report(ctx, tr.ID, buyerID, ""); err == nil {
		t.Error("expected error for empty description")
	}
	if _, err := env.svc.Report(ctx, tr.ID, "usr_stranger", "not my trade"); !errors.Is(err, trade.ErrNotParticipant) {
		t.Errorf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := env.svc.Report(ctx, "trd_missing", buyerID, "ghost"); !errors.Is(err, trade.ErrTradeNotFound) {
		t.Errorf("expected ErrTradeNotFound, got %v", err)
	}
}

func TestClaimFirstWins(t *testing.T) {
	env, tr := newTestEnv(t)
	ctx := context.Background()

	i, err := env.svc.Report(ctx, tr.ID, buyerID, "wrong edition delivered")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	// Parties cannot mediate their own dispute
	if _, err := env.svc.Claim(ctx, i.ID, sellerID); !errors.Is(err, ErrSelfMediate) {
		t.Errorf("expected ErrSelfMediate, got %v", err)
	}

	claimed, err := env.svc.Claim(ctx, i.ID, supervisorID)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if claimed.Status != StatusPending || claimed.SupervisorID != supervisorID {
		t.Errorf("unexpected claim state: %s/%s", claimed.Status, claimed.SupervisorID)
	}

	if _, err := env.svc.Claim(ctx, i.ID, "usr_other_member"); !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("expected ErrAlreadyClaimed, got %v", err)
	}
}

func TestResolutionFlow(t *testing.T) {
	env, tr := newTestEnv(t)
	ctx := context.Background()

	i, err := env.svc.Report(ctx, tr.ID, buyerID, "charger missing from the box")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	// Sign-offs need a mediator first
	if _, err := env.svc.ResolveParty(ctx, i.ID, buyerID); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus before claim, got %v", err)
	}

	if _, err := env.svc.Claim(ctx, i.ID, supervisorID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	if _, err := env.svc.ResolveParty(ctx, i.ID, "usr_stranger"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for outsider, got %v", err)
	}

	got, err := env.svc.ResolveParty(ctx, i.ID, buyerID)
	if err != nil {
		t.Fatalf("buyer resolve failed: %v", err)
	}
	if !got.BuyerResolved || got.SellerResolved {
		t.Errorf("unexpected flags after buyer resolve: %v/%v", got.BuyerResolved, got.SellerResolved)
	}

	// Repeat sign-off is a no-op
	if _, err := env.svc.ResolveParty(ctx, i.ID, buyerID); err != nil {
		t.Errorf("repeat resolve should be a no-op, got %v", err)
	}

	if _, err := env.svc.ResolveParty(ctx, i.ID, sellerID); err != nil {
		t.Fatalf("seller resolve failed: %v", err)
	}

	// Both sign-offs mirrored onto the trade close it out
	if got := env.tradeStatus(t, tr.ID); got != trade.StatusCompleted {
		t.Errorf("expected trade COMPLETED, got %s", got)
	}

	// Only the claiming mediator finalizes
	if _, err := env.svc.Finalize(ctx, i.ID, "usr_other_member", "done"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for foreign finalize, got %v", err)
	}
	final, err := env.svc.Finalize(ctx, i.ID, supervisorID, "seller handed over charger at library")
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if final.Status != StatusResolved || final.Resolution == "" {
		t.Errorf("unexpected final state: %s %q", final.Status, final.Resolution)
	}

	// A closed case takes no further finalizing
	if _, err := env.svc.Finalize(ctx, i.ID, supervisorID, "again"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus on repeat finalize, got %v", err)
	}
}

// A sign-off whose trade mirror landed but whose issue write was lost
// must succeed on retry even though the trade already completed.
func TestResolveRetryAfterLostWrite(t *testing.T) {
	env, tr := newTestEnv(t)
	ctx := context.Background()

	i, err := env.svc.Report(ctx, tr.ID, buyerID, "item condition disputed")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if _, err := env.svc.Claim(ctx, i.ID, supervisorID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if _, err := env.svc.ResolveParty(ctx, i.ID, buyerID); err != nil {
		t.Fatalf("buyer resolve failed: %v", err)
	}
	if _, err := env.svc.ResolveParty(ctx, i.ID, sellerID); err != nil {
		t.Fatalf("seller resolve failed: %v", err)
	}

	// Roll the issue row back to before the seller's write, leaving
	// the trade COMPLETED with both mirrors set.
	stale, err := env.store.Get(ctx, i.ID)
	if err != nil {
		t.Fatalf("get issue failed: %v", err)
	}
	stale.SellerResolved = false
	if err := env.store.Update(ctx, stale); err != nil {
		t.Fatalf("rollback failed: %v", err)
	}

	got, err := env.svc.ResolveParty(ctx, i.ID, sellerID)
	if err != nil {
		t.Fatalf("retried resolve failed: %v", err)
	}
	if !got.SellerResolved {
		t.Error("expected seller sign-off persisted on retry")
	}
	if status := env.tradeStatus(t, tr.ID); status != trade.StatusCompleted {
		t.Errorf("expected trade to stay COMPLETED, got %s", status)
	}
}

// The mediator may close a case even when a party refuses to sign off.
func TestFinalizeWithoutSignOffs(t *testing.T) {
	env, tr := newTestEnv(t)
	ctx := context.Background()

	i, err := env.svc.Report(ctx, tr.ID, sellerID, "buyer demanding refund after handover")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if _, err := env.svc.Claim(ctx, i.ID, supervisorID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	final, err := env.svc.Finalize(ctx, i.ID, supervisorID, "no fault found, trade stands")
	if err != nil {
		t.Fatalf("finalize override failed: %v", err)
	}
	if final.Status != StatusResolved {
		t.Errorf("expected RESOLVED, got %s", final.Status)
	}
	if final.BuyerResolved || final.SellerResolved {
		t.Error("override must not forge party sign-offs")
	}
}

func TestListByStatusScoping(t *testing.T) {
	env, tr := newTestEnv(t)
	ctx := context.Background()

	i, err := env.svc.Report(ctx, tr.ID, buyerID, "item condition misrepresented")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	// OPEN queue is shared
	open, err := env.svc.ListByStatus(ctx, StatusOpen, "usr_any_member", 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected 1 open issue, got %d", len(open))
	}

	if _, err := env.svc.Claim(ctx, i.ID, supervisorID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	// PENDING is scoped to the claiming mediator
	mine, err := env.svc.ListByStatus(ctx, StatusPending, supervisorID, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(mine) != 1 {
		t.Errorf("expected mediator to see their case, got %d", len(mine))
	}
	others, err := env.svc.ListByStatus(ctx, StatusPending, "usr_other_member", 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(others) != 0 {
		t.Errorf("expected foreign caseload hidden, got %d", len(others))
	}
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"OPEN", "PENDING", "RESOLVED"} {
		if _, err := ParseStatus(valid); err != nil {
			t.Errorf("expected %s to parse, got %v", valid, err)
		}
	}
	if _, err := ParseStatus("ESCALATED"); err == nil {
		t.Error("expected unknown status to fail")
	}
}
