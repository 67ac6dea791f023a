package orders_test

import (
	"errors"
	"testing"

	"FundLedger/internal/orders"

	"github.com/google/uuid"
)

func depositKey(inv uuid.UUID) orders.Key {
	return orders.Key{
		ShareClass: "SC-1",
		Asset:      "USDC",
		Investor:   inv,
		Direction:  orders.DirectionDeposit,
	}
}

func TestOrder_ImplicitCreation(t *testing.T) {
	b := orders.NewBook()
	o := b.Order(depositKey(uuid.New()))
	if o.Pending != 0 || o.LastUpdateEpoch != 0 {
		t.Errorf("new order should be zero, got pending=%d epoch=%d", o.Pending, o.LastUpdateEpoch)
	}
}

func TestOrder_SameSlotReturned(t *testing.T) {
	b := orders.NewBook()
	k := depositKey(uuid.New())
	b.Order(k).Pending = 42
	if got := b.Order(k).Pending; got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}

func TestMutable_InitialEpoch(t *testing.T) {
	o := &orders.UserOrder{Pending: 100, LastUpdateEpoch: 0}
	if !orders.Mutable(o, 1) {
		t.Error("order should be mutable while no approvals have ever occurred")
	}
}

func TestMutable_ZeroPending(t *testing.T) {
	o := &orders.UserOrder{Pending: 0, LastUpdateEpoch: 1}
	if !orders.Mutable(o, 5) {
		t.Error("zero-pending order should always be mutable")
	}
}

func TestMutable_NotYetSwept(t *testing.T) {
	o := &orders.UserOrder{Pending: 100, LastUpdateEpoch: 3}
	if !orders.Mutable(o, 3) {
		t.Error("order updated at the current epoch should be mutable")
	}
}

func TestMutable_LockedInFlight(t *testing.T) {
	o := &orders.UserOrder{Pending: 100, LastUpdateEpoch: 2}
	if orders.Mutable(o, 3) {
		t.Error("order swept into an unclaimed epoch must not be mutable")
	}
}

func TestPendingTotals(t *testing.T) {
	b := orders.NewBook()
	b.AddPending("SC-1", "USDC", orders.DirectionDeposit, 100)
	b.AddPending("SC-1", "USDC", orders.DirectionDeposit, 50)
	b.SubPending("SC-1", "USDC", orders.DirectionDeposit, 30)

	if got := b.Pending("SC-1", "USDC", orders.DirectionDeposit); got != 120 {
		t.Errorf("got %d, want 120", got)
	}
	if got := b.Pending("SC-1", "USDC", orders.DirectionRedeem); got != 0 {
		t.Errorf("redeem total should be independent, got %d", got)
	}
}

func TestAddPending_OverflowRejected(t *testing.T) {
	b := orders.NewBook()
	if err := b.AddPending("SC-1", "USDC", orders.DirectionDeposit, 1<<63); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := b.AddPending("SC-1", "USDC", orders.DirectionDeposit, 1<<63); !errors.Is(err, orders.ErrPendingOverflow) {
		t.Errorf("got %v, want ErrPendingOverflow", err)
	}
	if got := b.Pending("SC-1", "USDC", orders.DirectionDeposit); got != 1<<63 {
		t.Errorf("total after rejected add: got %d, want %d", got, uint64(1)<<63)
	}
}

func TestSubPending_UnderflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on pending underflow")
		}
	}()
	b := orders.NewBook()
	b.SubPending("SC-1", "USDC", orders.DirectionDeposit, 1)
}

func TestForceCancel_Idempotent(t *testing.T) {
	b := orders.NewBook()
	k := depositKey(uuid.New())

	b.ArmForceCancel(k)
	b.ArmForceCancel(k)
	if !b.ForceCancelAllowed(k) {
		t.Error("flag should stay armed")
	}

	b.ClearForceCancel(k)
	if b.ForceCancelAllowed(k) {
		t.Error("flag should be cleared")
	}
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	b := orders.NewBook()
	inv := uuid.New()
	k := depositKey(inv)
	b.Order(k).Pending = 77
	b.Order(k).LastUpdateEpoch = 4
	q := b.Queued(k)
	q.Amount = 11
	q.IsCancelling = true
	b.ArmForceCancel(k)
	b.AddPending("SC-1", "USDC", orders.DirectionDeposit, 77)

	snaps := b.Snapshot()
	if len(snaps) != 1 {
		t.Fatalf("snapshot slots: got %d, want 1", len(snaps))
	}

	restored := orders.NewBook()
	for _, s := range snaps {
		restored.Restore(s)
	}
	restored.RestoreTotal("SC-1", "USDC", orders.DirectionDeposit, 77)

	o := restored.Order(k)
	if o.Pending != 77 || o.LastUpdateEpoch != 4 {
		t.Errorf("order: got pending=%d epoch=%d, want 77/4", o.Pending, o.LastUpdateEpoch)
	}
	rq := restored.Queued(k)
	if rq.Amount != 11 || !rq.IsCancelling {
		t.Errorf("queued: got amount=%d cancelling=%v, want 11/true", rq.Amount, rq.IsCancelling)
	}
	if !restored.ForceCancelAllowed(k) {
		t.Error("force-cancel flag lost in round trip")
	}
	if got := restored.Pending("SC-1", "USDC", orders.DirectionDeposit); got != 77 {
		t.Errorf("total: got %d, want 77", got)
	}
}

func TestSumPending_MatchesTotalAfterRequests(t *testing.T) {
	b := orders.NewBook()
	for _, amt := range []uint64{10, 20, 30} {
		k := depositKey(uuid.New())
		b.Order(k).Pending = amt
		b.AddPending(k.ShareClass, k.Asset, k.Direction, amt)
	}
	sum := b.SumPending("SC-1", "USDC", orders.DirectionDeposit)
	total := b.Pending("SC-1", "USDC", orders.DirectionDeposit)
	if sum != total || sum != 60 {
		t.Errorf("sum=%d total=%d, want both 60", sum, total)
	}
}
