package settle_test

import (
	"errors"
	"testing"

	"FundLedger/internal/epoch"
	"FundLedger/internal/orders"
	"FundLedger/internal/registry"
	"FundLedger/internal/settle"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	scID    = registry.ShareClassID("SC-1")
	assetID = registry.AssetID("USDC")

	hub     = "hub"
	manager = "manager"

	// 18-decimal fixed-point prices.
	priceOne       = uint64(1_000_000_000_000_000_000)
	navOnePointOne = uint64(1_100_000_000_000_000_000)

	// 10 USDC in 6-decimal atoms.
	tenUSDC = uint64(10_000_000)
)

func newTestEngine(t *testing.T, opts ...settle.Option) *settle.Engine {
	t.Helper()
	reg, err := registry.New(hub,
		[]registry.Asset{{ID: assetID, Decimals: 6}},
		[]registry.ShareClass{{
			ID:           scID,
			PoolDecimals: 18,
			Assets:       []registry.AssetID{assetID},
			Managers:     []string{manager},
		}})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return settle.NewEngine(reg, settle.NopAccounting{}, zerolog.Nop(), opts...)
}

func TestRequestDeposit_Direct(t *testing.T) {
	e := newTestEngine(t)
	inv := uuid.New()

	queued, err := e.RequestDeposit(scID, assetID, inv, tenUSDC)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if queued {
		t.Error("first request should mutate directly, not queue")
	}
	if got := e.PendingTotal(scID, assetID, orders.DirectionDeposit); got != tenUSDC {
		t.Errorf("aggregate pending: got %d, want %d", got, tenUSDC)
	}
	o := e.Order(scID, assetID, inv, orders.DirectionDeposit)
	if o.Pending != tenUSDC || o.LastUpdateEpoch != 1 {
		t.Errorf("order: got pending=%d epoch=%d, want %d/1", o.Pending, o.LastUpdateEpoch, tenUSDC)
	}
}

func TestRequestDeposit_ReplacesPending(t *testing.T) {
	e := newTestEngine(t)
	inv := uuid.New()

	if _, err := e.RequestDeposit(scID, assetID, inv, 100); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := e.RequestDeposit(scID, assetID, inv, 40); err != nil {
		t.Fatalf("second request: %v", err)
	}

	if got := e.Order(scID, assetID, inv, orders.DirectionDeposit).Pending; got != 40 {
		t.Errorf("pending: got %d, want 40 (replacement, not addition)", got)
	}
	if got := e.PendingTotal(scID, assetID, orders.DirectionDeposit); got != 40 {
		t.Errorf("aggregate: got %d, want 40", got)
	}
}

func TestRequestDeposit_ZeroRejected(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.RequestDeposit(scID, assetID, uuid.New(), 0); !errors.Is(err, settle.ErrZeroAmount) {
		t.Errorf("got %v, want ErrZeroAmount", err)
	}
}

func TestRequestDeposit_UnknownPair(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.RequestDeposit(scID, "WETH", uuid.New(), 1); err == nil {
		t.Error("expected error for unregistered asset")
	}
}

func TestRequest_QueuedWhileLocked(t *testing.T) {
	e := newTestEngine(t)
	inv := uuid.New()

	mustRequestDeposit(t, e, inv, tenUSDC)
	mustApproveDeposits(t, e, 1, 4_000_000, priceOne)

	queued, err := e.RequestDeposit(scID, assetID, inv, 5_000_000)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !queued {
		t.Error("request against a locked order must queue")
	}
	if got := e.PendingTotal(scID, assetID, orders.DirectionDeposit); got != 6_000_000 {
		t.Errorf("aggregate must not change on queue: got %d, want 6000000", got)
	}
	if got := e.Order(scID, assetID, inv, orders.DirectionDeposit).QueuedAmount; got != 5_000_000 {
		t.Errorf("queued amount: got %d, want 5000000", got)
	}
}

func TestRequestDeposit_AggregateOverflowRejected(t *testing.T) {
	e := newTestEngine(t)
	a, b := uuid.New(), uuid.New()
	huge := uint64(1) << 63

	mustRequestDeposit(t, e, a, huge)
	if _, err := e.RequestDeposit(scID, assetID, b, huge); !errors.Is(err, orders.ErrPendingOverflow) {
		t.Fatalf("got %v, want ErrPendingOverflow", err)
	}
	if got := e.PendingTotal(scID, assetID, orders.DirectionDeposit); got != huge {
		t.Errorf("aggregate after rejected request: got %d, want %d", got, huge)
	}
	if got := e.Order(scID, assetID, b, orders.DirectionDeposit).Pending; got != 0 {
		t.Errorf("rejected request must leave no pending: got %d", got)
	}

	// The surviving order still cancels cleanly.
	cancelled, queued, err := e.CancelDepositRequest(scID, assetID, a)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if queued || cancelled != huge {
		t.Errorf("got cancelled=%d queued=%v, want %d/false", cancelled, queued, huge)
	}
	if got := e.PendingTotal(scID, assetID, orders.DirectionDeposit); got != 0 {
		t.Errorf("aggregate after cancel: got %d, want 0", got)
	}
}

func TestRequestDeposit_QueuedOverflowRejected(t *testing.T) {
	e := newTestEngine(t)
	inv := uuid.New()

	mustRequestDeposit(t, e, inv, tenUSDC)
	mustApproveDeposits(t, e, 1, 4_000_000, priceOne)

	if queued, err := e.RequestDeposit(scID, assetID, inv, 1<<63); err != nil || !queued {
		t.Fatalf("queued request: queued=%v err=%v", queued, err)
	}
	if _, err := e.RequestDeposit(scID, assetID, inv, 1<<63); !errors.Is(err, orders.ErrPendingOverflow) {
		t.Errorf("got %v, want ErrPendingOverflow", err)
	}
	if got := e.Order(scID, assetID, inv, orders.DirectionDeposit).QueuedAmount; got != 1<<63 {
		t.Errorf("queued amount after rejection: got %d, want %d", got, uint64(1)<<63)
	}
}

func TestApproveDeposits_Unauthorized(t *testing.T) {
	e := newTestEngine(t)
	mustRequestDeposit(t, e, uuid.New(), tenUSDC)

	if _, err := e.ApproveDeposits("stranger", scID, assetID, 1, tenUSDC, priceOne); !errors.Is(err, registry.ErrNotAuthorized) {
		t.Errorf("got %v, want ErrNotAuthorized", err)
	}
}

func TestApproveDeposits_EpochSequence(t *testing.T) {
	e := newTestEngine(t)
	mustRequestDeposit(t, e, uuid.New(), tenUSDC)

	if _, err := e.ApproveDeposits(manager, scID, assetID, 2, tenUSDC, priceOne); !errors.Is(err, settle.ErrEpochNotInSequence) {
		t.Errorf("got %v, want ErrEpochNotInSequence", err)
	}

	mustApproveDeposits(t, e, 1, tenUSDC, priceOne)
	if got := e.CurrentEpoch(scID, assetID, epoch.TrackDepositApprove); got != 2 {
		t.Errorf("counter must advance by exactly one: got %d, want 2", got)
	}

	// Replaying the already-approved epoch must fail.
	if _, err := e.ApproveDeposits(manager, scID, assetID, 1, 1, priceOne); !errors.Is(err, settle.ErrEpochNotInSequence) {
		t.Errorf("got %v, want ErrEpochNotInSequence", err)
	}
}

func TestApproveDeposits_InsufficientPending(t *testing.T) {
	e := newTestEngine(t)
	mustRequestDeposit(t, e, uuid.New(), tenUSDC)

	if _, err := e.ApproveDeposits(manager, scID, assetID, 1, tenUSDC+1, priceOne); !errors.Is(err, settle.ErrInsufficientPending) {
		t.Errorf("got %v, want ErrInsufficientPending", err)
	}
}

func TestApproveDeposits_ZeroRejected(t *testing.T) {
	e := newTestEngine(t)
	mustRequestDeposit(t, e, uuid.New(), tenUSDC)

	if _, err := e.ApproveDeposits(manager, scID, assetID, 1, 0, priceOne); !errors.Is(err, settle.ErrZeroApprovalAmount) {
		t.Errorf("got %v, want ErrZeroApprovalAmount", err)
	}
}

func TestApproveDeposits_RecordsRemainder(t *testing.T) {
	e := newTestEngine(t)
	mustRequestDeposit(t, e, uuid.New(), tenUSDC)
	mustApproveDeposits(t, e, 1, 4_000_000, priceOne)

	rec, ok := e.InvestEpoch(scID, assetID, 1)
	if !ok {
		t.Fatal("epoch record missing after approval")
	}
	if rec.ApprovedAssetAmount != 4_000_000 || rec.PendingAssetAmount != 6_000_000 {
		t.Errorf("record: approved=%d remainder=%d, want 4000000/6000000",
			rec.ApprovedAssetAmount, rec.PendingAssetAmount)
	}
	// 4 USDC at price 1.0 into an 18-decimal pool.
	if want := uint64(4_000_000_000_000_000_000); rec.ApprovedPoolAmount != want {
		t.Errorf("pool amount: got %d, want %d", rec.ApprovedPoolAmount, want)
	}
	if rec.IssuedAt != 0 {
		t.Error("timestamp must stay zero until issuance")
	}
	if got := e.PendingTotal(scID, assetID, orders.DirectionDeposit); got != 6_000_000 {
		t.Errorf("aggregate after approval: got %d, want 6000000", got)
	}
}

func TestIssueShares_RequiresApproval(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.IssueShares(manager, scID, assetID, 1, navOnePointOne, 1); !errors.Is(err, settle.ErrEpochNotFound) {
		t.Errorf("got %v, want ErrEpochNotFound", err)
	}
}

func TestIssueShares_PricesApprovedAggregate(t *testing.T) {
	e := newTestEngine(t)
	mustRequestDeposit(t, e, uuid.New(), tenUSDC)
	mustApproveDeposits(t, e, 1, tenUSDC, priceOne)

	if _, err := e.IssueShares(manager, scID, assetID, 1, navOnePointOne, 1_700_000_000_000_000); err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec, _ := e.InvestEpoch(scID, assetID, 1)
	// 10 pool units at NAV 1.1 pool-per-share, rounded down.
	if want := uint64(9_090_909_090_909_090_909); rec.IssuedShares != want {
		t.Errorf("issued shares: got %d, want %d", rec.IssuedShares, want)
	}
	if rec.NavPoolPerShare != navOnePointOne || rec.IssuedAt == 0 {
		t.Errorf("record not stamped: nav=%d issued_at=%d", rec.NavPoolPerShare, rec.IssuedAt)
	}
	if got := e.CurrentEpoch(scID, assetID, epoch.TrackDepositIssue); got != 2 {
		t.Errorf("issue counter: got %d, want 2", got)
	}
}

func TestIssueShares_EpochSequence(t *testing.T) {
	e := newTestEngine(t)
	mustRequestDeposit(t, e, uuid.New(), tenUSDC)
	mustApproveDeposits(t, e, 1, tenUSDC, priceOne)

	if _, err := e.IssueShares(manager, scID, assetID, 2, navOnePointOne, 1); !errors.Is(err, settle.ErrEpochNotInSequence) {
		t.Errorf("got %v, want ErrEpochNotInSequence", err)
	}
}

func TestCancel_RoundTrip(t *testing.T) {
	e := newTestEngine(t)
	inv := uuid.New()
	mustRequestDeposit(t, e, inv, tenUSDC)

	cancelled, queued, err := e.CancelDepositRequest(scID, assetID, inv)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if queued || cancelled != tenUSDC {
		t.Errorf("got cancelled=%d queued=%v, want %d/false", cancelled, queued, tenUSDC)
	}
	if got := e.PendingTotal(scID, assetID, orders.DirectionDeposit); got != 0 {
		t.Errorf("aggregate after round trip: got %d, want 0", got)
	}

	n, err := e.CancelNoticeFor(scID, assetID, inv, orders.DirectionDeposit)
	if err != nil {
		t.Fatalf("notice: %v", err)
	}
	if n.Amount != tenUSDC {
		t.Errorf("parked cancellation: got %d, want %d", n.Amount, tenUSDC)
	}
}

func TestCancel_NoOrder(t *testing.T) {
	e := newTestEngine(t)
	if _, _, err := e.CancelDepositRequest(scID, assetID, uuid.New()); !errors.Is(err, settle.ErrNoOrderFound) {
		t.Errorf("got %v, want ErrNoOrderFound", err)
	}
}

func TestCancel_QueuedWhileLocked(t *testing.T) {
	e := newTestEngine(t)
	inv := uuid.New()
	mustRequestDeposit(t, e, inv, tenUSDC)
	mustApproveDeposits(t, e, 1, 4_000_000, priceOne)

	cancelled, queued, err := e.CancelDepositRequest(scID, assetID, inv)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !queued || cancelled != 0 {
		t.Errorf("got cancelled=%d queued=%v, want 0/true", cancelled, queued)
	}

	// A queued cancellation blocks further requests.
	if _, err := e.RequestDeposit(scID, assetID, inv, 1); !errors.Is(err, settle.ErrCancellationQueued) {
		t.Errorf("got %v, want ErrCancellationQueued", err)
	}
}

func TestForceCancel_RequiresArming(t *testing.T) {
	e := newTestEngine(t)
	inv := uuid.New()
	mustRequestDeposit(t, e, inv, tenUSDC)

	if _, _, err := e.ForceCancelDepositRequest(manager, scID, assetID, inv); !errors.Is(err, settle.ErrCancellationInitializationRequired) {
		t.Errorf("got %v, want ErrCancellationInitializationRequired", err)
	}

	if err := e.EnableDepositForceCancel("stranger", scID, assetID, inv); !errors.Is(err, registry.ErrNotAuthorized) {
		t.Errorf("enable by stranger: got %v, want ErrNotAuthorized", err)
	}
	if err := e.EnableDepositForceCancel(manager, scID, assetID, inv); err != nil {
		t.Fatalf("enable: %v", err)
	}

	cancelled, queued, err := e.ForceCancelDepositRequest(manager, scID, assetID, inv)
	if err != nil {
		t.Fatalf("force cancel: %v", err)
	}
	if queued || cancelled != tenUSDC {
		t.Errorf("got cancelled=%d queued=%v, want %d/false", cancelled, queued, tenUSDC)
	}
	if e.Order(scID, assetID, inv, orders.DirectionDeposit).ForceCancelAllowed {
		t.Error("flag must clear once the cancellation applied")
	}
}

func TestRedeemLifecycle_ApproveAndRevoke(t *testing.T) {
	e := newTestEngine(t)
	inv := uuid.New()
	shares := uint64(5_000_000_000_000_000_000) // 5 shares, 18 decimals

	if _, err := e.RequestRedeem(scID, assetID, inv, shares); err != nil {
		t.Fatalf("request redeem: %v", err)
	}
	if _, err := e.ApproveRedeems(manager, scID, assetID, 1, shares, priceOne); err != nil {
		t.Fatalf("approve redeems: %v", err)
	}
	if _, err := e.RevokeShares(manager, scID, assetID, 1, navOnePointOne, 1_700_000_000_000_000); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	rec, ok := e.RedeemEpoch(scID, assetID, 1)
	if !ok {
		t.Fatal("redeem epoch record missing")
	}
	// 5 shares at NAV 1.1 = 5.5 pool units = 5.5 USDC at price 1.0.
	if want := uint64(5_500_000_000_000_000_000); rec.ApprovedPoolAmount != want {
		t.Errorf("pool amount: got %d, want %d", rec.ApprovedPoolAmount, want)
	}
	if want := uint64(5_500_000); rec.PayoutAssetAmount != want {
		t.Errorf("asset payout: got %d, want %d", rec.PayoutAssetAmount, want)
	}
	if rec.RevokedAt == 0 {
		t.Error("revocation timestamp missing")
	}
	if got := e.CurrentEpoch(scID, assetID, epoch.TrackRedeemRevoke); got != 2 {
		t.Errorf("revoke counter: got %d, want 2", got)
	}
}

func TestRevokeShares_RequiresApproval(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.RevokeShares(manager, scID, assetID, 1, navOnePointOne, 1); !errors.Is(err, settle.ErrEpochNotFound) {
		t.Errorf("got %v, want ErrEpochNotFound", err)
	}
}

// --- helpers ---

func mustRequestDeposit(t *testing.T, e *settle.Engine, inv uuid.UUID, amount uint64) {
	t.Helper()
	if _, err := e.RequestDeposit(scID, assetID, inv, amount); err != nil {
		t.Fatalf("request deposit: %v", err)
	}
}

func mustApproveDeposits(t *testing.T, e *settle.Engine, epochIdx uint32, amount, price uint64) {
	t.Helper()
	if _, err := e.ApproveDeposits(manager, scID, assetID, epochIdx, amount, price); err != nil {
		t.Fatalf("approve deposits: %v", err)
	}
}

func mustIssueShares(t *testing.T, e *settle.Engine, epochIdx uint32, nav uint64) {
	t.Helper()
	if _, err := e.IssueShares(manager, scID, assetID, epochIdx, nav, 1_700_000_000_000_000); err != nil {
		t.Fatalf("issue shares: %v", err)
	}
}
