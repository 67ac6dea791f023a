package core_test

import (
	"errors"
	"testing"

	"FundLedger/internal/core"
	"FundLedger/internal/event"
	"FundLedger/internal/ledger"
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

	priceOne       = uint64(1_000_000_000_000_000_000)
	navOnePointOne = uint64(1_100_000_000_000_000_000)
	tenUSDC        = uint64(10_000_000)
)

type testCore struct {
	proc    *core.Processor
	acct    *ledger.Accounting
	persist chan core.CoreOutput
	proj    chan core.CoreOutput
}

func newTestCore(t *testing.T) *testCore {
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

	acct := ledger.NewAccounting(zerolog.Nop())
	engine := settle.NewEngine(reg, acct, zerolog.Nop())

	persist := make(chan core.CoreOutput, 1024)
	proj := make(chan core.CoreOutput, 1024)
	proc := core.NewProcessor(0, engine, acct, persist, proj, nil, nil, zerolog.Nop())

	return &testCore{proc: proc, acct: acct, persist: persist, proj: proj}
}

func requestDeposit(investor uuid.UUID, amount uint64, seq int64) *event.RequestDeposit {
	return &event.RequestDeposit{
		RequestID:  uuid.New(),
		ShareClass: scID,
		Asset:      assetID,
		Investor:   investor,
		Amount:     amount,
		Sequence:   seq,
		Timestamp:  1_000_000 + seq*1000,
	}
}

func approveDeposits(epoch uint32, amount, price uint64) *event.ApproveDeposits {
	return &event.ApproveDeposits{
		RequestID:  uuid.New(),
		Caller:     manager,
		ShareClass: scID,
		Asset:      assetID,
		Epoch:      epoch,
		Amount:     amount,
		Price:      price,
		Timestamp:  2_000_000,
	}
}

func issueShares(epoch uint32, nav uint64) *event.IssueShares {
	return &event.IssueShares{
		RequestID:  uuid.New(),
		Caller:     manager,
		ShareClass: scID,
		Asset:      assetID,
		Epoch:      epoch,
		Nav:        nav,
		Timestamp:  3_000_000,
	}
}

func claimDeposit(investor uuid.UUID, seq int64) *event.ClaimDeposit {
	return &event.ClaimDeposit{
		RequestID:  uuid.New(),
		ShareClass: scID,
		Asset:      assetID,
		Investor:   investor,
		Sequence:   seq,
		Timestamp:  4_000_000 + seq*1000,
	}
}

func drainOutputs(ch chan core.CoreOutput) []core.CoreOutput {
	var out []core.CoreOutput
	for {
		select {
		case o := <-ch:
			out = append(out, o)
		default:
			return out
		}
	}
}

func TestProcessDepositLifecycle(t *testing.T) {
	tc := newTestCore(t)
	inv := uuid.New()

	res, err := tc.proc.Process(requestDeposit(inv, tenUSDC, 0))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if res.Queued {
		t.Error("first request should not queue")
	}

	res, err = tc.proc.Process(approveDeposits(1, tenUSDC, priceOne))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.Cost == 0 {
		t.Error("approve cost = 0, want journal cost")
	}

	if _, err := tc.proc.Process(issueShares(1, navOnePointOne)); err != nil {
		t.Fatalf("issue: %v", err)
	}

	res, err = tc.proc.Process(claimDeposit(inv, 1))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.Claim == nil {
		t.Fatal("claim result missing")
	}
	if got := res.Claim.Payout; got != 9_090_909_090_909_090_909 {
		t.Errorf("claim payout = %d, want 9090909090909090909", got)
	}
	if got := res.Claim.TotalConsumed; got != tenUSDC {
		t.Errorf("claim consumed = %d, want %d", got, tenUSDC)
	}

	// Ledger followed along: pool holds the approved assets, supply matches
	// the issued shares.
	if got := tc.acct.Tracker().PoolAssets(scID, assetID); got != int64(tenUSDC) {
		t.Errorf("pool assets = %d, want %d", got, tenUSDC)
	}
	if got := tc.acct.Tracker().OutstandingShares(scID); got != 9_090_909_090_909_090_909 {
		t.Errorf("outstanding shares = %d, want 9090909090909090909", got)
	}
}

func TestProcessEmitsChainedEnvelopes(t *testing.T) {
	tc := newTestCore(t)
	inv := uuid.New()

	ops := []event.Operation{
		requestDeposit(inv, tenUSDC, 0),
		approveDeposits(1, tenUSDC, priceOne),
		issueShares(1, navOnePointOne),
	}
	for _, op := range ops {
		if _, err := tc.proc.Process(op); err != nil {
			t.Fatalf("process %s: %v", op.Type(), err)
		}
	}

	outputs := drainOutputs(tc.persist)
	if got := len(outputs); got != 3 {
		t.Fatalf("persist outputs = %d, want 3", got)
	}

	var zero [32]byte
	for i, out := range outputs {
		env := out.Envelope
		if env.Sequence != int64(i) {
			t.Errorf("envelope %d sequence = %d", i, env.Sequence)
		}
		if env.StateHash == zero {
			t.Errorf("envelope %d has zero state hash", i)
		}
		if len(env.Payload) == 0 {
			t.Errorf("envelope %d has empty payload", i)
		}
		if i > 0 && env.PrevHash != outputs[i-1].Envelope.StateHash {
			t.Errorf("envelope %d prev hash does not chain", i)
		}
	}

	// Request mutates no balances; approve and issue each produce one batch.
	if got := len(outputs[0].Batches); got != 0 {
		t.Errorf("request batches = %d, want 0", got)
	}
	if got := len(outputs[1].Batches); got != 1 {
		t.Errorf("approve batches = %d, want 1", got)
	}
	if got := len(outputs[2].Batches); got != 1 {
		t.Errorf("issue batches = %d, want 1", got)
	}
}

func TestProcessRejectsDuplicate(t *testing.T) {
	tc := newTestCore(t)
	op := requestDeposit(uuid.New(), tenUSDC, 0)

	if _, err := tc.proc.Process(op); err != nil {
		t.Fatalf("first: %v", err)
	}

	// Same request id, redelivered with the same source sequence.
	_, err := tc.proc.Process(op)
	if !errors.Is(err, core.ErrDuplicateOperation) {
		t.Fatalf("err = %v, want ErrDuplicateOperation", err)
	}

	if got := len(drainOutputs(tc.persist)); got != 1 {
		t.Errorf("persist outputs = %d, want 1 (duplicate must not emit)", got)
	}
}

func TestProcessRejectsSequenceGap(t *testing.T) {
	tc := newTestCore(t)

	if _, err := tc.proc.Process(requestDeposit(uuid.New(), tenUSDC, 0)); err != nil {
		t.Fatalf("seq 0: %v", err)
	}
	if _, err := tc.proc.Process(requestDeposit(uuid.New(), tenUSDC, 5)); err == nil {
		t.Fatal("gap accepted, want error")
	}
	// The gap did not consume a sequence; 1 is still next.
	if _, err := tc.proc.Process(requestDeposit(uuid.New(), tenUSDC, 1)); err != nil {
		t.Fatalf("seq 1 after gap: %v", err)
	}
}

func TestProcessRejectsOutOfOrderNewOperation(t *testing.T) {
	tc := newTestCore(t)

	if _, err := tc.proc.Process(requestDeposit(uuid.New(), tenUSDC, 0)); err != nil {
		t.Fatalf("seq 0: %v", err)
	}
	if _, err := tc.proc.Process(requestDeposit(uuid.New(), tenUSDC, 1)); err != nil {
		t.Fatalf("seq 1: %v", err)
	}

	// A new (never seen) operation with a stale sequence is an error.
	if _, err := tc.proc.Process(requestDeposit(uuid.New(), tenUSDC, 0)); err == nil {
		t.Fatal("stale new operation accepted, want error")
	}
}

func TestOperatorOpsSkipSequenceValidation(t *testing.T) {
	tc := newTestCore(t)
	inv := uuid.New()

	if _, err := tc.proc.Process(requestDeposit(inv, tenUSDC, 0)); err != nil {
		t.Fatalf("request: %v", err)
	}
	// Operator calls carry no source sequence; several in a row must not
	// disturb the spoke partition.
	if _, err := tc.proc.Process(approveDeposits(1, tenUSDC, priceOne)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := tc.proc.Process(issueShares(1, navOnePointOne)); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := tc.proc.Process(requestDeposit(inv, tenUSDC, 1)); err != nil {
		t.Fatalf("request seq 1 after operator ops: %v", err)
	}
}

func TestProcessRejectedOperationEmitsNothing(t *testing.T) {
	tc := newTestCore(t)

	// Approving with nothing pending fails inside the engine.
	if _, err := tc.proc.Process(approveDeposits(1, tenUSDC, priceOne)); err == nil {
		t.Fatal("approve with no pending accepted, want error")
	}

	if got := len(drainOutputs(tc.persist)); got != 0 {
		t.Errorf("persist outputs = %d, want 0", got)
	}
	if got := tc.proc.GetSequence(); got != 0 {
		t.Errorf("sequence = %d, want 0 (rejected op must not advance)", got)
	}
}

func TestSnapshotRestoreResumesProcessing(t *testing.T) {
	tc := newTestCore(t)
	inv := uuid.New()

	if _, err := tc.proc.Process(requestDeposit(inv, tenUSDC, 0)); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := tc.proc.Process(approveDeposits(1, tenUSDC, priceOne)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := tc.proc.Process(issueShares(1, navOnePointOne)); err != nil {
		t.Fatalf("issue: %v", err)
	}

	snap := tc.proc.CreateSnapshotState()
	if snap.Sequence != 2 {
		t.Errorf("snapshot sequence = %d, want 2", snap.Sequence)
	}

	restored := newTestCore(t)
	if err := restored.proc.RestoreFromSnapshot(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	restored.proc.WarmLRU(snap.IdempotencyKeys)

	if got := restored.proc.GetSequence(); got != 3 {
		t.Errorf("restored sequence = %d, want 3", got)
	}
	if restored.proc.GetStateHash() != tc.proc.GetStateHash() {
		t.Error("restored state hash differs from original")
	}
	if got := restored.acct.Tracker().PoolAssets(scID, assetID); got != int64(tenUSDC) {
		t.Errorf("restored pool assets = %d, want %d", got, tenUSDC)
	}

	// The restored processor settles the claim exactly as the original would.
	res, err := restored.proc.Process(claimDeposit(inv, 1))
	if err != nil {
		t.Fatalf("claim on restored: %v", err)
	}
	if got := res.Claim.Payout; got != 9_090_909_090_909_090_909 {
		t.Errorf("restored claim payout = %d, want 9090909090909090909", got)
	}
}

func TestIdenticalInputsProduceIdenticalHashChains(t *testing.T) {
	run := func() [32]byte {
		tc := newTestCore(t)
		inv := uuid.MustParse("11111111-2222-3333-4444-555555555555")

		ops := []event.Operation{
			&event.RequestDeposit{
				RequestID:  uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001"),
				ShareClass: scID, Asset: assetID, Investor: inv,
				Amount: tenUSDC, Sequence: 0, Timestamp: 1_000_000,
			},
			&event.ApproveDeposits{
				RequestID:  uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002"),
				Caller:     manager,
				ShareClass: scID, Asset: assetID,
				Epoch: 1, Amount: tenUSDC, Price: priceOne, Timestamp: 2_000_000,
			},
			&event.IssueShares{
				RequestID:  uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000003"),
				Caller:     manager,
				ShareClass: scID, Asset: assetID,
				Epoch: 1, Nav: navOnePointOne, Timestamp: 3_000_000,
			},
		}
		for _, op := range ops {
			if _, err := tc.proc.Process(op); err != nil {
				t.Fatalf("process %s: %v", op.Type(), err)
			}
		}
		return tc.proc.GetStateHash()
	}

	if run() != run() {
		t.Error("identical inputs produced different state hashes")
	}
}

func TestIdempotencyLRUEviction(t *testing.T) {
	lru := core.NewIdempotencyLRU(2)
	lru.Add("a")
	lru.Add("b")
	lru.Add("c")

	if lru.Contains("a") {
		t.Error("oldest key survived eviction")
	}
	if !lru.Contains("b") || !lru.Contains("c") {
		t.Error("recent keys evicted")
	}
	if got := lru.Evictions(); got != 1 {
		t.Errorf("evictions = %d, want 1", got)
	}
}

func TestSequenceValidatorPartitionsAreIndependent(t *testing.T) {
	sv := core.NewSequenceValidator()

	if err := sv.ValidateSequence("SC-1:USDC", 0, false); err != nil {
		t.Fatalf("partition 1 seq 0: %v", err)
	}
	if err := sv.ValidateSequence("SC-2:DAI", 0, false); err != nil {
		t.Fatalf("partition 2 seq 0: %v", err)
	}
	if err := sv.ValidateSequence("SC-1:USDC", 1, false); err != nil {
		t.Fatalf("partition 1 seq 1: %v", err)
	}
	if got := sv.GetExpectedSequence("SC-2:DAI"); got != 1 {
		t.Errorf("partition 2 expected = %d, want 1", got)
	}
}
