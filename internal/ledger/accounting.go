package ledger

import (
	"fmt"
	"math"

	"FundLedger/internal/registry"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultJournalCost is the notification budget consumed per journal entry.
// The cost returned to the settlement caller is journals × unit cost, so the
// relay budget scales with the monetary fan-out of the epoch.
const DefaultJournalCost uint64 = 75_000

// Accounting is the double-entry collaborator behind the settlement engine.
// It turns settlement events into balanced journal batches, applies them to
// the in-memory tracker, and stashes the batches for the processor to emit to
// persistence. Not thread-safe — single-threaded processor only.
type Accounting struct {
	tracker  *BalanceTracker
	unitCost uint64

	sequence  int64
	timestamp int64

	pending []*Batch
	log     zerolog.Logger
}

// AccountingOption configures an Accounting.
type AccountingOption func(*Accounting)

// WithJournalCost overrides the per-journal notification cost.
func WithJournalCost(c uint64) AccountingOption {
	return func(a *Accounting) { a.unitCost = c }
}

func NewAccounting(log zerolog.Logger, opts ...AccountingOption) *Accounting {
	a := &Accounting{
		tracker:  NewBalanceTracker(),
		unitCost: DefaultJournalCost,
		log:      log,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Tracker exposes the balance tracker for queries and snapshotting.
func (a *Accounting) Tracker() *BalanceTracker {
	return a.tracker
}

// SetContext fixes the sequence and versioned timestamp stamped on journals
// produced by the next settlement callback. Called by the processor before
// dispatching each operation; the ledger never reads the wall clock.
func (a *Accounting) SetContext(sequence, timestamp int64) {
	a.sequence = sequence
	a.timestamp = timestamp
}

// TakeBatches drains the batches produced since the last call.
func (a *Accounting) TakeBatches() []*Batch {
	out := a.pending
	a.pending = nil
	return out
}

func (a *Accounting) newBatch(ref string) *Batch {
	return &Batch{
		BatchID:   uuid.New(),
		EventRef:  ref,
		Sequence:  a.sequence,
		Timestamp: a.timestamp,
	}
}

func (a *Accounting) addJournal(b *Batch, debit, credit AccountKey, amount int64, jt JournalType) {
	if amount == 0 {
		return
	}
	b.Journals = append(b.Journals, Journal{
		JournalID:     uuid.New(),
		BatchID:       b.BatchID,
		EventRef:      b.EventRef,
		Sequence:      a.sequence,
		DebitAccount:  debit,
		CreditAccount: credit,
		Unit:          debit.Unit,
		Amount:        amount,
		JournalType:   jt,
		Timestamp:     a.timestamp,
	})
}

func (a *Accounting) commit(b *Batch) (uint64, error) {
	if len(b.Journals) == 0 {
		return 0, nil
	}
	if err := a.tracker.ApplyBatch(b); err != nil {
		return 0, err
	}
	a.pending = append(a.pending, b)

	a.log.Debug().
		Str("event_ref", b.EventRef).
		Int("journals", len(b.Journals)).
		Msg("journal batch applied")
	return uint64(len(b.Journals)) * a.unitCost, nil
}

func toLedgerAmount(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("amount %d exceeds ledger range", v)
	}
	return int64(v), nil
}

// DepositsApproved records approved deposit assets entering the pool from the
// investor boundary.
func (a *Accounting) DepositsApproved(scID registry.ShareClassID, assetID registry.AssetID, epochIdx uint32, assetAmount, poolAmount uint64) (uint64, error) {
	amt, err := toLedgerAmount(assetAmount)
	if err != nil {
		return 0, err
	}

	b := a.newBatch(fmt.Sprintf("deposit_approval:%s:%s:%d", scID, assetID, epochIdx))
	a.addJournal(b,
		NewPoolAccountKey(scID, assetID),
		NewInvestorsBoundaryKey(AssetUnit(assetID)),
		amt, JournalTypeDepositApproval)
	return a.commit(b)
}

// SharesIssued records newly minted shares leaving the supply counter-account
// toward the investor boundary.
func (a *Accounting) SharesIssued(scID registry.ShareClassID, assetID registry.AssetID, epochIdx uint32, shares, poolAmount uint64) (uint64, error) {
	amt, err := toLedgerAmount(shares)
	if err != nil {
		return 0, err
	}

	b := a.newBatch(fmt.Sprintf("share_issuance:%s:%s:%d", scID, assetID, epochIdx))
	a.addJournal(b,
		NewInvestorsBoundaryKey(ShareUnit(scID)),
		NewSupplyKey(scID),
		amt, JournalTypeShareIssuance)
	return a.commit(b)
}

// RedeemsApproved records approved shares moving from the investor boundary
// into escrow, awaiting revocation.
func (a *Accounting) RedeemsApproved(scID registry.ShareClassID, assetID registry.AssetID, epochIdx uint32, shareAmount uint64) (uint64, error) {
	amt, err := toLedgerAmount(shareAmount)
	if err != nil {
		return 0, err
	}

	b := a.newBatch(fmt.Sprintf("redeem_approval:%s:%s:%d", scID, assetID, epochIdx))
	a.addJournal(b,
		NewShareEscrowKey(scID),
		NewInvestorsBoundaryKey(ShareUnit(scID)),
		amt, JournalTypeRedeemApproval)
	return a.commit(b)
}

// SharesRevoked burns the escrowed shares against supply and pays the asset
// amount out of the pool. Fails with ErrNotEnoughToWithdraw if the pool does
// not back the payout.
func (a *Accounting) SharesRevoked(scID registry.ShareClassID, assetID registry.AssetID, epochIdx uint32, shares, poolAmount, assetPayout uint64) (uint64, error) {
	shareAmt, err := toLedgerAmount(shares)
	if err != nil {
		return 0, err
	}
	payout, err := toLedgerAmount(assetPayout)
	if err != nil {
		return 0, err
	}

	if pool := a.tracker.PoolAssets(scID, assetID); pool < payout {
		return 0, fmt.Errorf("%w: pool %s/%s has %d, payout needs %d",
			ErrNotEnoughToWithdraw, scID, assetID, pool, payout)
	}

	b := a.newBatch(fmt.Sprintf("share_revocation:%s:%s:%d", scID, assetID, epochIdx))
	a.addJournal(b,
		NewSupplyKey(scID),
		NewShareEscrowKey(scID),
		shareAmt, JournalTypeShareRevocation)
	a.addJournal(b,
		NewInvestorsBoundaryKey(AssetUnit(assetID)),
		NewPoolAccountKey(scID, assetID),
		payout, JournalTypeRedeemPayout)
	return a.commit(b)
}

// RecordValuation books a mark-to-reference gain or loss for a pair. Positive
// delta increases the gain account, negative delta the loss account, both
// against the investor boundary so every unit stays zero-sum.
func (a *Accounting) RecordValuation(scID registry.ShareClassID, assetID registry.AssetID, delta int64) error {
	if delta == 0 {
		return nil
	}

	b := a.newBatch(fmt.Sprintf("valuation:%s:%s", scID, assetID))
	if delta > 0 {
		a.addJournal(b,
			NewGainKey(scID, assetID),
			NewInvestorsBoundaryKey(AssetUnit(assetID)),
			delta, JournalTypeValuationGain)
	} else {
		a.addJournal(b,
			NewLossKey(scID, assetID),
			NewInvestorsBoundaryKey(AssetUnit(assetID)),
			-delta, JournalTypeValuationLoss)
	}
	_, err := a.commit(b)
	return err
}
