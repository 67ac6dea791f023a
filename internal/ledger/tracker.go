package ledger

import (
	"errors"
	"fmt"

	"FundLedger/internal/registry"
)

// ErrNotEnoughToWithdraw is returned when a payout would overdraw the pool
// backing account.
var ErrNotEnoughToWithdraw = errors.New("not enough pool assets to withdraw")

// BalanceTracker maintains in-memory account balances.
// Not thread-safe — only accessed from the single-threaded processor.
type BalanceTracker struct {
	balances map[AccountKey]int64
}

func NewBalanceTracker() *BalanceTracker {
	return &BalanceTracker{
		balances: make(map[AccountKey]int64),
	}
}

// ApplyJournal applies a single journal entry to balances.
func (bt *BalanceTracker) ApplyJournal(j Journal) {
	bt.balances[j.DebitAccount] += j.Amount
	bt.balances[j.CreditAccount] -= j.Amount
}

// ApplyBatch validates and applies all journals in a batch.
func (bt *BalanceTracker) ApplyBatch(batch *Batch) error {
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}
	for _, j := range batch.Journals {
		bt.ApplyJournal(j)
	}
	return nil
}

// GetBalance returns the current balance for an account.
func (bt *BalanceTracker) GetBalance(key AccountKey) int64 {
	return bt.balances[key]
}

// PoolAssets returns the asset atoms backing a pair.
func (bt *BalanceTracker) PoolAssets(scID registry.ShareClassID, assetID registry.AssetID) int64 {
	return bt.GetBalance(NewPoolAccountKey(scID, assetID))
}

// OutstandingShares returns the issued share supply of a class. The supply
// counter-account is a liability, so outstanding supply is its negation.
func (bt *BalanceTracker) OutstandingShares(scID registry.ShareClassID) int64 {
	return -bt.GetBalance(NewSupplyKey(scID))
}

// EscrowedShares returns shares locked by approved-but-unrevoked redemptions.
func (bt *BalanceTracker) EscrowedShares(scID registry.ShareClassID) int64 {
	return bt.GetBalance(NewShareEscrowKey(scID))
}

// Equity reports the pair's equity position: pool assets minus accumulated
// valuation loss plus accumulated valuation gain.
func (bt *BalanceTracker) Equity(scID registry.ShareClassID, assetID registry.AssetID) int64 {
	assets := bt.GetBalance(NewPoolAccountKey(scID, assetID))
	loss := bt.GetBalance(NewLossKey(scID, assetID))
	gain := bt.GetBalance(NewGainKey(scID, assetID))
	return assets - loss + gain
}

// ValidateNonNegative checks that an account balance is >= 0.
func (bt *BalanceTracker) ValidateNonNegative(key AccountKey) error {
	if balance := bt.GetBalance(key); balance < 0 {
		return fmt.Errorf("account %s has negative balance: %d", key.AccountPath(), balance)
	}
	return nil
}

// ComputeGlobalBalance sums account balances per unit; every unit must be
// zero for a zero-sum ledger.
func (bt *BalanceTracker) ComputeGlobalBalance() map[Unit]int64 {
	totals := make(map[Unit]int64)
	for key, balance := range bt.balances {
		totals[key.Unit] += balance
	}
	return totals
}

// ValidateGlobalBalance verifies every unit is zero-sum.
func (bt *BalanceTracker) ValidateGlobalBalance() error {
	for unit, total := range bt.ComputeGlobalBalance() {
		if total != 0 {
			return fmt.Errorf("global balance for unit %s is non-zero: %d", unit, total)
		}
	}
	return nil
}

// Snapshot returns a copy of all balances.
func (bt *BalanceTracker) Snapshot() map[AccountKey]int64 {
	out := make(map[AccountKey]int64, len(bt.balances))
	for k, v := range bt.balances {
		out[k] = v
	}
	return out
}

// SetBalance re-seeds one balance during snapshot restore.
func (bt *BalanceTracker) SetBalance(key AccountKey, balance int64) {
	bt.balances[key] = balance
}
