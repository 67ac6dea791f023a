package core

import (
	"FundLedger/internal/ledger"
	"FundLedger/internal/settle"
)

// SnapshotState holds the serializable in-memory state for warm restarts:
// load the latest snapshot, then replay the event log from Sequence+1.
type SnapshotState struct {
	// Sequence of the last processed envelope.
	Sequence  int64
	StateHash [32]byte

	Settlement *settle.Snapshot
	Balances   map[ledger.AccountKey]int64

	SequenceState   map[string]int64
	IdempotencyKeys []string
}

// CreateSnapshotState captures the current in-memory state for persistence.
func (c *Processor) CreateSnapshotState() *SnapshotState {
	return &SnapshotState{
		Sequence:        c.sequence - 1,
		StateHash:       c.hasher.GetPrevHash(),
		Settlement:      c.engine.Snapshot(),
		Balances:        c.acct.Tracker().Snapshot(),
		SequenceState:   c.sequenceValidator.GetAllPartitions(),
		IdempotencyKeys: c.idempotency.lru.GetAllKeys(),
	}
}

// RestoreFromSnapshot restores the processor's in-memory state.
func (c *Processor) RestoreFromSnapshot(snap *SnapshotState) error {
	c.sequence = snap.Sequence + 1
	c.hasher.SetPrevHash(snap.StateHash)

	if snap.Settlement != nil {
		if err := c.engine.RestoreSnapshot(snap.Settlement); err != nil {
			return err
		}
	}

	tracker := c.acct.Tracker()
	for key, balance := range snap.Balances {
		tracker.SetBalance(key, balance)
	}

	for partition, nextSeq := range snap.SequenceState {
		c.sequenceValidator.RestorePartition(partition, nextSeq)
	}

	return nil
}

// WarmLRU loads recent idempotency keys so replayed operations dedup without
// touching the database.
func (c *Processor) WarmLRU(keys []string) {
	c.idempotency.lru.WarmFromKeys(keys)
}
