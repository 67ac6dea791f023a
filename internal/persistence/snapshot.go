package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"FundLedger/internal/core"
	"FundLedger/internal/ledger"
	"FundLedger/internal/registry"
	"FundLedger/internal/settle"
)

// SnapshotManager persists and restores full-state snapshots so restarts
// replay only the log tail instead of the whole history.
type SnapshotManager struct {
	db *sql.DB
}

// SnapshotData is the JSON form stored in fund_log.snapshots. Balances are a
// slice because the in-memory map is keyed by a struct.
type SnapshotData struct {
	Sequence        int64            `json:"sequence"`
	StateHash       []byte           `json:"state_hash"`
	Settlement      *settle.Snapshot `json:"settlement"`
	Balances        []BalanceSnap    `json:"balances"`
	SequenceState   map[string]int64 `json:"sequence_state"`
	IdempotencyKeys []string         `json:"idempotency_keys"`
	CreatedAt       time.Time        `json:"created_at"`
}

// BalanceSnap is one ledger account balance in serializable form.
type BalanceSnap struct {
	Scope      uint8  `json:"scope"`
	SubType    uint8  `json:"sub_type"`
	ShareClass string `json:"share_class,omitempty"`
	Asset      string `json:"asset,omitempty"`
	Unit       string `json:"unit"`
	Balance    int64  `json:"balance"`
}

func NewSnapshotManager(db *sql.DB) *SnapshotManager {
	return &SnapshotManager{db: db}
}

// FromCoreState converts the processor's snapshot into its storable form.
func FromCoreState(s *core.SnapshotState) *SnapshotData {
	balances := make([]BalanceSnap, 0, len(s.Balances))
	for key, bal := range s.Balances {
		balances = append(balances, BalanceSnap{
			Scope:      uint8(key.Scope),
			SubType:    uint8(key.SubType),
			ShareClass: string(key.ShareClass),
			Asset:      string(key.Asset),
			Unit:       string(key.Unit),
			Balance:    bal,
		})
	}

	return &SnapshotData{
		Sequence:        s.Sequence,
		StateHash:       s.StateHash[:],
		Settlement:      s.Settlement,
		Balances:        balances,
		SequenceState:   s.SequenceState,
		IdempotencyKeys: s.IdempotencyKeys,
	}
}

// ToCoreState converts a stored snapshot back into processor form.
func (sd *SnapshotData) ToCoreState() (*core.SnapshotState, error) {
	if len(sd.StateHash) != 32 {
		return nil, fmt.Errorf("snapshot state hash has %d bytes, want 32", len(sd.StateHash))
	}

	s := &core.SnapshotState{
		Sequence:        sd.Sequence,
		Settlement:      sd.Settlement,
		Balances:        make(map[ledger.AccountKey]int64, len(sd.Balances)),
		SequenceState:   sd.SequenceState,
		IdempotencyKeys: sd.IdempotencyKeys,
	}
	copy(s.StateHash[:], sd.StateHash)

	for _, b := range sd.Balances {
		key := ledger.AccountKey{
			Scope:      ledger.AccountScope(b.Scope),
			SubType:    ledger.AccountSubType(b.SubType),
			ShareClass: registry.ShareClassID(b.ShareClass),
			Asset:      registry.AssetID(b.Asset),
			Unit:       ledger.Unit(b.Unit),
		}
		s.Balances[key] = b.Balance
	}

	return s, nil
}

// SaveSnapshot writes a snapshot row. Snapshots are written unverified and
// marked verified once a fresh replay confirms the hash chain.
func (sm *SnapshotManager) SaveSnapshot(ctx context.Context, data *SnapshotData) error {
	data.CreatedAt = time.Now().UTC()

	blob, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = sm.db.ExecContext(ctx, `
		INSERT INTO fund_log.snapshots (sequence, state_hash, data, verified, created_at)
		VALUES ($1, $2, $3, false, $4)
		ON CONFLICT (sequence) DO NOTHING`,
		data.Sequence, data.StateHash, blob, data.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// LoadLatestSnapshot returns the newest verified snapshot, or nil when none
// exists and the caller must replay from genesis.
func (sm *SnapshotManager) LoadLatestSnapshot(ctx context.Context) (*SnapshotData, error) {
	var blob []byte
	err := sm.db.QueryRowContext(ctx, `
		SELECT data FROM fund_log.snapshots
		WHERE verified = true
		ORDER BY sequence DESC
		LIMIT 1`,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var data SnapshotData
	if err := json.Unmarshal(blob, &data); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &data, nil
}

// MarkVerified flags a snapshot as safe to restore from.
func (sm *SnapshotManager) MarkVerified(ctx context.Context, sequence int64) error {
	res, err := sm.db.ExecContext(ctx,
		`UPDATE fund_log.snapshots SET verified = true WHERE sequence = $1`,
		sequence,
	)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no snapshot at sequence %d", sequence)
	}
	return nil
}

// LoadOpsFrom streams envelope rows with sequence >= from, in order, for
// replay. The callback returning an error aborts iteration.
func (sm *SnapshotManager) LoadOpsFrom(ctx context.Context, from int64, fn func(OpRow) error) error {
	rows, err := sm.db.QueryContext(ctx, `
		SELECT sequence, op_type, idempotency_key, share_class, asset,
		       payload, state_hash, prev_hash, timestamp, source_sequence
		FROM fund_log.ops
		WHERE sequence >= $1
		ORDER BY sequence ASC`,
		from,
	)
	if err != nil {
		return fmt.Errorf("query ops: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var op OpRow
		if err := rows.Scan(
			&op.Sequence, &op.OpType, &op.IdempotencyKey, &op.ShareClass, &op.Asset,
			&op.Payload, &op.StateHash, &op.PrevHash, &op.Timestamp, &op.SourceSequence,
		); err != nil {
			return fmt.Errorf("scan op row: %w", err)
		}
		if err := fn(op); err != nil {
			return err
		}
	}
	return rows.Err()
}

// GetLatestSequence returns the highest persisted sequence, or -1 on an
// empty log.
func (sm *SnapshotManager) GetLatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := sm.db.QueryRowContext(ctx,
		`SELECT MAX(sequence) FROM fund_log.ops`,
	).Scan(&seq)
	if err != nil {
		return -1, fmt.Errorf("latest sequence: %w", err)
	}
	if !seq.Valid {
		return -1, nil
	}
	return seq.Int64, nil
}

// PruneSnapshots keeps the newest n verified snapshots and drops the rest.
func (sm *SnapshotManager) PruneSnapshots(ctx context.Context, keep int) error {
	_, err := sm.db.ExecContext(ctx, `
		DELETE FROM fund_log.snapshots
		WHERE sequence NOT IN (
			SELECT sequence FROM fund_log.snapshots
			ORDER BY sequence DESC
			LIMIT $1
		)`,
		keep,
	)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
