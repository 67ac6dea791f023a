package settle

import (
	"fmt"
	"strconv"
	"strings"

	"FundLedger/internal/epoch"
	"FundLedger/internal/orders"
	"FundLedger/internal/registry"
)

// Snapshot is the full serializable engine state. Map keys are
// "shareClass:asset:track", "shareClass:asset:direction" and
// "shareClass:asset:epoch" respectively; identifiers must not contain colons.
type Snapshot struct {
	Counters map[string]uint32             `json:"counters"`
	Orders   []orders.OrderSnapshot        `json:"orders"`
	Totals   map[string]uint64             `json:"totals"`
	Invest   map[string]EpochInvestAmounts `json:"invest_epochs"`
	Redeem   map[string]EpochRedeemAmounts `json:"redeem_epochs"`
	Claims   []ClaimNotice                 `json:"claim_notices"`
	Cancels  []CancelNotice                `json:"cancel_notices"`
}

func epochMapKey(k epochKey) string {
	return fmt.Sprintf("%s:%s:%d", k.shareClass, k.asset, k.index)
}

func parseEpochMapKey(s string) (epochKey, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return epochKey{}, fmt.Errorf("malformed epoch key %q", s)
	}
	idx, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return epochKey{}, fmt.Errorf("malformed epoch key %q: %w", s, err)
	}
	return epochKey{
		shareClass: registry.ShareClassID(parts[0]),
		asset:      registry.AssetID(parts[1]),
		index:      uint32(idx),
	}, nil
}

// Snapshot captures the complete engine state for persistence.
func (e *Engine) Snapshot() *Snapshot {
	s := &Snapshot{
		Counters: e.seq.Snapshot(),
		Orders:   e.book.Snapshot(),
		Totals:   e.book.TotalsSnapshot(),
		Invest:   make(map[string]EpochInvestAmounts, len(e.invest)),
		Redeem:   make(map[string]EpochRedeemAmounts, len(e.redeem)),
	}
	for k, rec := range e.invest {
		s.Invest[epochMapKey(k)] = *rec
	}
	for k, rec := range e.redeem {
		s.Redeem[epochMapKey(k)] = *rec
	}
	for _, n := range e.claims {
		s.Claims = append(s.Claims, *n)
	}
	for _, n := range e.cancels {
		s.Cancels = append(s.Cancels, *n)
	}
	return s
}

// RestoreSnapshot re-seeds a fresh engine from a snapshot. Must be called
// before any operation is applied.
func (e *Engine) RestoreSnapshot(s *Snapshot) error {
	for key, value := range s.Counters {
		parts := strings.Split(key, ":")
		if len(parts) != 3 {
			return fmt.Errorf("malformed counter key %q", key)
		}
		track, err := epoch.ParseTrack(parts[2])
		if err != nil {
			return fmt.Errorf("counter key %q: %w", key, err)
		}
		e.seq.Restore(registry.ShareClassID(parts[0]), registry.AssetID(parts[1]), track, value)
	}

	for _, o := range s.Orders {
		e.book.Restore(o)
	}

	for key, total := range s.Totals {
		parts := strings.Split(key, ":")
		if len(parts) != 3 {
			return fmt.Errorf("malformed total key %q", key)
		}
		dir, err := orders.ParseDirection(parts[2])
		if err != nil {
			return fmt.Errorf("total key %q: %w", key, err)
		}
		e.book.RestoreTotal(registry.ShareClassID(parts[0]), registry.AssetID(parts[1]), dir, total)
	}

	for key, rec := range s.Invest {
		k, err := parseEpochMapKey(key)
		if err != nil {
			return err
		}
		cp := rec
		e.invest[k] = &cp
	}
	for key, rec := range s.Redeem {
		k, err := parseEpochMapKey(key)
		if err != nil {
			return err
		}
		cp := rec
		e.redeem[k] = &cp
	}

	for _, n := range s.Claims {
		cp := n
		e.claims[n.Key] = &cp
	}
	for _, n := range s.Cancels {
		cp := n
		e.cancels[n.Key] = &cp
	}
	return nil
}
