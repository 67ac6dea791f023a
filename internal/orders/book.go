package orders

import (
	"errors"
	"fmt"
	"math"

	"FundLedger/internal/epoch"
	"FundLedger/internal/registry"

	"github.com/google/uuid"
)

// ErrPendingOverflow rejects an increase that would wrap an aggregate pending
// total past the uint64 range.
var ErrPendingOverflow = errors.New("pending total overflow")

// Direction distinguishes the deposit (asset→share) and redeem (share→asset)
// sides. Deposit orders are asset-denominated, redeem orders are
// share-denominated.
type Direction uint8

const (
	DirectionDeposit Direction = iota
	DirectionRedeem
)

func (d Direction) String() string {
	if d == DirectionRedeem {
		return "redeem"
	}
	return "deposit"
}

// ParseDirection is the inverse of Direction.String.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "deposit":
		return DirectionDeposit, nil
	case "redeem":
		return DirectionRedeem, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

// UserOrder is one investor's pending amount on one side of one
// (share class, asset) pair. LastUpdateEpoch is the first approval epoch the
// pending amount has not yet been accounted through; it never exceeds the
// current approval counter for its track.
type UserOrder struct {
	Pending         uint64
	LastUpdateEpoch uint32
}

// QueuedOrder holds intent submitted while the investor's current order is
// locked inside an approved-but-unclaimed epoch. At most one exists per
// investor per direction.
type QueuedOrder struct {
	IsCancelling bool
	Amount       uint64
}

// Key identifies one investor order.
type Key struct {
	ShareClass registry.ShareClassID
	Asset      registry.AssetID
	Investor   uuid.UUID
	Direction  Direction
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", k.ShareClass, k.Asset, k.Investor, k.Direction)
}

type totalKey struct {
	shareClass registry.ShareClassID
	asset      registry.AssetID
	direction  Direction
}

// Book is the request ledger: per-investor orders and queues plus the
// aggregate pending totals per (share class, asset, direction). Orders are
// created implicitly on first access and never deleted — a zero-pending order
// is the terminal, reusable state.
// Not thread-safe — only accessed from the single-threaded engine.
type Book struct {
	orders      map[Key]*UserOrder
	queued      map[Key]*QueuedOrder
	totals      map[totalKey]uint64
	forceCancel map[Key]bool
}

func NewBook() *Book {
	return &Book{
		orders:      make(map[Key]*UserOrder),
		queued:      make(map[Key]*QueuedOrder),
		totals:      make(map[totalKey]uint64),
		forceCancel: make(map[Key]bool),
	}
}

// Order returns the investor's order, creating the zero order on first use.
func (b *Book) Order(k Key) *UserOrder {
	if o, ok := b.orders[k]; ok {
		return o
	}
	o := &UserOrder{}
	b.orders[k] = o
	return o
}

// Queued returns the investor's queued order, creating it if absent.
func (b *Book) Queued(k Key) *QueuedOrder {
	if q, ok := b.queued[k]; ok {
		return q
	}
	q := &QueuedOrder{}
	b.queued[k] = q
	return q
}

// Mutable reports whether the order may be mutated directly, bypassing the
// queue: the approval counter is still at its initial value, or the order has
// no pending amount, or the order has not yet been swept into an unclaimed
// in-flight epoch. This rule is what keeps a late request from retroactively
// altering an already-approved aggregate.
func Mutable(o *UserOrder, currentApproveEpoch uint32) bool {
	return currentApproveEpoch == epoch.InitialEpoch ||
		o.Pending == 0 ||
		o.LastUpdateEpoch >= currentApproveEpoch
}

// Pending returns the aggregate pending total for one side of a pair.
func (b *Book) Pending(scID registry.ShareClassID, assetID registry.AssetID, dir Direction) uint64 {
	return b.totals[totalKey{scID, assetID, dir}]
}

// AddPending increases the aggregate pending total. An increase that would
// wrap the counter is refused with ErrPendingOverflow and nothing changes.
func (b *Book) AddPending(scID registry.ShareClassID, assetID registry.AssetID, dir Direction, amount uint64) error {
	k := totalKey{scID, assetID, dir}
	cur := b.totals[k]
	if amount > math.MaxUint64-cur {
		return fmt.Errorf("%w: %s/%s/%s: have=%d add=%d", ErrPendingOverflow, scID, assetID, dir, cur, amount)
	}
	b.totals[k] = cur + amount
	return nil
}

// SubPending decreases the aggregate pending total. Underflow means a
// bookkeeping invariant was broken upstream and panics.
func (b *Book) SubPending(scID registry.ShareClassID, assetID registry.AssetID, dir Direction, amount uint64) {
	k := totalKey{scID, assetID, dir}
	cur := b.totals[k]
	if amount > cur {
		panic(fmt.Sprintf("FATAL: pending underflow for %s/%s/%s: have=%d sub=%d",
			scID, assetID, dir, cur, amount))
	}
	b.totals[k] = cur - amount
}

// ForceCancelAllowed reports whether the force-cancel flag is armed.
func (b *Book) ForceCancelAllowed(k Key) bool {
	return b.forceCancel[k]
}

// ArmForceCancel sets the force-cancel flag. Idempotent: re-arming an armed
// flag is a no-op, and only ClearForceCancel (driven by a claim that drains
// the cancellation) resets it.
func (b *Book) ArmForceCancel(k Key) {
	b.forceCancel[k] = true
}

// ClearForceCancel resets the force-cancel flag.
func (b *Book) ClearForceCancel(k Key) {
	delete(b.forceCancel, k)
}

// --- Snapshot support ---

// OrderSnapshot is the serializable state of one order slot.
type OrderSnapshot struct {
	Key              Key
	Pending          uint64
	LastUpdateEpoch  uint32
	QueuedAmount     uint64
	QueuedCancelling bool
	ForceCancel      bool
}

// Snapshot captures every non-empty order slot.
func (b *Book) Snapshot() []OrderSnapshot {
	seen := make(map[Key]bool, len(b.orders))
	var out []OrderSnapshot

	collect := func(k Key) {
		if seen[k] {
			return
		}
		seen[k] = true
		s := OrderSnapshot{Key: k, ForceCancel: b.forceCancel[k]}
		if o, ok := b.orders[k]; ok {
			s.Pending = o.Pending
			s.LastUpdateEpoch = o.LastUpdateEpoch
		}
		if q, ok := b.queued[k]; ok {
			s.QueuedAmount = q.Amount
			s.QueuedCancelling = q.IsCancelling
		}
		out = append(out, s)
	}

	for k := range b.orders {
		collect(k)
	}
	for k := range b.queued {
		collect(k)
	}
	for k := range b.forceCancel {
		collect(k)
	}
	return out
}

// TotalsSnapshot copies the aggregate pending totals.
func (b *Book) TotalsSnapshot() map[string]uint64 {
	out := make(map[string]uint64, len(b.totals))
	for k, v := range b.totals {
		out[fmt.Sprintf("%s:%s:%s", k.shareClass, k.asset, k.direction)] = v
	}
	return out
}

// Restore re-seeds one order slot from a snapshot.
func (b *Book) Restore(s OrderSnapshot) {
	b.orders[s.Key] = &UserOrder{Pending: s.Pending, LastUpdateEpoch: s.LastUpdateEpoch}
	if s.QueuedAmount > 0 || s.QueuedCancelling {
		b.queued[s.Key] = &QueuedOrder{Amount: s.QueuedAmount, IsCancelling: s.QueuedCancelling}
	}
	if s.ForceCancel {
		b.forceCancel[s.Key] = true
	}
}

// RestoreTotal re-seeds one aggregate pending total.
func (b *Book) RestoreTotal(scID registry.ShareClassID, assetID registry.AssetID, dir Direction, total uint64) {
	b.totals[totalKey{scID, assetID, dir}] = total
}

// SumPending recomputes the aggregate for one side from individual orders.
// Used by the invariant check that the tracked total equals the sum of user
// pendings whenever no approval or claim is in flight.
func (b *Book) SumPending(scID registry.ShareClassID, assetID registry.AssetID, dir Direction) uint64 {
	var sum uint64
	for k, o := range b.orders {
		if k.ShareClass == scID && k.Asset == assetID && k.Direction == dir {
			sum += o.Pending
		}
	}
	return sum
}
