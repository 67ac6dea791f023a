package settle

import (
	"fmt"

	"FundLedger/internal/orders"
	"FundLedger/internal/pricing"
	"FundLedger/internal/registry"

	"github.com/google/uuid"
)

// ClaimResult is what one claim call produced. Payout is share-denominated
// for deposits and asset-denominated for redeems; TotalConsumed is the
// opposite denomination. CanClaimAgain is true whenever unconsumed epochs
// remain, either because settlement has not caught up with every epoch the
// order spans or because the per-call replay cap truncated the walk.
type ClaimResult struct {
	Payout        uint64 `json:"payout"`
	TotalConsumed uint64 `json:"total_consumed"`
	Cancelled     uint64 `json:"cancelled"`
	CanClaimAgain bool   `json:"can_claim_again"`
}

// ClaimNotice is a claim result parked for the notification relay. Repeated
// claims before the relay picks it up accumulate into one notice.
type ClaimNotice struct {
	Key      orders.Key `json:"key"`
	Payout   uint64     `json:"payout"`
	Consumed uint64     `json:"consumed"`
}

// CancelNotice is a cancellation result parked for the notification relay.
type CancelNotice struct {
	Key    orders.Key `json:"key"`
	Amount uint64     `json:"amount"`
}

// ClaimDeposit replays the investor's unclaimed deposit epochs in order,
// paying out the pro-rata share of each epoch's issuance, then folds any
// queued order in. See ClaimResult for the meaning of the return values.
func (e *Engine) ClaimDeposit(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID) (ClaimResult, error) {
	return e.claim(orders.Key{ShareClass: scID, Asset: assetID, Investor: investor, Direction: orders.DirectionDeposit})
}

// ClaimRedeem is the redeem-side analog of ClaimDeposit.
func (e *Engine) ClaimRedeem(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID) (ClaimResult, error) {
	return e.claim(orders.Key{ShareClass: scID, Asset: assetID, Investor: investor, Direction: orders.DirectionRedeem})
}

func (e *Engine) claim(k orders.Key) (ClaimResult, error) {
	if err := e.checkPair(k.ShareClass, k.Asset); err != nil {
		return ClaimResult{}, err
	}

	o := e.book.Order(k)
	q := e.book.Queued(k)

	// One past the latest epoch with a recorded issuance/revocation.
	nextUnsettled := e.seq.Current(k.ShareClass, k.Asset, settleTrack(k.Direction))

	if o.Pending == 0 && q.Amount == 0 && !q.IsCancelling {
		return ClaimResult{}, fmt.Errorf("%w: %s/%s", ErrNoOrderFound, k.Investor, k.Direction)
	}
	if o.Pending > 0 && o.LastUpdateEpoch >= nextUnsettled {
		if k.Direction == orders.DirectionRedeem {
			return ClaimResult{}, fmt.Errorf("%w: %s/%s", ErrRevocationRequired, k.Investor, k.Direction)
		}
		return ClaimResult{}, fmt.Errorf("%w: %s/%s", ErrIssuanceRequired, k.Investor, k.Direction)
	}

	assetDec, _ := e.reg.AssetDecimals(k.Asset)
	poolDec, _ := e.reg.PoolDecimals(k.ShareClass)

	var res ClaimResult
	steps := uint32(0)
	for ep := o.LastUpdateEpoch; ep < nextUnsettled && steps < e.maxEpochsPerClaim; ep++ {
		// Each claimant walks each epoch exactly once, so drawing down the
		// record's allocation here keeps per-epoch consumption summing to
		// exactly the approved amount across the cohort.
		var payout, consumed uint64
		switch k.Direction {
		case orders.DirectionRedeem:
			rec, ok := e.redeem[epochKey{k.ShareClass, k.Asset, ep}]
			if !ok {
				panic(fmt.Sprintf("FATAL: missing redeem epoch record %s/%s/%d", k.ShareClass, k.Asset, ep))
			}
			consumed = rec.Consume(o.Pending)
			payout = pricing.SharesToAsset(consumed, rec.PricePoolPerAsset, rec.NavPoolPerShare,
				assetDec, poolDec, pricing.RoundDown)
		default:
			rec, ok := e.invest[epochKey{k.ShareClass, k.Asset, ep}]
			if !ok {
				panic(fmt.Sprintf("FATAL: missing deposit epoch record %s/%s/%d", k.ShareClass, k.Asset, ep))
			}
			consumed = rec.Consume(o.Pending)
			payout = pricing.AssetToShares(consumed, rec.PricePoolPerAsset, rec.NavPoolPerShare,
				assetDec, poolDec, pricing.RoundDown)
		}

		if consumed > 0 {
			res.Payout += payout
			res.TotalConsumed += consumed
			o.Pending -= consumed
		}
		steps++
		o.LastUpdateEpoch = ep + 1

		if o.Pending == 0 {
			// No further exposure; skip the remaining settled epochs.
			o.LastUpdateEpoch = nextUnsettled
			break
		}
	}

	res.CanClaimAgain = o.Pending > 0 && o.LastUpdateEpoch < nextUnsettled

	if !res.CanClaimAgain {
		e.foldQueue(k, o, q, &res)
	}
	if res.Payout > 0 || res.TotalConsumed > 0 {
		e.parkClaim(k, res.Payout, res.TotalConsumed)
	}

	e.log.Debug().
		Str("share_class", string(k.ShareClass)).
		Str("asset", string(k.Asset)).
		Str("investor", k.Investor.String()).
		Str("direction", k.Direction.String()).
		Uint64("payout", res.Payout).
		Uint64("consumed", res.TotalConsumed).
		Uint64("cancelled", res.Cancelled).
		Bool("can_claim_again", res.CanClaimAgain).
		Msg("claim processed")
	return res, nil
}

// foldQueue applies queued intent once the order is fully caught up. A queued
// cancellation drains the residual pending plus the queued amount; a queued
// increase becomes live pending at the current epoch. If approvals ran ahead
// of settlement the order is still locked and the queue is carried forward.
func (e *Engine) foldQueue(k orders.Key, o *orders.UserOrder, q *orders.QueuedOrder, res *ClaimResult) {
	cur := e.seq.Current(k.ShareClass, k.Asset, approveTrack(k.Direction))
	if !orders.Mutable(o, cur) {
		return
	}

	if q.IsCancelling {
		res.Cancelled = o.Pending + q.Amount
		e.book.SubPending(k.ShareClass, k.Asset, k.Direction, o.Pending)
		o.Pending = 0
		o.LastUpdateEpoch = cur
		q.Amount = 0
		q.IsCancelling = false
		e.book.ClearForceCancel(k)
		if res.Cancelled > 0 {
			e.parkCancel(k, res.Cancelled)
		}
		return
	}

	if q.Amount > 0 {
		if err := e.book.AddPending(k.ShareClass, k.Asset, k.Direction, q.Amount); err != nil {
			// The aggregate cannot absorb the increase yet; keep it queued
			// until pending drains.
			e.log.Warn().Err(err).
				Str("investor", k.Investor.String()).
				Str("direction", k.Direction.String()).
				Msg("queued increase carried")
			return
		}
		o.Pending += q.Amount
		o.LastUpdateEpoch = cur
		q.Amount = 0
	}
}

// --- Parked notices ---

func (e *Engine) parkClaim(k orders.Key, payout, consumed uint64) {
	n, ok := e.claims[k]
	if !ok {
		n = &ClaimNotice{Key: k}
		e.claims[k] = n
	}
	n.Payout += payout
	n.Consumed += consumed
}

func (e *Engine) parkCancel(k orders.Key, amount uint64) {
	n, ok := e.cancels[k]
	if !ok {
		n = &CancelNotice{Key: k}
		e.cancels[k] = n
	}
	n.Amount += amount
}

// ClaimNoticeFor returns the parked claim result for an investor, or
// ErrNoOrderFound when nothing is parked.
func (e *Engine) ClaimNoticeFor(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID, dir orders.Direction) (ClaimNotice, error) {
	k := orders.Key{ShareClass: scID, Asset: assetID, Investor: investor, Direction: dir}
	n, ok := e.claims[k]
	if !ok {
		return ClaimNotice{}, fmt.Errorf("%w: no unclaimed %s result for %s", ErrNoOrderFound, dir, investor)
	}
	return *n, nil
}

// AckClaimNotice discards a parked claim result after the relay delivered it.
func (e *Engine) AckClaimNotice(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID, dir orders.Direction) {
	delete(e.claims, orders.Key{ShareClass: scID, Asset: assetID, Investor: investor, Direction: dir})
}

// CancelNoticeFor returns the parked cancellation for an investor, or
// ErrNoUnclaimedCancellation when nothing is parked.
func (e *Engine) CancelNoticeFor(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID, dir orders.Direction) (CancelNotice, error) {
	k := orders.Key{ShareClass: scID, Asset: assetID, Investor: investor, Direction: dir}
	n, ok := e.cancels[k]
	if !ok {
		return CancelNotice{}, fmt.Errorf("%w: %s/%s", ErrNoUnclaimedCancellation, investor, dir)
	}
	return *n, nil
}

// AckCancelNotice discards a parked cancellation after the relay delivered it.
func (e *Engine) AckCancelNotice(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID, dir orders.Direction) {
	delete(e.cancels, orders.Key{ShareClass: scID, Asset: assetID, Investor: investor, Direction: dir})
}
