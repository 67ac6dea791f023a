package settle

import (
	"fmt"
	"math"

	"FundLedger/internal/epoch"
	"FundLedger/internal/orders"
	"FundLedger/internal/pricing"
	"FundLedger/internal/registry"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Accounting is the double-entry ledger collaborator. The engine calls it
// after validating an operation and before mutating its own state; a non-nil
// error aborts the whole operation with every ledger unchanged. The returned
// cost is the resource budget the notification layer will need to relay this
// epoch's results.
type Accounting interface {
	DepositsApproved(scID registry.ShareClassID, assetID registry.AssetID, epochIdx uint32, assetAmount, poolAmount uint64) (cost uint64, err error)
	SharesIssued(scID registry.ShareClassID, assetID registry.AssetID, epochIdx uint32, shares, poolAmount uint64) (cost uint64, err error)
	RedeemsApproved(scID registry.ShareClassID, assetID registry.AssetID, epochIdx uint32, shareAmount uint64) (cost uint64, err error)
	SharesRevoked(scID registry.ShareClassID, assetID registry.AssetID, epochIdx uint32, shares, poolAmount, assetPayout uint64) (cost uint64, err error)
}

// NopAccounting accepts every settlement event at zero cost.
type NopAccounting struct{}

func (NopAccounting) DepositsApproved(registry.ShareClassID, registry.AssetID, uint32, uint64, uint64) (uint64, error) {
	return 0, nil
}

func (NopAccounting) SharesIssued(registry.ShareClassID, registry.AssetID, uint32, uint64, uint64) (uint64, error) {
	return 0, nil
}

func (NopAccounting) RedeemsApproved(registry.ShareClassID, registry.AssetID, uint32, uint64) (uint64, error) {
	return 0, nil
}

func (NopAccounting) SharesRevoked(registry.ShareClassID, registry.AssetID, uint32, uint64, uint64, uint64) (uint64, error) {
	return 0, nil
}

// DefaultMaxEpochsPerClaim caps how many epochs a single claim call replays.
// Claim reports canClaimAgain=true when the cap truncated the replay.
const DefaultMaxEpochsPerClaim uint32 = 50

// Engine is the epoch-based batching and settlement core. It owns the request
// ledger, the epoch sequencer and the per-epoch approval records, and parks
// claim/cancellation results for the notification relay to pick up.
//
// The engine has no internal parallelism: every operation runs to completion
// on the processor goroutine, so no locking happens here.
type Engine struct {
	reg  *registry.Registry
	seq  *epoch.Sequencer
	book *orders.Book
	acct Accounting

	invest map[epochKey]*EpochInvestAmounts
	redeem map[epochKey]*EpochRedeemAmounts

	claims  map[orders.Key]*ClaimNotice
	cancels map[orders.Key]*CancelNotice

	maxEpochsPerClaim uint32
	log               zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxEpochsPerClaim overrides the per-call claim replay cap.
func WithMaxEpochsPerClaim(n uint32) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxEpochsPerClaim = n
		}
	}
}

func NewEngine(reg *registry.Registry, acct Accounting, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		reg:               reg,
		seq:               epoch.NewSequencer(),
		book:              orders.NewBook(),
		acct:              acct,
		invest:            make(map[epochKey]*EpochInvestAmounts),
		redeem:            make(map[epochKey]*EpochRedeemAmounts),
		claims:            make(map[orders.Key]*ClaimNotice),
		cancels:           make(map[orders.Key]*CancelNotice),
		maxEpochsPerClaim: DefaultMaxEpochsPerClaim,
		log:               log,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) checkPair(scID registry.ShareClassID, assetID registry.AssetID) error {
	if !e.reg.HasPair(scID, assetID) {
		return fmt.Errorf("unknown share class/asset pair %s/%s", scID, assetID)
	}
	return nil
}

func (e *Engine) authorizePair(caller string, scID registry.ShareClassID, assetID registry.AssetID) error {
	if err := e.reg.Authorize(scID, caller); err != nil {
		return err
	}
	return e.checkPair(scID, assetID)
}

func approveTrack(dir orders.Direction) epoch.Track {
	if dir == orders.DirectionRedeem {
		return epoch.TrackRedeemApprove
	}
	return epoch.TrackDepositApprove
}

func settleTrack(dir orders.Direction) epoch.Track {
	if dir == orders.DirectionRedeem {
		return epoch.TrackRedeemRevoke
	}
	return epoch.TrackDepositIssue
}

// --- Requests ---

// RequestDeposit replaces the investor's pending deposit amount with the given
// amount, or queues the amount as an increase if the order is locked inside an
// approved-but-unclaimed epoch. Reports whether the request was queued.
func (e *Engine) RequestDeposit(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID, amount uint64) (bool, error) {
	return e.request(orders.Key{ShareClass: scID, Asset: assetID, Investor: investor, Direction: orders.DirectionDeposit}, amount)
}

// RequestRedeem is the share-denominated analog of RequestDeposit.
func (e *Engine) RequestRedeem(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID, amount uint64) (bool, error) {
	return e.request(orders.Key{ShareClass: scID, Asset: assetID, Investor: investor, Direction: orders.DirectionRedeem}, amount)
}

func (e *Engine) request(k orders.Key, amount uint64) (bool, error) {
	if amount == 0 {
		return false, fmt.Errorf("%w: %s request for %s", ErrZeroAmount, k.Direction, k.Investor)
	}
	if err := e.checkPair(k.ShareClass, k.Asset); err != nil {
		return false, err
	}

	q := e.book.Queued(k)
	if q.IsCancelling {
		return false, fmt.Errorf("%w: %s/%s", ErrCancellationQueued, k.Investor, k.Direction)
	}

	cur := e.seq.Current(k.ShareClass, k.Asset, approveTrack(k.Direction))
	o := e.book.Order(k)

	if orders.Mutable(o, cur) {
		// Direct mutation: the new amount replaces the old pending value and
		// the aggregate absorbs the delta.
		if amount >= o.Pending {
			if err := e.book.AddPending(k.ShareClass, k.Asset, k.Direction, amount-o.Pending); err != nil {
				return false, err
			}
		} else {
			e.book.SubPending(k.ShareClass, k.Asset, k.Direction, o.Pending-amount)
		}
		o.Pending = amount
		o.LastUpdateEpoch = cur

		e.log.Debug().
			Str("share_class", string(k.ShareClass)).
			Str("asset", string(k.Asset)).
			Str("investor", k.Investor.String()).
			Str("direction", k.Direction.String()).
			Uint64("pending", amount).
			Uint32("epoch", cur).
			Msg("request recorded")
		return false, nil
	}

	// The in-flight epoch already captured the prior amount; park the
	// increase until a claim unlocks the order.
	if amount > math.MaxUint64-q.Amount {
		return false, fmt.Errorf("%w: queued %s increase for %s", orders.ErrPendingOverflow, k.Direction, k.Investor)
	}
	q.Amount += amount

	e.log.Debug().
		Str("share_class", string(k.ShareClass)).
		Str("asset", string(k.Asset)).
		Str("investor", k.Investor.String()).
		Str("direction", k.Direction.String()).
		Uint64("queued", q.Amount).
		Msg("request queued")
	return true, nil
}

// --- Cancellation ---

// CancelDepositRequest cancels the investor's entire pending deposit, either
// immediately (returning the cancelled amount) or by queueing the cancellation
// until the in-flight epoch is claimed.
func (e *Engine) CancelDepositRequest(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID) (uint64, bool, error) {
	return e.cancel(orders.Key{ShareClass: scID, Asset: assetID, Investor: investor, Direction: orders.DirectionDeposit})
}

// CancelRedeemRequest is the redeem-side analog of CancelDepositRequest.
func (e *Engine) CancelRedeemRequest(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID) (uint64, bool, error) {
	return e.cancel(orders.Key{ShareClass: scID, Asset: assetID, Investor: investor, Direction: orders.DirectionRedeem})
}

func (e *Engine) cancel(k orders.Key) (uint64, bool, error) {
	if err := e.checkPair(k.ShareClass, k.Asset); err != nil {
		return 0, false, err
	}

	cur := e.seq.Current(k.ShareClass, k.Asset, approveTrack(k.Direction))
	o := e.book.Order(k)
	q := e.book.Queued(k)

	if orders.Mutable(o, cur) {
		if o.Pending == 0 && q.Amount == 0 {
			return 0, false, fmt.Errorf("%w: %s/%s", ErrNoOrderFound, k.Investor, k.Direction)
		}
		cancelled := o.Pending + q.Amount
		e.book.SubPending(k.ShareClass, k.Asset, k.Direction, o.Pending)
		o.Pending = 0
		o.LastUpdateEpoch = cur
		q.Amount = 0
		q.IsCancelling = false
		e.parkCancel(k, cancelled)

		e.log.Debug().
			Str("share_class", string(k.ShareClass)).
			Str("asset", string(k.Asset)).
			Str("investor", k.Investor.String()).
			Str("direction", k.Direction.String()).
			Uint64("cancelled", cancelled).
			Msg("request cancelled")
		return cancelled, false, nil
	}

	// Queueing a cancellation is idempotent: the flag stays set and the
	// previously queued increase is swept into the cancellation at claim.
	q.IsCancelling = true

	e.log.Debug().
		Str("share_class", string(k.ShareClass)).
		Str("asset", string(k.Asset)).
		Str("investor", k.Investor.String()).
		Str("direction", k.Direction.String()).
		Msg("cancellation queued")
	return 0, true, nil
}

// EnableDepositForceCancel arms the force-cancel flag for an investor's
// deposit order. Operator-only. Idempotent: re-arming does not reset anything,
// and only a claim that drains the cancellation clears the flag.
func (e *Engine) EnableDepositForceCancel(caller string, scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID) error {
	return e.enableForceCancel(caller, orders.Key{ShareClass: scID, Asset: assetID, Investor: investor, Direction: orders.DirectionDeposit})
}

// EnableRedeemForceCancel is the redeem-side analog.
func (e *Engine) EnableRedeemForceCancel(caller string, scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID) error {
	return e.enableForceCancel(caller, orders.Key{ShareClass: scID, Asset: assetID, Investor: investor, Direction: orders.DirectionRedeem})
}

func (e *Engine) enableForceCancel(caller string, k orders.Key) error {
	if err := e.authorizePair(caller, k.ShareClass, k.Asset); err != nil {
		return err
	}
	e.book.ArmForceCancel(k)
	return nil
}

// ForceCancelDepositRequest cancels on behalf of the investor's moderator. It
// requires the force-cancel flag to have been armed first and guarantees
// eventual cancellation: if the order is locked the cancellation is queued and
// the flag stays armed until a claim drains it.
func (e *Engine) ForceCancelDepositRequest(caller string, scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID) (uint64, bool, error) {
	return e.forceCancel(caller, orders.Key{ShareClass: scID, Asset: assetID, Investor: investor, Direction: orders.DirectionDeposit})
}

// ForceCancelRedeemRequest is the redeem-side analog.
func (e *Engine) ForceCancelRedeemRequest(caller string, scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID) (uint64, bool, error) {
	return e.forceCancel(caller, orders.Key{ShareClass: scID, Asset: assetID, Investor: investor, Direction: orders.DirectionRedeem})
}

func (e *Engine) forceCancel(caller string, k orders.Key) (uint64, bool, error) {
	if err := e.authorizePair(caller, k.ShareClass, k.Asset); err != nil {
		return 0, false, err
	}
	if !e.book.ForceCancelAllowed(k) {
		return 0, false, fmt.Errorf("%w: %s/%s", ErrCancellationInitializationRequired, k.Investor, k.Direction)
	}

	cancelled, queued, err := e.cancel(k)
	if err != nil {
		return 0, false, err
	}
	if !queued {
		e.book.ClearForceCancel(k)
	}
	return cancelled, queued, nil
}

// --- Approval ---

// ApproveDeposits converts up to approvedAssetAmount of the aggregate pending
// deposit total at pricePoolPerAsset, writes the epoch record and advances the
// deposit approval epoch by exactly one. Returns the notification callback
// cost reported by the accounting collaborator.
func (e *Engine) ApproveDeposits(caller string, scID registry.ShareClassID, assetID registry.AssetID, epochIdx uint32, approvedAssetAmount, pricePoolPerAsset uint64) (uint64, error) {
	if err := e.authorizePair(caller, scID, assetID); err != nil {
		return 0, err
	}

	cur := e.seq.Current(scID, assetID, epoch.TrackDepositApprove)
	if epochIdx != cur {
		return 0, fmt.Errorf("%w: got %d, current deposit approval epoch is %d", ErrEpochNotInSequence, epochIdx, cur)
	}
	if approvedAssetAmount == 0 {
		return 0, fmt.Errorf("%w: deposit approval for %s/%s", ErrZeroApprovalAmount, scID, assetID)
	}
	if pricePoolPerAsset == 0 {
		return 0, fmt.Errorf("deposit approval for %s/%s: price must be non-zero", scID, assetID)
	}

	total := e.book.Pending(scID, assetID, orders.DirectionDeposit)
	if approvedAssetAmount > total {
		return 0, fmt.Errorf("%w: approved %d > pending %d", ErrInsufficientPending, approvedAssetAmount, total)
	}

	assetDec, _ := e.reg.AssetDecimals(assetID)
	poolDec, _ := e.reg.PoolDecimals(scID)
	poolAmount := pricing.AssetToPool(approvedAssetAmount, pricePoolPerAsset, assetDec, poolDec, pricing.RoundDown)

	cost, err := e.acct.DepositsApproved(scID, assetID, cur, approvedAssetAmount, poolAmount)
	if err != nil {
		return 0, fmt.Errorf("deposit approval accounting: %w", err)
	}

	e.invest[epochKey{scID, assetID, cur}] = &EpochInvestAmounts{
		PendingAssetAmount:  total - approvedAssetAmount,
		ApprovedAssetAmount: approvedAssetAmount,
		ApprovedPoolAmount:  poolAmount,
		PricePoolPerAsset:   pricePoolPerAsset,
		RemainingApproved:   approvedAssetAmount,
		RemainingCohort:     total,
	}
	e.book.SubPending(scID, assetID, orders.DirectionDeposit, approvedAssetAmount)
	e.seq.Advance(scID, assetID, epoch.TrackDepositApprove)

	e.log.Info().
		Str("share_class", string(scID)).
		Str("asset", string(assetID)).
		Uint32("epoch", cur).
		Uint64("approved", approvedAssetAmount).
		Uint64("remainder", total-approvedAssetAmount).
		Uint64("price", pricePoolPerAsset).
		Msg("deposits approved")
	return cost, nil
}

// ApproveRedeems is the share-denominated analog of ApproveDeposits. The pool
// value of the approved shares is not known until revocation supplies the NAV,
// so the epoch record carries only the price here.
func (e *Engine) ApproveRedeems(caller string, scID registry.ShareClassID, assetID registry.AssetID, epochIdx uint32, approvedShareAmount, pricePoolPerAsset uint64) (uint64, error) {
	if err := e.authorizePair(caller, scID, assetID); err != nil {
		return 0, err
	}

	cur := e.seq.Current(scID, assetID, epoch.TrackRedeemApprove)
	if epochIdx != cur {
		return 0, fmt.Errorf("%w: got %d, current redeem approval epoch is %d", ErrEpochNotInSequence, epochIdx, cur)
	}
	if approvedShareAmount == 0 {
		return 0, fmt.Errorf("%w: redeem approval for %s/%s", ErrZeroApprovalAmount, scID, assetID)
	}
	if pricePoolPerAsset == 0 {
		return 0, fmt.Errorf("redeem approval for %s/%s: price must be non-zero", scID, assetID)
	}

	total := e.book.Pending(scID, assetID, orders.DirectionRedeem)
	if approvedShareAmount > total {
		return 0, fmt.Errorf("%w: approved %d > pending %d", ErrInsufficientPending, approvedShareAmount, total)
	}

	cost, err := e.acct.RedeemsApproved(scID, assetID, cur, approvedShareAmount)
	if err != nil {
		return 0, fmt.Errorf("redeem approval accounting: %w", err)
	}

	e.redeem[epochKey{scID, assetID, cur}] = &EpochRedeemAmounts{
		PendingShareAmount:  total - approvedShareAmount,
		ApprovedShareAmount: approvedShareAmount,
		PricePoolPerAsset:   pricePoolPerAsset,
		RemainingApproved:   approvedShareAmount,
		RemainingCohort:     total,
	}
	e.book.SubPending(scID, assetID, orders.DirectionRedeem, approvedShareAmount)
	e.seq.Advance(scID, assetID, epoch.TrackRedeemApprove)

	e.log.Info().
		Str("share_class", string(scID)).
		Str("asset", string(assetID)).
		Uint32("epoch", cur).
		Uint64("approved", approvedShareAmount).
		Uint64("remainder", total-approvedShareAmount).
		Uint64("price", pricePoolPerAsset).
		Msg("redeems approved")
	return cost, nil
}

// --- Issuance / revocation ---

// IssueShares prices the approved deposit aggregate of the current issuance
// epoch at navPoolPerShare, rounding down so any residual atom stays inside
// the system, and stamps the epoch record with issuedAt to enable claims.
func (e *Engine) IssueShares(caller string, scID registry.ShareClassID, assetID registry.AssetID, epochIdx uint32, navPoolPerShare uint64, issuedAt int64) (uint64, error) {
	if err := e.authorizePair(caller, scID, assetID); err != nil {
		return 0, err
	}

	cur := e.seq.Current(scID, assetID, epoch.TrackDepositIssue)
	if epochIdx != cur {
		return 0, fmt.Errorf("%w: got %d, current issuance epoch is %d", ErrEpochNotInSequence, epochIdx, cur)
	}
	if cur >= e.seq.Current(scID, assetID, epoch.TrackDepositApprove) {
		return 0, fmt.Errorf("%w: deposit epoch %d has no approval yet", ErrEpochNotFound, cur)
	}
	if navPoolPerShare == 0 {
		return 0, fmt.Errorf("issuance for %s/%s: nav must be non-zero", scID, assetID)
	}
	if issuedAt <= 0 {
		return 0, fmt.Errorf("issuance for %s/%s: timestamp must be positive", scID, assetID)
	}

	rec, ok := e.invest[epochKey{scID, assetID, cur}]
	if !ok {
		panic(fmt.Sprintf("FATAL: missing deposit epoch record %s/%s/%d", scID, assetID, cur))
	}

	shares := pricing.PoolToShares(rec.ApprovedPoolAmount, navPoolPerShare, pricing.RoundDown)

	cost, err := e.acct.SharesIssued(scID, assetID, cur, shares, rec.ApprovedPoolAmount)
	if err != nil {
		return 0, fmt.Errorf("issuance accounting: %w", err)
	}

	rec.NavPoolPerShare = navPoolPerShare
	rec.IssuedShares = shares
	rec.IssuedAt = issuedAt
	e.seq.Advance(scID, assetID, epoch.TrackDepositIssue)

	e.log.Info().
		Str("share_class", string(scID)).
		Str("asset", string(assetID)).
		Uint32("epoch", cur).
		Uint64("nav", navPoolPerShare).
		Uint64("shares", shares).
		Msg("shares issued")
	return cost, nil
}

// RevokeShares prices the approved redeem aggregate of the current revocation
// epoch at navPoolPerShare, computing the asset payout at the price recorded
// during approval, and stamps the epoch record to enable claims.
func (e *Engine) RevokeShares(caller string, scID registry.ShareClassID, assetID registry.AssetID, epochIdx uint32, navPoolPerShare uint64, revokedAt int64) (uint64, error) {
	if err := e.authorizePair(caller, scID, assetID); err != nil {
		return 0, err
	}

	cur := e.seq.Current(scID, assetID, epoch.TrackRedeemRevoke)
	if epochIdx != cur {
		return 0, fmt.Errorf("%w: got %d, current revocation epoch is %d", ErrEpochNotInSequence, epochIdx, cur)
	}
	if cur >= e.seq.Current(scID, assetID, epoch.TrackRedeemApprove) {
		return 0, fmt.Errorf("%w: redeem epoch %d has no approval yet", ErrEpochNotFound, cur)
	}
	if navPoolPerShare == 0 {
		return 0, fmt.Errorf("revocation for %s/%s: nav must be non-zero", scID, assetID)
	}
	if revokedAt <= 0 {
		return 0, fmt.Errorf("revocation for %s/%s: timestamp must be positive", scID, assetID)
	}

	rec, ok := e.redeem[epochKey{scID, assetID, cur}]
	if !ok {
		panic(fmt.Sprintf("FATAL: missing redeem epoch record %s/%s/%d", scID, assetID, cur))
	}

	assetDec, _ := e.reg.AssetDecimals(assetID)
	poolDec, _ := e.reg.PoolDecimals(scID)
	poolAmount := pricing.SharesToPool(rec.ApprovedShareAmount, navPoolPerShare, pricing.RoundDown)
	payout := pricing.SharesToAsset(rec.ApprovedShareAmount, rec.PricePoolPerAsset, navPoolPerShare, assetDec, poolDec, pricing.RoundDown)

	cost, err := e.acct.SharesRevoked(scID, assetID, cur, rec.ApprovedShareAmount, poolAmount, payout)
	if err != nil {
		return 0, fmt.Errorf("revocation accounting: %w", err)
	}

	rec.NavPoolPerShare = navPoolPerShare
	rec.ApprovedPoolAmount = poolAmount
	rec.PayoutAssetAmount = payout
	rec.RevokedAt = revokedAt
	e.seq.Advance(scID, assetID, epoch.TrackRedeemRevoke)

	e.log.Info().
		Str("share_class", string(scID)).
		Str("asset", string(assetID)).
		Uint32("epoch", cur).
		Uint64("nav", navPoolPerShare).
		Uint64("payout", payout).
		Msg("shares revoked")
	return cost, nil
}

// --- Read accessors ---

// OrderState is a point-in-time view of one investor order for queries.
type OrderState struct {
	Pending            uint64 `json:"pending"`
	LastUpdateEpoch    uint32 `json:"last_update_epoch"`
	QueuedAmount       uint64 `json:"queued_amount"`
	QueuedCancelling   bool   `json:"queued_cancelling"`
	ForceCancelAllowed bool   `json:"force_cancel_allowed"`
}

// Order returns the investor's current order state.
func (e *Engine) Order(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID, dir orders.Direction) OrderState {
	k := orders.Key{ShareClass: scID, Asset: assetID, Investor: investor, Direction: dir}
	o := e.book.Order(k)
	q := e.book.Queued(k)
	return OrderState{
		Pending:            o.Pending,
		LastUpdateEpoch:    o.LastUpdateEpoch,
		QueuedAmount:       q.Amount,
		QueuedCancelling:   q.IsCancelling,
		ForceCancelAllowed: e.book.ForceCancelAllowed(k),
	}
}

// PendingTotal returns the aggregate pending total for one side of a pair.
func (e *Engine) PendingTotal(scID registry.ShareClassID, assetID registry.AssetID, dir orders.Direction) uint64 {
	return e.book.Pending(scID, assetID, dir)
}

// CurrentEpoch returns the current epoch counter of one track.
func (e *Engine) CurrentEpoch(scID registry.ShareClassID, assetID registry.AssetID, track epoch.Track) uint32 {
	return e.seq.Current(scID, assetID, track)
}

// InvestEpoch returns a copy of a deposit epoch record.
func (e *Engine) InvestEpoch(scID registry.ShareClassID, assetID registry.AssetID, idx uint32) (EpochInvestAmounts, bool) {
	rec, ok := e.invest[epochKey{scID, assetID, idx}]
	if !ok {
		return EpochInvestAmounts{}, false
	}
	return *rec, true
}

// RedeemEpoch returns a copy of a redeem epoch record.
func (e *Engine) RedeemEpoch(scID registry.ShareClassID, assetID registry.AssetID, idx uint32) (EpochRedeemAmounts, bool) {
	rec, ok := e.redeem[epochKey{scID, assetID, idx}]
	if !ok {
		return EpochRedeemAmounts{}, false
	}
	return *rec, true
}
