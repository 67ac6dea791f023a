package settle

import (
	"FundLedger/internal/pricing"
	"FundLedger/internal/registry"
)

// EpochInvestAmounts is the record of one deposit approval epoch.
// PendingAssetAmount is the unapproved remainder at the time of approval, so
// ApprovedAssetAmount+PendingAssetAmount is the cohort every pro-rata claim
// against this epoch divides by. IssuedAt stays zero until the issuance step
// completes. The pricing fields never change after issuance; the two
// Remaining counters are the allocation state claims draw down, so each
// epoch's consumption sums to exactly the approved amount.
type EpochInvestAmounts struct {
	PendingAssetAmount  uint64 `json:"pending_asset_amount"`
	ApprovedAssetAmount uint64 `json:"approved_asset_amount"`
	ApprovedPoolAmount  uint64 `json:"approved_pool_amount"`
	PricePoolPerAsset   uint64 `json:"price_pool_per_asset"`
	NavPoolPerShare     uint64 `json:"nav_pool_per_share"`
	IssuedShares        uint64 `json:"issued_shares"`
	IssuedAt            int64  `json:"issued_at_us"`
	RemainingApproved   uint64 `json:"remaining_approved"`
	RemainingCohort     uint64 `json:"remaining_cohort"`
}

// Consume draws this claimant's slice from the epoch's remaining approved
// amount. pending is the claimant's pending at the time this epoch was
// approved; the claimant leaves the cohort whether or not rounding gave it
// anything. The last claimant of the cohort absorbs whatever rounding left
// behind, so exactly one claimant receives any residual atom and the drawn
// amounts sum to exactly the approved amount.
func (r *EpochInvestAmounts) Consume(pending uint64) uint64 {
	return consumeSlice(&r.RemainingApproved, &r.RemainingCohort, pending)
}

// EpochRedeemAmounts is the redeem-side analog: share-denominated pending and
// approved amounts, the asset payout computed at revocation, and RevokedAt
// zero until the revocation step completes.
type EpochRedeemAmounts struct {
	PendingShareAmount  uint64 `json:"pending_share_amount"`
	ApprovedShareAmount uint64 `json:"approved_share_amount"`
	ApprovedPoolAmount  uint64 `json:"approved_pool_amount"`
	PricePoolPerAsset   uint64 `json:"price_pool_per_asset"`
	NavPoolPerShare     uint64 `json:"nav_pool_per_share"`
	PayoutAssetAmount   uint64 `json:"payout_asset_amount"`
	RevokedAt           int64  `json:"revoked_at_us"`
	RemainingApproved   uint64 `json:"remaining_approved"`
	RemainingCohort     uint64 `json:"remaining_cohort"`
}

// Consume is the share-denominated analog of EpochInvestAmounts.Consume.
func (r *EpochRedeemAmounts) Consume(pending uint64) uint64 {
	return consumeSlice(&r.RemainingApproved, &r.RemainingCohort, pending)
}

// consumeSlice maintains the invariant approvedLeft <= cohortLeft: a claimant
// holding the whole residual cohort takes the whole residual approved amount,
// anyone else takes the rounded-down pro-rata slice and shrinks the cohort by
// its full pending.
func consumeSlice(approvedLeft, cohortLeft *uint64, pending uint64) uint64 {
	if pending == 0 || *cohortLeft == 0 {
		return 0
	}
	if pending >= *cohortLeft {
		consumed := *approvedLeft
		*approvedLeft = 0
		*cohortLeft = 0
		return consumed
	}
	consumed := pricing.MulDiv(pending, *approvedLeft, *cohortLeft, pricing.RoundDown)
	*approvedLeft -= consumed
	*cohortLeft -= pending
	return consumed
}

type epochKey struct {
	shareClass registry.ShareClassID
	asset      registry.AssetID
	index      uint32
}
