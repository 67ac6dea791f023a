package event

import (
	"FundLedger/internal/registry"

	"github.com/google/uuid"
)

// ClaimDeposit replays the investor's settled deposit epochs and pays out
// the pro-rata share issuance.
type ClaimDeposit struct {
	RequestID  uuid.UUID             `json:"request_id"`
	ShareClass registry.ShareClassID `json:"share_class"`
	Asset      registry.AssetID      `json:"asset"`
	Investor   uuid.UUID             `json:"investor"`
	Sequence   int64                 `json:"sequence"`
	Timestamp  int64                 `json:"timestamp_us"`
}

func (o *ClaimDeposit) IdempotencyKey() string { return o.RequestID.String() }
func (o *ClaimDeposit) Type() OpType           { return OpTypeClaimDeposit }
func (o *ClaimDeposit) Pair() (registry.ShareClassID, registry.AssetID) {
	return o.ShareClass, o.Asset
}
func (o *ClaimDeposit) SourceSequence() int64 { return o.Sequence }
func (o *ClaimDeposit) OccurredAt() int64     { return o.Timestamp }

// ClaimRedeem is the redeem-side analog of ClaimDeposit.
type ClaimRedeem struct {
	RequestID  uuid.UUID             `json:"request_id"`
	ShareClass registry.ShareClassID `json:"share_class"`
	Asset      registry.AssetID      `json:"asset"`
	Investor   uuid.UUID             `json:"investor"`
	Sequence   int64                 `json:"sequence"`
	Timestamp  int64                 `json:"timestamp_us"`
}

func (o *ClaimRedeem) IdempotencyKey() string { return o.RequestID.String() }
func (o *ClaimRedeem) Type() OpType           { return OpTypeClaimRedeem }
func (o *ClaimRedeem) Pair() (registry.ShareClassID, registry.AssetID) {
	return o.ShareClass, o.Asset
}
func (o *ClaimRedeem) SourceSequence() int64 { return o.Sequence }
func (o *ClaimRedeem) OccurredAt() int64     { return o.Timestamp }
