package event

import (
	"FundLedger/internal/registry"

	"github.com/google/uuid"
)

// CancelDeposit cancels the investor's entire pending deposit.
type CancelDeposit struct {
	RequestID  uuid.UUID             `json:"request_id"`
	ShareClass registry.ShareClassID `json:"share_class"`
	Asset      registry.AssetID      `json:"asset"`
	Investor   uuid.UUID             `json:"investor"`
	Sequence   int64                 `json:"sequence"`
	Timestamp  int64                 `json:"timestamp_us"`
}

func (o *CancelDeposit) IdempotencyKey() string { return o.RequestID.String() }
func (o *CancelDeposit) Type() OpType           { return OpTypeCancelDeposit }
func (o *CancelDeposit) Pair() (registry.ShareClassID, registry.AssetID) {
	return o.ShareClass, o.Asset
}
func (o *CancelDeposit) SourceSequence() int64 { return o.Sequence }
func (o *CancelDeposit) OccurredAt() int64     { return o.Timestamp }

// CancelRedeem cancels the investor's entire pending redemption.
type CancelRedeem struct {
	RequestID  uuid.UUID             `json:"request_id"`
	ShareClass registry.ShareClassID `json:"share_class"`
	Asset      registry.AssetID      `json:"asset"`
	Investor   uuid.UUID             `json:"investor"`
	Sequence   int64                 `json:"sequence"`
	Timestamp  int64                 `json:"timestamp_us"`
}

func (o *CancelRedeem) IdempotencyKey() string { return o.RequestID.String() }
func (o *CancelRedeem) Type() OpType           { return OpTypeCancelRedeem }
func (o *CancelRedeem) Pair() (registry.ShareClassID, registry.AssetID) {
	return o.ShareClass, o.Asset
}
func (o *CancelRedeem) SourceSequence() int64 { return o.Sequence }
func (o *CancelRedeem) OccurredAt() int64     { return o.Timestamp }

// EnableForceCancel arms the moderator force-cancel flag for one direction.
type EnableForceCancel struct {
	RequestID  uuid.UUID             `json:"request_id"`
	Caller     string                `json:"caller"`
	ShareClass registry.ShareClassID `json:"share_class"`
	Asset      registry.AssetID      `json:"asset"`
	Investor   uuid.UUID             `json:"investor"`
	Redeem     bool                  `json:"redeem"`
	Timestamp  int64                 `json:"timestamp_us"`
}

func (o *EnableForceCancel) IdempotencyKey() string { return o.RequestID.String() }
func (o *EnableForceCancel) Type() OpType {
	if o.Redeem {
		return OpTypeEnableForceCancelRedeem
	}
	return OpTypeEnableForceCancelDeposit
}
func (o *EnableForceCancel) Pair() (registry.ShareClassID, registry.AssetID) {
	return o.ShareClass, o.Asset
}
func (o *EnableForceCancel) SourceSequence() int64 { return -1 }
func (o *EnableForceCancel) OccurredAt() int64     { return o.Timestamp }

// ForceCancel cancels on behalf of the investor's moderator.
type ForceCancel struct {
	RequestID  uuid.UUID             `json:"request_id"`
	Caller     string                `json:"caller"`
	ShareClass registry.ShareClassID `json:"share_class"`
	Asset      registry.AssetID      `json:"asset"`
	Investor   uuid.UUID             `json:"investor"`
	Redeem     bool                  `json:"redeem"`
	Timestamp  int64                 `json:"timestamp_us"`
}

func (o *ForceCancel) IdempotencyKey() string { return o.RequestID.String() }
func (o *ForceCancel) Type() OpType {
	if o.Redeem {
		return OpTypeForceCancelRedeem
	}
	return OpTypeForceCancelDeposit
}
func (o *ForceCancel) Pair() (registry.ShareClassID, registry.AssetID) {
	return o.ShareClass, o.Asset
}
func (o *ForceCancel) SourceSequence() int64 { return -1 }
func (o *ForceCancel) OccurredAt() int64     { return o.Timestamp }
