package event

import (
	"FundLedger/internal/registry"

	"github.com/google/uuid"
)

// RequestDeposit records investor intent to convert assets into shares.
// Amount is the full replacement pending value in asset atoms.
type RequestDeposit struct {
	RequestID  uuid.UUID             `json:"request_id"`
	ShareClass registry.ShareClassID `json:"share_class"`
	Asset      registry.AssetID      `json:"asset"`
	Investor   uuid.UUID             `json:"investor"`
	Amount     uint64                `json:"amount"`
	Sequence   int64                 `json:"sequence"`
	Timestamp  int64                 `json:"timestamp_us"`
}

func (o *RequestDeposit) IdempotencyKey() string { return o.RequestID.String() }
func (o *RequestDeposit) Type() OpType           { return OpTypeRequestDeposit }
func (o *RequestDeposit) Pair() (registry.ShareClassID, registry.AssetID) {
	return o.ShareClass, o.Asset
}
func (o *RequestDeposit) SourceSequence() int64 { return o.Sequence }
func (o *RequestDeposit) OccurredAt() int64     { return o.Timestamp }

// RequestRedeem records investor intent to convert shares back into assets.
// Amount is the full replacement pending value in share atoms.
type RequestRedeem struct {
	RequestID  uuid.UUID             `json:"request_id"`
	ShareClass registry.ShareClassID `json:"share_class"`
	Asset      registry.AssetID      `json:"asset"`
	Investor   uuid.UUID             `json:"investor"`
	Amount     uint64                `json:"amount"`
	Sequence   int64                 `json:"sequence"`
	Timestamp  int64                 `json:"timestamp_us"`
}

func (o *RequestRedeem) IdempotencyKey() string { return o.RequestID.String() }
func (o *RequestRedeem) Type() OpType           { return OpTypeRequestRedeem }
func (o *RequestRedeem) Pair() (registry.ShareClassID, registry.AssetID) {
	return o.ShareClass, o.Asset
}
func (o *RequestRedeem) SourceSequence() int64 { return o.Sequence }
func (o *RequestRedeem) OccurredAt() int64     { return o.Timestamp }
