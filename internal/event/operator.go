package event

import (
	"FundLedger/internal/registry"

	"github.com/google/uuid"
)

// ApproveDeposits converts part of the aggregate pending deposit total at a
// price, opening a new approval epoch. Operator-originated, no upstream
// ordering.
type ApproveDeposits struct {
	RequestID  uuid.UUID             `json:"request_id"`
	Caller     string                `json:"caller"`
	ShareClass registry.ShareClassID `json:"share_class"`
	Asset      registry.AssetID      `json:"asset"`
	Epoch      uint32                `json:"epoch"`
	Amount     uint64                `json:"amount"`
	Price      uint64                `json:"price_pool_per_asset"`
	Timestamp  int64                 `json:"timestamp_us"`
}

func (o *ApproveDeposits) IdempotencyKey() string { return o.RequestID.String() }
func (o *ApproveDeposits) Type() OpType           { return OpTypeApproveDeposits }
func (o *ApproveDeposits) Pair() (registry.ShareClassID, registry.AssetID) {
	return o.ShareClass, o.Asset
}
func (o *ApproveDeposits) SourceSequence() int64 { return -1 }
func (o *ApproveDeposits) OccurredAt() int64     { return o.Timestamp }

// ApproveRedeems is the share-denominated analog of ApproveDeposits.
type ApproveRedeems struct {
	RequestID  uuid.UUID             `json:"request_id"`
	Caller     string                `json:"caller"`
	ShareClass registry.ShareClassID `json:"share_class"`
	Asset      registry.AssetID      `json:"asset"`
	Epoch      uint32                `json:"epoch"`
	Amount     uint64                `json:"amount"`
	Price      uint64                `json:"price_pool_per_asset"`
	Timestamp  int64                 `json:"timestamp_us"`
}

func (o *ApproveRedeems) IdempotencyKey() string { return o.RequestID.String() }
func (o *ApproveRedeems) Type() OpType           { return OpTypeApproveRedeems }
func (o *ApproveRedeems) Pair() (registry.ShareClassID, registry.AssetID) {
	return o.ShareClass, o.Asset
}
func (o *ApproveRedeems) SourceSequence() int64 { return -1 }
func (o *ApproveRedeems) OccurredAt() int64     { return o.Timestamp }

// IssueShares prices the approved deposit aggregate of one epoch at a NAV.
type IssueShares struct {
	RequestID  uuid.UUID             `json:"request_id"`
	Caller     string                `json:"caller"`
	ShareClass registry.ShareClassID `json:"share_class"`
	Asset      registry.AssetID      `json:"asset"`
	Epoch      uint32                `json:"epoch"`
	Nav        uint64                `json:"nav_pool_per_share"`
	Timestamp  int64                 `json:"timestamp_us"`
}

func (o *IssueShares) IdempotencyKey() string { return o.RequestID.String() }
func (o *IssueShares) Type() OpType           { return OpTypeIssueShares }
func (o *IssueShares) Pair() (registry.ShareClassID, registry.AssetID) {
	return o.ShareClass, o.Asset
}
func (o *IssueShares) SourceSequence() int64 { return -1 }
func (o *IssueShares) OccurredAt() int64     { return o.Timestamp }

// RevokeShares prices the approved redeem aggregate of one epoch at a NAV.
type RevokeShares struct {
	RequestID  uuid.UUID             `json:"request_id"`
	Caller     string                `json:"caller"`
	ShareClass registry.ShareClassID `json:"share_class"`
	Asset      registry.AssetID      `json:"asset"`
	Epoch      uint32                `json:"epoch"`
	Nav        uint64                `json:"nav_pool_per_share"`
	Timestamp  int64                 `json:"timestamp_us"`
}

func (o *RevokeShares) IdempotencyKey() string { return o.RequestID.String() }
func (o *RevokeShares) Type() OpType           { return OpTypeRevokeShares }
func (o *RevokeShares) Pair() (registry.ShareClassID, registry.AssetID) {
	return o.ShareClass, o.Asset
}
func (o *RevokeShares) SourceSequence() int64 { return -1 }
func (o *RevokeShares) OccurredAt() int64     { return o.Timestamp }
