package event

import (
	"time"

	"FundLedger/internal/registry"
)

// OpType discriminates operation payloads in the log.
type OpType int32

const (
	OpTypeUnknown OpType = iota
	OpTypeRequestDeposit
	OpTypeRequestRedeem
	OpTypeCancelDeposit
	OpTypeCancelRedeem
	OpTypeEnableForceCancelDeposit
	OpTypeEnableForceCancelRedeem
	OpTypeForceCancelDeposit
	OpTypeForceCancelRedeem
	OpTypeApproveDeposits
	OpTypeApproveRedeems
	OpTypeIssueShares
	OpTypeRevokeShares
	OpTypeClaimDeposit
	OpTypeClaimRedeem
)

// Envelope wraps every operation in the log.
type Envelope struct {
	// Global monotonic sequence assigned by the processor.
	Sequence int64

	// Stable idempotency key from upstream.
	IdempotencyKey string

	// Operation type discriminator.
	OpType OpType

	// Pair context.
	ShareClass registry.ShareClassID
	Asset      registry.AssetID

	// Versioned input timestamp, never wall clock.
	Timestamp time.Time

	// Upstream sequence for ordering validation. Negative when the source
	// carries no ordering (operator HTTP calls).
	SourceSequence int64

	// JSON-encoded operation-specific data.
	Payload []byte

	// SHA-256 of engine state after applying this operation.
	StateHash [32]byte

	// Previous envelope's state hash.
	PrevHash [32]byte
}

// Operation is the interface all operation payloads implement.
type Operation interface {
	// IdempotencyKey returns the stable dedup key.
	IdempotencyKey() string

	// Type returns the discriminator.
	Type() OpType

	// Pair returns the share class / asset context.
	Pair() (registry.ShareClassID, registry.AssetID)

	// SourceSequence returns the upstream ordering key, or a negative value
	// when the source carries no ordering.
	SourceSequence() int64

	// OccurredAt returns the versioned input timestamp in unix microseconds.
	OccurredAt() int64
}

func (t OpType) String() string {
	switch t {
	case OpTypeRequestDeposit:
		return "request_deposit"
	case OpTypeRequestRedeem:
		return "request_redeem"
	case OpTypeCancelDeposit:
		return "cancel_deposit"
	case OpTypeCancelRedeem:
		return "cancel_redeem"
	case OpTypeEnableForceCancelDeposit:
		return "enable_force_cancel_deposit"
	case OpTypeEnableForceCancelRedeem:
		return "enable_force_cancel_redeem"
	case OpTypeForceCancelDeposit:
		return "force_cancel_deposit"
	case OpTypeForceCancelRedeem:
		return "force_cancel_redeem"
	case OpTypeApproveDeposits:
		return "approve_deposits"
	case OpTypeApproveRedeems:
		return "approve_redeems"
	case OpTypeIssueShares:
		return "issue_shares"
	case OpTypeRevokeShares:
		return "revoke_shares"
	case OpTypeClaimDeposit:
		return "claim_deposit"
	case OpTypeClaimRedeem:
		return "claim_redeem"
	default:
		return "unknown"
	}
}
