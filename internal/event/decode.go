package event

import (
	"encoding/json"
	"fmt"
)

// UnmarshalOperation decodes an envelope payload back into its typed
// operation. Used when replaying the log on restart.
func UnmarshalOperation(t OpType, data []byte) (Operation, error) {
	var op Operation
	switch t {
	case OpTypeRequestDeposit:
		op = &RequestDeposit{}
	case OpTypeRequestRedeem:
		op = &RequestRedeem{}
	case OpTypeCancelDeposit:
		op = &CancelDeposit{}
	case OpTypeCancelRedeem:
		op = &CancelRedeem{}
	case OpTypeEnableForceCancelDeposit, OpTypeEnableForceCancelRedeem:
		op = &EnableForceCancel{}
	case OpTypeForceCancelDeposit, OpTypeForceCancelRedeem:
		op = &ForceCancel{}
	case OpTypeApproveDeposits:
		op = &ApproveDeposits{}
	case OpTypeApproveRedeems:
		op = &ApproveRedeems{}
	case OpTypeIssueShares:
		op = &IssueShares{}
	case OpTypeRevokeShares:
		op = &RevokeShares{}
	case OpTypeClaimDeposit:
		op = &ClaimDeposit{}
	case OpTypeClaimRedeem:
		op = &ClaimRedeem{}
	default:
		return nil, fmt.Errorf("cannot decode operation type %d", t)
	}

	if err := json.Unmarshal(data, op); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return op, nil
}

// ParseOpType maps the string form back to the discriminator.
func ParseOpType(s string) (OpType, error) {
	for t := OpTypeRequestDeposit; t <= OpTypeClaimRedeem; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return OpTypeUnknown, fmt.Errorf("unknown op type %q", s)
}
