package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"

	"FundLedger/internal/event"
	"FundLedger/internal/registry"

	"github.com/google/uuid"
)

// ErrUnknownRequestType is returned for a request tag the parser does not
// recognize.
var ErrUnknownRequestType = errors.New("unknown request type")

// ParseRawOperation converts a RawOperation (JSON bytes + type tag) into a
// typed event.Operation. The ingestion shell validates and converts before
// anything reaches the processor; operator actions (approve, issue, revoke,
// force-cancel) arrive over HTTP only and are not parsed here.
func ParseRawOperation(raw RawOperation, opType string) (event.Operation, error) {
	switch opType {
	case "RequestDeposit":
		return parseRequestDeposit(raw.Data)
	case "RequestRedeem":
		return parseRequestRedeem(raw.Data)
	case "CancelDeposit":
		return parseCancelDeposit(raw.Data)
	case "CancelRedeem":
		return parseCancelRedeem(raw.Data)
	case "ClaimDeposit":
		return parseClaimDeposit(raw.Data)
	case "ClaimRedeem":
		return parseClaimRedeem(raw.Data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownRequestType, opType)
	}
}

// --- JSON wire formats ---
// Field names use snake_case to match the spoke producers.

type requestJSON struct {
	RequestID   string `json:"request_id"`
	ShareClass  string `json:"share_class"`
	Asset       string `json:"asset"`
	Investor    string `json:"investor"`
	Amount      uint64 `json:"amount"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func (j *requestJSON) ids(kind string) (uuid.UUID, uuid.UUID, error) {
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("parse %s request_id: %w", kind, err)
	}
	investor, err := uuid.Parse(j.Investor)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("parse %s investor: %w", kind, err)
	}
	return requestID, investor, nil
}

func parseRequestDeposit(data []byte) (*event.RequestDeposit, error) {
	var j requestJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse RequestDeposit: %w", err)
	}
	requestID, investor, err := j.ids("RequestDeposit")
	if err != nil {
		return nil, err
	}
	return &event.RequestDeposit{
		RequestID:  requestID,
		ShareClass: registry.ShareClassID(j.ShareClass),
		Asset:      registry.AssetID(j.Asset),
		Investor:   investor,
		Amount:     j.Amount,
		Sequence:   j.Sequence,
		Timestamp:  j.TimestampUs,
	}, nil
}

func parseRequestRedeem(data []byte) (*event.RequestRedeem, error) {
	var j requestJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse RequestRedeem: %w", err)
	}
	requestID, investor, err := j.ids("RequestRedeem")
	if err != nil {
		return nil, err
	}
	return &event.RequestRedeem{
		RequestID:  requestID,
		ShareClass: registry.ShareClassID(j.ShareClass),
		Asset:      registry.AssetID(j.Asset),
		Investor:   investor,
		Amount:     j.Amount,
		Sequence:   j.Sequence,
		Timestamp:  j.TimestampUs,
	}, nil
}

type cancelJSON struct {
	RequestID   string `json:"request_id"`
	ShareClass  string `json:"share_class"`
	Asset       string `json:"asset"`
	Investor    string `json:"investor"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func (j *cancelJSON) ids(kind string) (uuid.UUID, uuid.UUID, error) {
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("parse %s request_id: %w", kind, err)
	}
	investor, err := uuid.Parse(j.Investor)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("parse %s investor: %w", kind, err)
	}
	return requestID, investor, nil
}

func parseCancelDeposit(data []byte) (*event.CancelDeposit, error) {
	var j cancelJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse CancelDeposit: %w", err)
	}
	requestID, investor, err := j.ids("CancelDeposit")
	if err != nil {
		return nil, err
	}
	return &event.CancelDeposit{
		RequestID:  requestID,
		ShareClass: registry.ShareClassID(j.ShareClass),
		Asset:      registry.AssetID(j.Asset),
		Investor:   investor,
		Sequence:   j.Sequence,
		Timestamp:  j.TimestampUs,
	}, nil
}

func parseCancelRedeem(data []byte) (*event.CancelRedeem, error) {
	var j cancelJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse CancelRedeem: %w", err)
	}
	requestID, investor, err := j.ids("CancelRedeem")
	if err != nil {
		return nil, err
	}
	return &event.CancelRedeem{
		RequestID:  requestID,
		ShareClass: registry.ShareClassID(j.ShareClass),
		Asset:      registry.AssetID(j.Asset),
		Investor:   investor,
		Sequence:   j.Sequence,
		Timestamp:  j.TimestampUs,
	}, nil
}

func parseClaimDeposit(data []byte) (*event.ClaimDeposit, error) {
	var j cancelJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse ClaimDeposit: %w", err)
	}
	requestID, investor, err := j.ids("ClaimDeposit")
	if err != nil {
		return nil, err
	}
	return &event.ClaimDeposit{
		RequestID:  requestID,
		ShareClass: registry.ShareClassID(j.ShareClass),
		Asset:      registry.AssetID(j.Asset),
		Investor:   investor,
		Sequence:   j.Sequence,
		Timestamp:  j.TimestampUs,
	}, nil
}

func parseClaimRedeem(data []byte) (*event.ClaimRedeem, error) {
	var j cancelJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse ClaimRedeem: %w", err)
	}
	requestID, investor, err := j.ids("ClaimRedeem")
	if err != nil {
		return nil, err
	}
	return &event.ClaimRedeem{
		RequestID:  requestID,
		ShareClass: registry.ShareClassID(j.ShareClass),
		Asset:      registry.AssetID(j.Asset),
		Investor:   investor,
		Sequence:   j.Sequence,
		Timestamp:  j.TimestampUs,
	}, nil
}
