package ledger

import (
	"fmt"

	"FundLedger/internal/registry"
)

// AccountScope is the top-level account namespace.
type AccountScope uint8

const (
	AccountScopeSystem AccountScope = iota
	AccountScopeExternal
)

// AccountSubType is the account purpose.
type AccountSubType uint8

const (
	// System sub-types.
	SubTypePool        AccountSubType = iota // assets backing the share class
	SubTypeShareEscrow                       // shares locked by approved redemptions
	SubTypeSupply                            // outstanding share supply (liability)
	SubTypeGain                              // valuation gain
	SubTypeLoss                              // valuation loss

	// External boundary.
	SubTypeInvestors
)

// Unit names the denomination a balance is kept in. Asset accounts use the
// asset symbol; share accounts use "shares/<shareClass>". The ledger is
// zero-sum per unit, never across units.
type Unit string

// AssetUnit returns the unit for asset-denominated accounts.
func AssetUnit(assetID registry.AssetID) Unit {
	return Unit(assetID)
}

// ShareUnit returns the unit for share-denominated accounts of a class.
func ShareUnit(scID registry.ShareClassID) Unit {
	return Unit("shares/" + string(scID))
}

// AccountKey is the in-memory key for balance tracking.
type AccountKey struct {
	Scope      AccountScope
	SubType    AccountSubType
	ShareClass registry.ShareClassID
	Asset      registry.AssetID
	Unit       Unit
}

// NewPoolAccountKey is the asset-denominated pool backing account.
func NewPoolAccountKey(scID registry.ShareClassID, assetID registry.AssetID) AccountKey {
	return AccountKey{
		Scope:      AccountScopeSystem,
		SubType:    SubTypePool,
		ShareClass: scID,
		Asset:      assetID,
		Unit:       AssetUnit(assetID),
	}
}

// NewShareEscrowKey holds shares swept in by redeem approvals until revoked.
func NewShareEscrowKey(scID registry.ShareClassID) AccountKey {
	return AccountKey{
		Scope:      AccountScopeSystem,
		SubType:    SubTypeShareEscrow,
		ShareClass: scID,
		Unit:       ShareUnit(scID),
	}
}

// NewSupplyKey is the outstanding share supply counter-account.
func NewSupplyKey(scID registry.ShareClassID) AccountKey {
	return AccountKey{
		Scope:      AccountScopeSystem,
		SubType:    SubTypeSupply,
		ShareClass: scID,
		Unit:       ShareUnit(scID),
	}
}

// NewGainKey / NewLossKey hold valuation adjustments per pair.
func NewGainKey(scID registry.ShareClassID, assetID registry.AssetID) AccountKey {
	return AccountKey{
		Scope:      AccountScopeSystem,
		SubType:    SubTypeGain,
		ShareClass: scID,
		Asset:      assetID,
		Unit:       AssetUnit(assetID),
	}
}

func NewLossKey(scID registry.ShareClassID, assetID registry.AssetID) AccountKey {
	return AccountKey{
		Scope:      AccountScopeSystem,
		SubType:    SubTypeLoss,
		ShareClass: scID,
		Asset:      assetID,
		Unit:       AssetUnit(assetID),
	}
}

// NewInvestorsBoundaryKey is the external boundary for a unit: value entering
// the system is credited here, value leaving is debited.
func NewInvestorsBoundaryKey(unit Unit) AccountKey {
	return AccountKey{
		Scope:   AccountScopeExternal,
		SubType: SubTypeInvestors,
		Unit:    unit,
	}
}

// AccountPath is the string form used for storage and logging.
func (k AccountKey) AccountPath() string {
	switch k.Scope {
	case AccountScopeExternal:
		return fmt.Sprintf("external:%s:%s", k.subTypeName(), k.Unit)
	default:
		if k.Asset != "" {
			return fmt.Sprintf("system:%s:%s:%s", k.subTypeName(), k.ShareClass, k.Asset)
		}
		return fmt.Sprintf("system:%s:%s", k.subTypeName(), k.ShareClass)
	}
}

func (k AccountKey) subTypeName() string {
	switch k.SubType {
	case SubTypePool:
		return "pool"
	case SubTypeShareEscrow:
		return "share_escrow"
	case SubTypeSupply:
		return "supply"
	case SubTypeGain:
		return "gain"
	case SubTypeLoss:
		return "loss"
	case SubTypeInvestors:
		return "investors"
	default:
		return "unknown"
	}
}
