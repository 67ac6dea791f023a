package pricing

import (
	"math/big"
	"sync"
)

// Prices are fixed-point values with 18 decimal places: pricePoolPerAsset is
// pool units of account per whole asset unit, navPoolPerShare is pool units
// per whole share. Amounts are unscaled atoms of their own denomination.
const (
	PriceDecimals = 18
)

// PriceScale is 10^PriceDecimals.
var PriceScale = uint64(1_000_000_000_000_000_000)

// Rounding selects the direction applied to the final division of a
// conversion. Amounts owed to investors always use RoundDown so that any
// residual atom stays inside the system.
type Rounding int

const (
	RoundDown Rounding = iota
	RoundUp
)

// Pooled big.Int for intermediate products. Conversions multiply three uint64
// values before dividing, which does not fit in 128 bits in the worst case.
var bigPool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getBig() *big.Int {
	return bigPool.Get().(*big.Int)
}

func putBig(v *big.Int) {
	v.SetUint64(0)
	bigPool.Put(v)
}

var pow10Table = [20]uint64{
	1, 10, 100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000, 100_000_000,
	1_000_000_000, 10_000_000_000, 100_000_000_000, 1_000_000_000_000,
	10_000_000_000_000, 100_000_000_000_000, 1_000_000_000_000_000,
	10_000_000_000_000_000, 100_000_000_000_000_000, 1_000_000_000_000_000_000,
	10_000_000_000_000_000_000,
}

func pow10(n uint8) uint64 {
	return pow10Table[n]
}

// MulDiv computes a*b/denom with the requested rounding. denom must be
// non-zero; a zero denominator is a programming error and panics.
func MulDiv(a, b, denom uint64, r Rounding) uint64 {
	num := getBig()
	num.SetUint64(a)
	tmp := getBig()
	tmp.SetUint64(b)
	num.Mul(num, tmp)
	tmp.SetUint64(denom)

	quo := getBig()
	rem := getBig()
	quo.QuoRem(num, tmp, rem)

	result := quo.Uint64()
	if r == RoundUp && rem.Sign() != 0 {
		result++
	}

	putBig(num)
	putBig(tmp)
	putBig(quo)
	putBig(rem)

	return result
}

// mulMulDiv computes a*b*c / (d*e) with the requested rounding.
func mulMulDiv(a, b, c, d, e uint64, r Rounding) uint64 {
	num := getBig()
	num.SetUint64(a)
	tmp := getBig()
	tmp.SetUint64(b)
	num.Mul(num, tmp)
	tmp.SetUint64(c)
	num.Mul(num, tmp)

	denom := getBig()
	denom.SetUint64(d)
	tmp.SetUint64(e)
	denom.Mul(denom, tmp)

	quo := getBig()
	rem := getBig()
	quo.QuoRem(num, denom, rem)

	result := quo.Uint64()
	if r == RoundUp && rem.Sign() != 0 {
		result++
	}

	putBig(num)
	putBig(tmp)
	putBig(denom)
	putBig(quo)
	putBig(rem)

	return result
}

// AssetToPool converts asset atoms into pool unit-of-account atoms at
// pricePoolPerAsset.
func AssetToPool(assetAmount, pricePoolPerAsset uint64, assetDecimals, poolDecimals uint8, r Rounding) uint64 {
	// pool = asset * price * 10^poolDec / (10^assetDec * 10^18)
	return mulMulDiv(assetAmount, pricePoolPerAsset, pow10(poolDecimals),
		pow10(assetDecimals), PriceScale, r)
}

// PoolToAsset converts pool atoms back into asset atoms at pricePoolPerAsset.
func PoolToAsset(poolAmount, pricePoolPerAsset uint64, assetDecimals, poolDecimals uint8, r Rounding) uint64 {
	return mulMulDiv(poolAmount, PriceScale, pow10(assetDecimals),
		pricePoolPerAsset, pow10(poolDecimals), r)
}

// PoolToShares converts pool atoms into share atoms at navPoolPerShare.
// Shares carry the pool's decimal precision.
func PoolToShares(poolAmount, navPoolPerShare uint64, r Rounding) uint64 {
	return MulDiv(poolAmount, PriceScale, navPoolPerShare, r)
}

// SharesToPool converts share atoms into pool atoms at navPoolPerShare.
func SharesToPool(shareAmount, navPoolPerShare uint64, r Rounding) uint64 {
	return MulDiv(shareAmount, navPoolPerShare, PriceScale, r)
}

// AssetToShares converts asset atoms into share atoms in a single division so
// the rounding direction is applied exactly once.
func AssetToShares(assetAmount, pricePoolPerAsset, navPoolPerShare uint64, assetDecimals, poolDecimals uint8, r Rounding) uint64 {
	// shares = asset * price * 10^poolDec / (nav * 10^assetDec)
	return mulMulDiv(assetAmount, pricePoolPerAsset, pow10(poolDecimals),
		navPoolPerShare, pow10(assetDecimals), r)
}

// SharesToAsset converts share atoms into asset atoms in a single division.
func SharesToAsset(shareAmount, pricePoolPerAsset, navPoolPerShare uint64, assetDecimals, poolDecimals uint8, r Rounding) uint64 {
	// asset = shares * nav * 10^assetDec / (price * 10^poolDec)
	return mulMulDiv(shareAmount, navPoolPerShare, pow10(assetDecimals),
		pricePoolPerAsset, pow10(poolDecimals), r)
}
