package dex

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ToUnits converts a human amount to the token's smallest unit, truncating
// any precision the token cannot represent.
func ToUnits(amount float64, decimals uint8) *big.Int {
	return decimal.NewFromFloat(amount).Shift(int32(decimals)).BigInt()
}

// FromUnits converts an amount in the token's smallest unit to a human amount
func FromUnits(amount *big.Int, decimals uint8) float64 {
	if amount == nil {
		return 0
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).InexactFloat64()
}
