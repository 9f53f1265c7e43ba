// Package amounts is the single source of numeric truth for the payment
// pipeline: lossless conversion between human decimal amounts and integer
// base units. No binary floating point anywhere.
package amounts

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/Fengzdadi/solana-pay-go/types"
)

// NativeDecimals is the precision of SOL: 1 SOL = 1e9 lamports.
const NativeDecimals uint8 = 9

// MaxDecimals bounds sane mint precision; nothing on-chain exceeds it.
const MaxDecimals uint8 = 18

var maxU64 = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)

// ToBaseUnits converts a decimal amount to integer base units for a token
// with the given precision. It fails when the amount carries more fractional
// digits than the token permits; it never rounds silently.
func ToBaseUnits(amount decimal.Decimal, decimals uint8) (uint64, error) {
	if decimals > MaxDecimals {
		return 0, &types.Error{
			Code:    types.ErrPrecision,
			Message: fmt.Sprintf("unsupported decimals %d, max %d", decimals, MaxDecimals),
		}
	}
	if amount.IsNegative() {
		return 0, &types.Error{
			Code:    types.ErrPrecision,
			Message: fmt.Sprintf("amount must be non-negative, got %s", amount),
		}
	}
	scaled := amount.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return 0, &types.Error{
			Code:    types.ErrPrecision,
			Message: fmt.Sprintf("amount %s has more than %d decimal places", amount, decimals),
		}
	}
	if scaled.Cmp(maxU64) > 0 {
		return 0, &types.Error{
			Code:    types.ErrPrecision,
			Message: fmt.Sprintf("amount %s exceeds the maximum representable base units", amount),
		}
	}
	return scaled.BigInt().Uint64(), nil
}

// ToDecimal is the exact inverse of ToBaseUnits: round-tripping is lossless
// for every valid input.
func ToDecimal(baseUnits uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(baseUnits), 0).Shift(-int32(decimals))
}
