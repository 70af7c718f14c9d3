package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Native asset constants. The native asset is identified by the wrapped SOL
// mint address throughout the engine.
const (
	NativeMint     = "So11111111111111111111111111111111111111112"
	NativeSymbol   = "SOL"
	NativeDecimals = 9
	LamportsPerSOL = 1_000_000_000
)

// DEX identifies a supported decentralized-exchange protocol.
type DEX string

const (
	// DEXJupiter is the Jupiter v6 aggregator (transfer-trace classification).
	DEXJupiter DEX = "Jupiter"
	// DEXRaydium is the Raydium AMM v4 pool protocol (balance-diff classification).
	DEXRaydium DEX = "Raydium"
)

// Valid reports whether d is a known protocol.
func (d DEX) Valid() bool {
	return d == DEXJupiter || d == DEXRaydium
}

func (d DEX) String() string { return string(d) }

// SwapType is the canonical classification of a swap.
type SwapType string

const (
	SwapTypeBuy  SwapType = "Buy"  // native asset in, token out
	SwapTypeSell SwapType = "Sell" // token in, native asset out
	SwapTypeSwap SwapType = "Swap" // neither leg is native
)

// IsNative reports whether mint is the native asset.
func IsNative(mint string) bool {
	return mint == NativeMint
}

// LamportsToSOL converts a lamport amount to SOL.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromInt(int64(lamports)).Shift(-NativeDecimals)
}

// ToBaseUnits converts a UI amount to integer base units, truncating any
// precision beyond decimals.
func ToBaseUnits(amount decimal.Decimal, decimals int) uint64 {
	raw := amount.Shift(int32(decimals)).Truncate(0)
	if raw.IsNegative() {
		return 0
	}
	return raw.BigInt().Uint64()
}

// FromBaseUnits converts integer base units to a UI amount.
func FromBaseUnits(raw uint64, decimals int) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}
