package domain

import "github.com/shopspring/decimal"

// Leg is one side of a swap.
type Leg struct {
	Mint     string          // token mint address
	Amount   decimal.Decimal // UI amount in the token's native precision
	Symbol   string
	Decimals int
}

// SwapEvent is the canonical classification of a monitored swap.
// It is produced once per processed ledger event and never mutated.
type SwapEvent struct {
	Signature string
	Wallet    string // monitored account that performed the swap
	DEX       DEX
	Type      SwapType
	From      Leg
	To        Leg
	Pool      *string // pool address (Raydium only)
	Slot      int64
	BlockTime int64 // unix seconds, 0 if unknown
}

// IsCircular reports whether both legs reference the same mint.
func (e *SwapEvent) IsCircular() bool {
	return e.From.Mint == e.To.Mint
}

// TargetMint returns the non-native mint the event trades.
// For Swap events it returns the output mint.
func (e *SwapEvent) TargetMint() string {
	if e.Type == SwapTypeSell {
		return e.From.Mint
	}
	return e.To.Mint
}

// NativeAmount returns the native-asset size of the event: the From leg of a
// buy, the To leg of a sell, zero otherwise.
func (e *SwapEvent) NativeAmount() decimal.Decimal {
	switch e.Type {
	case SwapTypeBuy:
		return e.From.Amount
	case SwapTypeSell:
		return e.To.Amount
	default:
		return decimal.Zero
	}
}
