package domain

import "github.com/shopspring/decimal"

// TradeDelta is the balance change of one owner across a pool's two mints.
// LessAmount is the signed (non-positive) change of the mint that decreased.
type TradeDelta struct {
	LessMint   string
	LessAmount decimal.Decimal
	MoreMint   string
	MoreAmount decimal.Decimal
}

// Type classifies the delta from the owner's perspective.
func (d TradeDelta) Type() SwapType {
	switch {
	case IsNative(d.LessMint):
		return SwapTypeBuy
	case IsNative(d.MoreMint):
		return SwapTypeSell
	default:
		return SwapTypeSwap
	}
}

// From returns the spent side with a positive amount.
func (d TradeDelta) From() (string, decimal.Decimal) {
	return d.LessMint, d.LessAmount.Abs()
}

// To returns the received side.
func (d TradeDelta) To() (string, decimal.Decimal) {
	return d.MoreMint, d.MoreAmount
}
