package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is an open mirrored holding. Positions are owned by the ledger;
// callers always receive copies.
type Position struct {
	Mint         string
	Amount       decimal.Decimal // held UI amount
	Decimals     int
	Symbol       string
	DEX          DEX
	Pool         *string
	Fee          decimal.Decimal // accumulated network fees in SOL
	Sold         bool            // set on the copy reported for a closed position
	BuySignature string
	OpenedAt     time.Time
}

// RawAmount returns the held amount in base units.
func (p Position) RawAmount() uint64 {
	return ToBaseUnits(p.Amount, p.Decimals)
}

// PoolAddress returns the pool address or an empty string.
func (p Position) PoolAddress() string {
	if p.Pool == nil {
		return ""
	}
	return *p.Pool
}
