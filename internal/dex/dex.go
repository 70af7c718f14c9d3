// Package dex implements protocol adapters that turn raw transactions into
// trades and route mirrored swaps through each protocol.
package dex

import (
	"context"

	"github.com/shopspring/decimal"

	"solana-copy-trader/internal/domain"
	"solana-copy-trader/internal/solana"
)

// Adapter is the per-protocol strategy.
type Adapter interface {
	DEX() domain.DEX

	// Detect reports whether transaction logs show this protocol.
	Detect(logs []string) bool

	// Classify extracts the wallet's trade from a transaction. Failures are
	// *domain.ClassificationError.
	Classify(ctx context.Context, tx *solana.Transaction, wallet string) (*Trade, error)

	// Quote prices a swap without executing it.
	Quote(ctx context.Context, req SwapRequest) (*Quote, error)

	// Execute signs and broadcasts a swap.
	Execute(ctx context.Context, req SwapRequest) (*Execution, error)

	// Received measures the tokens of leg `to` the owner got in an executed buy.
	Received(ctx context.Context, tx *solana.Transaction, to domain.Leg, owner string) (decimal.Decimal, error)

	// Proceeds measures the native amount (SOL) an executed sell returned.
	Proceeds(ctx context.Context, tx *solana.Transaction, pos domain.Position, owner string) (decimal.Decimal, error)

	// ExitValue returns the lamports obtainable by selling pos now.
	ExitValue(ctx context.Context, pos domain.Position) (uint64, error)
}

// TradeLeg is one side of a classified trade before metadata is resolved.
type TradeLeg struct {
	Mint   string
	Amount decimal.Decimal
	// Scaled is false when Amount is in base units and still needs the
	// mint's decimals applied.
	Scaled bool
}

// Trade is an adapter's classification of a transaction.
type Trade struct {
	Type domain.SwapType
	From TradeLeg
	To   TradeLeg
	Pool *string
}

// SwapRequest describes a swap to quote or execute.
type SwapRequest struct {
	InputMint   string
	OutputMint  string
	Amount      uint64 // input base units
	SlippageBps int
	Pool        string // pool to route through, when the protocol has pools
}

// Quote is a priced swap.
type Quote struct {
	InputMint  string
	OutputMint string
	InAmount   uint64
	OutAmount  uint64
	MinOut     uint64
}

// Execution is a broadcast swap.
type Execution struct {
	Signature string
	// ExpectedOut is the quoted output in base units of the output mint.
	ExpectedOut uint64
}
