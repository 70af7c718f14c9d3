package dex

import (
	"fmt"
	"math/big"

	"solana-copy-trader/internal/solana"
)

// Raydium AMM v4 constants.
const (
	RaydiumAMMProgramID = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	RaydiumAuthority    = "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"
	RaydiumPoolStateLen = 752
)

// liquidityStateV4 field offsets.
const (
	offBaseVault  = 336
	offQuoteVault = 368
	offBaseMint   = 400
	offQuoteMint  = 432
)

// PoolState is the subset of an AMM v4 pool account the engine reads.
type PoolState struct {
	Address    string
	BaseVault  string
	QuoteVault string
	BaseMint   string
	QuoteMint  string
}

// DecodePoolState parses a liquidityStateV4 account.
func DecodePoolState(address string, data []byte) (PoolState, error) {
	if len(data) != RaydiumPoolStateLen {
		return PoolState{}, fmt.Errorf("pool %s: data length %d, want %d", address, len(data), RaydiumPoolStateLen)
	}
	key := func(off int) string { return solana.PublicKeyFromBytes(data[off : off+32]).String() }
	return PoolState{
		Address:    address,
		BaseVault:  key(offBaseVault),
		QuoteVault: key(offQuoteVault),
		BaseMint:   key(offBaseMint),
		QuoteMint:  key(offQuoteMint),
	}, nil
}

// isPoolAccount reports whether an account is an AMM v4 pool state.
func isPoolAccount(info *solana.AccountInfo) bool {
	return info != nil && info.Owner == RaydiumAMMProgramID && len(info.Data) == RaydiumPoolStateLen
}

// Reserves are a pool's vault balances oriented around one mint.
type Reserves struct {
	In  uint64 // reserve of the input mint
	Out uint64 // reserve of the output mint
}

// AmountOut applies the constant-product formula
// out = amountIn × outReserve / (inReserve + amountIn), without fees.
func (r Reserves) AmountOut(amountIn uint64) uint64 {
	if amountIn == 0 || r.Out == 0 {
		return 0
	}
	num := new(big.Int).Mul(new(big.Int).SetUint64(amountIn), new(big.Int).SetUint64(r.Out))
	den := new(big.Int).Add(new(big.Int).SetUint64(r.In), new(big.Int).SetUint64(amountIn))
	return new(big.Int).Quo(num, den).Uint64()
}

// applySlippage reduces amount by bps basis points.
func applySlippage(amount uint64, bps int) uint64 {
	if bps <= 0 {
		return amount
	}
	if bps >= 10_000 {
		return 0
	}
	v := new(big.Int).Mul(new(big.Int).SetUint64(amount), big.NewInt(int64(10_000-bps)))
	return v.Quo(v, big.NewInt(10_000)).Uint64()
}
