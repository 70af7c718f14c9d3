package dex

import (
	"context"
	"encoding/binary"

	"github.com/shopspring/decimal"

	"solana-copy-trader/internal/domain"
	"solana-copy-trader/internal/solana"
	"solana-copy-trader/internal/solana/stub"
)

const (
	testWallet   = "target-wallet"
	testOperator = "operator"
)

// key returns a deterministic valid address.
func key(n byte) string {
	var b [32]byte
	for i := range b {
		b[i] = n
	}
	return solana.PublicKeyFromBytes(b[:]).String()
}

var (
	tokenMint = key(7)
	otherMint = key(8)
)

func balance(owner, mint, raw string, decimals int) solana.TokenBalance {
	return solana.TokenBalance{Owner: owner, Mint: mint, Amount: solana.UITokenAmount{Amount: raw, Decimals: decimals}}
}

func poolData(baseVault, quoteVault, baseMint, quoteMint string) []byte {
	data := make([]byte, RaydiumPoolStateLen)
	put := func(off int, addr string) {
		pk := solana.MustPublicKey(addr)
		copy(data[off:off+32], pk[:])
	}
	put(offBaseVault, baseVault)
	put(offQuoteVault, quoteVault)
	put(offBaseMint, baseMint)
	put(offQuoteMint, quoteMint)
	return data
}

func tokenAccountData(mint string, amount uint64) []byte {
	data := make([]byte, 165)
	pk := solana.MustPublicKey(mint)
	copy(data[0:32], pk[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	return data
}

// addPool registers a pool with vault reserves in rpc.
func addPool(rpc *stub.RPCClient, pool, baseMint, quoteMint string, baseReserve, quoteReserve uint64, vaultSeed byte) {
	baseVault, quoteVault := key(vaultSeed), key(vaultSeed+1)
	rpc.SetAccount(pool, &solana.AccountInfo{
		Owner: RaydiumAMMProgramID,
		Data:  poolData(baseVault, quoteVault, baseMint, quoteMint),
	})
	rpc.SetAccount(baseVault, &solana.AccountInfo{Owner: solana.TokenProgramID, Data: tokenAccountData(baseMint, baseReserve)})
	rpc.SetAccount(quoteVault, &solana.AccountInfo{Owner: solana.TokenProgramID, Data: tokenAccountData(quoteMint, quoteReserve)})
}

func transfer(src, dst, authority, amount string) solana.Instruction {
	return solana.Instruction{
		ProgramID: solana.TokenProgramID,
		Parsed: &solana.ParsedInstruction{
			Type: "transfer",
			Info: solana.ParsedInfo{Source: src, Destination: dst, Authority: authority, Amount: amount},
		},
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fakeSigner returns the transaction with a marker byte appended.
type fakeSigner struct{ pub string }

func (f fakeSigner) PublicKey() string { return f.pub }
func (f fakeSigner) SignTransaction(tx []byte) ([]byte, error) {
	return append(append([]byte(nil), tx...), 0xAA), nil
}

// fakeAdapter is a configurable Adapter for registry tests.
type fakeAdapter struct {
	dex    domain.DEX
	detect func([]string) bool
}

func (f fakeAdapter) DEX() domain.DEX          { return f.dex }
func (f fakeAdapter) Detect(logs []string) bool { return f.detect(logs) }
func (f fakeAdapter) Classify(context.Context, *solana.Transaction, string) (*Trade, error) {
	return nil, nil
}
func (f fakeAdapter) Quote(context.Context, SwapRequest) (*Quote, error)         { return nil, nil }
func (f fakeAdapter) Execute(context.Context, SwapRequest) (*Execution, error)   { return nil, nil }
func (f fakeAdapter) ExitValue(context.Context, domain.Position) (uint64, error) { return 0, nil }
func (f fakeAdapter) Received(context.Context, *solana.Transaction, domain.Leg, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f fakeAdapter) Proceeds(context.Context, *solana.Transaction, domain.Position, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
