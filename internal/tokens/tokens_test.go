package tokens

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-copy-trader/internal/domain"
	"solana-copy-trader/internal/solana"
	"solana-copy-trader/internal/solana/stub"
)

const testMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func mintData(decimals byte) []byte {
	data := make([]byte, 82)
	data[44] = decimals
	return data
}

func borsh(s string, width int) []byte {
	padded := make([]byte, width)
	copy(padded, s)
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(width))
	return append(out, padded...)
}

func metadataData(mint, name, symbol string) []byte {
	data := make([]byte, metadataHeaderLen)
	data[0] = 4
	m := solana.MustPublicKey(mint)
	copy(data[33:65], m[:])
	data = append(data, borsh(name, 32)...)
	data = append(data, borsh(symbol, 10)...)
	return append(data, borsh("https://example", 200)...)
}

func seedMint(t *testing.T, rpc *stub.RPCClient, mint string, decimals byte, name, symbol string) {
	t.Helper()
	rpc.SetAccount(mint, &solana.AccountInfo{Owner: solana.TokenProgramID, Data: mintData(decimals)})
	if name == "" && symbol == "" {
		return
	}
	addr, err := MetadataAddress(mint)
	require.NoError(t, err)
	rpc.SetAccount(addr, &solana.AccountInfo{Owner: solana.MetadataProgramID, Data: metadataData(mint, name, symbol)})
}

func TestRPCResolver_Resolve(t *testing.T) {
	rpc := stub.NewRPCClient()
	seedMint(t, rpc, testMint, 6, "USD Coin", "USDC")

	meta, err := NewRPCResolver(rpc, nil).Resolve(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenMetadata{Mint: testMint, Name: "USD Coin", Symbol: "USDC", Decimals: 6}, meta)
}

func TestRPCResolver_NativeShortCircuits(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Err = errors.New("must not be called")

	meta, err := NewRPCResolver(rpc, nil).Resolve(context.Background(), domain.NativeMint)
	require.NoError(t, err)
	assert.Equal(t, "SOL", meta.Symbol)
	assert.Equal(t, 9, meta.Decimals)
}

func TestRPCResolver_FakeSOLRenamed(t *testing.T) {
	rpc := stub.NewRPCClient()
	seedMint(t, rpc, testMint, 9, "Totally SOL", "SOL")

	meta, err := NewRPCResolver(rpc, nil).Resolve(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, "SPL Token", meta.Symbol)
}

func TestRPCResolver_NoMetadataFallsBackToMint(t *testing.T) {
	rpc := stub.NewRPCClient()
	seedMint(t, rpc, testMint, 5, "", "")

	meta, err := NewRPCResolver(rpc, nil).Resolve(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, 5, meta.Decimals)
	assert.Equal(t, "EPjF..Dt1v", meta.Symbol)
}

func TestRPCResolver_MissingMint(t *testing.T) {
	_, err := NewRPCResolver(stub.NewRPCClient(), nil).Resolve(context.Background(), testMint)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRPCResolver_RPCFailure(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Err = errors.New("timeout")

	_, err := NewRPCResolver(rpc, nil).Resolve(context.Background(), testMint)
	assert.True(t, domain.IsExternalCallError(err))
}

func TestDecodeMetadata_Truncated(t *testing.T) {
	data := metadataData(testMint, "Name", "SYM")
	_, err := decodeMetadata(data[:metadataHeaderLen+10])
	assert.Error(t, err)
}

type countingResolver struct {
	calls int
	meta  domain.TokenMetadata
}

func (r *countingResolver) Resolve(_ context.Context, mint string) (domain.TokenMetadata, error) {
	r.calls++
	m := r.meta
	m.Mint = mint
	return m, nil
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (domain.TokenMetadata, error) {
	return domain.TokenMetadata{}, errors.New("down")
}
func (failingCache) Set(context.Context, domain.TokenMetadata) error { return errors.New("down") }

func TestCachedResolver(t *testing.T) {
	ctx := context.Background()
	source := &countingResolver{meta: domain.TokenMetadata{Symbol: "BONK", Decimals: 5}}
	l1, l2 := NewMemoryCache(), NewMemoryCache()
	r := NewCachedResolver(source, nil, l1, failingCache{}, l2)

	meta, err := r.Resolve(ctx, testMint)
	require.NoError(t, err)
	assert.Equal(t, "BONK", meta.Symbol)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 1, l1.Len())
	assert.Equal(t, 1, l2.Len())

	_, err = r.Resolve(ctx, testMint)
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls, "served from cache")

	// A hit in a later cache back-fills the first.
	fresh := NewMemoryCache()
	require.NoError(t, l2.Set(ctx, domain.TokenMetadata{Mint: "other", Symbol: "X"}))
	r = NewCachedResolver(source, nil, fresh, l2)
	meta, err = r.Resolve(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "X", meta.Symbol)
	assert.Equal(t, 1, fresh.Len())
	assert.Equal(t, 1, source.calls)
}
