package solana_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-copy-trader/internal/solana"
	"solana-copy-trader/internal/solana/stub"
)

type delayedRPC struct {
	*stub.RPCClient
	visibleAfter int
	calls        int
}

func (d *delayedRPC) GetTransaction(ctx context.Context, sig string) (*solana.Transaction, error) {
	d.calls++
	if d.calls <= d.visibleAfter {
		return nil, nil
	}
	return d.RPCClient.GetTransaction(ctx, sig)
}

func TestFetchTransaction_RetriesUntilVisible(t *testing.T) {
	rpc := &delayedRPC{RPCClient: stub.NewRPCClient(), visibleAfter: 2}
	rpc.AddTransaction(&solana.Transaction{Signature: "sig", Slot: 7})

	tx, err := solana.FetchTransaction(context.Background(), rpc, "sig",
		solana.FetchPolicy{Attempts: 5, BaseDelay: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, int64(7), tx.Slot)
	assert.Equal(t, 3, rpc.calls)
}

func TestFetchTransaction_GivesUp(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Err = errors.New("boom")

	_, err := solana.FetchTransaction(context.Background(), rpc, "sig",
		solana.FetchPolicy{Attempts: 2, BaseDelay: time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestFetchTransaction_NotFound(t *testing.T) {
	_, err := solana.FetchTransaction(context.Background(), stub.NewRPCClient(), "sig",
		solana.FetchPolicy{Attempts: 2, BaseDelay: time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
