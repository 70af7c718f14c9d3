package clickhouse_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-copy-trader/internal/domain"
	"solana-copy-trader/internal/storage"
	chstore "solana-copy-trader/internal/storage/clickhouse"
)

func TestTradeLogStore_AppendAndRecent(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewTradeLogStore(conn)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	entries := []domain.AuditEntry{
		{ID: "a", Timestamp: base, Action: domain.AuditBuy, Wallet: "W", DEX: domain.DEXRaydium, Token: "MintA", Amount: "1.5", Reason: "Monitored new transaction"},
		{ID: "b", Timestamp: base.Add(time.Second), Action: domain.AuditBuySuccess, Wallet: "W", DEX: domain.DEXRaydium, Token: "MintA", Amount: "0.1", Reason: "Succeed copying buy."},
		{ID: "c", Timestamp: base.Add(2 * time.Second), Action: domain.AuditSkipped, Wallet: "W", Token: "MintB", Amount: "0.01", Reason: "Below minimum trade size"},
	}
	for _, e := range entries {
		require.NoError(t, store.Append(ctx, e))
	}

	got, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, domain.DEXRaydium, got[1].DEX)
	assert.Equal(t, "Succeed copying buy.", got[1].Reason)
	assert.True(t, got[1].Timestamp.Equal(entries[1].Timestamp))

	counts, err := store.CountByAction(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), counts[domain.AuditBuy])
	assert.Equal(t, uint64(1), counts[domain.AuditSkipped])
}

func TestTradeLogStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewTradeLogStore(conn)
	err := store.Append(context.Background(), domain.AuditEntry{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
