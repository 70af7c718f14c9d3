package audit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"solana-copy-trader/internal/domain"
)

type memSink struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	err     error
}

func (s *memSink) Name() string { return "mem" }

func (s *memSink) Append(_ context.Context, e domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return s.err
}

func (s *memSink) all() []domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditEntry(nil), s.entries...)
}

func TestRecorder_FansOutAndAssignsIDs(t *testing.T) {
	a, b := &memSink{}, &memSink{err: errors.New("down")}
	r := NewRecorder(zap.NewNop(), nil, 8, a, b)

	r.Record(context.Background(), domain.AuditEntry{Action: domain.AuditBuy, Token: "mint"})
	r.Record(context.Background(), domain.AuditEntry{ID: "fixed", Action: domain.AuditSkipped})
	require.NoError(t, r.Close(context.Background()))

	got := a.all()
	require.Len(t, got, 2)
	_, err := uuid.Parse(got[0].ID)
	assert.NoError(t, err)
	assert.False(t, got[0].Timestamp.IsZero())
	assert.Equal(t, "fixed", got[1].ID)
	assert.Len(t, b.all(), 2, "a failing sink does not stop delivery")
}

func TestRecorder_CloseIsIdempotent(t *testing.T) {
	r := NewRecorder(nil, nil, 1)
	require.NoError(t, r.Close(context.Background()))
	require.NoError(t, r.Close(context.Background()))
}

func TestRecorder_RecordAfterCloseIsDropped(t *testing.T) {
	sink := &memSink{}
	r := NewRecorder(zap.NewNop(), nil, 4, sink)
	r.Record(context.Background(), domain.AuditEntry{Action: domain.AuditBuy})
	require.NoError(t, r.Close(context.Background()))

	assert.NotPanics(t, func() {
		r.Record(context.Background(), domain.AuditEntry{Action: domain.AuditSellFailed})
	})
	assert.Len(t, sink.all(), 1)
}

func TestRecorder_ConcurrentRecordAndClose(t *testing.T) {
	sink := &memSink{}
	r := NewRecorder(zap.NewNop(), nil, 1024, sink)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Record(context.Background(), domain.AuditEntry{Action: domain.AuditError})
			}
		}()
	}
	require.NoError(t, r.Close(context.Background()))
	wg.Wait()

	assert.LessOrEqual(t, len(sink.all()), 400)
}

func TestCSVSink_HeaderOnceAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade_log.csv")

	s, err := NewCSVSink(path)
	require.NoError(t, err)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Append(context.Background(), domain.AuditEntry{
		Timestamp: ts,
		Action:    domain.AuditBuySuccess,
		Wallet:    "wallet",
		DEX:       domain.DEXRaydium,
		Token:     "mint",
		Amount:    "1.5",
		Reason:    "Succeed copying buy.",
	}))
	require.NoError(t, s.Close())

	// Reopening appends without a second header.
	s, err = NewCSVSink(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), domain.AuditEntry{
		Timestamp: ts, Action: domain.AuditSkipped, Reason: "Below minimum trade size, target",
	}))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, CSVHeader, lines[0])
	assert.Equal(t, "2024-03-01T12:00:00Z,Buy Success,wallet,Raydium,mint,1.5,Succeed copying buy.", lines[1])
	assert.Equal(t, `2024-03-01T12:00:00Z,Skipped,,,,,"Below minimum trade size, target"`, lines[2])
}
