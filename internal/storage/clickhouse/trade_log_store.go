package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-copy-trader/internal/domain"
	"solana-copy-trader/internal/storage"
)

// TradeLogStore implements storage.TradeLogStore using ClickHouse.
// ReplacingMergeTree collapses retried writes of the same ID on merge, so
// Append does not check for duplicates.
type TradeLogStore struct {
	conn *Conn
}

// NewTradeLogStore creates a new TradeLogStore.
func NewTradeLogStore(conn *Conn) *TradeLogStore {
	return &TradeLogStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeLogStore = (*TradeLogStore)(nil)

// Name implements storage.TradeLogStore.
func (s *TradeLogStore) Name() string { return "clickhouse" }

// Append adds an entry.
func (s *TradeLogStore) Append(ctx context.Context, e domain.AuditEntry) error {
	if e.ID == "" {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trade_log (
			id, logged_at, action, wallet, dex, token, amount, reason
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		e.ID, e.Timestamp.UTC(), e.Action, e.Wallet,
		string(e.DEX), e.Token, e.Amount, e.Reason,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *TradeLogStore) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	query := `
		SELECT id, logged_at, action, wallet, dex, token, amount, reason
		FROM trade_log FINAL
		ORDER BY logged_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, uint64(storage.NormalizeLimit(limit)))
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	return scanTradeLog(rows)
}

// CountByAction returns the number of entries per action since the given time.
func (s *TradeLogStore) CountByAction(ctx context.Context, since time.Time) (map[string]uint64, error) {
	query := `
		SELECT action, count() FROM trade_log FINAL
		WHERE logged_at >= ?
		GROUP BY action
	`

	rows, err := s.conn.Query(ctx, query, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var action string
		var n uint64
		if err := rows.Scan(&action, &n); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		counts[action] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate count rows: %w", err)
	}
	return counts, nil
}

func scanTradeLog(rows chRows) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry

	for rows.Next() {
		var e domain.AuditEntry
		var dex string
		err := rows.Scan(
			&e.ID, &e.Timestamp, &e.Action, &e.Wallet,
			&dex, &e.Token, &e.Amount, &e.Reason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade log row: %w", err)
		}
		e.DEX = domain.DEX(dex)
		e.Timestamp = e.Timestamp.UTC()
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade log rows: %w", err)
	}
	return entries, nil
}
