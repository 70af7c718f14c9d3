package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-copy-trader/internal/domain"
	"solana-copy-trader/internal/storage"
)

// TradeLogStore implements storage.TradeLogStore using PostgreSQL.
type TradeLogStore struct {
	pool *Pool
}

// NewTradeLogStore creates a new TradeLogStore.
func NewTradeLogStore(pool *Pool) *TradeLogStore {
	return &TradeLogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeLogStore = (*TradeLogStore)(nil)

// Name implements storage.TradeLogStore.
func (s *TradeLogStore) Name() string { return "postgres" }

// Append adds an entry. Returns ErrDuplicateKey if the ID exists.
func (s *TradeLogStore) Append(ctx context.Context, e domain.AuditEntry) error {
	if e.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_log (
			id, logged_at, action, wallet, dex, token, amount, reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		e.ID,
		e.Timestamp,
		e.Action,
		e.Wallet,
		string(e.DEX),
		e.Token,
		e.Amount,
		e.Reason,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade log entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *TradeLogStore) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	query := `
		SELECT id::text, logged_at, action, wallet, dex, token, amount, reason
		FROM trade_log
		ORDER BY logged_at DESC, id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, storage.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query recent trade log: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade log rows: %w", err)
	}
	return entries, nil
}

// GetByID retrieves one entry. Returns ErrNotFound if not exists.
func (s *TradeLogStore) GetByID(ctx context.Context, id string) (domain.AuditEntry, error) {
	query := `
		SELECT id::text, logged_at, action, wallet, dex, token, amount, reason
		FROM trade_log
		WHERE id = $1
	`

	e, err := scanAuditEntry(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return domain.AuditEntry{}, storage.ErrNotFound
		}
		return domain.AuditEntry{}, fmt.Errorf("get trade log entry: %w", err)
	}
	return e, nil
}

func scanAuditEntry(row pgx.Row) (domain.AuditEntry, error) {
	var e domain.AuditEntry
	var dex string

	err := row.Scan(
		&e.ID,
		&e.Timestamp,
		&e.Action,
		&e.Wallet,
		&dex,
		&e.Token,
		&e.Amount,
		&e.Reason,
	)
	if err != nil {
		return domain.AuditEntry{}, err
	}
	e.DEX = domain.DEX(dex)
	e.Timestamp = e.Timestamp.UTC()
	return e, nil
}
