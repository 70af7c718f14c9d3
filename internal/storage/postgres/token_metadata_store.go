package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-copy-trader/internal/domain"
	"solana-copy-trader/internal/storage"
	"solana-copy-trader/internal/tokens"
)

// TokenMetadataStore implements tokens.Cache using PostgreSQL.
type TokenMetadataStore struct {
	pool *Pool
}

// NewTokenMetadataStore creates a new TokenMetadataStore.
func NewTokenMetadataStore(pool *Pool) *TokenMetadataStore {
	return &TokenMetadataStore{pool: pool}
}

// Compile-time interface check.
var _ tokens.Cache = (*TokenMetadataStore)(nil)

// Get retrieves metadata by mint. Returns ErrNotFound if not exists.
func (s *TokenMetadataStore) Get(ctx context.Context, mint string) (domain.TokenMetadata, error) {
	query := `
		SELECT mint, name, symbol, decimals
		FROM token_metadata
		WHERE mint = $1
	`

	m, err := scanTokenMetadata(s.pool.QueryRow(ctx, query, mint))
	if err != nil {
		if isNotFoundError(err) {
			return domain.TokenMetadata{}, storage.ErrNotFound
		}
		return domain.TokenMetadata{}, fmt.Errorf("get token metadata: %w", err)
	}
	return m, nil
}

// Set stores metadata, replacing any previous row for the mint.
func (s *TokenMetadataStore) Set(ctx context.Context, m domain.TokenMetadata) error {
	if m.Mint == "" || m.Decimals < 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_metadata (mint, name, symbol, decimals)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (mint) DO UPDATE
		SET name = EXCLUDED.name,
		    symbol = EXCLUDED.symbol,
		    decimals = EXCLUDED.decimals,
		    updated_at = now()
	`

	if _, err := s.pool.Exec(ctx, query, m.Mint, m.Name, m.Symbol, m.Decimals); err != nil {
		return fmt.Errorf("upsert token metadata: %w", err)
	}
	return nil
}

// scanTokenMetadata scans a single row into TokenMetadata.
func scanTokenMetadata(row pgx.Row) (domain.TokenMetadata, error) {
	var m domain.TokenMetadata

	err := row.Scan(
		&m.Mint,
		&m.Name,
		&m.Symbol,
		&m.Decimals,
	)
	if err != nil {
		return domain.TokenMetadata{}, err
	}
	return m, nil
}
