// Package tokens resolves token mint metadata (decimals, name, symbol)
// from the chain and caches the results.
package tokens

import (
	"context"

	"solana-copy-trader/internal/domain"
)

// Resolver returns metadata for a mint.
type Resolver interface {
	Resolve(ctx context.Context, mint string) (domain.TokenMetadata, error)
}

// Cache stores resolved metadata. Get returns domain.ErrNotFound on a miss.
type Cache interface {
	Get(ctx context.Context, mint string) (domain.TokenMetadata, error)
	Set(ctx context.Context, meta domain.TokenMetadata) error
}

// normalizeSymbol renames a non-native token that claims the native symbol,
// and falls back to an abbreviated mint when no symbol is published.
func normalizeSymbol(mint, symbol string) string {
	if symbol == domain.NativeSymbol && !domain.IsNative(mint) {
		return "SPL Token"
	}
	if symbol == "" {
		return shortMint(mint)
	}
	return symbol
}

func shortMint(mint string) string {
	if len(mint) <= 8 {
		return mint
	}
	return mint[:4] + ".." + mint[len(mint)-4:]
}
