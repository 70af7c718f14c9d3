package storage

import (
	"context"

	"solana-copy-trader/internal/domain"
)

// TradeLogStore is an append-only store of audit entries.
// Implementations double as audit sinks.
type TradeLogStore interface {
	// Name identifies the store in logs and metrics.
	Name() string

	// Append adds an entry. Returns ErrDuplicateKey if the entry ID exists
	// and ErrInvalidInput if the ID is empty.
	Append(ctx context.Context, entry domain.AuditEntry) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

// DefaultRecentLimit bounds Recent when the caller passes a non-positive limit.
const DefaultRecentLimit = 100

// NormalizeLimit clamps limit to (0, 1000].
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > 1000:
		return 1000
	}
	return limit
}
