package solana

import (
	"context"
	"fmt"
	"time"
)

// FetchPolicy controls FetchTransaction retries.
type FetchPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultFetchPolicy retries for roughly 7.5s, enough for a confirmed
// transaction to become visible on most providers.
func DefaultFetchPolicy() FetchPolicy {
	return FetchPolicy{Attempts: 5, BaseDelay: 500 * time.Millisecond}
}

// FetchTransaction fetches a transaction, retrying with exponential backoff
// while it is not yet visible or the call fails.
func FetchTransaction(ctx context.Context, rpc RPCClient, signature string, policy FetchPolicy) (*Transaction, error) {
	if policy.Attempts <= 0 {
		policy.Attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < policy.Attempts; attempt++ {
		if attempt > 0 {
			delay := policy.BaseDelay * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		tx, err := rpc.GetTransaction(ctx, signature)
		if err == nil && tx != nil {
			return tx, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("transaction %s not found", signature)
		}
	}
	return nil, fmt.Errorf("fetch transaction after %d attempts: %w", policy.Attempts, lastErr)
}
