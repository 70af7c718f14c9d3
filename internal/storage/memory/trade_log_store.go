package memory

import (
	"context"
	"sync"

	"solana-copy-trader/internal/domain"
	"solana-copy-trader/internal/storage"
)

// TradeLogStore is an in-memory implementation of storage.TradeLogStore.
// It retains at most capacity entries, evicting the oldest.
type TradeLogStore struct {
	mu       sync.RWMutex
	entries  []domain.AuditEntry // oldest first
	ids      map[string]struct{}
	capacity int
}

// NewTradeLogStore creates a store holding up to capacity entries
// (unbounded when capacity <= 0).
func NewTradeLogStore(capacity int) *TradeLogStore {
	return &TradeLogStore{
		ids:      make(map[string]struct{}),
		capacity: capacity,
	}
}

// Compile-time interface check.
var _ storage.TradeLogStore = (*TradeLogStore)(nil)

// Name implements storage.TradeLogStore.
func (s *TradeLogStore) Name() string { return "memory" }

// Append adds an entry.
func (s *TradeLogStore) Append(_ context.Context, e domain.AuditEntry) error {
	if e.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[e.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.entries = append(s.entries, e)
	s.ids[e.ID] = struct{}{}

	if s.capacity > 0 && len(s.entries) > s.capacity {
		evicted := s.entries[0]
		delete(s.ids, evicted.ID)
		s.entries = s.entries[1:]
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *TradeLogStore) Recent(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	limit = storage.NormalizeLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := min(limit, len(s.entries))
	out := make([]domain.AuditEntry, 0, n)
	for i := len(s.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// Len returns the number of retained entries.
func (s *TradeLogStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
