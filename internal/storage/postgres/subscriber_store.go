package postgres

import (
	"context"
	"fmt"

	"solana-copy-trader/internal/notify"
)

// SubscriberStore implements notify.SubscriberStore using PostgreSQL.
type SubscriberStore struct {
	pool *Pool
}

// NewSubscriberStore creates a new SubscriberStore.
func NewSubscriberStore(pool *Pool) *SubscriberStore {
	return &SubscriberStore{pool: pool}
}

// Compile-time interface check.
var _ notify.SubscriberStore = (*SubscriberStore)(nil)

// Add registers a chat, refreshing the username if it is already known.
func (s *SubscriberStore) Add(ctx context.Context, sub notify.Subscriber) error {
	query := `
		INSERT INTO subscribers (chat_id, username)
		VALUES ($1, $2)
		ON CONFLICT (chat_id) DO UPDATE
		SET username = EXCLUDED.username, updated_at = now()
	`

	if _, err := s.pool.Exec(ctx, query, sub.ChatID, sub.Username); err != nil {
		return fmt.Errorf("upsert subscriber: %w", err)
	}
	return nil
}

// List returns every subscriber ordered by registration time.
func (s *SubscriberStore) List(ctx context.Context) ([]notify.Subscriber, error) {
	query := `
		SELECT chat_id, username
		FROM subscribers
		ORDER BY created_at ASC, chat_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	var subs []notify.Subscriber
	for rows.Next() {
		var sub notify.Subscriber
		if err := rows.Scan(&sub.ChatID, &sub.Username); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return subs, nil
}
