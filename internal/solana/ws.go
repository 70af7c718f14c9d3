package solana

import "context"

// WSClient defines the Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeLogs streams log notifications for transactions matching filter.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// Close closes the connection and all subscription channels.
	Close() error
}

// LogsFilter defines the subscription filter for logs.
type LogsFilter struct {
	// Mentions selects transactions that mention this account. The RPC
	// accepts exactly one address.
	Mentions []string
}

// LogNotification represents a logs subscription message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}

// Failed reports whether the notified transaction errored.
func (n LogNotification) Failed() bool {
	return n.Err != nil
}
