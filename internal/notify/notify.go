// Package notify delivers human-readable trade reports.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Notifier delivers a report. Delivery is best effort.
type Notifier interface {
	Send(ctx context.Context, msg string) error
}

// Multi sends to every notifier and joins their errors.
type Multi []Notifier

// Send implements Notifier.
func (m Multi) Send(ctx context.Context, msg string) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes reports to a logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("report")}
}

// Send implements Notifier.
func (n *LogNotifier) Send(_ context.Context, msg string) error {
	n.logger.Info(msg)
	return nil
}
