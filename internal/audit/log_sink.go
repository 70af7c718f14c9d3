package audit

import (
	"context"

	"go.uber.org/zap"

	"solana-copy-trader/internal/domain"
)

// LogSink writes entries to a logger. It is used when no durable sink is
// configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("trade_log")}
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// Append implements Sink.
func (s *LogSink) Append(_ context.Context, e domain.AuditEntry) error {
	s.logger.Info(e.Reason,
		zap.String("id", e.ID),
		zap.String("action", e.Action),
		zap.String("wallet", e.Wallet),
		zap.String("dex", e.DEX.String()),
		zap.String("token", e.Token),
		zap.String("amount", e.Amount))
	return nil
}
