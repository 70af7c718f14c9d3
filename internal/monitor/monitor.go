// Package monitor follows the target wallet's transactions and feeds
// classified swaps to the mirror engine.
package monitor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-copy-trader/internal/domain"
	"solana-copy-trader/internal/mirror"
	"solana-copy-trader/internal/observability"
	"solana-copy-trader/internal/solana"
)

// DefaultMaxConcurrent bounds in-flight notifications.
const DefaultMaxConcurrent = 8

// ErrSubscriptionClosed is returned by Run when the log stream ends while
// the context is still live.
var ErrSubscriptionClosed = errors.New("monitor: log subscription closed")

// Detector maps transaction logs to a protocol.
type Detector interface {
	Detect(logs []string) (domain.DEX, bool)
}

// Deduplicator suppresses already processed signatures. Forget releases a
// signature whose processing did not get far enough to count.
type Deduplicator interface {
	CheckAndRecord(id string) (seen bool)
	Forget(id string)
}

// Classifier builds swap events from transactions.
type Classifier interface {
	Classify(ctx context.Context, tx *solana.Transaction, signature string, hint domain.DEX) (*domain.SwapEvent, error)
}

// Auditor receives trade log entries. Recording must not block.
type Auditor interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}

// Mirror applies swap events.
type Mirror interface {
	Handle(ctx context.Context, ev *domain.SwapEvent) mirror.Outcome
}

// Status is what Process did with a notification.
type Status string

const (
	StatusFailedTx     Status = "failed_tx"
	StatusNoProtocol   Status = "no_protocol"
	StatusDuplicate    Status = "duplicate"
	StatusFetchError   Status = "fetch_error"
	StatusUnclassified Status = "unclassified"
	StatusHandled      Status = "handled"
)

// Config holds monitor parameters.
type Config struct {
	Wallet        string
	MaxConcurrent int
	Fetch         solana.FetchPolicy
}

// Monitor consumes a logs subscription for one wallet.
type Monitor struct {
	cfg        Config
	ws         solana.WSClient
	rpc        solana.RPCClient
	detector   Detector
	dedup      Deduplicator
	classifier Classifier
	mirror     Mirror
	audit      Auditor
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithAuditor sets the trade log that receives fetch and classification
// errors.
func WithAuditor(a Auditor) Option {
	return func(m *Monitor) { m.audit = a }
}

// New creates a Monitor.
func New(cfg Config, ws solana.WSClient, rpc solana.RPCClient, detector Detector, dedup Deduplicator,
	classifier Classifier, m Mirror, metrics *observability.Metrics, logger *zap.Logger, opts ...Option) *Monitor {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.Fetch.Attempts <= 0 {
		cfg.Fetch = solana.DefaultFetchPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	mon := &Monitor{
		cfg:        cfg,
		ws:         ws,
		rpc:        rpc,
		detector:   detector,
		dedup:      dedup,
		classifier: classifier,
		mirror:     m,
		audit:      nopAuditor{},
		metrics:    metrics,
		logger:     logger.Named("monitor"),
	}
	for _, opt := range opts {
		opt(mon)
	}
	return mon
}

// Run subscribes to the wallet's logs and processes notifications until ctx
// is cancelled. In-flight notifications finish before Run returns.
func (m *Monitor) Run(ctx context.Context) error {
	notifs, err := m.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{m.cfg.Wallet}})
	if err != nil {
		return fmt.Errorf("monitor: subscribe %s: %w", m.cfg.Wallet, err)
	}
	m.logger.Info("monitoring wallet", zap.String("wallet", m.cfg.Wallet))

	g := new(errgroup.Group)
	g.SetLimit(m.cfg.MaxConcurrent)
	defer func() { _ = g.Wait() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-notifs:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrSubscriptionClosed
			}
			g.Go(func() error {
				m.Process(ctx, n)
				return nil
			})
		}
	}
}

// Process handles one notification synchronously.
func (m *Monitor) Process(ctx context.Context, n solana.LogNotification) Status {
	m.metrics.RecordNotification()
	log := m.logger.With(zap.String("signature", n.Signature), zap.Int64("slot", n.Slot))

	if n.Failed() {
		m.metrics.RecordNotificationSkipped(string(StatusFailedTx))
		return StatusFailedTx
	}

	hint, ok := m.detector.Detect(n.Logs)
	if !ok {
		m.metrics.RecordNotificationSkipped(string(StatusNoProtocol))
		return StatusNoProtocol
	}

	if m.dedup.CheckAndRecord(n.Signature) {
		m.metrics.RecordDuplicate()
		return StatusDuplicate
	}

	tx, err := solana.FetchTransaction(ctx, m.rpc, n.Signature, m.cfg.Fetch)
	if err != nil {
		// Not processed: a repeated notification may try again.
		m.dedup.Forget(n.Signature)
		log.Warn("fetch transaction failed", zap.Error(err))
		m.metrics.RecordExternalError("fetch transaction")
		m.auditError(ctx, hint, fmt.Sprintf("fetch transaction %s: %v", n.Signature, err))
		return StatusFetchError
	}

	ev, err := m.classifier.Classify(ctx, tx, n.Signature, hint)
	m.metrics.RecordClassified(hint.String(), eventType(ev), err)
	if err != nil {
		if domain.IsExternalCallError(err) {
			log.Warn("classification call failed", zap.String("dex", hint.String()), zap.Error(err))
		} else {
			log.Info("unclassified transaction", zap.String("dex", hint.String()), zap.Error(err))
		}
		reason := err.Error()
		if !domain.IsClassificationError(err) {
			reason = fmt.Sprintf("classify %s: %v", n.Signature, err)
		}
		m.auditError(ctx, hint, reason)
		return StatusUnclassified
	}

	out := m.mirror.Handle(ctx, ev)
	log.Debug("event handled",
		zap.String("type", string(ev.Type)),
		zap.String("outcome", string(out.Kind)))
	return StatusHandled
}

func (m *Monitor) auditError(ctx context.Context, hint domain.DEX, reason string) {
	m.audit.Record(ctx, domain.AuditEntry{
		Action: domain.AuditError,
		Wallet: m.cfg.Wallet,
		DEX:    hint,
		Reason: reason,
	})
}

func eventType(ev *domain.SwapEvent) string {
	if ev == nil {
		return ""
	}
	return string(ev.Type)
}

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, domain.AuditEntry) {}
