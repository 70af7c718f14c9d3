// Package audit records the append-only trade log.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"solana-copy-trader/internal/domain"
	"solana-copy-trader/internal/observability"
)

// Sink persists audit entries.
type Sink interface {
	Name() string
	Append(ctx context.Context, entry domain.AuditEntry) error
}

// DefaultBufferSize is the Recorder queue length.
const DefaultBufferSize = 256

// Recorder fans entries out to every sink on a background goroutine.
// Record never blocks the trading path: when the queue is full or the
// Recorder is closed the entry is dropped and logged.
type Recorder struct {
	sinks   []Sink
	queue   chan domain.AuditEntry
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time

	mu     sync.RWMutex // guards closed and sends on queue
	closed bool
	done   chan struct{}
}

// NewRecorder creates a Recorder and starts its writer.
func NewRecorder(logger *zap.Logger, metrics *observability.Metrics, bufferSize int, sinks ...Sink) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	r := &Recorder{
		sinks:   sinks,
		queue:   make(chan domain.AuditEntry, bufferSize),
		logger:  logger.Named("audit"),
		metrics: metrics,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues entry, assigning an ID and timestamp when unset.
func (r *Recorder) Record(_ context.Context, entry domain.AuditEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn("audit recorder closed, dropping entry",
			zap.String("action", entry.Action),
			zap.String("token", entry.Token))
		return
	}
	select {
	case r.queue <- entry:
	default:
		r.logger.Warn("audit queue full, dropping entry",
			zap.String("action", entry.Action),
			zap.String("token", entry.Token))
	}
}

// Close flushes queued entries and stops the writer.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for entry := range r.queue {
		for _, s := range r.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := s.Append(ctx, entry)
			cancel()
			r.metrics.RecordAuditWrite(s.Name(), err)
			if err != nil {
				r.logger.Error("audit write failed",
					zap.String("sink", s.Name()),
					zap.String("id", entry.ID),
					zap.Error(err))
			}
		}
	}
}
