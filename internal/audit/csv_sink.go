package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"

	"solana-copy-trader/internal/domain"
)

// CSVHeader is the first line of a new trade log.
const CSVHeader = "Timestamp, Action, Wallet, DEX, Token, Amount (SOL), Reason"

// CSVSink appends entries to a CSV file, creating it with a header when it
// does not exist.
type CSVSink struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

// NewCSVSink opens path for appending.
func NewCSVSink(path string) (*CSVSink, error) {
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	if fresh {
		if _, err := f.WriteString(CSVHeader + "\n"); err != nil {
			f.Close()
			return nil, fmt.Errorf("write trade log header: %w", err)
		}
	}
	return &CSVSink{file: f, w: csv.NewWriter(f)}, nil
}

// Name implements Sink.
func (s *CSVSink) Name() string { return "csv" }

// Append implements Sink.
func (s *CSVSink) Append(_ context.Context, e domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Write([]string{
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.Action,
		e.Wallet,
		e.DEX.String(),
		e.Token,
		e.Amount,
		e.Reason,
	}); err != nil {
		return fmt.Errorf("write trade log: %w", err)
	}
	s.w.Flush()
	return s.w.Error()
}

// Close closes the file.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	return s.file.Close()
}
