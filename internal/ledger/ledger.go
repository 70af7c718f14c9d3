// Package ledger holds the operator's open mirrored positions, at most one
// per mint.
//
// Mutations follow a claim/commit discipline: callers Reserve or Claim an
// entry under the lock, perform external calls unlocked, then Open, Release,
// Close or Unclaim. Entries in flight are invisible to Snapshot.
package ledger

import (
	"errors"
	"sort"
	"sync"

	"solana-copy-trader/internal/domain"
)

// ErrNotReserved is returned by Open when the mint was not reserved.
var ErrNotReserved = errors.New("ledger: mint not reserved")

type state int

const (
	stateOpening state = iota
	stateOpen
	stateClosing
)

type entry struct {
	state state
	pos   domain.Position
}

// Ledger is safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[string]*entry)}
}

// Reserve marks mint as being bought. It returns false if the mint is
// already held, being bought or being sold.
func (l *Ledger) Reserve(mint string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[mint]; ok {
		return false
	}
	l.entries[mint] = &entry{state: stateOpening}
	return true
}

// Open commits a reserved buy as an open position.
func (l *Ledger) Open(pos domain.Position) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[pos.Mint]
	if !ok || e.state != stateOpening {
		return ErrNotReserved
	}
	e.state = stateOpen
	e.pos = pos
	return nil
}

// Release drops a reservation after a failed buy.
func (l *Ledger) Release(mint string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[mint]; ok && e.state == stateOpening {
		delete(l.entries, mint)
	}
}

// Claim takes the open position for mint for selling.
func (l *Ledger) Claim(mint string) (domain.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[mint]
	if !ok || e.state != stateOpen {
		return domain.Position{}, false
	}
	e.state = stateClosing
	return e.pos, true
}

// Unclaim returns a claimed position to the open set after a failed sell.
func (l *Ledger) Unclaim(mint string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[mint]; ok && e.state == stateClosing {
		e.state = stateOpen
	}
}

// Close removes a claimed position after a completed sell.
func (l *Ledger) Close(mint string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[mint]; ok && e.state == stateClosing {
		delete(l.entries, mint)
	}
}

// Get returns the open position for mint.
func (l *Ledger) Get(mint string) (domain.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[mint]
	if !ok || e.state != stateOpen {
		return domain.Position{}, false
	}
	return e.pos, true
}

// Snapshot returns copies of all open positions, oldest first.
func (l *Ledger) Snapshot() []domain.Position {
	l.mu.Lock()
	out := make([]domain.Position, 0, len(l.entries))
	for _, e := range l.entries {
		if e.state == stateOpen {
			out = append(out, e.pos)
		}
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].Mint < out[j].Mint
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

// Len returns the number of held positions, including those being sold.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.state != stateOpening {
			n++
		}
	}
	return n
}
