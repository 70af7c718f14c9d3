package dex

import (
	"fmt"

	"solana-copy-trader/internal/domain"
)

// Registry holds adapters in detection order.
type Registry struct {
	ordered []Adapter
	byDEX   map[domain.DEX]Adapter
}

// NewRegistry registers adapters. Detection tries them in argument order.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{byDEX: make(map[domain.DEX]Adapter, len(adapters))}
	for _, a := range adapters {
		r.ordered = append(r.ordered, a)
		r.byDEX[a.DEX()] = a
	}
	return r
}

// Get returns the adapter for d.
func (r *Registry) Get(d domain.DEX) (Adapter, error) {
	a, ok := r.byDEX[d]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDEX, d)
	}
	return a, nil
}

// Detect returns the first protocol whose adapter recognizes the logs.
func (r *Registry) Detect(logs []string) (domain.DEX, bool) {
	if len(logs) == 0 {
		return "", false
	}
	for _, a := range r.ordered {
		if a.Detect(logs) {
			return a.DEX(), true
		}
	}
	return "", false
}

// Adapters returns the registered adapters in detection order.
func (r *Registry) Adapters() []Adapter {
	return append([]Adapter(nil), r.ordered...)
}
