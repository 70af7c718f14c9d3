package storage

import (
	"errors"

	"solana-copy-trader/internal/domain"
)

// Storage errors for append-only stores.
var (
	// ErrNotFound is returned when a requested record does not exist.
	// It is domain.ErrNotFound so stores satisfy cache contracts.
	ErrNotFound = domain.ErrNotFound

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. The trade log does not allow updates.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
