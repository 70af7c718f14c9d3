package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrNotFound              = errors.New("not found")
	ErrNoPool                = errors.New("no pool account found")
	ErrInsufficientTransfers = errors.New("fewer than two transfers")
	ErrMissingLeg            = errors.New("missing swap leg")
	ErrUnknownDEX            = errors.New("unknown dex")
	ErrDecodeAccount         = errors.New("account data cannot be decoded")
	ErrFailedTransaction     = errors.New("transaction failed on-chain")
)

// ClassificationError reports that a transaction's evidence is insufficient or
// ambiguous. The event is dropped and not retried.
type ClassificationError struct {
	Signature string
	Reason    string
	Err       error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classify %s: %s: %v", e.Signature, e.Reason, e.Err)
	}
	return fmt.Sprintf("classify %s: %s", e.Signature, e.Reason)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// NewClassificationError creates a ClassificationError.
func NewClassificationError(signature, reason string, err error) *ClassificationError {
	return &ClassificationError{Signature: signature, Reason: reason, Err: err}
}

// ExternalCallError reports a failed quote, execute or fetch call. The ledger
// is left unchanged and the operation may be retried on the next event or cycle.
type ExternalCallError struct {
	Op  string
	Err error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalCallError) Unwrap() error { return e.Err }

// NewExternalCallError wraps err as an ExternalCallError.
func NewExternalCallError(op string, err error) *ExternalCallError {
	return &ExternalCallError{Op: op, Err: err}
}

// ConfigurationError is fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// IsClassificationError reports whether err is a ClassificationError.
func IsClassificationError(err error) bool {
	var ce *ClassificationError
	return errors.As(err, &ce)
}

// IsExternalCallError reports whether err is an ExternalCallError.
func IsExternalCallError(err error) bool {
	var ee *ExternalCallError
	return errors.As(err, &ee)
}
