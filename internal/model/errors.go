package model

import (
	"errors"
	"fmt"
)

// Error taxonomy of the offline layer. Component boundaries convert storage
// and network failures into these; raw platform errors never cross them.
var (
	ErrTransport           = errors.New("transport error")
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrCacheCorruption     = errors.New("cache corruption")
	ErrPersistence         = errors.New("persistence failure")
	ErrGenerationConflict  = errors.New("generation conflict")
	ErrNoInstallPrompt     = errors.New("no install prompt captured")
)

// TransportError is a network failure: unreachable host, timeout, or an
// unreadable body.
type TransportError struct {
	Key     RequestKey
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("transport timeout for %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("transport error for %s: %v", e.Key, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// UnavailableError reports a request that could be served neither from the
// network nor from the cache.
type UnavailableError struct {
	Key   RequestKey
	Class RequestClass
	Cause error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("resource unavailable: %s", e.Key)
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

func (e *UnavailableError) Is(target error) bool { return target == ErrResourceUnavailable }

// PersistenceError is a durable storage read or write failure. The operation
// that produced it still returned its in-memory result.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// GenerationConflictError is an eviction or activation failure. It is
// retryable; the coordinator stays in the activating phase.
type GenerationConflictError struct {
	Generation string
	Err        error
}

func (e *GenerationConflictError) Error() string {
	return fmt.Sprintf("activating generation %q: %v", e.Generation, e.Err)
}

func (e *GenerationConflictError) Unwrap() error { return e.Err }

func (e *GenerationConflictError) Is(target error) bool { return target == ErrGenerationConflict }

// Retryable is always true for a generation conflict.
func (e *GenerationConflictError) Retryable() bool { return true }
