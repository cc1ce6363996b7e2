package repository

import (
	"context"
)

// RecordStore is the durable key-value storage for small named records such
// as the cart snapshot and the update state. Writes replace the whole record.
type RecordStore interface {
	// GetRecord returns the stored bytes, or ErrRecordNotFound.
	GetRecord(ctx context.Context, name string) ([]byte, error)

	// PutRecord creates or replaces the record.
	PutRecord(ctx context.Context, name string, data []byte) error

	// DeleteRecord removes the record. Deleting a missing record is not an error.
	DeleteRecord(ctx context.Context, name string) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close closes the repository connection.
	Close() error
}

// RecordError is returned by RecordStore implementations.
type RecordError string

func (e RecordError) Error() string { return string(e) }

const (
	ErrRecordNotFound RecordError = "record not found"
	ErrEmptyName      RecordError = "record name must not be empty"
)

// Well-known record names.
const (
	RecordCart        = "cart"
	RecordUpdateState = "offline:update-state"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendMySQL    = "mysql"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)
