package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// sqlDialect holds the statements that differ between SQL backends.
type sqlDialect struct {
	name        string
	createTable string
	selectQuery string
	upsertQuery string
	deleteQuery string
}

// SQLRecordStore implements RecordStore on any database/sql backend with a
// single offline_records table.
type SQLRecordStore struct {
	db      *sql.DB
	dialect sqlDialect
	// serialises writers; SQLite allows one writer at a time
	mu sync.RWMutex
}

func newSQLRecordStore(db *sql.DB, dialect sqlDialect) (*SQLRecordStore, error) {
	if _, err := db.Exec(dialect.createTable); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &SQLRecordStore{db: db, dialect: dialect}, nil
}

// Dialect returns the backend name.
func (r *SQLRecordStore) Dialect() string {
	return r.dialect.name
}

// GetRecord retrieves a record by name.
func (r *SQLRecordStore) GetRecord(ctx context.Context, name string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var data []byte
	err := r.db.QueryRowContext(ctx, r.dialect.selectQuery, name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record %s: %w", name, err)
	}
	return data, nil
}

// PutRecord inserts or replaces a record.
func (r *SQLRecordStore) PutRecord(ctx context.Context, name string, data []byte) error {
	if name == "" {
		return ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, r.dialect.upsertQuery, name, data, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("failed to put record %s: %w", name, err)
	}
	return nil
}

// DeleteRecord removes a record.
func (r *SQLRecordStore) DeleteRecord(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.ExecContext(ctx, r.dialect.deleteQuery, name)
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", name, err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		log.WithFields(log.Fields{"component": "SQLRecordStore", "dialect": r.dialect.name}).
			Debugf("deleted record %s", name)
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLRecordStore) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRecordStore) Close() error {
	return r.db.Close()
}

// pingDB verifies a freshly opened pool.
func pingDB(db *sql.DB, backend string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping %s: %w", backend, err)
	}
	return nil
}

var _ RecordStore = (*SQLRecordStore)(nil)
