package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"fakestore-offline/internal/compression"
	"fakestore-offline/internal/model"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteStore implements Store on a SQLite file.
// Eviction runs in a single transaction so readers never observe a
// partially evicted generation.
type SQLiteStore struct {
	db         *sql.DB
	compressor *compression.Compressor
	mu         sync.RWMutex
}

// SQLiteDSN builds a modernc DSN with WAL and a busy timeout.
func SQLiteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)
}

// NewSQLiteStore opens (and creates if needed) the cache database at dbPath.
func NewSQLiteStore(dbPath string, compressor *compression.Compressor) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", SQLiteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createCacheTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.WithField("component", "SQLiteStore").Infof("initialized with database: %s", dbPath)
	return &SQLiteStore{db: db, compressor: compressor}, nil
}

func createCacheTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS offline_cache_entries (
		generation TEXT NOT NULL,
		request_key TEXT NOT NULL,
		method TEXT NOT NULL,
		url TEXT NOT NULL,
		payload BLOB NOT NULL,
		content_type TEXT NOT NULL DEFAULT '',
		status_code INTEGER NOT NULL DEFAULT 200,
		stored_at INTEGER NOT NULL,
		PRIMARY KEY (generation, request_key)
	);
	CREATE TABLE IF NOT EXISTS offline_cache_evictions (
		generation TEXT PRIMARY KEY,
		evicted_at INTEGER NOT NULL
	);
	`
	_, err := db.Exec(query)
	return err
}

// Get retrieves an entry, dropping it if its payload cannot be decoded.
func (s *SQLiteStore) Get(ctx context.Context, generation string, key model.RequestKey) (*model.CachedEntry, error) {
	s.mu.RLock()
	query := `
		SELECT payload, content_type, status_code, stored_at
		FROM offline_cache_entries WHERE generation = ? AND request_key = ?`

	var (
		payload     []byte
		contentType string
		statusCode  int
		storedAt    int64
	)
	err := s.db.QueryRowContext(ctx, query, generation, key.String()).Scan(&payload, &contentType, &statusCode, &storedAt)
	s.mu.RUnlock()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	decoded, err := s.compressor.Decode(payload)
	if err != nil {
		log.WithFields(log.Fields{"component": "SQLiteStore", "generation": generation, "key": key.String()}).
			Warnf("dropping corrupt entry: %v", err)
		s.drop(ctx, generation, key)
		return nil, ErrCacheMiss
	}

	return &model.CachedEntry{
		Key:         key,
		Payload:     decoded,
		ContentType: contentType,
		StatusCode:  statusCode,
		StoredAt:    time.Unix(0, storedAt),
	}, nil
}

// Put upserts an entry unless a newer one is stored or the generation was
// evicted after the write was issued.
func (s *SQLiteStore) Put(ctx context.Context, generation string, key model.RequestKey, entry *model.CachedEntry) error {
	if err := validGeneration(generation); err != nil {
		return err
	}
	storedAt := entry.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now()
	}
	payload := s.compressor.Encode(entry.Payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var evictedAt int64
	err = tx.QueryRowContext(ctx, `SELECT evicted_at FROM offline_cache_evictions WHERE generation = ?`, generation).Scan(&evictedAt)
	switch {
	case err == nil:
		if storedAt.UnixNano() <= evictedAt {
			return ErrGenerationEvicted
		}
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to check eviction: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO offline_cache_entries (generation, request_key, method, url, payload, content_type, status_code, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(generation, request_key) DO UPDATE SET
			payload = excluded.payload,
			content_type = excluded.content_type,
			status_code = excluded.status_code,
			stored_at = excluded.stored_at
		WHERE excluded.stored_at >= offline_cache_entries.stored_at`,
		generation, key.String(), key.Method, key.URL, payload, entry.ContentType, entry.StatusCode, storedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrStaleWrite
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// EvictGeneration deletes the generation and records a tombstone in one
// transaction.
func (s *SQLiteStore) EvictGeneration(ctx context.Context, generation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM offline_cache_entries WHERE generation = ?`, generation)
	if err != nil {
		return fmt.Errorf("failed to evict generation %s: %w", generation, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO offline_cache_evictions (generation, evicted_at) VALUES (?, ?)
		ON CONFLICT(generation) DO UPDATE SET evicted_at = excluded.evicted_at`,
		generation, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("failed to record eviction of %s: %w", generation, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit eviction: %w", err)
	}

	deleted, _ := result.RowsAffected()
	log.WithFields(log.Fields{"component": "SQLiteStore", "generation": generation}).
		Infof("evicted %d entries", deleted)
	return nil
}

// ListGenerations returns the generations holding entries.
func (s *SQLiteStore) ListGenerations(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT generation FROM offline_cache_entries ORDER BY generation`)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer rows.Close()

	var generations []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		generations = append(generations, g)
	}
	return generations, rows.Err()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) drop(ctx context.Context, generation string, key model.RequestKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM offline_cache_entries WHERE generation = ? AND request_key = ?`,
		generation, key.String()); err != nil {
		log.WithField("component", "SQLiteStore").Warnf("failed to drop corrupt entry: %v", err)
	}
}

var _ Store = (*SQLiteStore)(nil)
