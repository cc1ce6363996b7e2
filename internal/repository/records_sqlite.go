package repository

import (
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

var sqliteDialect = sqlDialect{
	name: BackendSQLite,
	createTable: `
	CREATE TABLE IF NOT EXISTS offline_records (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	selectQuery: `SELECT data FROM offline_records WHERE name = ?`,
	upsertQuery: `
		INSERT INTO offline_records (name, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
	deleteQuery: `DELETE FROM offline_records WHERE name = ?`,
}

// NewSQLiteRecordStore opens (and creates if needed) the record database at dbPath.
func NewSQLiteRecordStore(dbPath string) (*SQLRecordStore, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store, err := newSQLRecordStore(db, sqliteDialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.WithField("component", "SQLRecordStore").Infof("initialized SQLite records: %s", dbPath)
	return store, nil
}
