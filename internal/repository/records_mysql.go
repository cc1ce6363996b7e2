package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	log "github.com/sirupsen/logrus"
)

var mysqlDialect = sqlDialect{
	name: BackendMySQL,
	createTable: `
	CREATE TABLE IF NOT EXISTS offline_records (
		name VARCHAR(191) NOT NULL PRIMARY KEY,
		data LONGBLOB NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	selectQuery: `SELECT data FROM offline_records WHERE name = ?`,
	upsertQuery: `
		INSERT INTO offline_records (name, data, updated_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			data = VALUES(data),
			updated_at = VALUES(updated_at)`,
	deleteQuery: `DELETE FROM offline_records WHERE name = ?`,
}

// MySQLDSN builds a go-sql-driver DSN for a TCP server.
func MySQLDSN(host string, port int, user, password, database string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", host, port)
	cfg.DBName = database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// NewMySQLRecordStore creates a MySQL record store.
func NewMySQLRecordStore(dsn string) (*SQLRecordStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := pingDB(db, "MySQL"); err != nil {
		db.Close()
		return nil, err
	}

	store, err := newSQLRecordStore(db, mysqlDialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.WithField("component", "SQLRecordStore").Info("initialized MySQL records")
	return store, nil
}
