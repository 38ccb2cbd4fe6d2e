package storage

import (
	"context"
	"database/sql"
	"fmt"

	// registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

const sqlitePragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS games (
		id             TEXT PRIMARY KEY,
		board          TEXT    NOT NULL,
		current_player TEXT    NOT NULL,
		status         TEXT    NOT NULL,
		version        INTEGER NOT NULL,
		created_at     INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS processed_requests (
		request_id TEXT PRIMARY KEY,
		response   TEXT    NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS processed_requests_created_at ON processed_requests (created_at)`,
}

type Storage struct {
	Connection *sql.DB
}

func NewSQLiteStorage(path string) (*Storage, error) {
	conn, err := sql.Open("sqlite", path+sqlitePragmas)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	// a single writer keeps SQLITE_BUSY out of the compare-and-swap path.
	conn.SetMaxOpenConns(1)

	if err = conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &Storage{Connection: conn}, nil
}

func (that *Storage) Init(ctx context.Context) error {
	for _, query := range sqliteSchema {
		if _, err := that.Connection.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("can't create table: %w", err)
		}
	}

	return nil
}

func (that *Storage) Close() error {
	return that.Connection.Close()
}
