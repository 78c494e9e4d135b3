// Package sqlite implements the repository interfaces using SQLite as
// the storage backend. modernc.org/sqlite is a pure Go driver, so no C
// toolchain is needed and tests can use ":memory:" databases.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DB wraps a sql.DB connection pool and implements both
// repository.UserRepository and repository.TodoRepository.
type DB struct {
	conn *sql.DB
}

// New opens the database, configures pragmas, and runs migrations.
// dbPath may be ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed during a write; foreign keys are off by
	// default in SQLite and we rely on todos.user_id referencing users.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	// line_messaging_id uniqueness: SQLite unique indexes ignore NULLs,
	// which is exactly the invariant we want (at most one user per chat
	// identity, unlinked users unconstrained).
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                    TEXT PRIMARY KEY,
			line_user_id          TEXT NOT NULL UNIQUE,
			line_display_name     TEXT NOT NULL DEFAULT '',
			line_picture_url      TEXT NOT NULL DEFAULT '',
			line_messaging_id     TEXT,
			link_token            TEXT,
			link_token_expires_at DATETIME,
			notification_time     TEXT NOT NULL DEFAULT '08:00',
			created_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_line_messaging_id
			ON users(line_messaging_id) WHERE line_messaging_id IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_users_link_token ON users(link_token);
		CREATE INDEX IF NOT EXISTS idx_users_notification_time ON users(notification_time);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS todos (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id),
			title        TEXT NOT NULL,
			date         TEXT NOT NULL,
			is_completed INTEGER NOT NULL DEFAULT 0,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_todos_user_id ON todos(user_id);
		CREATE INDEX IF NOT EXISTS idx_todos_user_date ON todos(user_id, date);
	`)
	if err != nil {
		return fmt.Errorf("creating todos table: %w", err)
	}

	return nil
}
