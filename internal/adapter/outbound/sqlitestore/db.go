// Package sqlitestore implements the Record Store ports on top of an
// embedded, pure-Go SQLite database (modernc.org/sqlite). Each collection is
// one table holding a JSON document column plus an index on its unique
// secondary key, matching the document-store shape named for persistence in
// the Record Store design.
package sqlitestore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	user_name TEXT NOT NULL,
	data TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_user_name ON users(user_name COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS groups (
	id TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	data TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_groups_display_name ON groups(display_name COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS clients (
	client_id TEXT PRIMARY KEY,
	data TEXT NOT NULL
);
`

// DB wraps the shared *sql.DB handle and exposes one store per collection.
// A single *sql.DB is safe for concurrent use; SQLite's own file lock plus
// the driver's connection pool provide the single-writer discipline the
// Record Store design requires.
type DB struct {
	conn *sql.DB
}

// Open opens (and, if needed, creates and migrates) a SQLite database at
// path. Use ":memory:" for an ephemeral database, matching DB_PATH's
// documented in-memory escape hatch.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}
	// modernc.org/sqlite serializes internally; a single connection avoids
	// SQLITE_BUSY from concurrent writers fighting over the file lock.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Users returns a Record Store for User resources.
func (d *DB) Users() *UserStore { return &UserStore{db: d.conn} }

// Groups returns a Record Store for Group resources.
func (d *DB) Groups() *GroupStore { return &GroupStore{db: d.conn} }

// Clients returns a Record Store for Client resources.
func (d *DB) Clients() *ClientStore { return &ClientStore{db: d.conn} }
