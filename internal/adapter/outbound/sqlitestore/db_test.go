package sqlitestore

import "testing"

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_CreatesSchema(t *testing.T) {
	db := openTestDB(t)
	if db.Users() == nil || db.Groups() == nil || db.Clients() == nil {
		t.Fatal("expected non-nil stores")
	}
}

func TestOpen_IdempotentMigration(t *testing.T) {
	// A second Open against the same in-memory instance would be a distinct
	// database, but re-running the schema against one handle must not error.
	db := openTestDB(t)
	if _, err := db.conn.Exec(schema); err != nil {
		t.Fatalf("re-running schema: %v", err)
	}
}
