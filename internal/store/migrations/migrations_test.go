package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	tables := []string{"systems", "personas", "layers", "shifts", "shift_statuses", "messages", "guilds", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestCheckDBMigrationStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	err := CheckDBMigrationStatus(db)
	if err == nil {
		t.Error("CheckDBMigrationStatus() expected error for fresh database, got nil")
	}
	if err.Error() != "database has no schema version (needs migration)" {
		t.Errorf("CheckDBMigrationStatus() error = %q, want error about needing migration", err.Error())
	}
}

func TestCheckDBMigrationStatus_AfterMigration(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after migration returned error: %v", err)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("First MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("Second MigrateUp() failed: %v (should be idempotent)", err)
	}
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after double migration returned error: %v", err)
	}
}

func TestForeignKeyConstraints(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	// A persona must belong to an existing system.
	_, err := db.Exec(`
		INSERT INTO personas (id, kind, system_id, name, created_at)
		VALUES ('p-1', 'alter', 'no-such-system', 'Luna', datetime('now'))
	`)
	if err == nil {
		t.Error("Expected foreign key constraint violation, but insert succeeded")
	}
}

func TestSchema_MessagesSurviveSystemDelete(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	if _, err := db.Exec("INSERT INTO systems (id, owner_user_id, name, created_at) VALUES ('sys-1', 'u-1', 'Sys', datetime('now'))"); err != nil {
		t.Fatalf("Failed to insert system: %v", err)
	}
	_, err := db.Exec(`
		INSERT INTO messages (external_id, channel_id, author_user_id, system_id, persona_kind, persona_id, content, created_at)
		VALUES ('m-1', 'chan-1', 'u-1', 'sys-1', 'alter', 'p-1', 'hi', datetime('now'))
	`)
	if err != nil {
		t.Fatalf("Failed to insert message: %v", err)
	}

	if _, err := db.Exec("DELETE FROM systems WHERE id = 'sys-1'"); err != nil {
		t.Fatalf("Failed to delete system: %v", err)
	}

	// Message records deliberately carry no foreign key; they outlive the system.
	var id string
	if err := db.QueryRow("SELECT external_id FROM messages WHERE external_id = 'm-1'").Scan(&id); err != nil {
		t.Errorf("Message did not survive system deletion: %v", err)
	}
}

func TestSchema_OneSystemPerOwner(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	if _, err := db.Exec("INSERT INTO systems (id, owner_user_id, name, created_at) VALUES ('sys-1', 'u-1', 'First', datetime('now'))"); err != nil {
		t.Fatalf("Failed to insert first system: %v", err)
	}
	_, err := db.Exec("INSERT INTO systems (id, owner_user_id, name, created_at) VALUES ('sys-2', 'u-1', 'Second', datetime('now'))")
	if err == nil {
		t.Error("Expected unique constraint violation for duplicate owner, but insert succeeded")
	}
}

func TestSchema_PersonaKindChecked(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	if _, err := db.Exec("INSERT INTO systems (id, owner_user_id, name, created_at) VALUES ('sys-1', 'u-1', 'Sys', datetime('now'))"); err != nil {
		t.Fatalf("Failed to insert system: %v", err)
	}
	_, err := db.Exec(`
		INSERT INTO personas (id, kind, system_id, name, created_at)
		VALUES ('p-1', 'ghost', 'sys-1', 'Casper', datetime('now'))
	`)
	if err == nil {
		t.Error("Expected check constraint violation for unknown kind, but insert succeeded")
	}
}

// openTestDB opens an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}
	return db
}
