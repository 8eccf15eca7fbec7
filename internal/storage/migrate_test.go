package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestMigrateRoundTripCompatibility(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate-roundtrip.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := MigrateUp(t.Context(), db); err != nil {
		t.Fatalf("first migrate up failed: %v", err)
	}
	version, err := SchemaVersion(t.Context(), db)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version != 2 {
		t.Fatalf("expected schema version 2, got %d", version)
	}

	if err := MigrateDown(t.Context(), db); err != nil {
		t.Fatalf("migrate down failed: %v", err)
	}

	if err := MigrateUp(t.Context(), db); err != nil {
		t.Fatalf("second migrate up failed: %v", err)
	}

	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if err := store.Set(t.Context(), "roundtrip", map[string]string{"title": "Roundtrip"}); err != nil {
		t.Fatalf("set after roundtrip failed: %v", err)
	}

	var got map[string]string
	found, err := store.Get(t.Context(), "roundtrip", &got)
	if err != nil || !found {
		t.Fatalf("get after roundtrip failed: found=%v err=%v", found, err)
	}
	if got["title"] != "Roundtrip" {
		t.Fatalf("unexpected title after roundtrip: %q", got["title"])
	}
}
