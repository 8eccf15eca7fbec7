package storage

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

type sample struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
}

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	sqliteStore, err := OpenSQLite(t.Context(), filepath.Join(t.TempDir(), "data", "aegis.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqliteStore.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestStoreGetSetDelete(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()

			dst := sample{Name: "default"}
			found, err := store.Get(ctx, "missing", &dst)
			if err != nil {
				t.Fatalf("get missing: %v", err)
			}
			if found || dst.Name != "default" {
				t.Fatalf("missing key should leave dst untouched, found=%v dst=%+v", found, dst)
			}

			want := sample{Name: "events", Count: 3, Tags: []string{"a", "b"}}
			if err := store.Set(ctx, "k1", want); err != nil {
				t.Fatalf("set: %v", err)
			}
			var got sample
			found, err = store.Get(ctx, "k1", &got)
			if err != nil || !found {
				t.Fatalf("get: found=%v err=%v", found, err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("roundtrip mismatch: got %+v want %+v", got, want)
			}

			want.Count = 4
			if err := store.Set(ctx, "k1", want); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			if _, err := store.Get(ctx, "k1", &got); err != nil || got.Count != 4 {
				t.Fatalf("expected overwritten count 4, got %+v err=%v", got, err)
			}

			if err := store.Delete(ctx, "k1"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := store.Delete(ctx, "k1"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on second delete, got %v", err)
			}
		})
	}
}

func TestStoreKeysAndClear(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			for _, k := range []string{"tasks", "aegis_calendar_data", "tasks_meta"} {
				if err := store.Set(ctx, k, k); err != nil {
					t.Fatalf("set %s: %v", k, err)
				}
			}
			keys, err := store.Keys(ctx)
			if err != nil {
				t.Fatalf("keys: %v", err)
			}
			want := []string{"aegis_calendar_data", "tasks", "tasks_meta"}
			if !reflect.DeepEqual(keys, want) {
				t.Fatalf("unexpected keys: %v", keys)
			}

			if err := store.Clear(ctx); err != nil {
				t.Fatalf("clear: %v", err)
			}
			keys, err = store.Keys(ctx)
			if err != nil {
				t.Fatalf("keys after clear: %v", err)
			}
			if len(keys) != 0 {
				t.Fatalf("expected no keys after clear, got %v", keys)
			}
		})
	}
}

func TestStoreRejectsEmptyKey(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Set(t.Context(), "  ", 1); err == nil {
				t.Fatal("expected error for blank key")
			}
		})
	}
}

func TestSQLiteStoreUpdatedAt(t *testing.T) {
	store, err := OpenSQLite(t.Context(), filepath.Join(t.TempDir(), "aegis.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	if _, err := store.UpdatedAt(t.Context(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Set(t.Context(), "k", true); err != nil {
		t.Fatalf("set: %v", err)
	}
	ts, err := store.UpdatedAt(t.Context(), "k")
	if err != nil {
		t.Fatalf("updated at: %v", err)
	}
	if ts.IsZero() {
		t.Fatal("expected non-zero updated_at")
	}
}
