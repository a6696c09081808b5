package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/m3rciful/workbot/core/database"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := store.Load(ctx, 7); err != nil || ok {
		t.Fatalf("Load() on empty store = ok:%v err:%v", ok, err)
	}
	if err := store.Save(ctx, 7, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, 7, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("Save() overwrite error = %v", err)
	}
	if err := store.Save(ctx, 8, []byte(`{"b":1}`)); err != nil {
		t.Fatalf("Save() other user error = %v", err)
	}

	data, ok, err := store.Load(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("Load() = ok:%v err:%v", ok, err)
	}
	if string(data) != `{"a":2}` {
		t.Fatalf("Load() = %s, want latest record", data)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesRecords(t *testing.T) {
	store := NewMemoryStore()
	buf := []byte("abc")
	if err := store.Save(context.Background(), 1, buf); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	buf[0] = 'x'
	data, _, _ := store.Load(context.Background(), 1)
	if string(data) != "abc" {
		t.Fatalf("stored record aliased caller buffer: %s", data)
	}
}

func TestSQLStoreSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := database.Config{Driver: database.DriverSQLite, Path: filepath.Join(t.TempDir(), "bot.db")}
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg, ""); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	exerciseStore(t, NewSQLStore(db))
}
