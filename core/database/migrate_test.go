package database

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSelectApplied(t *testing.T) {
	files := []string{"0001_user_state.up.sql", "0002_index.up.sql", "0003_audit.up.sql"}
	got := selectApplied(files, 1, 3)
	want := []string{"0002_index.up.sql", "0003_audit.up.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("selectApplied() = %v, want %v", got, want)
	}
	if got := selectApplied(files, 3, 3); len(got) != 0 {
		t.Fatalf("expected nothing applied, got %v", got)
	}
}

func TestListMigrationFilesSkipsDown(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_b.up.sql", "0001_a.up.sql", "0001_a.down.sql", "README"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	got := listMigrationFiles(dir)
	want := []string{"0001_a.up.sql", "0002_b.up.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("listMigrationFiles() = %v, want %v", got, want)
	}
}

func TestSQLiteConnectAndMigrate(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "state", "bot.db")}

	db, err := Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer db.Close()

	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, db, cfg, ""); err != nil {
			t.Fatalf("Migrate() run %d error = %v", i, err)
		}
	}
	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM user_state`); err != nil {
		t.Fatalf("user_state missing: %v", err)
	}
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	if _, err := Connect(context.Background(), Config{Driver: "mongo"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
