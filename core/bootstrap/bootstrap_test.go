package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	coreconfig "github.com/m3rciful/workbot/core/config"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunMemoryStorage(t *testing.T) {
	cfg := coreconfig.Defaults()
	cfg.Storage.Driver = coreconfig.StorageMemory

	res, err := Run(context.Background(), Options{Config: cfg, LoggerInit: noLogger})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.DB != nil || res.Store == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := res.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestRunSQLiteStorage(t *testing.T) {
	cfg := coreconfig.Defaults()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "bot.db")

	res, err := Run(context.Background(), Options{Config: cfg, LoggerInit: noLogger})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	defer res.Close()

	ctx := context.Background()
	if err := res.Store.Save(ctx, 1, []byte(`{}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, ok, err := res.Store.Load(ctx, 1); err != nil || !ok {
		t.Fatalf("Load() = %v, %v", ok, err)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if _, err := Run(context.Background(), Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}
