package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/cartsync/pkg/config"
	"github.com/angelmondragon/cartsync/pkg/db"
	"github.com/angelmondragon/cartsync/pkg/logger"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := ValidateEmbedded(); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
}

func TestCartSnapshotMigrationContainsSchema(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_cart_snapshots.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("no cart snapshot migration found")
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS cart_snapshots",
		"user_id     VARCHAR(255) PRIMARY KEY",
		"CREATE INDEX IF NOT EXISTS idx_cart_snapshots_updated_at",
		"DROP TABLE IF EXISTS cart_snapshots",
	} {
		if !strings.Contains(string(data), sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestDialect(t *testing.T) {
	if got := Dialect(config.DBConfig{Driver: "sqlite"}); got != "sqlite3" {
		t.Fatalf("expected sqlite3, got %s", got)
	}
	if got := Dialect(config.DBConfig{Driver: "postgres"}); got != "postgres" {
		t.Fatalf("expected postgres, got %s", got)
	}
}

func TestRunEmbeddedUpOnSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.DBConfig{DSN: "file::memory:", Driver: config.DBDriverSQLite}
	client, err := db.New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer client.Close()

	sqlDB, err := client.SQL()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	if err := Run(ctx, sqlDB, Dialect(cfg), "", "up"); err != nil {
		t.Fatalf("goose up: %v", err)
	}
	if !client.DB().Migrator().HasTable("cart_snapshots") {
		t.Fatal("expected cart_snapshots table after migration")
	}
}

func TestMaybeRunSkipsWithoutDBSnapshots(t *testing.T) {
	cfg := &config.Config{}
	cfg.Snapshots.Driver = "redis"
	cfg.FeatureFlags.AutoMigrate = true
	if err := MaybeRun(context.Background(), cfg, logger.Nop(), nil); err != nil {
		t.Fatalf("expected skip, got %v", err)
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "Add Cart Index!", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260102030405_add_cart_index.sql" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
	if _, err := CreateSQLMigration(dir, "Add Cart Index!", now); err == nil {
		t.Fatal("expected duplicate migration to fail")
	}
	if _, err := CreateSQLMigration(dir, "!!!", now); err == nil {
		t.Fatal("expected empty slug to fail")
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "1_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}
