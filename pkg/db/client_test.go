package db

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/cartsync/pkg/config"
	"gorm.io/gorm"
)

type txProbe struct {
	ID   int
	Name string
}

func newSQLiteClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), config.DBConfig{
		DSN:    "file::memory:",
		Driver: config.DBDriverSQLite,
	}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.DB().AutoMigrate(&txProbe{}); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return client
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{Driver: config.DBDriverSQLite}, nil); err == nil {
		t.Fatal("expected error without DSN")
	}
}

func TestDialectorFollowsDriver(t *testing.T) {
	if name := dialectorFor(config.DBConfig{DSN: "x", Driver: "sqlite"}).Name(); name != "sqlite" {
		t.Fatalf("expected sqlite dialector, got %s", name)
	}
	if name := dialectorFor(config.DBConfig{DSN: "postgres://x", Driver: "postgres"}).Name(); name != "postgres" {
		t.Fatalf("expected postgres dialector, got %s", name)
	}
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	client := newSQLiteClient(t)
	ctx := context.Background()

	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&txProbe{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := client.DB().Model(&txProbe{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&txProbe{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := client.DB().Model(&txProbe{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	client := newSQLiteClient(t)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}
