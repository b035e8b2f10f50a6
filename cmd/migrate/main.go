package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/angelmondragon/cartsync/pkg/config"
	"github.com/angelmondragon/cartsync/pkg/db"
	"github.com/angelmondragon/cartsync/pkg/logger"
	"github.com/angelmondragon/cartsync/pkg/migrate"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", "", "goose migrations directory (empty uses the embedded set)")
	dsn := flag.String("dsn", "", "postgres DSN opened directly with lib/pq, bypassing CARTSYNC_DB_*")

	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")

	flag.Parse()

	cfg, err := config.Load()
	if err := requireResource(ctx, logg, "config", err); err != nil {
		return err
	}

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx = logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	// Commands that do NOT require DB
	switch *cmd {
	case "create":
		if *name == "" {
			return fmt.Errorf("missing -name for create")
		}
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name, time.Now())
		if err != nil {
			return fmt.Errorf("failed to create migration: %w", err)
		}
		fmt.Println("created migration:", path)
		return nil

	case "validate":
		validate := migrate.ValidateEmbedded
		if *dir != "" {
			validate = func() error { return migrate.ValidateDir(*dir) }
		}
		if err := validate(); err != nil {
			return fmt.Errorf("migration validation failed: %w", err)
		}
		fmt.Println("migration validation passed")
		return nil
	}

	dialect := migrate.Dialect(cfg.DB)
	var sqlDB *sql.DB
	if *dsn != "" {
		dialect = "postgres"
		sqlDB, err = sql.Open("postgres", *dsn)
		if err := requireResource(ctx, logg, "postgres", err); err != nil {
			return err
		}
		defer sqlDB.Close()
		if err := requireResource(ctx, logg, "postgres", sqlDB.PingContext(ctx)); err != nil {
			return err
		}
	} else {
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err := requireResource(ctx, logg, "database", err); err != nil {
			return err
		}
		defer dbClient.Close()

		sqlDB, err = dbClient.SQL()
		if err := requireResource(ctx, logg, "sql database", err); err != nil {
			return err
		}
	}

	ctx = logg.WithField(ctx, "dialect", dialect)
	logg.Info(ctx, "migrate ready")

	switch *cmd {
	case "up", "down", "status":
		if err := migrate.Run(ctx, sqlDB, dialect, *dir, *cmd); err != nil {
			return fmt.Errorf("goose %s failed: %w", *cmd, err)
		}

	case "version":
		if *version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, dialect, *dir, *version); err != nil {
			return fmt.Errorf("goose version migrate failed: %w", err)
		}

	default:
		return fmt.Errorf("unknown -cmd value: %s", *cmd)
	}
	return nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) error {
	if err == nil {
		return nil
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	return fmt.Errorf("resource not working: %s: %w", resource, err)
}
