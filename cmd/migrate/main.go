package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/pennyekart/pennyekart-backend/pkg/config"
	"github.com/pennyekart/pennyekart-backend/pkg/db"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|pending|version|create|validate")
	dir := flag.String("dir", "", "migrations directory; empty uses the set embedded in the binary")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": *cmd, "dir": *dir})

	// file-only commands run without config or a database
	switch *cmd {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name, time.Now())
		exitOn(ctx, logg, "create migration", err)
		fmt.Println("created migration:", path)
		return
	case "validate":
		exitOn(ctx, logg, "validate migrations", migrate.ValidateFS(migrate.Source(*dir)))
		fmt.Println("migration validation passed")
		return
	}

	var target int64
	if *cmd == "version" {
		var err error
		target, err = migrate.ParseVersion(*version)
		exitOn(ctx, logg, "parse version", err)
	}

	cfg, err := config.Load()
	exitOn(ctx, logg, "load config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOn(ctx, logg, "connect database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	exitOn(ctx, logg, "extract sql database", err)

	m, err := migrate.New(sqlDB, migrate.Source(*dir), logg)
	exitOn(ctx, logg, "build migrator", err)

	switch *cmd {
	case "up":
		exitOn(ctx, logg, "migrate up", m.Up(ctx))
	case "down":
		exitOn(ctx, logg, "migrate down", m.Down(ctx))
	case "version":
		exitOn(ctx, logg, "migrate to version", m.ToVersion(ctx, target))
	case "status":
		rows, err := m.Status(ctx)
		exitOn(ctx, logg, "migration status", err)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		exitOn(ctx, logg, "print status", enc.Encode(rows))
	case "pending":
		// exits 3 so deploy scripts can gate on an unmigrated schema
		n, err := m.Pending(ctx)
		exitOn(ctx, logg, "count pending", err)
		fmt.Println(n)
		if n > 0 {
			os.Exit(3)
		}
	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
}

func exitOn(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "step", step), "migrate command failed", err)
	os.Exit(1)
}
