package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BradenHooton/staffguard/internal/config"
	"github.com/BradenHooton/staffguard/internal/database"
	_ "github.com/lib/pq"
)

// migrate applies or inspects the embedded schema without starting the API.
//
//	migrate [-driver postgres|sqlite] up|down|status
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	driver := flag.String("driver", "", "store driver to migrate (postgres or sqlite); defaults to STORE_DRIVER")
	flag.Parse()

	cfg, err := config.LoadStore(*driver)
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	db, dialect, err := open(cfg.Store.Driver, cfg, logger)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch command {
	case "up":
		err = database.RunMigrations(ctx, db, dialect)
	case "down":
		err = database.RollbackMigration(ctx, db, dialect)
	case "status":
		err = database.MigrationStatus(ctx, db, dialect)
	default:
		err = fmt.Errorf("unknown command %q (want up, down or status)", command)
	}
	if err != nil {
		logger.Error("migration command failed", slog.String("command", command), slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("migration command finished", slog.String("command", command), slog.String("driver", cfg.Store.Driver))
}

func open(driver string, cfg *config.Config, logger *slog.Logger) (*sql.DB, string, error) {
	switch driver {
	case config.StoreDriverPostgres:
		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			return nil, "", err
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, "", fmt.Errorf("unable to ping database: %w", err)
		}
		return db, database.DialectPostgres, nil
	case config.StoreDriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLite.Path, logger)
		if err != nil {
			return nil, "", err
		}
		return db, database.DialectSQLite, nil
	default:
		return nil, "", fmt.Errorf("driver %q has no schema to migrate", driver)
	}
}
