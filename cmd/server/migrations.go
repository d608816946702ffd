package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
)

// defaultMigrationsDir is the migrations directory relative to the working
// directory; overridable through TRIPBUDDY_MIGRATIONS_DIR for deployments
// that place the SQL files elsewhere.
const defaultMigrationsDir = "migrations"

// slogGooseLogger adapts the goose logger interface to slog.
type slogGooseLogger struct{}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	slog.Info(fmt.Sprintf(format, v...))
}

// Fatalf forwards to slog.Error without calling os.Exit; the error is
// returned to main, which handles the exit.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	slog.Error(fmt.Sprintf(format, v...))
}

// runMigrations executes the given goose command (up, down, status, version)
// against the connected database.
func runMigrations(db *sql.DB, command string, logger *slog.Logger) error {
	dir := os.Getenv("TRIPBUDDY_MIGRATIONS_DIR")
	if dir == "" {
		dir = defaultMigrationsDir
	}
	dir = filepath.Clean(dir)

	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("migrations directory %q not accessible: %w", dir, err)
	}

	goose.SetLogger(&slogGooseLogger{})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	logger.Info("Running migration command", "command", command, "dir", dir)

	var err error
	switch command {
	case "up":
		err = goose.Up(db, dir)
	case "down":
		err = goose.Down(db, dir)
	case "status":
		err = goose.Status(db, dir)
	case "version":
		err = goose.Version(db, dir)
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("goose %s failed: %w", command, err)
	}

	return nil
}
