package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/Joseda-hg/lazyplan/internal/clock"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const defaultListName = "Inbox"

// Open migrates the database at path and seeds the default list, stamped by
// clk (the system clock when nil).
func Open(path string, clk clock.Clock) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite is single-writer, and each :memory: connection is its own database.
	db.SetMaxOpenConns(1)

	if clk == nil {
		clk = clock.System{}
	}
	if err := migrate(context.Background(), db, clk); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func migrate(ctx context.Context, db *sql.DB, clk clock.Clock) error {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	if err := ensureDefaultList(ctx, db, clk); err != nil {
		return err
	}

	return nil
}

func ensureDefaultList(ctx context.Context, db *sql.DB, clk clock.Clock) error {
	var exists int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM lists WHERE is_default = 1 LIMIT 1").Scan(&exists)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check default list: %w", err)
	}

	now := formatTime(clk.Now())
	if _, err := db.ExecContext(ctx,
		"INSERT INTO lists (id, name, color, emoji, is_default, created_at, updated_at) VALUES (?, ?, '', '', 1, ?, ?)",
		uuid.NewString(), defaultListName, now, now,
	); err != nil {
		return fmt.Errorf("create default list: %w", err)
	}

	return nil
}
