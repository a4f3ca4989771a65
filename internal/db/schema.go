package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Open opens (creating if needed) the sqlite database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
	}

	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// one writer at a time, and for ":memory:" every pooled connection would
	// otherwise get its own empty database
	database.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := database.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			database.Close()
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
	}
	if _, err := database.ExecContext(ctx, Schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return database, nil
}
