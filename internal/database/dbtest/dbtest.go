// Package dbtest opens throwaway sqlite databases for repository and service tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/elpasoverse/portal/internal/config"
	"github.com/elpasoverse/portal/internal/database"
)

// New returns a migrated sqlite database living in t.TempDir().
func New(t testing.TB) *sql.DB {
	t.Helper()
	cfg := config.Config{DBDriver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "portal.db")}
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(context.Background(), db, "sqlite"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
