// Package testdb hands integration tests a migrated, empty Postgres database.
// Tests using it are skipped unless TEST_DATABASE_URL is set. The database it
// points at is truncated, so never point it at real data. Packages share it,
// so run them one at a time:
//
//	TEST_DATABASE_URL=postgres://... go test -tags integration -p 1 ./...
package testdb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/migrations"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/database"
)

const EnvURL = "TEST_DATABASE_URL"

// Open connects, applies migrations and empties every table.
func Open(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv(EnvURL)
	if dsn == "" {
		t.Skipf("%s not set; skipping Postgres integration test", EnvURL)
	}

	sqlDB, err := database.Connect(database.Config{DSN: dsn, MaxConns: 4, Timeout: 10 * time.Second, TimeZone: "UTC"})
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrations.Up(ctx, sqlDB); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	if _, err := sqlDB.ExecContext(ctx,
		`TRUNCATE watch_history, subscriptions, videos, users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("reset test database: %v", err)
	}
	return database.Wrap(sqlDB)
}

// Exec runs seed statements, failing the test on the first error.
func Exec(t *testing.T, db *sqlx.DB, stmts ...string) {
	t.Helper()
	for _, q := range stmts {
		if _, err := db.Exec(q); err != nil {
			t.Fatalf("seed %q: %v", q, err)
		}
	}
}
