//go:build integration

// Package pgtest starts a throwaway Postgres for integration tests.
package pgtest

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"

	"github.com/s3m-esports/standings/internal/adapters/pgstore"
)

// Start runs postgres:16-alpine and returns its DSN. The container is
// terminated when the test finishes.
func Start(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("standings"),
		postgres.WithUsername("standings"),
		postgres.WithPassword("standings"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		if container != nil {
			_ = container.Terminate(ctx)
		}
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}
	return dsn
}

// Open starts a container and returns a migrated bun handle on it.
func Open(t *testing.T) (*bun.DB, string) {
	t.Helper()
	dsn := Start(t)
	db, err := pgstore.Open(context.Background(), dsn, 4)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, dsn
}
