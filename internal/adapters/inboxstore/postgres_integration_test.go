//go:build integration

package inboxstore_test

import (
	"testing"

	"github.com/s3m-esports/standings/internal/adapters/inboxstore"
	"github.com/s3m-esports/standings/internal/adapters/pgstore/pgtest"
)

func TestPostgres(t *testing.T) {
	db, _ := pgtest.Open(t)
	exercise(t, inboxstore.NewPostgres(db))
}
