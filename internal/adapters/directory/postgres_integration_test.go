//go:build integration

package directory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/s3m-esports/standings/internal/adapters/directory"
	"github.com/s3m-esports/standings/internal/adapters/pgstore/pgtest"
)

func TestPostgres(t *testing.T) {
	_, dsn := pgtest.Open(t)
	dir, err := directory.NewPostgres(context.Background(), dsn, 2)
	require.NoError(t, err)
	defer dir.Close()
	exercise(t, dir)
}
