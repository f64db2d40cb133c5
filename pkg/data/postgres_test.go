//go:build integration

package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupPostgres(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("credpulse"),
		postgres.WithUsername("credpulse"),
		postgres.WithPassword("credpulse"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := Open(ctx, DriverPostgres, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgres_SaveRunRoundTrip(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()
	records := testRecords(t, 40)

	require.NoError(t, s.SaveRun(ctx, &Run{ID: "pg-1", Seed: 7, Colleges: 5, Cities: 3}, records))

	run, err := s.GetRun(ctx, "pg-1")
	require.NoError(t, err)
	assert.Equal(t, 40, run.Rows)

	stored, err := s.GetRecords(ctx, "pg-1")
	require.NoError(t, err)
	assert.Equal(t, records, stored)

	list, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteRun(ctx, "pg-1"))
	_, err = s.GetRun(ctx, "pg-1")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
