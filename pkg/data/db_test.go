package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mchmarny/credpulse/pkg/generate"
	"github.com/mchmarny/credpulse/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), DataFileName)
	s, err := Open(context.Background(), DriverSQLite, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecords(t *testing.T, rows int) []*generate.Record {
	t.Helper()
	opt := registry.DefaultOptions()
	opt.NumColleges = 5
	opt.NumCities = 3
	reg, err := generate.NewRegistry(7, opt)
	require.NoError(t, err)

	list, err := generate.Generate(context.Background(), reg, generate.Options{Rows: rows, Seed: 7, Workers: 2})
	require.NoError(t, err)
	return list
}

func TestOpen_CreatesSchema(t *testing.T) {
	s := setupTestDB(t)
	assert.Equal(t, DriverSQLite, s.Driver())

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM student").Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOpen_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), DataFileName)
	for range 2 {
		s, err := Open(context.Background(), DriverSQLite, dbPath)
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}
}

func TestOpen_Invalid(t *testing.T) {
	_, err := Open(context.Background(), DriverSQLite, "")
	assert.Error(t, err)

	_, err = Open(context.Background(), Driver("oracle"), "x")
	assert.Error(t, err)
}

func TestParseDriver(t *testing.T) {
	tests := []struct {
		in      string
		want    Driver
		wantErr bool
	}{
		{"", DriverSQLite, false},
		{"sqlite", DriverSQLite, false},
		{" Postgres ", DriverPostgres, false},
		{"postgresql", DriverPostgres, false},
		{"mysql", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDriver(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE b = ? AND c = ?"

	s := &Store{driver: DriverSQLite}
	assert.Equal(t, q, s.rebind(q))

	s = &Store{driver: DriverPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", s.rebind(q))
}

func TestSaveRun_RoundTrip(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	records := testRecords(t, 50)

	run := &Run{ID: "run-1", Seed: 7, Colleges: 5, Cities: 3}
	require.NoError(t, s.SaveRun(ctx, run, records))
	assert.Equal(t, 50, run.Rows)

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.Seed)
	assert.Equal(t, 50, got.Rows)
	assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Millisecond)

	stored, err := s.GetRecords(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, records, stored)
}

func TestSaveRun_DuplicateRollsBack(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	records := testRecords(t, 5)

	require.NoError(t, s.SaveRun(ctx, &Run{ID: "dup"}, records))
	assert.Error(t, s.SaveRun(ctx, &Run{ID: "dup"}, records))

	stored, err := s.GetRecords(ctx, "dup")
	require.NoError(t, err)
	assert.Len(t, stored, 5)
}

func TestSaveRun_Invalid(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	assert.Error(t, s.SaveRun(ctx, nil, nil))
	assert.Error(t, s.SaveRun(ctx, &Run{}, nil))
	assert.Error(t, s.SaveRun(ctx, &Run{ID: "nil-record"}, []*generate.Record{nil}))

	_, err := s.GetRun(ctx, "nil-record")
	assert.ErrorIs(t, err, ErrRunNotFound)

	var nilStore *Store
	assert.ErrorIs(t, nilStore.SaveRun(ctx, &Run{ID: "x"}, nil), errDBNotInitialized)
}

func TestListRuns(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	records := testRecords(t, 3)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		run := &Run{ID: id, Seed: uint64(i), CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, s.SaveRun(ctx, run, records))
	}

	list, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	list, err = s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestDeleteRun(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, &Run{ID: "gone"}, testRecords(t, 4)))
	require.NoError(t, s.DeleteRun(ctx, "gone"))

	_, err := s.GetRun(ctx, "gone")
	assert.ErrorIs(t, err, ErrRunNotFound)

	stored, err := s.GetRecords(ctx, "gone")
	require.NoError(t, err)
	assert.Empty(t, stored)

	assert.ErrorIs(t, s.DeleteRun(ctx, "gone"), ErrRunNotFound)
}
