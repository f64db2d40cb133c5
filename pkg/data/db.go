package data

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/lib/pq"  // driver: postgres
	_ "modernc.org/sqlite" // driver: sqlite
)

// Driver names the database backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"

	DataFileName string = "credpulse.db"
)

var (
	//go:embed sql/*
	f embed.FS

	errDBNotInitialized = errors.New("database not initialized")
)

// ParseDriver returns the driver for name. Empty defaults to sqlite.
func ParseDriver(name string) (Driver, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(name))) {
	case "", DriverSQLite:
		return DriverSQLite, nil
	case DriverPostgres, "postgresql":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", name)
	}
}

// Store persists generation runs.
type Store struct {
	db     *sql.DB
	driver Driver
}

// Open opens the database and ensures the schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("dsn not specified")
	}

	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite"
	case DriverPostgres:
		drvName = "postgres"
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	b, err := f.ReadFile(fmt.Sprintf("sql/%s.sql", s.driver))
	if err != nil {
		return fmt.Errorf("failed to read the schema creation file: %w", err)
	}

	slog.Debug("ensuring db schema", "driver", s.driver)
	if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}
	return nil
}

// Driver returns the backend the store was opened with.
func (s *Store) Driver() Driver {
	return s.driver
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders into $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func rollbackTransaction(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Error("failed to rollback transaction", "error", err)
	}
}
