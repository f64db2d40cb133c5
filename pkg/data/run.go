package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mchmarny/credpulse/pkg/generate"
	"github.com/mchmarny/credpulse/pkg/registry"
)

const (
	insertRunSQL = `INSERT INTO run (id, seed, row_count, colleges, cities, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	insertStudentSQL = `INSERT INTO student (run_id, idx, gpa, certifications, college, city,
		college_tier, city_tier, placement_ratio, cibil_score, parent_income, salary, credit_worthiness)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectRunSQL = `SELECT id, seed, row_count, colleges, cities, created_at FROM run WHERE id = ?`

	listRunsSQL = `SELECT id, seed, row_count, colleges, cities, created_at FROM run
		ORDER BY created_at DESC, id LIMIT ?`

	selectStudentsSQL = `SELECT gpa, certifications, college, city, college_tier, city_tier,
		placement_ratio, cibil_score, parent_income, salary, credit_worthiness
		FROM student WHERE run_id = ? ORDER BY idx`

	deleteStudentsSQL = `DELETE FROM student WHERE run_id = ?`
	deleteRunSQL      = `DELETE FROM run WHERE id = ?`

	timeLayout = "2006-01-02T15:04:05.000000000Z"

	RunListLimitDefault = 20
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Run describes one stored generation run.
type Run struct {
	ID        string    `json:"id" yaml:"id"`
	Seed      uint64    `json:"seed" yaml:"seed"`
	Rows      int       `json:"rows" yaml:"rows"`
	Colleges  int       `json:"colleges" yaml:"colleges"`
	Cities    int       `json:"cities" yaml:"cities"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// SaveRun stores the run and all of its records in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *Run, records []*generate.Record) error {
	if s == nil || s.db == nil {
		return errDBNotInitialized
	}
	if run == nil || run.ID == "" {
		return errors.New("run id required")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.Rows = len(records)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.rebind(insertRunSQL),
		run.ID, int64(run.Seed), run.Rows, run.Colleges, run.Cities,
		run.CreatedAt.UTC().Format(timeLayout)); err != nil {
		rollbackTransaction(tx)
		return fmt.Errorf("error inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(insertStudentSQL))
	if err != nil {
		rollbackTransaction(tx)
		return fmt.Errorf("failed to prepare student insert statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if r == nil {
			rollbackTransaction(tx)
			return fmt.Errorf("record[%d] is nil", i)
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i,
			r.GPA, r.Certifications, r.College, r.City,
			r.CollegeTier.String(), r.CityTier.String(),
			r.PlacementRatio, r.CIBILScore, r.ParentIncome, r.Salary, r.Creditworthiness,
		); err != nil {
			rollbackTransaction(tx)
			return fmt.Errorf("error inserting record[%d]: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetRun returns the run with id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}
	row := s.db.QueryRowContext(ctx, s.rebind(selectRunSQL), id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}
	if limit <= 0 {
		limit = RunListLimitDefault
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(listRunsSQL), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	list := make([]*Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return list, nil
}

// GetRecords returns the records of a run in generation order.
func (s *Store) GetRecords(ctx context.Context, runID string) ([]*generate.Record, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(selectStudentsSQL), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records for run %s: %w", runID, err)
	}
	defer rows.Close()

	list := make([]*generate.Record, 0)
	for rows.Next() {
		var r generate.Record
		var collegeTier, cityTier string
		if err := rows.Scan(&r.GPA, &r.Certifications, &r.College, &r.City,
			&collegeTier, &cityTier, &r.PlacementRatio, &r.CIBILScore,
			&r.ParentIncome, &r.Salary, &r.Creditworthiness); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if r.CollegeTier, err = registry.ParseTier(collegeTier); err != nil {
			return nil, err
		}
		if r.CityTier, err = registry.ParseTier(cityTier); err != nil {
			return nil, err
		}
		list = append(list, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return list, nil
}

// DeleteRun removes a run and its records.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return errDBNotInitialized
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(deleteStudentsSQL), id); err != nil {
		rollbackTransaction(tx)
		return fmt.Errorf("error deleting records of run %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, s.rebind(deleteRunSQL), id)
	if err != nil {
		rollbackTransaction(tx)
		return fmt.Errorf("error deleting run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		rollbackTransaction(tx)
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r       Run
		seed    int64
		created string
	)
	if err := row.Scan(&r.ID, &seed, &r.Rows, &r.Colleges, &r.Cities, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("invalid run timestamp %q: %w", created, err)
	}
	r.Seed = uint64(seed)
	r.CreatedAt = t
	return &r, nil
}
