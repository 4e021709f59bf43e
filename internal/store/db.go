package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
	DriverPgx      = "pgx"
	DriverMemory   = "memory"
)

//go:embed schema.sql
var postgresSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string

var placeholder = regexp.MustCompile(`\$(\d+)`)

// SQLStore persists jobs through database/sql on Postgres (lib/pq) or
// SQLite (go-sqlite3).
type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if driver == DriverSQLite {
		// One connection keeps ":memory:" databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &SQLStore{db: db, driver: driver}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// RunMigrations applies the embedded schema for the store's driver.
func (s *SQLStore) RunMigrations(ctx context.Context) error {
	schema := postgresSchema
	if s.driver == DriverSQLite {
		schema = sqliteSchema
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func (s *SQLStore) FindMany(ctx context.Context, filter Filter, sort Sort, limit int) ([]Job, error) {
	q, args := selectJobsSQL(filter, sort, clampLimit(limit, defaultLimit, maxLimit))

	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("find jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *SQLStore) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	q, args := deleteJobsSQL(filter)
	res, err := s.db.ExecContext(ctx, s.rebind(q), args...)
	if err != nil {
		return 0, fmt.Errorf("delete jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLStore) Create(ctx context.Context, job Job) (Job, error) {
	args, err := insertArgs(&job)
	if err != nil {
		return Job{}, err
	}
	if err := s.db.QueryRowContext(ctx, s.rebind(insertJobSQL), args...).Scan(&job.ID); err != nil {
		return Job{}, fmt.Errorf("create job %s/%s: %w", job.Source, job.ExternalID, mapError(err))
	}
	return job, nil
}

// rebind rewrites $n placeholders into SQLite's ?n form.
func (s *SQLStore) rebind(q string) string {
	if s.driver != DriverSQLite {
		return q
	}
	return placeholder.ReplaceAllString(q, "?$1")
}

// mapError turns driver-specific unique violations into ErrConflict.
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.UniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %s", ErrConflict, liteErr.Error())
	}
	return err
}
