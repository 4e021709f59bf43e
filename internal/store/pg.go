package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const upsertJobSQL = `
INSERT INTO jobs (source, external_id, url, title, company, company_url, company_logo,
    location, location_html, modality, salary, posted_text, posted_at, description, skills,
    created_at, updated_at, refresh_token)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
ON CONFLICT (source, external_id) DO UPDATE SET
    url = EXCLUDED.url,
    title = EXCLUDED.title,
    company = EXCLUDED.company,
    company_url = EXCLUDED.company_url,
    company_logo = EXCLUDED.company_logo,
    location = EXCLUDED.location,
    location_html = EXCLUDED.location_html,
    modality = EXCLUDED.modality,
    salary = EXCLUDED.salary,
    posted_text = EXCLUDED.posted_text,
    posted_at = EXCLUDED.posted_at,
    description = EXCLUDED.description,
    skills = EXCLUDED.skills,
    updated_at = EXCLUDED.updated_at,
    refresh_token = EXCLUDED.refresh_token`

const sweepJobsSQL = `
DELETE FROM jobs
WHERE source = $1 AND refresh_token IS DISTINCT FROM $2`

// PgStore is the pgx-backed store. Besides the JobStore contract it can
// replace a source's rows transactionally.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(ctx context.Context, dsn string) (*PgStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return &PgStore{pool: pool}, nil
}

func (s *PgStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PgStore) RunMigrations(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func (s *PgStore) FindMany(ctx context.Context, filter Filter, sort Sort, limit int) ([]Job, error) {
	q, args := selectJobsSQL(filter, sort, clampLimit(limit, defaultLimit, maxLimit))

	rows, err := s.pool.Query(ctx, q, args...)
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

func (s *PgStore) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	q, args := deleteJobsSQL(filter)
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("delete jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PgStore) Create(ctx context.Context, job Job) (Job, error) {
	args, err := insertArgs(&job)
	if err != nil {
		return Job{}, err
	}
	if err := s.pool.QueryRow(ctx, insertJobSQL, args...).Scan(&job.ID); err != nil {
		return Job{}, fmt.Errorf("create job %s/%s: %w", job.Source, job.ExternalID, mapError(err))
	}
	return job, nil
}

// ReplaceSource upserts jobs under a fresh refresh token and then deletes
// every row of source that did not receive it, all in one transaction. A
// failing row is rolled back to its savepoint and counted; readers never
// observe an empty source while the replacement runs.
func (s *PgStore) ReplaceSource(ctx context.Context, source string, jobs []Job) (ReplaceResult, error) {
	var res ReplaceResult
	token := uuid.NewString()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range jobs {
		job := jobs[i]
		job.Source = source
		if err := upsertInSavepoint(ctx, tx, &job, token); err != nil {
			slog.Warn("replace row failed", "source", source, "external_id", job.ExternalID, "error", err)
			res.Failed++
			continue
		}
		res.Upserted++
	}

	tag, err := tx.Exec(ctx, sweepJobsSQL, source, token)
	if err != nil {
		return res, fmt.Errorf("sweep stale jobs: %w", err)
	}
	res.Deleted = tag.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("commit replace: %w", err)
	}
	return res, nil
}

func upsertInSavepoint(ctx context.Context, tx pgx.Tx, job *Job, token string) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return err
	}
	args, err := insertArgs(job)
	if err != nil {
		sp.Rollback(ctx)
		return err
	}
	if _, err := sp.Exec(ctx, upsertJobSQL, append(args, token)...); err != nil {
		sp.Rollback(ctx)
		return mapError(err)
	}
	return sp.Commit(ctx)
}
