package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const jobColumns = `id, source, external_id, url, title, company, company_url, company_logo,
    location, location_html, modality, salary, posted_text, posted_at, description, skills,
    created_at, updated_at`

const insertJobSQL = `
INSERT INTO jobs (source, external_id, url, title, company, company_url, company_logo,
    location, location_html, modality, salary, posted_text, posted_at, description, skills,
    created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING id`

// whereClause renders f as a WHERE clause with $n placeholders.
func whereClause(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Source != "" {
		add("source = $%d", f.Source)
	}
	if f.Company != "" {
		add("LOWER(company) LIKE LOWER($%d)", like(f.Company))
	}
	if f.Location != "" {
		add("LOWER(location) LIKE LOWER($%d)", like(f.Location))
	}
	if f.Modality != "" {
		add("LOWER(modality) = LOWER($%d)", f.Modality)
	}
	if f.Query != "" {
		add("LOWER(title) LIKE LOWER($%d)", like(f.Query))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(s Sort) string {
	if s == SortCreated {
		return " ORDER BY created_at DESC, id DESC"
	}
	return " ORDER BY (posted_at IS NULL), posted_at DESC, created_at DESC, id DESC"
}

func like(v string) string {
	return "%" + strings.TrimSpace(v) + "%"
}

func selectJobsSQL(f Filter, s Sort, limit int) (string, []any) {
	where, args := whereClause(f)
	args = append(args, limit)
	q := "SELECT " + jobColumns + " FROM jobs" + where + orderClause(s) + fmt.Sprintf(" LIMIT $%d", len(args))
	return q, args
}

func deleteJobsSQL(f Filter) (string, []any) {
	where, args := whereClause(f)
	return "DELETE FROM jobs" + where, args
}

// insertArgs stamps job with the current time and returns the insert
// arguments in column order.
func insertArgs(job *Job) ([]any, error) {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.PostedAt != nil {
		t := job.PostedAt.UTC()
		job.PostedAt = &t
	}
	skills, err := encodeSkills(job.Skills)
	if err != nil {
		return nil, err
	}
	return []any{
		job.Source, job.ExternalID, job.URL, job.Title, job.Company, job.CompanyURL, job.CompanyLogo,
		job.Location, job.LocationHTML, job.Modality, job.Salary, job.PostedText, job.PostedAt,
		job.Description, skills, job.CreatedAt, job.UpdatedAt,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var (
		j        Job
		postedAt sql.NullTime
		skills   string
	)
	if err := row.Scan(
		&j.ID,
		&j.Source,
		&j.ExternalID,
		&j.URL,
		&j.Title,
		&j.Company,
		&j.CompanyURL,
		&j.CompanyLogo,
		&j.Location,
		&j.LocationHTML,
		&j.Modality,
		&j.Salary,
		&j.PostedText,
		&postedAt,
		&j.Description,
		&skills,
		&j.CreatedAt,
		&j.UpdatedAt,
	); err != nil {
		return Job{}, err
	}
	if postedAt.Valid {
		t := postedAt.Time
		j.PostedAt = &t
	}
	if err := json.Unmarshal([]byte(skills), &j.Skills); err != nil {
		return Job{}, fmt.Errorf("decode skills for job %d: %w", j.ID, err)
	}
	if len(j.Skills) == 0 {
		j.Skills = nil
	}
	return j, nil
}

func encodeSkills(skills []string) (string, error) {
	if len(skills) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(skills)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
