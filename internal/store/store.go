package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrConflict is wrapped by Create when a job with the same source and
// external id already exists.
var ErrConflict = errors.New("job already exists")

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type Job struct {
	ID           int64      `json:"id"`
	Source       string     `json:"source"`
	ExternalID   string     `json:"external_id"`
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	Company      string     `json:"company"`
	CompanyURL   string     `json:"company_url,omitempty"`
	CompanyLogo  string     `json:"company_logo,omitempty"`
	Location     string     `json:"location"`
	LocationHTML string     `json:"location_html,omitempty"`
	Modality     string     `json:"modality,omitempty"`
	Salary       string     `json:"salary,omitempty"`
	PostedText   string     `json:"posted_text,omitempty"`
	PostedAt     *time.Time `json:"posted_at,omitempty"`
	Description  string     `json:"description,omitempty"`
	Skills       []string   `json:"skills,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Filter narrows a query. String fields other than Source are
// case-insensitive substring matches.
type Filter struct {
	Source   string
	Company  string
	Location string
	Modality string
	Query    string
}

// IsEmpty reports whether f selects every job of its source.
func (f Filter) IsEmpty() bool {
	return f.Company == "" && f.Location == "" && f.Modality == "" && f.Query == ""
}

type Sort int

const (
	// SortRecent orders by posted_at descending with unknown dates last,
	// then by created_at descending.
	SortRecent Sort = iota
	SortCreated
)

type JobStore interface {
	FindMany(ctx context.Context, filter Filter, sort Sort, limit int) ([]Job, error)
	DeleteMany(ctx context.Context, filter Filter) (int64, error)
	Create(ctx context.Context, job Job) (Job, error)
	Close() error
}

// ReplaceResult summarizes a transactional source replacement.
type ReplaceResult struct {
	Upserted int
	Failed   int
	Deleted  int64
}

// Replacer is implemented by stores that can swap a source's rows inside a
// single transaction.
type Replacer interface {
	ReplaceSource(ctx context.Context, source string, jobs []Job) (ReplaceResult, error)
}

// Open returns the store for driver: "postgres" and "sqlite3" go through
// database/sql, "pgx" uses a native pool, "memory" keeps jobs in process.
func Open(ctx context.Context, driver, dsn string, migrate bool) (JobStore, error) {
	switch strings.ToLower(driver) {
	case DriverPostgres, DriverSQLite:
		s, err := NewSQLStore(driver, dsn)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := s.RunMigrations(ctx); err != nil {
				s.Close()
				return nil, err
			}
		}
		return s, nil
	case DriverPgx:
		s, err := NewPgStore(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := s.RunMigrations(ctx); err != nil {
				s.Close()
				return nil, err
			}
		}
		return s, nil
	case DriverMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

func clampLimit(limit int, defaultLimit, maxLimit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
