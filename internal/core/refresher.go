package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/baxromumarov/jobfeed/internal/observability"
	"github.com/baxromumarov/jobfeed/internal/scraper"
	"github.com/baxromumarov/jobfeed/internal/store"
)

type RefreshMode string

const (
	// RefreshReplace deletes the source's rows and inserts the new batch.
	RefreshReplace RefreshMode = "replace"
	// RefreshSweep upserts the batch and deletes untouched rows in one
	// transaction. Falls back to RefreshReplace on stores without support.
	RefreshSweep RefreshMode = "sweep"
)

// RunResult summarizes one refresh. Created+Errors never exceeds Processed.
type RunResult struct {
	RunID        string        `json:"run_id,omitempty"`
	Created      int           `json:"created"`
	Errors       int           `json:"errors"`
	Processed    int           `json:"processed"`
	Deleted      int64         `json:"deleted"`
	ScrapeErrors int           `json:"scrape_errors"`
	Skipped      int           `json:"skipped"`
	Duration     time.Duration `json:"duration"`
}

type Refresher struct {
	store store.JobStore
	mode  RefreshMode
}

func NewRefresher(s store.JobStore, mode RefreshMode) *Refresher {
	if mode == "" {
		mode = RefreshReplace
	}
	return &Refresher{store: s, mode: mode}
}

// Refresh replaces every stored job of source with records. Per-record
// failures are counted and never stop the batch. Once started, a refresh
// ignores cancellation of ctx and always writes the whole batch.
func (r *Refresher) Refresh(ctx context.Context, source string, records []scraper.Record) (RunResult, error) {
	ctx = context.WithoutCancel(ctx)

	jobs := make([]store.Job, 0, len(records))
	for _, rec := range records {
		jobs = append(jobs, toJob(source, rec))
	}

	if r.mode == RefreshSweep {
		if rep, ok := r.store.(store.Replacer); ok {
			return r.sweep(ctx, rep, source, jobs)
		}
		slog.Warn("store does not support sweep refresh, replacing", "source", source)
	}

	res := RunResult{Processed: len(jobs)}

	deleted, err := r.store.DeleteMany(ctx, store.Filter{Source: source})
	if err != nil {
		slog.Error("refresh delete failed, inserting anyway", "source", source, "error", err)
		observability.IncError(observability.ClassifyStoreError(err), "refresh")
	} else {
		res.Deleted = deleted
	}

	for _, job := range jobs {
		if _, err := r.store.Create(ctx, job); err != nil {
			slog.Warn("refresh insert failed", "source", source, "external_id", job.ExternalID, "url", job.URL, "error", err)
			observability.IncError(observability.ClassifyStoreError(err), "refresh")
			res.Errors++
			continue
		}
		res.Created++
	}
	return res, nil
}

func (r *Refresher) sweep(ctx context.Context, rep store.Replacer, source string, jobs []store.Job) (RunResult, error) {
	out, err := rep.ReplaceSource(ctx, source, jobs)
	if err != nil {
		observability.IncError(observability.ErrorStore, "refresh")
		return RunResult{Processed: len(jobs)}, fmt.Errorf("replace source %s: %w", source, err)
	}
	return RunResult{
		Created:   out.Upserted,
		Errors:    out.Failed,
		Processed: len(jobs),
		Deleted:   out.Deleted,
	}, nil
}

func toJob(source string, rec scraper.Record) store.Job {
	return store.Job{
		Source:       source,
		ExternalID:   rec.ExternalID,
		URL:          rec.URL,
		Title:        rec.Title,
		Company:      rec.Company,
		CompanyURL:   rec.CompanyURL,
		CompanyLogo:  rec.CompanyLogo,
		Location:     rec.Location,
		LocationHTML: rec.LocationHTML,
		Modality:     rec.Modality,
		Salary:       rec.Salary,
		PostedText:   rec.PostedText,
		PostedAt:     rec.PostedAt,
		Description:  rec.Description,
		Skills:       rec.Skills,
	}
}
