package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/baxromumarov/jobfeed/internal/discovery"
	"github.com/baxromumarov/jobfeed/internal/httpx"
	"github.com/baxromumarov/jobfeed/internal/observability"
	"github.com/baxromumarov/jobfeed/internal/scraper"
)

type SitemapSource interface {
	DiscoverFromSitemap(ctx context.Context, sitemapURL string, maxAgeDays, maxCount int) ([]discovery.Candidate, error)
}

type ListingSource interface {
	DiscoverFromListingPages(ctx context.Context, baseURL string, pageLimit, desiredCount int) discovery.ListingResult
}

type DetailExtractor interface {
	Extract(pageURL string, body []byte) (scraper.Record, bool)
}

// RunLimits bounds one run. Pages is the listing page limit. A positive
// SitemapCount lowers the configured sitemap cap for this run.
type RunLimits struct {
	Pages        int
	SitemapCount int
}

// PipelineConfig holds the per-source knobs of a run. An empty SitemapURL or
// ListingURL disables that discovery strategy.
type PipelineConfig struct {
	Source            string
	SitemapURL        string
	ListingURL        string
	DesiredCount      int
	SitemapMaxAgeDays int
	SitemapMaxCount   int
}

// Pipeline runs discovery, extraction, normalization, dedupe and refresh for
// one source.
type Pipeline struct {
	cfg       PipelineConfig
	fetcher   httpx.Fetcher
	sitemap   SitemapSource
	listing   ListingSource
	detail    DetailExtractor
	refresher *Refresher
	now       func() time.Time
}

func NewPipeline(cfg PipelineConfig, fetcher httpx.Fetcher, sitemap SitemapSource, listing ListingSource, detail DetailExtractor, refresher *Refresher) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		fetcher:   fetcher,
		sitemap:   sitemap,
		listing:   listing,
		detail:    detail,
		refresher: refresher,
		now:       time.Now,
	}
}

// Run executes one pass within limits. It only fails
// when the refresh step fails or ctx is done before refreshing, so a
// cancelled run never replaces the stored jobs with a partial batch.
func (p *Pipeline) Run(ctx context.Context, limits RunLimits) (RunResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := slog.With("run_id", runID, "source", p.cfg.Source)
	sitemapCap := p.cfg.SitemapMaxCount
	if limits.SitemapCount > 0 && (sitemapCap <= 0 || limits.SitemapCount < sitemapCap) {
		sitemapCap = limits.SitemapCount
	}
	log.Info("pipeline run started", "page_limit", limits.Pages, "sitemap_cap", sitemapCap)

	var (
		records      []scraper.Record
		scrapeErrors int
		skipped      int
	)

	if p.cfg.SitemapURL != "" && p.sitemap != nil {
		recs, errs, skips := p.scrapeSitemap(ctx, log, sitemapCap)
		records = append(records, recs...)
		scrapeErrors += errs
		skipped += skips
	}

	if p.cfg.ListingURL != "" && p.listing != nil && limits.Pages > 0 {
		res := p.listing.DiscoverFromListingPages(ctx, p.cfg.ListingURL, limits.Pages, p.cfg.DesiredCount)
		records = append(records, res.Records...)
		scrapeErrors += res.Errors
	}
	observability.AddRecordsExtracted(len(records))

	if err := ctx.Err(); err != nil {
		return RunResult{RunID: runID, ScrapeErrors: scrapeErrors, Skipped: skipped}, fmt.Errorf("run %s aborted before refresh: %w", runID, err)
	}

	now := p.now()
	for i := range records {
		records[i].PostedAt = scraper.ParseRelativeDateAt(records[i].PostedText, now)
	}
	records = Dedupe(records)

	res, err := p.refresher.Refresh(ctx, p.cfg.Source, records)
	res.RunID = runID
	res.ScrapeErrors = scrapeErrors
	res.Skipped = skipped
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}

	observability.AddJobsCreated(res.Created)
	log.Info("pipeline run finished",
		"processed", res.Processed,
		"created", res.Created,
		"errors", res.Errors,
		"deleted", res.Deleted,
		"scrape_errors", res.ScrapeErrors,
		"skipped", res.Skipped,
		"duration", res.Duration,
	)
	return res, nil
}

// scrapeSitemap fetches and extracts every sitemap candidate. A broken
// sitemap only disables this strategy for the run.
func (p *Pipeline) scrapeSitemap(ctx context.Context, log *slog.Logger, maxCount int) ([]scraper.Record, int, int) {
	candidates, err := p.sitemap.DiscoverFromSitemap(ctx, p.cfg.SitemapURL, p.cfg.SitemapMaxAgeDays, maxCount)
	if err != nil {
		var pe *discovery.ParseError
		if errors.As(err, &pe) {
			log.Warn("sitemap unparseable, falling back to listing pages", "url", pe.URL, "error", pe.Err)
		} else {
			log.Warn("sitemap unavailable, falling back to listing pages", "url", p.cfg.SitemapURL, "error", err)
		}
		return nil, 1, 0
	}

	var (
		records []scraper.Record
		errs    int
		skips   int
	)
	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		body, err := p.fetcher.Fetch(ctx, c.Loc)
		if err != nil {
			observability.IncError(observability.ClassifyFetchError(err), "detail")
			errs++
			continue
		}
		observability.IncPagesFetched()

		rec, ok := p.detail.Extract(c.Loc, body)
		if !ok {
			observability.IncRecordsSkipped()
			skips++
			continue
		}
		records = append(records, rec)
	}
	log.Info("sitemap scrape done", "candidates", len(candidates), "records", len(records), "errors", errs, "skipped", skips)
	return records, errs, skips
}
