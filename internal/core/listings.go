package core

import (
	"context"
	"log/slog"

	"github.com/baxromumarov/jobfeed/internal/store"
)

type Bootstrapper interface {
	RunOnce(ctx context.Context, reason string, limits RunLimits) (RunResult, bool, error)
}

// ListingService serves stored jobs of one source and scrapes synchronously
// when an unfiltered read finds nothing.
type ListingService struct {
	store     store.JobStore
	source    string
	boot      Bootstrapper
	bootstrap RunLimits
	limit     int
}

func NewListingService(s store.JobStore, source string, boot Bootstrapper, bootstrap RunLimits, limit int) *ListingService {
	return &ListingService{
		store:     s,
		source:    source,
		boot:      boot,
		bootstrap: bootstrap,
		limit:     limit,
	}
}

func (s *ListingService) Source() string {
	return s.source
}

// GetListings returns the source's jobs, newest first. The filter's Source is
// always overridden with the service's source.
func (s *ListingService) GetListings(ctx context.Context, filter store.Filter) ([]store.Job, error) {
	filter.Source = s.source

	jobs, err := s.store.FindMany(ctx, filter, store.SortRecent, s.limit)
	if err != nil {
		return nil, err
	}
	if len(jobs) > 0 || !filter.IsEmpty() || s.boot == nil {
		return jobs, nil
	}

	slog.Info("store empty, bootstrapping", "source", s.source, "page_limit", s.bootstrap.Pages, "sitemap_cap", s.bootstrap.SitemapCount)
	res, ran, err := s.boot.RunOnce(ctx, "bootstrap", s.bootstrap)
	if err != nil {
		slog.Warn("bootstrap run failed", "source", s.source, "error", err)
	}
	if !ran {
		return jobs, nil
	}
	slog.Info("bootstrap run done", "source", s.source, "created", res.Created)
	return s.store.FindMany(ctx, filter, store.SortRecent, s.limit)
}
