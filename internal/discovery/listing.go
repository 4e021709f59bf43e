package discovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/baxromumarov/jobfeed/internal/httpx"
	"github.com/baxromumarov/jobfeed/internal/observability"
	"github.com/baxromumarov/jobfeed/internal/scraper"
	"github.com/baxromumarov/jobfeed/internal/urlutil"
)

const DefaultPageDelay = 500 * time.Millisecond

// CardExtractor turns a listing page into records.
type CardExtractor interface {
	Extract(pageURL string, body []byte) ([]scraper.Record, error)
}

type ListingResult struct {
	Records []scraper.Record
	Pages   int
	Errors  int
}

// ListingWalker reads paginated listing pages one at a time.
type ListingWalker struct {
	fetcher httpx.Fetcher
	cards   CardExtractor
	delay   time.Duration
}

func NewListingWalker(fetcher httpx.Fetcher, cards CardExtractor, delay time.Duration) *ListingWalker {
	if delay < 0 {
		delay = 0
	}
	return &ListingWalker{fetcher: fetcher, cards: cards, delay: delay}
}

// DiscoverFromListingPages walks baseURL?page=1..pageLimit. It stops early
// when a page after the first has no cards, when desiredCount records have
// been collected over more than one page, or on the first failed page.
func (w *ListingWalker) DiscoverFromListingPages(ctx context.Context, baseURL string, pageLimit, desiredCount int) ListingResult {
	var res ListingResult

	for page := 1; page <= pageLimit; page++ {
		if page > 1 {
			if err := httpx.SleepWithContext(ctx, w.delay); err != nil {
				slog.Info("listing walk interrupted", "url", baseURL, "page", page, "error", err)
				break
			}
		}

		pageURL, err := urlutil.WithPage(baseURL, page)
		if err != nil {
			slog.Error("listing page url", "url", baseURL, "error", err)
			res.Errors++
			break
		}

		body, err := w.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			slog.Warn("listing page fetch failed", "url", pageURL, "page", page, "error", err)
			observability.IncError(observability.ClassifyFetchError(err), "listing")
			res.Errors++
			break
		}
		observability.IncPagesFetched()
		res.Pages++

		records, err := w.cards.Extract(pageURL, body)
		if err != nil {
			slog.Warn("listing page parse failed", "url", pageURL, "page", page, "error", err)
			observability.IncError(observability.ErrorParsing, "listing")
			res.Errors++
			break
		}
		if len(records) == 0 && page > 1 {
			break
		}
		res.Records = append(res.Records, records...)

		if desiredCount > 0 && len(res.Records) >= desiredCount && page > 1 {
			break
		}
	}

	slog.Info("listing discovery done", "url", baseURL, "pages", res.Pages, "records", len(res.Records), "errors", res.Errors)
	return res
}
