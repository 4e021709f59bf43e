package discovery

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/baxromumarov/jobfeed/internal/httpx"
	"github.com/baxromumarov/jobfeed/internal/observability"
	"github.com/baxromumarov/jobfeed/internal/urlutil"
)

var lastModLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Candidate is a detail page URL announced by the sitemap.
type Candidate struct {
	Loc     string
	LastMod *time.Time
}

// ParseError reports a sitemap document that is not valid sitemap XML.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse sitemap %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type sitemapEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type sitemapDoc struct {
	XMLName  xml.Name
	URLs     []sitemapEntry `xml:"url"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

type SitemapDiscoverer struct {
	fetcher      httpx.Fetcher
	detailPrefix string
	now          func() time.Time
}

func NewSitemapDiscoverer(fetcher httpx.Fetcher, detailPrefix string) *SitemapDiscoverer {
	return &SitemapDiscoverer{
		fetcher:      fetcher,
		detailPrefix: detailPrefix,
		now:          time.Now,
	}
}

// DiscoverFromSitemap returns the detail page URLs listed in sitemapURL whose
// lastmod is within maxAgeDays (entries without a usable lastmod are kept),
// in document order and capped at maxCount. A sitemap index is followed one
// level deep. Zero or negative limits disable the matching filter.
func (d *SitemapDiscoverer) DiscoverFromSitemap(ctx context.Context, sitemapURL string, maxAgeDays, maxCount int) ([]Candidate, error) {
	root, err := d.load(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	var cutoff time.Time
	if maxAgeDays > 0 {
		cutoff = d.now().AddDate(0, 0, -maxAgeDays)
	}

	var out []Candidate
	seen := make(map[string]struct{})
	collect := func(entries []sitemapEntry) bool {
		for _, e := range entries {
			loc := strings.TrimSpace(e.Loc)
			if loc == "" || !urlutil.IsDetailPath(loc, d.detailPrefix) {
				continue
			}
			key := loc
			if norm, _, err := urlutil.Normalize(loc); err == nil {
				key = norm
			}
			if _, ok := seen[key]; ok {
				continue
			}
			lastMod := parseLastMod(e.LastMod)
			if lastMod != nil && !cutoff.IsZero() && lastMod.Before(cutoff) {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, Candidate{Loc: loc, LastMod: lastMod})
			if maxCount > 0 && len(out) >= maxCount {
				return false
			}
		}
		return true
	}

	if !collect(root.URLs) {
		return out, nil
	}
	for _, child := range root.Sitemaps {
		loc := strings.TrimSpace(child.Loc)
		if loc == "" {
			continue
		}
		doc, err := d.load(ctx, loc)
		if err != nil {
			slog.Warn("child sitemap skipped", "url", loc, "error", err)
			continue
		}
		if !collect(doc.URLs) {
			break
		}
	}

	slog.Info("sitemap discovery done", "url", sitemapURL, "candidates", len(out))
	return out, nil
}

func (d *SitemapDiscoverer) load(ctx context.Context, sitemapURL string) (*sitemapDoc, error) {
	body, err := d.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		observability.IncError(observability.ClassifyFetchError(err), "sitemap")
		return nil, err
	}
	observability.IncPagesFetched()

	var doc sitemapDoc
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&doc); err != nil {
		observability.IncError(observability.ErrorParsing, "sitemap")
		return nil, &ParseError{URL: sitemapURL, Err: err}
	}
	switch doc.XMLName.Local {
	case "urlset", "sitemapindex":
	default:
		observability.IncError(observability.ErrorParsing, "sitemap")
		return nil, &ParseError{URL: sitemapURL, Err: fmt.Errorf("unexpected root element %q", doc.XMLName.Local)}
	}
	return &doc, nil
}

func parseLastMod(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range lastModLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
