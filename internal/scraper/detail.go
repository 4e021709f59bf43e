package scraper

import (
	"bytes"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/baxromumarov/jobfeed/internal/urlutil"
)

// DetailExtractor turns one job detail page into a Record.
type DetailExtractor struct {
	source     string
	limit      int
	rules      []compiledRule
	normalizer *SimpleNormalizer
}

func NewDetailExtractor(p Profile) (*DetailExtractor, error) {
	rules, err := compileRules(p.DetailRules)
	if err != nil {
		return nil, err
	}
	return &DetailExtractor{
		source:     p.Source,
		limit:      p.DetailDescriptionLimit,
		rules:      rules,
		normalizer: NewSimpleNormalizer(),
	}, nil
}

// Extract returns false when the page cannot be parsed or a mandatory field
// is missing. Modality and salary are left empty; detail pages do not carry
// them reliably.
func (e *DetailExtractor) Extract(pageURL string, body []byte) (Record, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		slog.Warn("detail parse failed", "url", pageURL, "error", err)
		return Record{}, false
	}
	base, _ := url.Parse(pageURL)

	rec := Record{
		Source:     e.source,
		ExternalID: urlutil.LastSegment(pageURL),
	}
	apply(e.rules, doc.Selection, findJobPosting(doc), &rec)

	if rec.URL = urlutil.Resolve(base, rec.URL); rec.URL == "" {
		rec.URL = pageURL
	}
	rec.CompanyURL = urlutil.Resolve(base, rec.CompanyURL)
	rec.CompanyLogo = urlutil.Resolve(base, rec.CompanyLogo)
	rec.Modality = ""
	rec.Salary = ""

	if strings.Contains(rec.Description, "<") {
		if text, err := e.normalizer.Normalize(rec.Description); err == nil {
			rec.Description = text
		}
	}
	rec.Description = truncate(rec.Description, e.limit)

	if missing := rec.Missing(); len(missing) > 0 {
		slog.Warn("detail page skipped", "url", pageURL, "missing", missing)
		return Record{}, false
	}
	return rec, true
}
